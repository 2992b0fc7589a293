package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChatMessage is one broadcast a tutor sent to their groups. Body is
// sanitized before storage. Groups carries the roster groups the
// broadcast was addressed to.
type ChatMessage struct {
	ID        uint                          `gorm:"primaryKey" json:"id"`
	TutorID   uint                          `gorm:"index;not null" json:"tutor_id"`
	Body      string                        `gorm:"type:text;not null" json:"body"`
	Groups    datatypes.JSONSlice[GroupRef] `json:"groups"`
	CreatedAt time.Time                     `json:"created_at"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

// AddressedTo reports whether the broadcast targets the given group.
func (m ChatMessage) AddressedTo(groupCode string) bool {
	for _, ref := range m.Groups {
		if ref.Code == groupCode {
			return true
		}
	}
	return false
}
