package models

import "time"

// PermissionStatus is the lifecycle state of a review round.
type PermissionStatus string

const (
	PermissionProcess  PermissionStatus = "process"
	PermissionFinished PermissionStatus = "finished"
)

// Permission is a review round a tutor opens for every group they
// oversee. At most one round per tutor may be in the process state;
// starting a new one finishes the previous ones in the same transaction.
type Permission struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	TutorID   uint             `gorm:"index;not null" json:"tutor_id"`
	Status    PermissionStatus `gorm:"size:16;index;default:process" json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	Tutor *Tutor `gorm:"foreignKey:TutorID" json:"tutor,omitempty"`
}

// IsOpen reports whether students may still submit against this round.
func (p *Permission) IsOpen() bool {
	return p.Status == PermissionProcess
}
