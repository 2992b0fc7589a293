package models

import "time"

// SyncState is a singleton row recording the roster sync lifecycle. The
// Running flag is flipped inside a transaction so concurrent sync requests
// on any node see a consistent answer.
type SyncState struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Running     bool      `gorm:"default:false" json:"running"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	LastError   string    `gorm:"size:1024" json:"last_error"`
	TotalSynced int       `json:"total_synced"`
	PagesFailed int       `json:"pages_failed"`
	UpdatedAt   time.Time `json:"updated_at"`
}
