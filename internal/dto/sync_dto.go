package dto

import (
	"time"

	"github.com/karsu-its/ijara-api/internal/models"
)

// SyncStatusResponse reports the roster sync lifecycle to admins.
type SyncStatusResponse struct {
	Running     bool      `json:"running"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	LastError   string    `json:"last_error,omitempty"`
	TotalSynced int       `json:"total_synced"`
	PagesFailed int       `json:"pages_failed"`
}

// FacultyResponse is one faculty from the university profile.
type FacultyResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// NewSyncStatusResponse converts the SyncState row into a DTO.
func NewSyncStatusResponse(model models.SyncState) SyncStatusResponse {
	return SyncStatusResponse{
		Running:     model.Running,
		StartedAt:   model.StartedAt,
		FinishedAt:  model.FinishedAt,
		LastError:   model.LastError,
		TotalSynced: model.TotalSynced,
		PagesFailed: model.PagesFailed,
	}
}
