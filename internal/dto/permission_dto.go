package dto

import (
	"time"

	"github.com/karsu-its/ijara-api/internal/models"
)

// PermissionResponse serializes a review round.
type PermissionResponse struct {
	ID        uint      `json:"id"`
	TutorID   uint      `json:"tutor_id"`
	Status    string    `json:"status"`
	Submitted int64     `json:"submitted"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPermissionResponse converts a Permission model into a DTO.
func NewPermissionResponse(model models.Permission) PermissionResponse {
	return PermissionResponse{
		ID:        model.ID,
		TutorID:   model.TutorID,
		Status:    string(model.Status),
		CreatedAt: model.CreatedAt,
	}
}

// NewPermissionResponseSlice converts permission models into DTOs.
func NewPermissionResponseSlice(permissions []models.Permission) []PermissionResponse {
	responses := make([]PermissionResponse, 0, len(permissions))
	for _, permission := range permissions {
		responses = append(responses, NewPermissionResponse(permission))
	}

	return responses
}

// RoundGroupSummary is one row of the tutor's group overview for a round:
// how many students have submitted and how many verdicts in each state.
type RoundGroupSummary struct {
	GroupCode    string `json:"group_code"`
	GroupName    string `json:"group_name"`
	Students     int64  `json:"students"`
	Submitted    int64  `json:"submitted"`
	BeingChecked int64  `json:"being_checked"`
	Green        int64  `json:"green"`
	Yellow       int64  `json:"yellow"`
	Red          int64  `json:"red"`
}

// RoundGroupDetail pairs each student of a group with their submission for
// the round, submission being nil for students who have not reported yet.
type RoundGroupDetail struct {
	Student   StudentResponse    `json:"student"`
	Apartment *ApartmentResponse `json:"apartment"`
}
