package dto

import "github.com/karsu-its/ijara-api/internal/models"

// StudentLoginRequest carries HEMIS credentials for the student login flow.
type StudentLoginRequest struct {
	Login    string `json:"login" validate:"required,min=6"`
	Password string `json:"password" validate:"required,min=4"`
}

// StaffLoginRequest authenticates tutors, faculty admins and admins.
type StaffLoginRequest struct {
	Login    string `json:"login" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=4"`
}

// ChangePasswordRequest rotates a staff password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// LoginResponse returns the issued token together with the profile of the
// authenticated principal. NeedsSync is set, and the token withheld, when
// a student logged in with valid HEMIS credentials but the roster does
// not know them yet. ExistApartment tells the student app whether a
// submission for the current round is already in.
type LoginResponse struct {
	Token          string      `json:"token,omitempty"`
	Role           string      `json:"role"`
	NeedsSync      bool        `json:"needs_sync,omitempty"`
	ExistApartment bool        `json:"existApartment"`
	Profile        interface{} `json:"profile"`
}

// TutorProfile summarizes a tutor for login responses and group listings.
type TutorProfile struct {
	ID       uint              `json:"id"`
	Login    string            `json:"login"`
	FullName string            `json:"full_name"`
	Phone    string            `json:"phone"`
	Groups   []models.GroupRef `json:"groups"`
}

// NewTutorProfile converts a tutor model into its API shape.
func NewTutorProfile(model models.Tutor) TutorProfile {
	return TutorProfile{
		ID:       model.ID,
		Login:    model.Login,
		FullName: model.FullName,
		Phone:    model.Phone,
		Groups:   model.Groups,
	}
}
