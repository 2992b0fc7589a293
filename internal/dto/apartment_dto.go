package dto

import (
	"time"

	"github.com/karsu-its/ijara-api/internal/models"
)

// ApartmentCreateRequest describes the multipart payload for a housing
// submission. Which fields are required depends on the housing type and is
// enforced by the service, not by struct tags.
type ApartmentCreateRequest struct {
	Type          string  `form:"type" validate:"required,oneof=tenant relativeHouse littleHouse bedroom"`
	BoilerTitle   string  `form:"boiler_title" validate:"omitempty,max=128"`
	Latitude      float64 `form:"latitude" validate:"omitempty,latitude"`
	Longitude     float64 `form:"longitude" validate:"omitempty,longitude"`
	Address       string  `form:"address" validate:"omitempty,max=512"`
	SubDistrict   string  `form:"sub_district" validate:"omitempty,max=64"`
	OwnerName     string  `form:"owner_name" validate:"omitempty,max=255"`
	OwnerPhone    string  `form:"owner_phone" validate:"omitempty,max=32"`
	BedroomNumber string  `form:"bedroom_number" validate:"omitempty,max=16"`
	RoomNumber    string  `form:"room_number" validate:"omitempty,max=16"`
}

// ApartmentUpdateRequest lets a student amend location details of an open
// submission before it is checked.
type ApartmentUpdateRequest struct {
	BoilerTitle *string  `json:"boiler_title" validate:"omitempty,max=128"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
	Address     *string  `json:"address" validate:"omitempty,max=512"`
	SubDistrict *string  `json:"sub_district" validate:"omitempty,max=64"`
	OwnerName   *string  `json:"owner_name" validate:"omitempty,max=255"`
	OwnerPhone  *string  `json:"owner_phone" validate:"omitempty,max=32"`
}

// CheckRequest carries a tutor's per-facility verdicts for one tenant
// submission.
type CheckRequest struct {
	Boiler   string `json:"boiler" validate:"required,oneof=green yellow red"`
	GasStove string `json:"gas_stove" validate:"required,oneof=green yellow red"`
	Chimney  string `json:"chimney" validate:"required,oneof=green yellow red"`
	Message  string `json:"message" validate:"omitempty,max=2000"`
}

// FacilityProofResponse serializes one proof photo and its verdict.
type FacilityProofResponse struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}

// ApartmentResponse is returned to students and tutors when viewing
// submissions.
type ApartmentResponse struct {
	ID            uint                  `json:"id"`
	StudentID     uint                  `json:"student_id"`
	PermissionID  uint                  `json:"permission_id"`
	GroupCode     string                `json:"group_code"`
	Type          string                `json:"type"`
	Status        string                `json:"status"`
	Current       bool                  `json:"current"`
	NeedNew       bool                  `json:"need_new"`
	Contract      bool                  `json:"contract"`
	Boiler        FacilityProofResponse `json:"boiler"`
	GasStove      FacilityProofResponse `json:"gas_stove"`
	Chimney       FacilityProofResponse `json:"chimney"`
	AdditionImage string                `json:"addition_image,omitempty"`
	ContractImage string                `json:"contract_image,omitempty"`
	BoilerTitle   string                `json:"boiler_title,omitempty"`
	Latitude      float64               `json:"latitude,omitempty"`
	Longitude     float64               `json:"longitude,omitempty"`
	Address       string                `json:"address,omitempty"`
	SubDistrict   string                `json:"sub_district,omitempty"`
	OwnerName     string                `json:"owner_name,omitempty"`
	OwnerPhone    string                `json:"owner_phone,omitempty"`
	BedroomNumber string                `json:"bedroom_number,omitempty"`
	RoomNumber    string                `json:"room_number,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	Student       *StudentResponse      `json:"student,omitempty"`
}

// NewApartmentResponse converts an Apartment model into a DTO.
func NewApartmentResponse(model models.Apartment) ApartmentResponse {
	response := ApartmentResponse{
		ID:            model.ID,
		StudentID:     model.StudentID,
		PermissionID:  model.PermissionID,
		GroupCode:     model.GroupCode,
		Type:          string(model.Type),
		Status:        string(model.Status),
		Current:       model.Current,
		NeedNew:       model.NeedNew,
		Contract:      model.Contract,
		Boiler:        FacilityProofResponse{URL: model.Boiler.URL, Status: string(model.Boiler.Status)},
		GasStove:      FacilityProofResponse{URL: model.GasStove.URL, Status: string(model.GasStove.Status)},
		Chimney:       FacilityProofResponse{URL: model.Chimney.URL, Status: string(model.Chimney.Status)},
		AdditionImage: model.AdditionImage,
		ContractImage: model.ContractImage,
		BoilerTitle:   model.BoilerTitle,
		Latitude:      model.Latitude,
		Longitude:     model.Longitude,
		Address:       model.Address,
		SubDistrict:   model.SubDistrict,
		OwnerName:     model.OwnerName,
		OwnerPhone:    model.OwnerPhone,
		BedroomNumber: model.BedroomNumber,
		RoomNumber:    model.RoomNumber,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}

	if model.Student != nil && model.Student.ID != 0 {
		student := NewStudentResponse(*model.Student)
		response.Student = &student
	}

	return response
}

// NewApartmentResponseSlice converts apartment models into DTOs.
func NewApartmentResponseSlice(apartments []models.Apartment) []ApartmentResponse {
	responses := make([]ApartmentResponse, 0, len(apartments))
	for _, apartment := range apartments {
		responses = append(responses, NewApartmentResponse(apartment))
	}

	return responses
}
