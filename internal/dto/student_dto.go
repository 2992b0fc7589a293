package dto

import "github.com/karsu-its/ijara-api/internal/models"

// StudentProfileUpdateRequest covers the self-service fields a student may
// edit on their own roster row.
type StudentProfileUpdateRequest struct {
	RoommateCount *string `json:"roommate_count" validate:"omitempty,max=16"`
	Other         *string `json:"other" validate:"omitempty,max=2000"`
	FCMToken      *string `json:"fcm_token" validate:"omitempty,max=512"`
}

// StudentResponse is the roster row serialized for staff and for the
// student's own profile screen.
type StudentResponse struct {
	ID              uint   `json:"id"`
	StudentIDNumber string `json:"student_id_number"`
	FullName        string `json:"full_name"`
	ShortName       string `json:"short_name"`
	Gender          string `json:"gender"`
	Image           string `json:"image"`
	ProvinceName    string `json:"province_name"`
	DistrictName    string `json:"district_name"`
	Accommodation   string `json:"accommodation"`
	DepartmentName  string `json:"department_name"`
	SpecialtyName   string `json:"specialty_name"`
	GroupCode       string `json:"group_code"`
	GroupName       string `json:"group_name"`
	LevelName       string `json:"level_name"`
	EducationForm   string `json:"education_form"`
	RoommateCount   string `json:"roommate_count"`
	Other           string `json:"other"`
}

// NewStudentResponse converts a Student model into a DTO.
func NewStudentResponse(model models.Student) StudentResponse {
	return StudentResponse{
		ID:              model.ID,
		StudentIDNumber: model.StudentIDNumber,
		FullName:        model.FullName,
		ShortName:       model.ShortName,
		Gender:          model.Gender,
		Image:           model.Image,
		ProvinceName:    model.ProvinceName,
		DistrictName:    model.DistrictName,
		Accommodation:   model.Accommodation,
		DepartmentName:  model.DepartmentName,
		SpecialtyName:   model.SpecialtyName,
		GroupCode:       model.GroupCode,
		GroupName:       model.GroupName,
		LevelName:       model.LevelName,
		EducationForm:   model.EducationForm,
		RoommateCount:   model.RoommateCount,
		Other:           model.Other,
	}
}

// NewStudentResponseSlice converts student models into DTOs.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	responses := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, NewStudentResponse(student))
	}

	return responses
}
