package models

import "time"

// Student mirrors a roster record synced from the HEMIS student-information
// system. StudentIDNumber is the external unique key; everything else is
// overwritten verbatim on each sync except the self-service fields
// (Image, RoommateCount, Other) which the student may edit.
type Student struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	StudentIDNumber string `gorm:"size:32;uniqueIndex;not null" json:"student_id_number"`
	FullName        string `gorm:"size:255;index" json:"full_name"`
	ShortName       string `gorm:"size:255" json:"short_name"`
	FirstName       string `gorm:"size:128" json:"first_name"`
	SecondName      string `gorm:"size:128" json:"second_name"`
	ThirdName       string `gorm:"size:128" json:"third_name"`
	Gender          string `gorm:"size:32" json:"gender"`
	BirthDate       int64  `json:"birth_date"`
	Image           string `gorm:"size:512" json:"image"`

	ProvinceName  string `gorm:"size:128" json:"province_name"`
	DistrictName  string `gorm:"size:128" json:"district_name"`
	Accommodation string `gorm:"size:128" json:"accommodation"`

	DepartmentCode string `gorm:"size:64" json:"department_code"`
	DepartmentName string `gorm:"size:255;index" json:"department_name"`
	SpecialtyName  string `gorm:"size:255" json:"specialty_name"`
	GroupCode      string `gorm:"size:64;index" json:"group_code"`
	GroupName      string `gorm:"size:255" json:"group_name"`
	EducationLang  string `gorm:"size:64" json:"education_lang"`
	LevelName      string `gorm:"size:64" json:"level_name"`
	EducationForm  string `gorm:"size:64" json:"education_form"`
	EducationType  string `gorm:"size:64" json:"education_type"`
	EducationYear  string `gorm:"size:32" json:"education_year"`
	YearOfEnter    int    `json:"year_of_enter"`

	RoommateCount string `gorm:"size:16" json:"roommate_count"`
	Other         string `gorm:"type:text" json:"other"`
	FCMToken      string `gorm:"size:512" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Group is a denormalized cache of the roster's grouping so staff can list
// groups without scanning the whole student table. Upserted by code during
// roster sync.
type Group struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Code          string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name          string    `gorm:"size:255;index" json:"name"`
	EducationLang string    `gorm:"size:64" json:"education_lang"`
	FacultyName   string    `gorm:"size:255;index" json:"faculty_name"`
	FacultyCode   string    `gorm:"size:64" json:"faculty_code"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
