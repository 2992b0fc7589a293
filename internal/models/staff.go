package models

import (
	"time"

	"gorm.io/datatypes"
)

// GroupRef is a lightweight pointer to a roster group, stored inside a
// tutor's JSON assignment list. Code matches Group.Code.
type GroupRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// FacultyRef points at a faculty a faculty admin oversees.
type FacultyRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Tutor is a staff member responsible for checking the housing of the
// students in their assigned groups.
type Tutor struct {
	ID           uint                          `gorm:"primaryKey" json:"id"`
	Login        string                        `gorm:"size:64;uniqueIndex;not null" json:"login"`
	PasswordHash string                        `gorm:"size:255;not null" json:"-"`
	FullName     string                        `gorm:"size:255" json:"full_name"`
	Phone        string                        `gorm:"size:32" json:"phone"`
	FCMToken     string                        `gorm:"size:512" json:"-"`
	Groups       datatypes.JSONSlice[GroupRef] `json:"groups"`
	CreatedAt    time.Time                     `json:"created_at"`
	UpdatedAt    time.Time                     `json:"updated_at"`
}

// FacultyAdmin sees aggregate statistics for its faculties but never
// individual submissions.
type FacultyAdmin struct {
	ID           uint                            `gorm:"primaryKey" json:"id"`
	Login        string                          `gorm:"size:64;uniqueIndex;not null" json:"login"`
	PasswordHash string                          `gorm:"size:255;not null" json:"-"`
	FullName     string                          `gorm:"size:255" json:"full_name"`
	Faculties    datatypes.JSONSlice[FacultyRef] `json:"faculties"`
	CreatedAt    time.Time                       `json:"created_at"`
	UpdatedAt    time.Time                       `json:"updated_at"`
}

// Admin is the university-wide operator account.
type Admin struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Login        string    `gorm:"size:64;uniqueIndex;not null" json:"login"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	FullName     string    `gorm:"size:255" json:"full_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
