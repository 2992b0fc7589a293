package models

import "time"

// ApartmentType classifies how a student is housed off campus.
type ApartmentType string

const (
	ApartmentTenant      ApartmentType = "tenant"
	ApartmentRelative    ApartmentType = "relativeHouse"
	ApartmentLittleHouse ApartmentType = "littleHouse"
	ApartmentBedroom     ApartmentType = "bedroom"
)

// ComplianceStatus is the closed set of states a submission, or one of its
// facility proofs, can be in. Being checked is the initial state for tenant
// facilities; the other three are verdicts a tutor assigns.
type ComplianceStatus string

const (
	ComplianceBeingChecked ComplianceStatus = "Being checked"
	ComplianceGreen        ComplianceStatus = "green"
	ComplianceYellow       ComplianceStatus = "yellow"
	ComplianceRed          ComplianceStatus = "red"
)

// ValidVerdict reports whether s is a state a tutor may assign to a
// facility proof during a check.
func (s ComplianceStatus) ValidVerdict() bool {
	switch s {
	case ComplianceGreen, ComplianceYellow, ComplianceRed:
		return true
	}
	return false
}

// WorseOf returns the more severe of two statuses, red outranking yellow
// outranking green. Being checked counts as not-yet-green and is dominated
// by any verdict.
func WorseOf(a, b ComplianceStatus) ComplianceStatus {
	rank := func(s ComplianceStatus) int {
		switch s {
		case ComplianceRed:
			return 3
		case ComplianceYellow:
			return 2
		case ComplianceGreen:
			return 1
		default:
			return 0
		}
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

// FacilityProof is one photographed installation inside a tenant apartment
// together with the tutor's verdict on it.
type FacilityProof struct {
	URL    string           `json:"url"`
	Status ComplianceStatus `json:"status"`
}

// Apartment is a student's housing submission for one review round. Tenant
// submissions carry facility proofs and start Being checked; the other
// types are accepted green immediately. When a tutor demands a fresh
// submission the row stays for history with current=false and
// need_new=true, which frees the one-per-round slot for the replacement.
type Apartment struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	StudentID    uint          `gorm:"index;not null" json:"student_id"`
	PermissionID uint          `gorm:"index;not null" json:"permission_id"`
	GroupCode    string        `gorm:"size:64;index" json:"group_code"`
	Type         ApartmentType `gorm:"size:32;not null" json:"type"`

	Status  ComplianceStatus `gorm:"size:32;index;default:Being checked" json:"status"`
	Current bool             `gorm:"not null;default:true" json:"current"`
	NeedNew bool             `gorm:"not null;default:false" json:"need_new"`

	// Tenant fields.
	Boiler        FacilityProof `gorm:"embedded;embeddedPrefix:boiler_" json:"boiler"`
	GasStove      FacilityProof `gorm:"embedded;embeddedPrefix:gas_stove_" json:"gas_stove"`
	Chimney       FacilityProof `gorm:"embedded;embeddedPrefix:chimney_" json:"chimney"`
	AdditionImage string        `gorm:"size:512" json:"addition_image"`
	ContractImage string        `gorm:"size:512" json:"contract_image"`
	Contract      bool          `gorm:"not null;default:false" json:"contract"`
	BoilerTitle   string        `gorm:"size:128" json:"boiler_title"`
	Latitude      float64       `json:"latitude"`
	Longitude     float64       `json:"longitude"`
	Address       string        `gorm:"size:512" json:"address"`
	SubDistrict   string        `gorm:"size:64;index" json:"sub_district"`

	// Relative and little-house fields.
	OwnerName  string `gorm:"size:255" json:"owner_name"`
	OwnerPhone string `gorm:"size:32" json:"owner_phone"`

	// Bedroom fields.
	BedroomNumber string `gorm:"size:16" json:"bedroom_number"`
	RoomNumber    string `gorm:"size:16" json:"room_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Student    *Student    `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Permission *Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
}

// RequiresReview reports whether a tutor still has to check this
// submission. Non-tenant types never do.
func (a *Apartment) RequiresReview() bool {
	return a.Type == ApartmentTenant && a.Status == ComplianceBeingChecked
}

// DeriveStatus folds the three facility verdicts into the overall
// submission status: any red makes the whole submission red, otherwise any
// yellow makes it yellow, otherwise it is green.
func (a *Apartment) DeriveStatus() ComplianceStatus {
	s := WorseOf(a.Boiler.Status, WorseOf(a.GasStove.Status, a.Chimney.Status))
	if !s.ValidVerdict() {
		return ComplianceBeingChecked
	}
	return s
}
