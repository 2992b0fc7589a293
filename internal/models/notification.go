package models

import "time"

// NotificationColor is the closed set of notification kinds shown to a
// student. Blue is informational, green confirms an accepted submission,
// yellow asks for a partial fix and blocks further checks until the student
// resubmits, red demands a full resubmission.
type NotificationColor string

const (
	NotificationBlue   NotificationColor = "blue"
	NotificationGreen  NotificationColor = "green"
	NotificationYellow NotificationColor = "yellow"
	NotificationRed    NotificationColor = "red"
)

// ColorForCompliance maps a check verdict to the notification color shown
// to the student.
func ColorForCompliance(s ComplianceStatus) NotificationColor {
	switch s {
	case ComplianceRed:
		return NotificationRed
	case ComplianceYellow:
		return NotificationYellow
	default:
		return NotificationGreen
	}
}

// NotificationKind splits the feed into review verdicts (report) and
// congratulatory mobile mirrors (push).
type NotificationKind string

const (
	NotificationReport NotificationKind = "report"
	NotificationPush   NotificationKind = "push"
)

// Notification is a per-student message in the housing feed. Report
// notifications carry a check verdict and point at the submission and
// round they verdict; at most one non-blue report notification per
// student exists at a time. Push entries mirror what was handed to the
// mobile push provider and follow no exclusivity rule. NeedData flags
// the entries that ask the student to send housing details.
type Notification struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	StudentID    uint              `gorm:"index;not null" json:"student_id"`
	TutorID      uint              `gorm:"index" json:"tutor_id"`
	ApartmentID  *uint             `gorm:"index" json:"apartment_id,omitempty"`
	PermissionID *uint             `gorm:"index" json:"permission_id,omitempty"`
	Kind         NotificationKind  `gorm:"size:16;index;not null;default:report" json:"kind"`
	Color        NotificationColor `gorm:"size:16;index;not null" json:"color"`
	Title        string            `gorm:"size:255" json:"title"`
	Message      string            `gorm:"type:text" json:"message"`
	NeedData     bool              `gorm:"not null;default:false" json:"need_data"`
	Read         bool              `gorm:"default:false" json:"read"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`

	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// TutorNotification tells a tutor that a student in one of their groups
// submitted a bedroom record needing no review.
type TutorNotification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TutorID   uint      `gorm:"index;not null" json:"tutor_id"`
	StudentID uint      `gorm:"index;not null" json:"student_id"`
	Title     string    `gorm:"size:255" json:"title"`
	Message   string    `gorm:"type:text" json:"message"`
	Read      bool      `gorm:"default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`

	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}
