package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/models"
)

// RoundStart bundles everything a new review round changes atomically:
// the round row itself plus the notification rollover for the students
// of every group the tutor oversees.
type RoundStart struct {
	Permission *models.Permission
	StudentIDs []uint
	Title      string
	Message    string
}

// PermissionRepository provides access to review rounds.
type PermissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Permission, error)
	ActiveByTutor(ctx context.Context, tutorID uint) (models.Permission, error)
	ListByTutor(ctx context.Context, tutorID uint) ([]models.Permission, error)
	StartRound(ctx context.Context, start RoundStart) error
}

type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository constructs a permission repository.
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) GetByID(ctx context.Context, id uint) (models.Permission, error) {
	var permission models.Permission
	if err := r.db.WithContext(ctx).First(&permission, id).Error; err != nil {
		return models.Permission{}, err
	}

	return permission, nil
}

func (r *permissionRepository) ActiveByTutor(ctx context.Context, tutorID uint) (models.Permission, error) {
	var permission models.Permission
	if err := r.db.WithContext(ctx).
		Where("tutor_id = ?", tutorID).
		Where("status = ?", models.PermissionProcess).
		First(&permission).Error; err != nil {
		return models.Permission{}, err
	}

	return permission, nil
}

func (r *permissionRepository) ListByTutor(ctx context.Context, tutorID uint) ([]models.Permission, error) {
	var permissions []models.Permission
	if err := r.db.WithContext(ctx).
		Where("tutor_id = ?", tutorID).
		Order("created_at DESC").
		Find(&permissions).Error; err != nil {
		return nil, err
	}

	return permissions, nil
}

// StartRound finishes any open round of the tutor, creates the new one,
// clears the outstanding report notifications of the tutor's students
// and asks every one of them to resubmit. All in one transaction so a
// new round never half-exists.
func (r *permissionRepository) StartRound(ctx context.Context, start RoundStart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Permission{}).
			Where("tutor_id = ?", start.Permission.TutorID).
			Where("status = ?", models.PermissionProcess).
			Update("status", models.PermissionFinished).Error; err != nil {
			return err
		}

		if err := tx.Create(start.Permission).Error; err != nil {
			return err
		}

		if len(start.StudentIDs) == 0 {
			return nil
		}

		reportColors := []models.NotificationColor{
			models.NotificationRed,
			models.NotificationYellow,
			models.NotificationBlue,
		}
		if err := tx.
			Where("student_id IN ?", start.StudentIDs).
			Where("kind = ?", models.NotificationReport).
			Where("color IN ?", reportColors).
			Delete(&models.Notification{}).Error; err != nil {
			return err
		}

		notifications := make([]models.Notification, 0, len(start.StudentIDs))
		for _, studentID := range start.StudentIDs {
			notifications = append(notifications, models.Notification{
				StudentID:    studentID,
				TutorID:      start.Permission.TutorID,
				PermissionID: &start.Permission.ID,
				Kind:         models.NotificationReport,
				Color:        models.NotificationRed,
				Title:        start.Title,
				Message:      start.Message,
				NeedData:     true,
			})
		}

		return tx.Create(&notifications).Error
	})
}
