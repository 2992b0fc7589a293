package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/models"
)

// NotificationRepository handles persistence for student feed entries.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByStudent(ctx context.Context, studentID uint, kind models.NotificationKind, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, studentID uint) (models.Notification, error)
	MarkAllRead(ctx context.Context, studentID uint, kind models.NotificationKind) (int64, error)
	DeleteByID(ctx context.Context, id, studentID uint) error
	HasColor(ctx context.Context, studentID, apartmentID uint, color models.NotificationColor) (bool, error)
	DeleteByStudentAndColors(ctx context.Context, studentID uint, colors []models.NotificationColor) error
	CreateForTutor(ctx context.Context, notification *models.TutorNotification) error
	ListByTutor(ctx context.Context, tutorID uint, limit, offset int) ([]models.TutorNotification, error)
	MarkTutorRead(ctx context.Context, id, tutorID uint) (models.TutorNotification, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListByStudent(ctx context.Context, studentID uint, kind models.NotificationKind, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var notifications []models.Notification
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, studentID uint) (models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).
		Where("id = ? AND student_id = ?", id, studentID).
		First(&notification).Error; err != nil {
		return models.Notification{}, err
	}

	if notification.Read {
		return notification, nil
	}

	notification.Read = true
	if err := r.db.WithContext(ctx).Save(&notification).Error; err != nil {
		return models.Notification{}, err
	}

	return notification, nil
}

// MarkAllRead flips every unread entry for the student, optionally
// limited to one kind. Returns the number of rows touched.
func (r *notificationRepository) MarkAllRead(ctx context.Context, studentID uint, kind models.NotificationKind) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("student_id = ?", studentID).
		Where("read = ?", false)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	result := query.Update("read", true)
	return result.RowsAffected, result.Error
}

func (r *notificationRepository) DeleteByID(ctx context.Context, id, studentID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND student_id = ?", id, studentID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// HasColor reports whether the student currently has a report entry of
// the given color for one submission. The check flow uses it to block
// re-checks while a yellow fix request on that submission is
// outstanding; a verdict on an older apartment never blocks a new one.
func (r *notificationRepository) HasColor(ctx context.Context, studentID, apartmentID uint, color models.NotificationColor) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("student_id = ?", studentID).
		Where("apartment_id = ?", apartmentID).
		Where("kind = ?", models.NotificationReport).
		Where("color = ?", color).
		Count(&count).Error

	return count > 0, err
}

// DeleteByStudentAndColors removes report entries only; push mirrors are
// kept as history.
func (r *notificationRepository) DeleteByStudentAndColors(ctx context.Context, studentID uint, colors []models.NotificationColor) error {
	return r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("kind = ?", models.NotificationReport).
		Where("color IN ?", colors).
		Delete(&models.Notification{}).Error
}

func (r *notificationRepository) CreateForTutor(ctx context.Context, notification *models.TutorNotification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListByTutor(ctx context.Context, tutorID uint, limit, offset int) ([]models.TutorNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var notifications []models.TutorNotification
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("tutor_id = ?", tutorID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) MarkTutorRead(ctx context.Context, id, tutorID uint) (models.TutorNotification, error) {
	var notification models.TutorNotification
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tutor_id = ?", id, tutorID).
		First(&notification).Error; err != nil {
		return models.TutorNotification{}, err
	}

	if notification.Read {
		return notification, nil
	}

	notification.Read = true
	if err := r.db.WithContext(ctx).Save(&notification).Error; err != nil {
		return models.TutorNotification{}, err
	}

	return notification, nil
}
