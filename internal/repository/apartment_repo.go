package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/models"
)

// ApartmentRepository provides access to housing submissions.
type ApartmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Apartment, error)
	// GetByPermissionAndStudent returns the submission occupying the
	// student's one-per-round slot: current and not flagged for
	// replacement. Superseded rows stay invisible to it.
	GetByPermissionAndStudent(ctx context.Context, permissionID, studentID uint) (models.Apartment, error)
	// SupersedeCurrent retires the student's current submission for the
	// round so a replacement may be created.
	SupersedeCurrent(ctx context.Context, permissionID, studentID uint) error
	ListByStudent(ctx context.Context, studentID uint) ([]models.Apartment, error)
	ListByStatusAndGroup(ctx context.Context, status models.ComplianceStatus, groupCode string) ([]models.Apartment, error)
	ListByTypeAndGroup(ctx context.Context, housingType models.ApartmentType, groupCode string) ([]models.Apartment, error)
	ListByPermission(ctx context.Context, permissionID uint) ([]models.Apartment, error)
	CountByPermission(ctx context.Context, permissionID uint) (int64, error)
	Create(ctx context.Context, apartment *models.Apartment) error
	Update(ctx context.Context, apartment *models.Apartment) error
	Delete(ctx context.Context, id uint) error
	// RecordCheck persists the checked apartment together with its
	// notification rollover in one transaction.
	RecordCheck(ctx context.Context, apartment *models.Apartment, notification *models.Notification) error
}

type apartmentRepository struct {
	db *gorm.DB
}

// NewApartmentRepository constructs an apartment repository.
func NewApartmentRepository(db *gorm.DB) ApartmentRepository {
	return &apartmentRepository{db: db}
}

func (r *apartmentRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Apartment{}).Preload("Student")
}

func (r *apartmentRepository) GetByID(ctx context.Context, id uint) (models.Apartment, error) {
	var apartment models.Apartment
	if err := r.baseQuery(ctx).First(&apartment, id).Error; err != nil {
		return models.Apartment{}, err
	}

	return apartment, nil
}

func (r *apartmentRepository) GetByPermissionAndStudent(ctx context.Context, permissionID, studentID uint) (models.Apartment, error) {
	var apartment models.Apartment
	if err := r.baseQuery(ctx).
		Where("permission_id = ?", permissionID).
		Where("student_id = ?", studentID).
		Where("current = ?", true).
		Where("need_new = ?", false).
		First(&apartment).Error; err != nil {
		return models.Apartment{}, err
	}

	return apartment, nil
}

func (r *apartmentRepository) SupersedeCurrent(ctx context.Context, permissionID, studentID uint) error {
	return r.db.WithContext(ctx).Model(&models.Apartment{}).
		Where("permission_id = ?", permissionID).
		Where("student_id = ?", studentID).
		Where("current = ?", true).
		Updates(map[string]interface{}{"current": false, "need_new": true}).Error
}

func (r *apartmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Apartment, error) {
	var apartments []models.Apartment
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&apartments).Error; err != nil {
		return nil, err
	}

	return apartments, nil
}

func (r *apartmentRepository) ListByStatusAndGroup(ctx context.Context, status models.ComplianceStatus, groupCode string) ([]models.Apartment, error) {
	var apartments []models.Apartment
	if err := r.baseQuery(ctx).
		Where("status = ?", status).
		Where("group_code = ?", groupCode).
		Where("current = ?", true).
		Order("created_at DESC").
		Find(&apartments).Error; err != nil {
		return nil, err
	}

	return apartments, nil
}

func (r *apartmentRepository) ListByTypeAndGroup(ctx context.Context, housingType models.ApartmentType, groupCode string) ([]models.Apartment, error) {
	var apartments []models.Apartment
	if err := r.baseQuery(ctx).
		Where("type = ?", housingType).
		Where("group_code = ?", groupCode).
		Where("current = ?", true).
		Order("created_at DESC").
		Find(&apartments).Error; err != nil {
		return nil, err
	}

	return apartments, nil
}

func (r *apartmentRepository) ListByPermission(ctx context.Context, permissionID uint) ([]models.Apartment, error) {
	var apartments []models.Apartment
	if err := r.baseQuery(ctx).
		Where("permission_id = ?", permissionID).
		Where("current = ?", true).
		Order("created_at DESC").
		Find(&apartments).Error; err != nil {
		return nil, err
	}

	return apartments, nil
}

func (r *apartmentRepository) CountByPermission(ctx context.Context, permissionID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Where("permission_id = ?", permissionID).
		Where("current = ?", true).
		Count(&count).Error

	return count, err
}

func (r *apartmentRepository) Create(ctx context.Context, apartment *models.Apartment) error {
	return r.db.WithContext(ctx).Create(apartment).Error
}

func (r *apartmentRepository) Update(ctx context.Context, apartment *models.Apartment) error {
	return r.db.WithContext(ctx).Save(apartment).Error
}

func (r *apartmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Apartment{}, id).Error
}

// RecordCheck saves the verdict and swaps the student's feed in one
// transaction: stale blue and green entries disappear and exactly one
// notification matching the verdict is left behind.
func (r *apartmentRepository) RecordCheck(ctx context.Context, apartment *models.Apartment, notification *models.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(apartment).Error; err != nil {
			return err
		}

		staleColors := []models.NotificationColor{
			models.NotificationBlue,
			models.NotificationGreen,
		}
		if err := tx.
			Where("student_id = ?", apartment.StudentID).
			Where("kind = ?", models.NotificationReport).
			Where("color IN ?", staleColors).
			Delete(&models.Notification{}).Error; err != nil {
			return err
		}

		return tx.Create(notification).Error
	})
}
