package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/karsu-its/ijara-api/internal/models"
)

// GroupRepository provides access to the denormalized group catalog.
type GroupRepository interface {
	GetByCode(ctx context.Context, code string) (models.Group, error)
	ListByFaculty(ctx context.Context, facultyName string) ([]models.Group, error)
	ListByCodes(ctx context.Context, codes []string) ([]models.Group, error)
	Upsert(ctx context.Context, group *models.Group) error
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository constructs a group repository.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) GetByCode(ctx context.Context, code string) (models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&group).Error; err != nil {
		return models.Group{}, err
	}

	return group, nil
}

func (r *groupRepository) ListByFaculty(ctx context.Context, facultyName string) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.WithContext(ctx).
		Where("faculty_name = ?", facultyName).
		Order("name ASC").
		Find(&groups).Error; err != nil {
		return nil, err
	}

	return groups, nil
}

func (r *groupRepository) ListByCodes(ctx context.Context, codes []string) ([]models.Group, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var groups []models.Group
	if err := r.db.WithContext(ctx).
		Where("code IN ?", codes).
		Order("name ASC").
		Find(&groups).Error; err != nil {
		return nil, err
	}

	return groups, nil
}

// Upsert inserts the group or refreshes its name and faculty by code, used
// by the roster sync so repeated runs stay idempotent.
func (r *groupRepository) Upsert(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "education_lang", "faculty_name", "faculty_code", "updated_at",
		}),
	}).Create(group).Error
}
