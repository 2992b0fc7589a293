package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/models"
)

// StudentRepository provides access to the synced roster.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetByIDNumber(ctx context.Context, idNumber string) (models.Student, error)
	ListByGroupCode(ctx context.Context, groupCode string) ([]models.Student, error)
	CountByGroupCode(ctx context.Context, groupCode string) (int64, error)
	Search(ctx context.Context, name string, limit int) ([]models.Student, error)
	Update(ctx context.Context, student *models.Student) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByIDNumber(ctx context.Context, idNumber string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).
		Where("student_id_number = ?", idNumber).
		First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) ListByGroupCode(ctx context.Context, groupCode string) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.WithContext(ctx).
		Where("group_code = ?", groupCode).
		Order("full_name ASC").
		Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) CountByGroupCode(ctx context.Context, groupCode string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Student{}).
		Where("group_code = ?", groupCode).
		Count(&count).Error

	return count, err
}

// Search matches students by name fragment. The fragment is escaped so
// user input cannot smuggle LIKE wildcards into the pattern.
func (r *studentRepository) Search(ctx context.Context, name string, limit int) ([]models.Student, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	pattern := "%" + escapeLike(name) + "%"

	var students []models.Student
	if err := r.db.WithContext(ctx).
		Where(`full_name LIKE ? ESCAPE '\'`, pattern).
		Order("full_name ASC").
		Limit(limit).
		Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) Update(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
