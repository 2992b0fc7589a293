package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/models"
)

// TutorRepository provides access to tutor accounts.
type TutorRepository interface {
	GetByID(ctx context.Context, id uint) (models.Tutor, error)
	GetByLogin(ctx context.Context, login string) (models.Tutor, error)
	FindByGroupCode(ctx context.Context, groupCode string) (models.Tutor, error)
	ListAll(ctx context.Context) ([]models.Tutor, error)
	Create(ctx context.Context, tutor *models.Tutor) error
	Update(ctx context.Context, tutor *models.Tutor) error
}

type tutorRepository struct {
	db *gorm.DB
}

// NewTutorRepository constructs a tutor repository.
func NewTutorRepository(db *gorm.DB) TutorRepository {
	return &tutorRepository{db: db}
}

func (r *tutorRepository) GetByID(ctx context.Context, id uint) (models.Tutor, error) {
	var tutor models.Tutor
	if err := r.db.WithContext(ctx).First(&tutor, id).Error; err != nil {
		return models.Tutor{}, err
	}

	return tutor, nil
}

func (r *tutorRepository) GetByLogin(ctx context.Context, login string) (models.Tutor, error) {
	var tutor models.Tutor
	if err := r.db.WithContext(ctx).
		Where("login = ?", login).
		First(&tutor).Error; err != nil {
		return models.Tutor{}, err
	}

	return tutor, nil
}

// FindByGroupCode returns the tutor overseeing the given group. Group
// assignments live in the serialized groups column, so the lookup uses
// the same portable text filter as the chat history queries.
func (r *tutorRepository) FindByGroupCode(ctx context.Context, groupCode string) (models.Tutor, error) {
	var tutor models.Tutor
	query := withGroupCode(r.db.WithContext(ctx).Model(&models.Tutor{}), groupCode)
	if err := query.First(&tutor).Error; err != nil {
		return models.Tutor{}, err
	}

	return tutor, nil
}

func (r *tutorRepository) ListAll(ctx context.Context) ([]models.Tutor, error) {
	var tutors []models.Tutor
	if err := r.db.WithContext(ctx).Order("full_name ASC").Find(&tutors).Error; err != nil {
		return nil, err
	}

	return tutors, nil
}

func (r *tutorRepository) Create(ctx context.Context, tutor *models.Tutor) error {
	return r.db.WithContext(ctx).Create(tutor).Error
}

func (r *tutorRepository) Update(ctx context.Context, tutor *models.Tutor) error {
	return r.db.WithContext(ctx).Save(tutor).Error
}

// FacultyAdminRepository provides access to faculty admin accounts.
type FacultyAdminRepository interface {
	GetByID(ctx context.Context, id uint) (models.FacultyAdmin, error)
	GetByLogin(ctx context.Context, login string) (models.FacultyAdmin, error)
	Create(ctx context.Context, admin *models.FacultyAdmin) error
	Update(ctx context.Context, admin *models.FacultyAdmin) error
}

type facultyAdminRepository struct {
	db *gorm.DB
}

// NewFacultyAdminRepository constructs a faculty admin repository.
func NewFacultyAdminRepository(db *gorm.DB) FacultyAdminRepository {
	return &facultyAdminRepository{db: db}
}

func (r *facultyAdminRepository) GetByID(ctx context.Context, id uint) (models.FacultyAdmin, error) {
	var admin models.FacultyAdmin
	if err := r.db.WithContext(ctx).First(&admin, id).Error; err != nil {
		return models.FacultyAdmin{}, err
	}

	return admin, nil
}

func (r *facultyAdminRepository) GetByLogin(ctx context.Context, login string) (models.FacultyAdmin, error) {
	var admin models.FacultyAdmin
	if err := r.db.WithContext(ctx).
		Where("login = ?", login).
		First(&admin).Error; err != nil {
		return models.FacultyAdmin{}, err
	}

	return admin, nil
}

func (r *facultyAdminRepository) Create(ctx context.Context, admin *models.FacultyAdmin) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

func (r *facultyAdminRepository) Update(ctx context.Context, admin *models.FacultyAdmin) error {
	return r.db.WithContext(ctx).Save(admin).Error
}

// AdminRepository provides access to university admin accounts.
type AdminRepository interface {
	GetByID(ctx context.Context, id uint) (models.Admin, error)
	GetByLogin(ctx context.Context, login string) (models.Admin, error)
	Create(ctx context.Context, admin *models.Admin) error
	Update(ctx context.Context, admin *models.Admin) error
}

type adminRepository struct {
	db *gorm.DB
}

// NewAdminRepository constructs an admin repository.
func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) GetByID(ctx context.Context, id uint) (models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).First(&admin, id).Error; err != nil {
		return models.Admin{}, err
	}

	return admin, nil
}

func (r *adminRepository) GetByLogin(ctx context.Context, login string) (models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).
		Where("login = ?", login).
		First(&admin).Error; err != nil {
		return models.Admin{}, err
	}

	return admin, nil
}

func (r *adminRepository) Create(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

func (r *adminRepository) Update(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).Save(admin).Error
}
