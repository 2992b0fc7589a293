package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/models"
)

// CountRow is one grouped count coming out of an aggregate query.
type CountRow struct {
	Key   string
	Count int64
}

// StatsRepository supplies the aggregate queries behind the compliance
// dashboards. Submission counts are always scoped to open rounds so the
// numbers describe the current campaign, not history.
type StatsRepository interface {
	CountStudents(ctx context.Context) (int64, error)
	CountStudentsByFaculty(ctx context.Context) ([]CountRow, error)
	CountStudentsByGroup(ctx context.Context, facultyName string) ([]CountRow, error)
	CountSubmitted(ctx context.Context) (int64, error)
	CountSubmittedByFaculty(ctx context.Context) ([]CountRow, error)
	CountSubmittedByGroup(ctx context.Context, facultyName string) ([]CountRow, error)
	CountByStatus(ctx context.Context, groupCodes []string) ([]CountRow, error)
	CountByBoilerTitle(ctx context.Context) ([]CountRow, error)
	CountBySubDistrict(ctx context.Context) ([]CountRow, error)
	CountSubmittedByGender(ctx context.Context) ([]CountRow, error)
	ListMapPoints(ctx context.Context) ([]models.Apartment, error)
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository constructs a stats repository.
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CountStudents(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Student{}).Count(&count).Error
	return count, err
}

func (r *statsRepository) CountStudentsByFaculty(ctx context.Context) ([]CountRow, error) {
	var rows []CountRow
	err := r.db.WithContext(ctx).Model(&models.Student{}).
		Select("department_name AS key, COUNT(*) AS count").
		Group("department_name").
		Order("department_name ASC").
		Scan(&rows).Error

	return rows, err
}

func (r *statsRepository) CountStudentsByGroup(ctx context.Context, facultyName string) ([]CountRow, error) {
	var rows []CountRow
	err := r.db.WithContext(ctx).Model(&models.Student{}).
		Select("group_code AS key, COUNT(*) AS count").
		Where("department_name = ?", facultyName).
		Group("group_code").
		Order("group_code ASC").
		Scan(&rows).Error

	return rows, err
}

// openSubmissions limits apartment rows to current submissions of rounds
// still in process, so superseded rows never inflate the counts.
func (r *statsRepository) openSubmissions(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Apartment{}).
		Joins("JOIN permissions ON permissions.id = apartments.permission_id").
		Where("permissions.status = ?", models.PermissionProcess).
		Where("apartments.current = ?", true)
}

func (r *statsRepository) CountSubmitted(ctx context.Context) (int64, error) {
	var count int64
	err := r.openSubmissions(ctx).Count(&count).Error
	return count, err
}

func (r *statsRepository) CountSubmittedByFaculty(ctx context.Context) ([]CountRow, error) {
	var rows []CountRow
	err := r.openSubmissions(ctx).
		Select("students.department_name AS key, COUNT(*) AS count").
		Joins("JOIN students ON students.id = apartments.student_id").
		Group("students.department_name").
		Order("students.department_name ASC").
		Scan(&rows).Error

	return rows, err
}

func (r *statsRepository) CountSubmittedByGroup(ctx context.Context, facultyName string) ([]CountRow, error) {
	var rows []CountRow
	err := r.openSubmissions(ctx).
		Select("apartments.group_code AS key, COUNT(*) AS count").
		Joins("JOIN students ON students.id = apartments.student_id").
		Where("students.department_name = ?", facultyName).
		Group("apartments.group_code").
		Order("apartments.group_code ASC").
		Scan(&rows).Error

	return rows, err
}

func (r *statsRepository) CountByStatus(ctx context.Context, groupCodes []string) ([]CountRow, error) {
	query := r.openSubmissions(ctx).
		Select("apartments.status AS key, COUNT(*) AS count").
		Group("apartments.status")
	if len(groupCodes) > 0 {
		query = query.Where("apartments.group_code IN ?", groupCodes)
	}

	var rows []CountRow
	err := query.Scan(&rows).Error

	return rows, err
}

func (r *statsRepository) CountByBoilerTitle(ctx context.Context) ([]CountRow, error) {
	var rows []CountRow
	err := r.openSubmissions(ctx).
		Select("apartments.boiler_title AS key, COUNT(*) AS count").
		Where("apartments.type = ?", models.ApartmentTenant).
		Group("apartments.boiler_title").
		Scan(&rows).Error

	return rows, err
}

func (r *statsRepository) CountBySubDistrict(ctx context.Context) ([]CountRow, error) {
	var rows []CountRow
	err := r.openSubmissions(ctx).
		Select("apartments.sub_district AS key, COUNT(*) AS count").
		Where("apartments.type = ?", models.ApartmentTenant).
		Where("apartments.sub_district <> ''").
		Group("apartments.sub_district").
		Scan(&rows).Error

	return rows, err
}

func (r *statsRepository) CountSubmittedByGender(ctx context.Context) ([]CountRow, error) {
	var rows []CountRow
	err := r.openSubmissions(ctx).
		Select("students.gender AS key, COUNT(*) AS count").
		Joins("JOIN students ON students.id = apartments.student_id").
		Group("students.gender").
		Scan(&rows).Error

	return rows, err
}

// ListMapPoints returns tenant submissions of open rounds that carry
// coordinates, with students preloaded for the pin labels.
func (r *statsRepository) ListMapPoints(ctx context.Context) ([]models.Apartment, error) {
	var apartments []models.Apartment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Joins("JOIN permissions ON permissions.id = apartments.permission_id").
		Where("permissions.status = ?", models.PermissionProcess).
		Where("apartments.current = ?", true).
		Where("apartments.type = ?", models.ApartmentTenant).
		Where("apartments.latitude <> 0 OR apartments.longitude <> 0").
		Find(&apartments).Error

	return apartments, err
}
