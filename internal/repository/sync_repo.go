package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/karsu-its/ijara-api/internal/models"
)

// SyncRepository owns the roster sync state row and the bulk roster
// writes. The state row is a singleton and its Running flag is the
// cross-node mutex for the sync job.
type SyncRepository interface {
	State(ctx context.Context) (models.SyncState, error)
	// TryStart flips Running to true and reports false when another run
	// already holds it.
	TryStart(ctx context.Context) (bool, error)
	Finish(ctx context.Context, total, pagesFailed int, runErr error) error
	UpsertStudents(ctx context.Context, students []models.Student) error
}

type syncRepository struct {
	db *gorm.DB
}

// NewSyncRepository constructs a sync repository.
func NewSyncRepository(db *gorm.DB) SyncRepository {
	return &syncRepository{db: db}
}

func (r *syncRepository) State(ctx context.Context) (models.SyncState, error) {
	var state models.SyncState
	err := r.db.WithContext(ctx).FirstOrCreate(&state, models.SyncState{ID: 1}).Error
	if err != nil {
		return models.SyncState{}, err
	}

	return state, nil
}

func (r *syncRepository) TryStart(ctx context.Context) (bool, error) {
	if _, err := r.State(ctx); err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).Model(&models.SyncState{}).
		Where("id = ?", 1).
		Where("running = ?", false).
		Updates(map[string]interface{}{
			"running":    true,
			"started_at": time.Now(),
			"last_error": "",
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *syncRepository) Finish(ctx context.Context, total, pagesFailed int, runErr error) error {
	updates := map[string]interface{}{
		"running":      false,
		"finished_at":  time.Now(),
		"total_synced": total,
		"pages_failed": pagesFailed,
		"last_error":   "",
	}
	if runErr != nil {
		updates["last_error"] = runErr.Error()
	}

	return r.db.WithContext(ctx).Model(&models.SyncState{}).
		Where("id = ?", 1).
		Updates(updates).Error
}

// UpsertStudents writes one deduplicated roster page. Conflicts on
// student_id_number update the HEMIS-owned columns and leave the
// self-service ones alone.
func (r *syncRepository) UpsertStudents(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name", "short_name", "first_name", "second_name", "third_name",
			"gender", "birth_date",
			"province_name", "district_name", "accommodation",
			"department_code", "department_name", "specialty_name",
			"group_code", "group_name", "education_lang",
			"level_name", "education_form", "education_type", "education_year",
			"year_of_enter", "updated_at",
		}),
	}).CreateInBatches(students, 200).Error
}
