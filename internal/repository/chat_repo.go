package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/models"
)

// ChatRepository persists tutor broadcast messages.
type ChatRepository interface {
	Save(ctx context.Context, message *models.ChatMessage) error
	GetByID(ctx context.Context, id uint) (models.ChatMessage, error)
	HistoryByGroup(ctx context.Context, groupCode string, before time.Time, limit int) ([]models.ChatMessage, error)
	ListByTutor(ctx context.Context, tutorID uint, limit int) ([]models.ChatMessage, error)
	UpdateBody(ctx context.Context, id, tutorID uint, body string) (models.ChatMessage, error)
	DeleteByGroup(ctx context.Context, tutorID uint, groupCode string) (int64, error)
	DeleteAllByTutor(ctx context.Context, tutorID uint) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository wires a gorm-backed ChatRepository.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Save(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Save(message).Error
}

func (r *chatRepository) GetByID(ctx context.Context, id uint) (models.ChatMessage, error) {
	var message models.ChatMessage
	err := r.db.WithContext(ctx).First(&message, id).Error
	return message, err
}

// groupCodePatterns match the serialized group reference inside the
// groups column. Casting to text keeps the filter portable between
// backends; postgres renders jsonb with a space after the colon while
// the sqlite driver used in tests stores the raw JSON.
func groupCodePatterns(groupCode string) (string, string) {
	return fmt.Sprintf("%%\"code\":\"%s\"%%", groupCode),
		fmt.Sprintf("%%\"code\": \"%s\"%%", groupCode)
}

func withGroupCode(query *gorm.DB, groupCode string) *gorm.DB {
	compact, spaced := groupCodePatterns(groupCode)
	return query.Where("(CAST(groups AS TEXT) LIKE ? OR CAST(groups AS TEXT) LIKE ?)", compact, spaced)
}

func (r *chatRepository) HistoryByGroup(ctx context.Context, groupCode string, before time.Time, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	query := withGroupCode(r.db.WithContext(ctx), groupCode)
	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}
	err := query.Order("created_at DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

func (r *chatRepository) ListByTutor(ctx context.Context, tutorID uint, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("tutor_id = ?", tutorID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *chatRepository) UpdateBody(ctx context.Context, id, tutorID uint, body string) (models.ChatMessage, error) {
	var message models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("id = ? AND tutor_id = ?", id, tutorID).
		First(&message).Error
	if err != nil {
		return models.ChatMessage{}, err
	}

	message.Body = body
	if err := r.db.WithContext(ctx).Save(&message).Error; err != nil {
		return models.ChatMessage{}, err
	}
	return message, nil
}

func (r *chatRepository) DeleteByGroup(ctx context.Context, tutorID uint, groupCode string) (int64, error) {
	result := withGroupCode(r.db.WithContext(ctx).Where("tutor_id = ?", tutorID), groupCode).
		Delete(&models.ChatMessage{})
	return result.RowsAffected, result.Error
}

func (r *chatRepository) DeleteAllByTutor(ctx context.Context, tutorID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tutor_id = ?", tutorID).
		Delete(&models.ChatMessage{})
	return result.RowsAffected, result.Error
}
