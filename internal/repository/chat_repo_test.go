package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/karsu-its/ijara-api/internal/models"
)

func seedChatMessage(t *testing.T, db *gorm.DB, tutorID uint, body string, createdAt time.Time, groups ...models.GroupRef) models.ChatMessage {
	t.Helper()
	message := models.ChatMessage{
		TutorID:   tutorID,
		Body:      body,
		Groups:    groups,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&message).Error)
	return message
}

func TestChatRepositoryHistoryByGroup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	now := time.Now().UTC()

	seedChatMessage(t, db, 3, "old for 101", now.Add(-2*time.Hour), models.GroupRef{Code: "101-22", Name: "Matematika 101-22"})
	seedChatMessage(t, db, 3, "new for 101", now.Add(-time.Hour), models.GroupRef{Code: "101-22", Name: "Matematika 101-22"})
	seedChatMessage(t, db, 3, "for 202", now.Add(-time.Hour), models.GroupRef{Code: "202-21", Name: "Fizika 202-21"})

	messages, err := repo.HistoryByGroup(context.Background(), "101-22", time.Time{}, 50)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "new for 101", messages[0].Body)
	require.Equal(t, "old for 101", messages[1].Body)

	messages, err = repo.HistoryByGroup(context.Background(), "101-22", now.Add(-90*time.Minute), 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "old for 101", messages[0].Body)
}

func TestChatRepositoryHistoryDoesNotMatchCodePrefix(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	now := time.Now().UTC()

	seedChatMessage(t, db, 3, "for 101", now, models.GroupRef{Code: "101-22"})
	seedChatMessage(t, db, 3, "for 101-22b", now, models.GroupRef{Code: "101-22b"})

	messages, err := repo.HistoryByGroup(context.Background(), "101-22", time.Time{}, 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "for 101", messages[0].Body)
}

func TestChatRepositoryUpdateBodyScopedToTutor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)

	message := seedChatMessage(t, db, 3, "original", time.Now().UTC(), models.GroupRef{Code: "101-22"})

	_, err := repo.UpdateBody(context.Background(), message.ID, 99, "hijacked")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	updated, err := repo.UpdateBody(context.Background(), message.ID, 3, "edited")
	require.NoError(t, err)
	require.Equal(t, "edited", updated.Body)

	reloaded, err := repo.GetByID(context.Background(), message.ID)
	require.NoError(t, err)
	require.Equal(t, "edited", reloaded.Body)
}

func TestChatRepositoryDeleteByGroup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	now := time.Now().UTC()

	seedChatMessage(t, db, 3, "for 101", now, models.GroupRef{Code: "101-22"})
	seedChatMessage(t, db, 3, "for both", now, models.GroupRef{Code: "101-22"}, models.GroupRef{Code: "202-21"})
	seedChatMessage(t, db, 4, "other tutor", now, models.GroupRef{Code: "101-22"})

	removed, err := repo.DeleteByGroup(context.Background(), 3, "101-22")
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	remaining, err := repo.HistoryByGroup(context.Background(), "101-22", time.Time{}, 50)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "other tutor", remaining[0].Body)
}

func TestChatRepositoryDeleteAllByTutor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	now := time.Now().UTC()

	seedChatMessage(t, db, 3, "a", now, models.GroupRef{Code: "101-22"})
	seedChatMessage(t, db, 3, "b", now, models.GroupRef{Code: "202-21"})
	seedChatMessage(t, db, 4, "keep", now, models.GroupRef{Code: "101-22"})

	removed, err := repo.DeleteAllByTutor(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	mine, err := repo.ListByTutor(context.Background(), 4, 50)
	require.NoError(t, err)
	require.Len(t, mine, 1)
}
