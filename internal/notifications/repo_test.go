package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`
CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  requirement_id TEXT,
  event_id TEXT,
  read_at DATETIME,
  created_at DATETIME
);`).Error)
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX ux_notifications_event_id ON notifications (event_id);`).Error)
	return db
}

func seedNotification(t *testing.T, repo Repository, userID uuid.UUID, createdAt time.Time, readAt *time.Time) models.Notification {
	t.Helper()
	n := models.Notification{
		UserID:    userID,
		Type:      enums.NotificationTypeQuotationReceived,
		Title:     "New quotation received",
		Message:   "Fixit Co quoted 120.00",
		ReadAt:    readAt,
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), &n))
	return n
}

func TestRepositoryListPaginatesNewestFirst(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, seedNotification(t, repo, userID, base.Add(time.Duration(i)*time.Minute), nil).ID)
	}
	seedNotification(t, repo, uuid.New(), base.Add(time.Hour), nil)

	page, cursor, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	next, cursor, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, ids[2], next[0].ID)
	assert.Equal(t, ids[1], next[1].ID)

	last, cursor, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Nil(t, cursor)
	assert.Equal(t, ids[0], last[0].ID)
}

func TestRepositoryMarkReadAndCounts(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	first := seedNotification(t, repo, userID, now.Add(-time.Hour), nil)
	seedNotification(t, repo, userID, now.Add(-time.Minute), nil)

	count, err := repo.CountUnread(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	mark, err := repo.MarkRead(ctx, userID, first.ID, now)
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.True(t, mark.Updated)

	mark, err = repo.MarkRead(ctx, userID, first.ID, now)
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.False(t, mark.Updated)

	mark, err = repo.MarkRead(ctx, uuid.New(), first.ID, now)
	require.NoError(t, err)
	assert.False(t, mark.Found)

	unread, _, err := repo.List(ctx, listNotificationsParams{UserID: userID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	updated, err := repo.MarkAllRead(ctx, userID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)

	count, err = repo.CountUnread(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestRepositoryCreateForEventIsIdempotent(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	ctx := context.Background()
	eventID := uuid.New()

	build := func() *models.Notification {
		return &models.Notification{
			UserID:  uuid.New(),
			Type:    enums.NotificationTypeQuotationAccepted,
			Title:   "Your quotation was accepted",
			Message: "accepted",
			EventID: &eventID,
		}
	}

	created, err := repo.CreateForEvent(ctx, build())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateForEvent(ctx, build())
	require.NoError(t, err)
	assert.False(t, created)

	_, err = repo.CreateForEvent(ctx, &models.Notification{UserID: uuid.New()})
	assert.Error(t, err)
}

func TestRepositoryDeleteOlderThanKeepsUnread(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)
	readAt := old.Add(time.Hour)

	seedNotification(t, repo, userID, old, &readAt)
	keptUnread := seedNotification(t, repo, userID, old, nil)
	keptRecent := seedNotification(t, repo, userID, now.Add(-time.Hour), &readAt)

	deleted, err := repo.DeleteOlderThan(ctx, db, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var remaining []models.Notification
	require.NoError(t, db.Order("created_at ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.ElementsMatch(t, []uuid.UUID{keptUnread.ID, keptRecent.ID}, []uuid.UUID{remaining[0].ID, remaining[1].ID})
}
