package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/homequote-backend/internal/repo"
	"github.com/angelmondragon/homequote-backend/pkg/db"
	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/pagination"
)

// Postgres names the constraint; SQLite reports the column.
var eventIDConstraints = []string{"ux_notifications_event_id", "notifications.event_id"}

// Repository persists a user's inbox.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	CreateForEvent(ctx context.Context, notification *models.Notification) (bool, error)
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

// notificationMarkResult separates "not yours or missing" from "already read".
type notificationMarkResult struct {
	Updated bool
	Found   bool
}

type repositoryImpl struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(conn)}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{Base: r.Bind(tx)}
}

func ownedBy(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB { return q.Where("user_id = ?", userID) }
}

func unread(q *gorm.DB) *gorm.DB {
	return q.Where("read_at IS NULL")
}

func (r *repositoryImpl) inbox(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.DB(ctx).Model(&models.Notification{}).Scopes(ownedBy(userID))
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.DB(ctx).Create(notification).Error
}

// CreateForEvent inserts a notification keyed by its source event. It reports
// false when that event already produced one.
func (r *repositoryImpl) CreateForEvent(ctx context.Context, notification *models.Notification) (bool, error) {
	if notification.EventID == nil {
		return false, errors.New("event id required")
	}
	err := r.Create(ctx, notification)
	if err == nil {
		return true, nil
	}
	for _, constraint := range eventIDConstraints {
		if db.IsUniqueViolation(err, constraint) {
			return false, nil
		}
	}
	return false, err
}

// List pages newest first using a (created_at, id) keyset cursor.
func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	q := r.inbox(ctx, params.UserID)
	if params.UnreadOnly {
		q = q.Scopes(unread)
	}
	if c := params.Cursor; c != nil {
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}

	var rows []models.Notification
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	var current struct{ ReadAt *time.Time }
	err := r.inbox(ctx, userID).Select("read_at").Where("id = ?", notificationID).Take(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notificationMarkResult{}, nil
	}
	if err != nil {
		return notificationMarkResult{}, err
	}
	if current.ReadAt != nil {
		return notificationMarkResult{Found: true}, nil
	}
	res := r.inbox(ctx, userID).Scopes(unread).Where("id = ?", notificationID).UpdateColumn("read_at", now)
	if res.Error != nil {
		return notificationMarkResult{}, res.Error
	}
	return notificationMarkResult{Found: true, Updated: res.RowsAffected > 0}, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res := r.inbox(ctx, userID).Scopes(unread).UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *repositoryImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.inbox(ctx, userID).Scopes(unread).Count(&n).Error
	return n, err
}

// DeleteOlderThan purges read notifications created before cutoff. Unread
// rows survive regardless of age.
func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	res := r.Bind(tx).DB(ctx).
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
