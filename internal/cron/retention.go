package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

const (
	NotificationCleanupJobName = "notification-cleanup"
	OutboxRetentionJobName     = "outbox-retention"

	defaultNotificationRetentionDays = 30
	defaultOutboxRetentionDays       = 7
	defaultOutboxMinAttempts         = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// sweepFunc deletes rows older than cutoff inside tx and returns how many went.
type sweepFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// retentionJob removes rows that fell out of a fixed look-back window.
type retentionJob struct {
	name   string
	logg   *logger.Logger
	db     txRunner
	window time.Duration
	sweep  sweepFunc
	fields map[string]any
	now    func() time.Time
}

func newRetentionJob(name string, logg *logger.Logger, db txRunner, days int, sweep sweepFunc) (*retentionJob, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if db == nil {
		return nil, errors.New("db runner required")
	}
	return &retentionJob{
		name:   name,
		logg:   logg,
		db:     db,
		window: time.Duration(days) * 24 * time.Hour,
		sweep:  sweep,
		fields: map[string]any{"retention_days": days},
		now:    time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) cutoff() time.Time {
	return j.now().UTC().Add(-j.window)
}

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.cutoff()
	var removed int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.sweep(ctx, tx, cutoff)
		removed = n
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}

	fields := map[string]any{"cutoff": cutoff, "rows_deleted": removed}
	for k, v := range j.fields {
		fields[k] = v
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "cron.retention.swept")
	return nil
}

type notificationSweeper interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NotificationCleanupJobParams configures removal of read notifications.
type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    notificationSweeper
	RetentionDays int
}

// NewNotificationCleanupJob deletes read notifications older than the retention window.
// Unread rows are never touched.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	days := positiveOr(params.RetentionDays, defaultNotificationRetentionDays)
	job, err := newRetentionJob(NotificationCleanupJobName, params.Logger, params.DB, days, params.Repository.DeleteOlderThan)
	if err != nil {
		return nil, err
	}
	return job, nil
}

type outboxSweeper interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// OutboxRetentionJobParams configures pruning of published and exhausted outbox rows.
// MinAttempts must equal the publisher's max attempts so retryable rows survive.
type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    outboxSweeper
	RetentionDays int
	MinAttempts   int
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	days := positiveOr(params.RetentionDays, defaultOutboxRetentionDays)
	minAttempts := positiveOr(params.MinAttempts, defaultOutboxMinAttempts)
	repo := params.Repository
	job, err := newRetentionJob(OutboxRetentionJobName, params.Logger, params.DB, days,
		func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
		})
	if err != nil {
		return nil, err
	}
	job.fields["min_attempts"] = minAttempts
	return job, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
