package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

type inlineTx struct{ calls int }

func (r *inlineTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	r.calls++
	return fn(nil)
}

type fakeNotificationSweeper struct {
	cutoff time.Time
	rows   int64
	err    error
}

func (f *fakeNotificationSweeper) DeleteOlderThan(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.rows, f.err
}

type fakeOutboxSweeper struct {
	cutoff      time.Time
	minAttempts int
	err         error
}

func (f *fakeOutboxSweeper) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttempts int) (int64, error) {
	f.cutoff = cutoff
	f.minAttempts = minAttempts
	return 3, f.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}

func asRetention(t *testing.T, job Job, err error) *retentionJob {
	t.Helper()
	require.NoError(t, err)
	rj, ok := job.(*retentionJob)
	require.True(t, ok, "unexpected job type %T", job)
	return rj
}

func TestNotificationCleanupUsesRetentionWindow(t *testing.T) {
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		days int
		want time.Time
	}{
		{name: "default window", days: 0, want: now.AddDate(0, 0, -defaultNotificationRetentionDays)},
		{name: "configured window", days: 3, want: now.AddDate(0, 0, -3)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeNotificationSweeper{rows: 42}
			tx := &inlineTx{}
			built, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
				Logger:        testLogger(),
				DB:            tx,
				Repository:    repo,
				RetentionDays: tc.days,
			})
			job := asRetention(t, built, err)
			job.now = func() time.Time { return now }

			require.NoError(t, job.Run(context.Background()))
			assert.Equal(t, NotificationCleanupJobName, job.Name())
			assert.True(t, repo.cutoff.Equal(tc.want), "cutoff %s, want %s", repo.cutoff, tc.want)
			assert.Equal(t, 1, tx.calls)
		})
	}
}

func TestOutboxRetentionPassesMinAttempts(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxSweeper{}
	built, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      testLogger(),
		DB:          &inlineTx{},
		Repository:  repo,
		MinAttempts: 4,
	})
	job := asRetention(t, built, err)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 4, repo.minAttempts)
	assert.True(t, repo.cutoff.Equal(now.AddDate(0, 0, -defaultOutboxRetentionDays)))
	assert.Equal(t, 4, job.fields["min_attempts"])
}

func TestRetentionJobWrapsSweepErrors(t *testing.T) {
	boom := errors.New("boom")
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         &inlineTx{},
		Repository: &fakeOutboxSweeper{err: boom},
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), OutboxRetentionJobName)
}

func TestRetentionJobConstructorsValidateDeps(t *testing.T) {
	_, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: testLogger(), DB: &inlineTx{}})
	assert.Error(t, err)

	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{DB: &inlineTx{}, Repository: &fakeOutboxSweeper{}})
	assert.Error(t, err)

	_, err = NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: testLogger(), Repository: &fakeNotificationSweeper{}})
	assert.Error(t, err)
}
