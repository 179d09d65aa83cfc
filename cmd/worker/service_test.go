package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

type healthStub struct {
	err   error
	calls int
}

func (p *healthStub) check(name string) Check {
	return Check{Name: name, Ping: func(context.Context) error {
		p.calls++
		return p.err
	}}
}

type fakeConsumer struct {
	err     error
	blocked bool
}

func (f *fakeConsumer) Run(ctx context.Context) error {
	if f.blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func newTestService(t *testing.T, c consumer, checks ...Check) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:    logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard}),
		Checks:    checks,
		Consumer:  c,
		Heartbeat: time.Millisecond,
	})
	require.NoError(t, err)
	return svc
}

func TestRunStopsAtFirstFailedCheck(t *testing.T) {
	db, cache, ps := &healthStub{}, &healthStub{err: errors.New("connection refused")}, &healthStub{}
	svc := newTestService(t, &fakeConsumer{}, db.check("database"), cache.check("redis"), ps.check("subscription"))

	err := svc.Run(context.Background())

	require.ErrorContains(t, err, "redis not ready")
	assert.Equal(t, 1, db.calls)
	assert.Zero(t, ps.calls)
}

func TestRunReturnsConsumerError(t *testing.T) {
	boom := errors.New("subscription deleted")
	svc := newTestService(t, &fakeConsumer{err: boom}, (&healthStub{}).check("database"))

	assert.ErrorIs(t, svc.Run(context.Background()), boom)
}

func TestRunEndsWhenConsumerReturnsCleanly(t *testing.T) {
	svc := newTestService(t, &fakeConsumer{})

	assert.NoError(t, svc.Run(context.Background()))
}

func TestRunHonoursCancellation(t *testing.T) {
	svc := newTestService(t, &fakeConsumer{blocked: true})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	assert.ErrorIs(t, svc.Run(ctx), context.Canceled)
}

func TestNewServiceValidates(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})

	_, err := NewService(ServiceParams{Logger: logg})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logg, Consumer: &fakeConsumer{}, Checks: []Check{{Name: "db"}}})
	assert.Error(t, err)
}
