// Package relay moves committed outbox rows onto Pub/Sub.
//
// Each drain runs in one transaction: rows are claimed with SKIP LOCKED,
// every message in the batch is handed to the publisher before any ack is
// awaited, and each row is then settled as published, retried or dead-lettered.
package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
	"github.com/angelmondragon/homequote-backend/pkg/metrics"
	"github.com/angelmondragon/homequote-backend/pkg/outbox"
	"github.com/angelmondragon/homequote-backend/pkg/outbox/registry"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Store interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type DeadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type Resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// Ack resolves to the server-assigned message id once the broker accepts a message.
type Ack interface {
	Get(ctx context.Context) (string, error)
}

// Sender enqueues msg on topic. A nil Ack means the topic has no publisher.
type Sender interface {
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) Ack
}

// Options tune batching and retry pacing. Zero values take the defaults.
type Options struct {
	BatchSize      int
	MaxAttempts    int
	PollInterval   time.Duration
	MaxBackoff     time.Duration
	PublishTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.MaxBackoff < o.PollInterval {
		o.MaxBackoff = max(10*time.Second, o.PollInterval)
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 15 * time.Second
	}
	return o
}

type Params struct {
	DB          txRunner
	Store       Store
	DeadLetters DeadLetters
	Resolver    Resolver
	Sender      Sender
	Metrics     *metrics.OutboxMetrics
	Logger      *logger.Logger
	Options     Options
}

type Relay struct {
	db      txRunner
	store   Store
	dlq     DeadLetters
	resolve Resolver
	send    Sender
	metrics *metrics.OutboxMetrics
	logg    *logger.Logger
	opts    Options
	now     func() time.Time
	jitter  func(n int64) int64
}

func New(p Params) (*Relay, error) {
	switch {
	case p.DB == nil:
		return nil, errors.New("relay: db required")
	case p.Store == nil:
		return nil, errors.New("relay: outbox store required")
	case p.DeadLetters == nil:
		return nil, errors.New("relay: dead letter store required")
	case p.Resolver == nil:
		return nil, errors.New("relay: event resolver required")
	case p.Sender == nil:
		return nil, errors.New("relay: sender required")
	case p.Logger == nil:
		return nil, errors.New("relay: logger required")
	}
	return &Relay{
		db:      p.DB,
		store:   p.Store,
		dlq:     p.DeadLetters,
		resolve: p.Resolver,
		send:    p.Sender,
		metrics: p.Metrics,
		logg:    p.Logger,
		opts:    p.Options.withDefaults(),
		now:     time.Now,
		jitter:  rand.Int64N,
	}, nil
}

// Run drains until ctx ends. A full batch loops straight away; a short batch
// waits one poll interval; a failed drain backs off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	failures := 0
	for {
		n, err := r.Drain(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := r.opts.PollInterval
		switch {
		case err != nil:
			failures++
			wait = r.backoff(failures)
			r.logg.Error(r.logg.WithFields(ctx, map[string]any{
				"consecutive_failures": failures,
				"retry_in_ms":          wait.Milliseconds(),
			}), "outbox.drain.failed", err)
		case n >= r.opts.BatchSize:
			failures = 0
			continue
		default:
			failures = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// backoff doubles from the poll interval per consecutive failure, capped,
// plus up to a quarter of jitter.
func (r *Relay) backoff(failures int) time.Duration {
	d := r.opts.PollInterval
	for i := 1; i < failures && d < r.opts.MaxBackoff; i++ {
		d *= 2
	}
	d = min(d, r.opts.MaxBackoff)
	if spread := int64(d / 4); spread > 0 {
		d += time.Duration(r.jitter(spread))
	}
	return d
}

type delivery struct {
	row      models.OutboxEvent
	resolved *registry.ResolvedEvent
	ack      Ack
	err      error
}

func (d *delivery) topic() string {
	if d.resolved == nil {
		return ""
	}
	return d.resolved.Descriptor.Topic
}

func (d *delivery) wait(ctx context.Context) error {
	if d.err != nil {
		return d.err
	}
	if d.ack == nil {
		return registry.Permanent(fmt.Errorf("no publisher for topic %q", d.topic()))
	}
	_, err := d.ack.Get(ctx)
	return err
}

// Drain publishes one batch and reports how many rows it claimed.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	claimed := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.FetchUnpublishedForPublish(tx, r.opts.BatchSize, r.opts.MaxAttempts)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		claimed = len(rows)
		if claimed == 0 {
			return nil
		}

		pubCtx, cancel := context.WithTimeout(ctx, r.opts.PublishTimeout)
		defer cancel()

		deliveries := make([]*delivery, 0, len(rows))
		for _, row := range rows {
			deliveries = append(deliveries, r.dispatch(pubCtx, row))
		}
		for _, d := range deliveries {
			if err := r.settle(ctx, tx, d, d.wait(pubCtx)); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

func (r *Relay) dispatch(ctx context.Context, row models.OutboxEvent) *delivery {
	d := &delivery{row: row}
	d.resolved, d.err = r.resolve.Resolve(row)
	if d.err != nil {
		return d
	}
	d.ack = r.send.Send(ctx, d.topic(), &gcppubsub.Message{
		Data:       row.Payload,
		Attributes: outbox.MessageAttributes(row, d.resolved.Envelope),
	})
	return d
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, d *delivery, sendErr error) error {
	eventType := string(d.row.EventType)
	logCtx := r.logg.WithFields(ctx, r.fields(d))

	if sendErr == nil {
		if err := r.store.MarkPublishedTx(tx, d.row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", d.row.ID, err)
		}
		r.metrics.IncPublished(eventType)
		r.logg.Info(logCtx, "outbox.event.published")
		return nil
	}

	if registry.IsPermanent(sendErr) {
		return r.deadLetter(logCtx, tx, d, enums.OutboxDLQReasonNonRetryable, sendErr)
	}
	attempt := d.row.AttemptCount + 1
	if attempt >= r.opts.MaxAttempts {
		return r.deadLetter(logCtx, tx, d, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", attempt, sendErr))
	}

	if err := r.store.MarkFailedTx(tx, d.row.ID, sendErr); err != nil {
		return fmt.Errorf("mark failed %s: %w", d.row.ID, err)
	}
	r.metrics.IncFailed(eventType)
	r.logg.Warn(r.logg.WithFields(logCtx, map[string]any{
		"attempt": attempt,
		"error":   sendErr.Error(),
	}), "outbox.event.retry")
	return nil
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, d *delivery, reason enums.OutboxDLQErrorReason, cause error) error {
	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       d.row.ID,
		EventType:     d.row.EventType,
		AggregateType: d.row.AggregateType,
		AggregateID:   d.row.AggregateID,
		Payload:       d.row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  d.row.AttemptCount,
		FailedAt:      r.now().UTC(),
	}
	if err := r.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dead letter %s: %w", d.row.ID, err)
	}
	if err := r.store.MarkTerminalTx(tx, d.row.ID, cause, r.opts.MaxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", d.row.ID, err)
	}
	r.metrics.IncDeadLettered(string(d.row.EventType), string(reason))
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"dlq_reason": string(reason),
		"error":      msg,
	}), "outbox.event.dead_lettered")
	return nil
}

func (r *Relay) fields(d *delivery) map[string]any {
	f := map[string]any{
		"outbox_id":      d.row.ID.String(),
		"event_type":     string(d.row.EventType),
		"aggregate_type": string(d.row.AggregateType),
		"aggregate_id":   d.row.AggregateID.String(),
		"attempt_count":  d.row.AttemptCount,
	}
	if topic := d.topic(); topic != "" {
		f["topic"] = topic
		f["event_id"] = d.resolved.Envelope.EventID
	}
	return f
}
