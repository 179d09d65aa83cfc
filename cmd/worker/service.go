package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

const heartbeatInterval = time.Minute

// Check is one startup probe. Probes run in order and the first failure aborts.
type Check struct {
	Name string
	Ping func(context.Context) error
}

type consumer interface {
	Run(context.Context) error
}

type ServiceParams struct {
	Logger    *logger.Logger
	Checks    []Check
	Consumer  consumer
	Heartbeat time.Duration
}

// Service runs the notification consumer next to a heartbeat log line.
type Service struct {
	logg      *logger.Logger
	checks    []Check
	consumer  consumer
	heartbeat time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("consumer is required")
	}
	for _, c := range params.Checks {
		if c.Ping == nil {
			return nil, fmt.Errorf("check %q has no probe", c.Name)
		}
	}
	heartbeat := params.Heartbeat
	if heartbeat <= 0 {
		heartbeat = heartbeatInterval
	}
	return &Service{logg: params.Logger, checks: params.Checks, consumer: params.Consumer, heartbeat: heartbeat}, nil
}

// Run blocks until the consumer stops or ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	for _, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", c.Name), "worker.not_ready", err)
			return fmt.Errorf("%s not ready: %w", c.Name, err)
		}
	}
	s.logg.Info(ctx, "worker.ready")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.consumer.Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.logg.Debug(gctx, "worker.heartbeat")
			}
		}
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logg.Error(ctx, "worker.consumer_stopped", err)
	}
	return err
}
