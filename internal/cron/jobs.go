package cron

import (
	"context"
	"errors"
	"fmt"
)

// Job is one unit of scheduled work. Name must be stable; it labels logs and metrics.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

var ErrDuplicateJob = errors.New("cron job already registered")

// Registry keeps jobs in registration order with unique names.
type Registry struct {
	order []Job
	names map[string]struct{}
}

// NewRegistry registers every non-nil job, failing on the first repeated name.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if r.names == nil {
		r.names = map[string]struct{}{}
	}
	name := job.Name()
	if _, taken := r.names[name]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	r.names[name] = struct{}{}
	r.order = append(r.order, job)
	return nil
}

// Jobs returns a snapshot the caller may mutate.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.order...)
}

func (r *Registry) Len() int { return len(r.order) }
