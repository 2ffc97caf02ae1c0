// Package store persists student records and lets callers watch them.
//
// A Backend does the storage: SQLite by default, or an encrypted zstore
// vault. Repository wraps a backend, validates writes and re-runs watch
// queries whenever something changes.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/zarlcorp/zroster/internal/student"
)

// ErrNotFound is returned when a student does not exist.
var ErrNotFound = errors.New("student not found")

// Backend is the storage behind a Repository.
//
// Delete of a missing record is not an error. Update of a missing record
// returns ErrNotFound.
type Backend interface {
	Get(ctx context.Context, id int64) (student.Student, error)
	List(ctx context.Context) ([]student.Student, error)
	Insert(ctx context.Context, s student.Student) (student.Student, error)
	Update(ctx context.Context, s student.Student) error
	Delete(ctx context.Context, s student.Student) error
	Close() error
}

// Repository is the store used by the rest of zroster.
type Repository struct {
	backend Backend
	hub     *Hub
	log     zerolog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithHub shares a change hub, e.g. with a file watcher.
func WithHub(h *Hub) Option {
	return func(r *Repository) { r.hub = h }
}

// WithLogger sets the repository logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Repository) { r.log = l }
}

// NewRepository wraps a backend.
func NewRepository(b Backend, opts ...Option) *Repository {
	r := &Repository{backend: b, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.hub == nil {
		r.hub = NewHub()
	}
	return r
}

// Hub returns the change hub watchers listen on.
func (r *Repository) Hub() *Hub {
	return r.hub
}

// Get returns a single student.
func (r *Repository) Get(ctx context.Context, id int64) (student.Student, error) {
	return r.backend.Get(ctx, id)
}

// List returns all students ordered by name.
func (r *Repository) List(ctx context.Context) ([]student.Student, error) {
	return r.backend.List(ctx)
}

// Insert validates and stores a new student and returns it with its ID.
func (r *Repository) Insert(ctx context.Context, s student.Student) (student.Student, error) {
	if err := s.Validate(); err != nil {
		return student.Student{}, err
	}
	s = s.Normalize()
	s.ID = 0

	saved, err := r.backend.Insert(ctx, s)
	if err != nil {
		return student.Student{}, fmt.Errorf("insert student: %w", err)
	}

	r.log.Debug().Int64("id", saved.ID).Msg("student inserted")
	r.hub.Invalidate()
	return saved, nil
}

// Update validates and overwrites an existing student.
func (r *Repository) Update(ctx context.Context, s student.Student) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s = s.Normalize()

	if err := r.backend.Update(ctx, s); err != nil {
		return fmt.Errorf("update student %d: %w", s.ID, err)
	}

	r.log.Debug().Int64("id", s.ID).Msg("student updated")
	r.hub.Invalidate()
	return nil
}

// Delete removes the student with s.ID. Deleting a record that does not
// exist succeeds and changes nothing.
func (r *Repository) Delete(ctx context.Context, s student.Student) error {
	if err := r.backend.Delete(ctx, s); err != nil {
		return fmt.Errorf("delete student %d: %w", s.ID, err)
	}

	r.log.Debug().Int64("id", s.ID).Msg("student deleted")
	r.hub.Invalidate()
	return nil
}

// Close closes the backend.
func (r *Repository) Close() error {
	return r.backend.Close()
}

// Watch streams the student with the given id: the current value first and
// again after every change. A nil value means no such student exists. The
// channel is closed once ctx is done.
func (r *Repository) Watch(ctx context.Context, id int64) <-chan *student.Student {
	return watch(ctx, r, func(ctx context.Context) (*student.Student, error) {
		s, err := r.backend.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &s, nil
	})
}

// WatchAll streams the full list ordered by name, like Watch.
func (r *Repository) WatchAll(ctx context.Context) <-chan []student.Student {
	return watch(ctx, r, r.backend.List)
}

func watch[T any](ctx context.Context, r *Repository, query func(context.Context) (T, error)) <-chan T {
	out := make(chan T)
	changed, unsubscribe := r.hub.Subscribe()

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			v, err := query(ctx)
			switch {
			case ctx.Err() != nil:
				return
			case err != nil:
				// keep the subscription; the next change retries the query
				r.log.Warn().Err(err).Msg("watch query failed")
			default:
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
