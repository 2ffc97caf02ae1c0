package roster

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/zarlcorp/zroster/internal/live"
	"github.com/zarlcorp/zroster/internal/student"
)

// DetailStore is the part of the store the detail screen needs.
type DetailStore interface {
	Watch(ctx context.Context, id int64) <-chan *student.Student
	Delete(ctx context.Context, s student.Student) error
}

// DetailState is what the detail screen renders.
type DetailState struct {
	Student student.Student
}

// Detail follows one student for the detail screen. It is bound to a
// single ID for its whole life.
type Detail struct {
	id    int64
	store DetailStore
	state *live.State[DetailState]
	log   zerolog.Logger
}

// NewDetail returns a controller for the student with the given ID. Nothing
// is read from the store until the state is first observed.
func NewDetail(store DetailStore, id int64, opts ...Option) *Detail {
	cfg := newConfig(opts)
	d := &Detail{
		id:    id,
		store: store,
		log:   cfg.log.With().Int64("student", id).Logger(),
	}
	d.state = live.New(DetailState{}, d.follow, cfg.live...)
	return d
}

// follow feeds the live state from the store. Absent records are skipped so
// the last known record stays on screen.
func (d *Detail) follow(ctx context.Context, emit func(DetailState)) {
	d.log.Debug().Msg("subscribing")
	defer d.log.Debug().Msg("unsubscribed")

	ch := d.store.Watch(ctx, d.id)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			if s == nil {
				continue
			}
			emit(DetailState{Student: *s})
		}
	}
}

// ID returns the student ID this controller is bound to.
func (d *Detail) ID() int64 {
	return d.id
}

// State returns the current state: the placeholder student until the store
// has produced the record.
func (d *Detail) State() DetailState {
	return d.state.Value()
}

// Observe attaches an observer; see live.State.Observe.
func (d *Detail) Observe() (<-chan DetailState, func()) {
	return d.state.Observe()
}

// Delete asks the store to delete the student currently held in state.
// Before the record has loaded that is the placeholder, which the store
// treats as a no-op.
func (d *Detail) Delete(ctx context.Context) error {
	s := d.state.Value().Student
	if err := d.store.Delete(ctx, s); err != nil {
		d.log.Warn().Err(err).Msg("delete failed")
		return err
	}
	d.log.Info().Msg("student deleted")
	return nil
}

// Close drops the store subscription immediately.
func (d *Detail) Close() {
	d.state.Close()
}
