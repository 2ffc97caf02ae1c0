package roster

import (
	"context"
	"slices"

	"github.com/zarlcorp/zroster/internal/live"
	"github.com/zarlcorp/zroster/internal/student"
)

// ListStore is the part of the store the list screen needs.
type ListStore interface {
	WatchAll(ctx context.Context) <-chan []student.Student
}

// Home follows the full student list for the list screen.
type Home struct {
	store ListStore
	state *live.State[[]student.Student]
}

// NewHome returns a list controller.
func NewHome(store ListStore, opts ...Option) *Home {
	cfg := newConfig(opts)
	h := &Home{store: store}
	h.state = live.NewFunc([]student.Student(nil), h.follow, slices.Equal[[]student.Student], cfg.live...)
	return h
}

func (h *Home) follow(ctx context.Context, emit func([]student.Student)) {
	ch := h.store.WatchAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case list, ok := <-ch:
			if !ok {
				return
			}
			emit(list)
		}
	}
}

// Students returns the last known list.
func (h *Home) Students() []student.Student {
	return h.state.Value()
}

// Observe attaches an observer; see live.State.Observe.
func (h *Home) Observe() (<-chan []student.Student, func()) {
	return h.state.Observe()
}

// Close drops the store subscription immediately.
func (h *Home) Close() {
	h.state.Close()
}
