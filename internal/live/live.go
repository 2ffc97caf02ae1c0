// Package live holds a value that a background source keeps current while
// at least one observer is attached.
//
// The source starts when the first observer attaches. When the last observer
// detaches the source keeps running for a grace period, so a screen that is
// rebuilt or briefly left does not pay for a fresh subscription. The last
// value survives teardown and is handed to the next observer immediately.
package live

import (
	"context"
	"sync"
	"time"
)

// DefaultGrace is how long a source outlives its last observer.
const DefaultGrace = 5 * time.Second

// Source feeds values into emit until ctx is cancelled.
type Source[T any] func(ctx context.Context, emit func(T))

// AfterFunc schedules f after d and returns a func that cancels it.
// stop reports false if f has already been started.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

type options struct {
	grace     time.Duration
	afterFunc AfterFunc
}

// Option configures a State.
type Option func(*options)

// WithGrace sets the teardown delay. Zero stops the source as soon as the
// last observer detaches.
func WithGrace(d time.Duration) Option {
	return func(o *options) { o.grace = d }
}

// WithAfterFunc replaces time.AfterFunc for scheduling teardowns.
func WithAfterFunc(fn AfterFunc) Option {
	return func(o *options) { o.afterFunc = fn }
}

func timeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// State is a single-writer value container fed by a Source.
type State[T any] struct {
	src   Source[T]
	equal func(a, b T) bool
	opts  options

	mu        sync.Mutex
	value     T
	observers map[uint64]chan T
	nextID    uint64
	gen       uint64
	cancel    context.CancelFunc // non-nil while the source runs
	teardown  func() bool        // non-nil while a teardown is pending
	tearSeq   uint64
	closed    bool
	starts    int

	wg sync.WaitGroup
}

// New returns a State that starts at initial and drops values equal to the
// current one.
func New[T comparable](initial T, src Source[T], opts ...Option) *State[T] {
	return NewFunc(initial, src, func(a, b T) bool { return a == b }, opts...)
}

// NewFunc is New for types that are not comparable with ==.
func NewFunc[T any](initial T, src Source[T], equal func(a, b T) bool, opts ...Option) *State[T] {
	o := options{grace: DefaultGrace, afterFunc: timeAfterFunc}
	for _, opt := range opts {
		opt(&o)
	}
	return &State[T]{
		src:       src,
		equal:     equal,
		opts:      o,
		value:     initial,
		observers: make(map[uint64]chan T),
	}
}

// Value returns the current value.
func (s *State[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Observe attaches an observer. The returned channel holds the current value
// straight away and afterwards only the latest unread value; older unread
// values are replaced. The channel is closed by detach or Close.
func (s *State[T]) Observe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- s.value

	id := s.nextID
	s.nextID++
	s.observers[id] = ch

	if len(s.observers) == 1 {
		s.cancelTeardownLocked()
		if s.cancel == nil {
			s.startLocked()
		}
	}

	var once sync.Once
	return ch, func() { once.Do(func() { s.detach(id) }) }
}

// Observers returns the number of attached observers.
func (s *State[T]) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// Running reports whether the source is currently running.
func (s *State[T]) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Close stops the source, closes every observer channel and waits for the
// source to return. The last value stays readable through Value.
func (s *State[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancelTeardownLocked()
	s.stopLocked()
	for id, ch := range s.observers {
		close(ch)
		delete(s.observers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *State[T]) detach(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.observers[id]
	if !ok {
		return
	}
	delete(s.observers, id)
	close(ch)

	if len(s.observers) > 0 || s.cancel == nil {
		return
	}
	if s.opts.grace <= 0 {
		s.stopLocked()
		return
	}

	s.tearSeq++
	seq := s.tearSeq
	s.teardown = s.opts.afterFunc(s.opts.grace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if seq != s.tearSeq || len(s.observers) > 0 {
			return
		}
		s.teardown = nil
		s.stopLocked()
	})
}

func (s *State[T]) cancelTeardownLocked() {
	// bumping the sequence also defuses a teardown that already fired and
	// is waiting on the lock
	s.tearSeq++
	if s.teardown != nil {
		s.teardown()
		s.teardown = nil
	}
}

func (s *State[T]) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.gen++
	s.starts++
	gen := s.gen

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.src(ctx, func(v T) { s.set(gen, v) })
	}()
}

func (s *State[T]) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.gen++
}

func (s *State[T]) set(gen uint64, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.equal(s.value, v) {
		return
	}
	s.value = v
	for _, ch := range s.observers {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
