// Package roster holds the screen controllers that sit between the store
// and the terminal UI. Each controller exposes live state that follows the
// store for as long as the screen is watching it.
package roster

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/zarlcorp/zroster/internal/live"
)

type config struct {
	live []live.Option
	log  zerolog.Logger
}

// Option configures a controller.
type Option func(*config)

// WithGrace sets how long the store subscription outlives the last
// observer.
func WithGrace(d time.Duration) Option {
	return func(c *config) { c.live = append(c.live, live.WithGrace(d)) }
}

// WithAfterFunc replaces the timer used to schedule subscription teardown.
func WithAfterFunc(fn live.AfterFunc) Option {
	return func(c *config) { c.live = append(c.live, live.WithAfterFunc(fn)) }
}

// WithLogger sets the controller logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.log = l }
}

func newConfig(opts []Option) config {
	c := config{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
