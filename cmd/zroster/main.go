package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/zroster/internal/cli"
	"github.com/zarlcorp/zroster/internal/config"
	"github.com/zarlcorp/zroster/internal/roster"
	"github.com/zarlcorp/zroster/internal/store"
	"github.com/zarlcorp/zroster/internal/tui"
	"golang.org/x/sync/errgroup"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := zapp.New(zapp.WithName("zroster"))

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	cmd := cli.NewRootCmd(version, runTUI)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "zroster: %v\n", err)
		_ = app.Close()
		os.Exit(1)
	}

	if err := app.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "zroster: shutdown: %v\n", err)
		os.Exit(1)
	}
}

// runTUI runs the terminal UI and, for the SQLite backend, a watcher that
// refreshes open screens when another process changes the database.
func runTUI(ctx context.Context, env *cli.Env) error {
	cfg := env.Config
	log := env.Log
	hub := store.NewHub()

	open := func(password []byte) (tui.Store, error) {
		b, err := cli.OpenBackend(ctx, cfg, password)
		if err != nil {
			if errors.Is(err, store.ErrWrongPassword) {
				return nil, errors.New("wrong password")
			}
			return nil, err
		}
		return store.NewRepository(b, store.WithHub(hub), store.WithLogger(log)), nil
	}

	vault := cfg.Backend == config.BackendVault
	watch := !vault && cfg.WatchExternal
	if watch {
		// the watcher needs the directory before the database exists
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gctx)
	defer stopWatch()

	m := tui.New(gctx, tui.Config{
		Version:  version,
		Locked:   vault,
		FirstRun: vault && cli.IsFirstRun(cfg.DataDir),
		Open:     open,
		Roster: []roster.Option{
			roster.WithGrace(cfg.GracePeriod),
			roster.WithLogger(log),
		},
		Log: log,
	})

	p := tea.NewProgram(m, tea.WithContext(gctx), tea.WithAltScreen())

	g.Go(func() error {
		defer stopWatch()

		final, err := p.Run()
		if fm, ok := final.(tui.Model); ok {
			fm.Close()
			if err == nil {
				err = fm.Err()
			}
		}
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			// interrupted by a signal
			return nil
		}
		return err
	})

	if watch {
		w := store.NewFileWatcher(filepath.Join(cfg.DataDir, store.SQLiteFile), hub, log)
		g.Go(func() error { return w.Run(watchCtx) })
	}

	log.Info().Str("backend", cfg.Backend).Msg("tui started")
	return g.Wait()
}
