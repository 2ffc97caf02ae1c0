// Package cli implements zroster's command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zarlcorp/zroster/internal/config"
	"github.com/zarlcorp/zroster/internal/store"
	"golang.org/x/term"
)

// Env is what every command runs with once flags and config are resolved.
type Env struct {
	Config     config.Config
	ConfigPath string
	Log        zerolog.Logger

	// ReadPassword prompts for the vault master password. Tests replace it.
	ReadPassword func(firstRun bool) ([]byte, error)

	logCloser io.Closer
}

// TUIFunc runs the interactive UI.
type TUIFunc func(ctx context.Context, env *Env) error

// NewRootCmd builds the zroster command tree. Running it without a
// subcommand starts the TUI.
func NewRootCmd(version string, runTUI TUIFunc) *cobra.Command {
	env := &Env{ReadPassword: promptPassword}

	var (
		configPath string
		backend    string
		dataDir    string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:           "zroster",
		Short:         "Keep a roster of students",
		Long:          "zroster manages student records (name, address, phone) from the terminal.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, func(c *config.Config) {
				if backend != "" {
					c.Backend = backend
				}
				if dataDir != "" {
					c.DataDir = dataDir
				}
				if debug {
					c.LogLevel = "debug"
				}
			})
			if err != nil {
				return err
			}

			// the TUI owns the terminal, so console logging is for subcommands only
			var console io.Writer
			if debug && cmd.HasParent() {
				console = cmd.ErrOrStderr()
			}
			log, closer, err := config.NewLogger(cfg.DataDir, cfg.LogLevel, console)
			if err != nil {
				return err
			}

			env.Config = cfg
			env.ConfigPath = configPath
			env.Log = log.With().Str("cmd", cmd.Name()).Logger()
			env.logCloser = closer
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return env.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), env)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", config.Path(), "config file")
	cmd.PersistentFlags().StringVar(&backend, "backend", "", "storage backend: sqlite or vault")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output to stderr")

	cmd.AddCommand(
		newListCmd(env),
		newShowCmd(env),
		newAddCmd(env),
		newEditCmd(env),
		newDeleteCmd(env),
		newInitConfigCmd(env),
		newVersionCmd(version),
	)

	return cmd
}

func (e *Env) close() error {
	if e.logCloser == nil {
		return nil
	}
	err := e.logCloser.Close()
	e.logCloser = nil
	return err
}

// IsFirstRun reports whether the vault in dir has not been created yet.
func IsFirstRun(dir string) bool {
	return !store.VaultExists(dir)
}

// OpenBackend opens the configured backend. password is only used by the
// vault backend and is wiped afterwards.
func OpenBackend(ctx context.Context, cfg config.Config, password []byte) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return store.OpenSQLite(ctx, filepath.Join(cfg.DataDir, store.SQLiteFile))
	case config.BackendVault:
		return store.OpenVault(cfg.DataDir, password)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// OpenRepository opens the configured backend for a CLI command, prompting
// for the master password when the vault backend is used.
func (e *Env) OpenRepository(ctx context.Context) (*store.Repository, error) {
	var password []byte
	if e.Config.Backend == config.BackendVault {
		pw, err := e.ReadPassword(IsFirstRun(e.Config.DataDir))
		if err != nil {
			return nil, err
		}
		password = pw
	}

	b, err := OpenBackend(ctx, e.Config, password)
	if err != nil {
		return nil, err
	}
	return store.NewRepository(b, store.WithLogger(e.Log)), nil
}

// ReadPassword prompts for a password on w and reads it without echo.
func ReadPassword(prompt string, w io.Writer) ([]byte, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return b, nil
}

// ReadNewPassword prompts for a new password with confirmation.
func ReadNewPassword(w io.Writer) ([]byte, error) {
	pass, err := ReadPassword("master password: ", w)
	if err != nil {
		return nil, err
	}
	confirm, err := ReadPassword("confirm password: ", w)
	if err != nil {
		return nil, err
	}
	if string(pass) != string(confirm) {
		return nil, errors.New("passwords do not match")
	}
	return pass, nil
}

func promptPassword(firstRun bool) ([]byte, error) {
	if firstRun {
		return ReadNewPassword(os.Stderr)
	}
	return ReadPassword("master password: ", os.Stderr)
}
