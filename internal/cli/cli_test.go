package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zarlcorp/zroster/internal/config"
	"github.com/zarlcorp/zroster/internal/student"
)

type harness struct {
	t       *testing.T
	dataDir string
	config  string
	tuiRuns int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	return &harness{
		t:       t,
		dataDir: filepath.Join(dir, "data"),
		config:  filepath.Join(dir, "config.yaml"),
	}
}

// run executes the command tree with stdin and returns stdout.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()

	cmd := NewRootCmd("v1.2.3", func(context.Context, *Env) error {
		h.tuiRuns++
		return nil
	})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", h.config, "--data-dir", h.dataDir, "--backend", "sqlite"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(stdin string, args ...string) string {
	h.t.Helper()
	out, err := h.run(stdin, args...)
	require.NoError(h.t, err, out)
	return out
}

func (h *harness) list() []student.Student {
	h.t.Helper()
	var got []student.Student
	require.NoError(h.t, json.Unmarshal([]byte(h.mustRun("", "list", "--json")), &got))
	return got
}

func TestRootRunsTUI(t *testing.T) {
	h := newHarness(t)
	h.mustRun("")
	assert.Equal(t, 1, h.tuiRuns)
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("", "version")
	assert.Equal(t, "zroster v1.2.3\n", out)
}

func TestListEmpty(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "no students\n", h.mustRun("", "list"))
	assert.Empty(t, h.list())
}

func TestAddShowList(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("", "add", "--name", "Ana", "--address", "Jl. A", "--phone", "111")
	assert.Equal(t, "added 1\n", out)
	h.mustRun("", "add", "--name", "Budi", "--address", "Jl. B", "--phone", "222")

	got := h.list()
	require.Len(t, got, 2)
	assert.Equal(t, "Ana", got[0].Name)
	assert.Equal(t, "Budi", got[1].Name)

	out = h.mustRun("", "show", "1")
	assert.Contains(t, out, "name:     Ana")
	assert.Contains(t, out, "phone:    111")

	var s student.Student
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("", "show", "2", "--json")), &s))
	assert.Equal(t, student.Student{ID: 2, Name: "Budi", Address: "Jl. B", Phone: "222"}, s)
}

func TestAddRequiresAllFields(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "add", "--name", "Ana", "--address", "  ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, student.ErrInvalid))
	assert.Empty(t, h.list())
}

func TestEditChangesOnlyGivenFields(t *testing.T) {
	h := newHarness(t)
	h.mustRun("", "add", "--name", "Ana", "--address", "Jl. A", "--phone", "111")

	out := h.mustRun("", "edit", "1", "--phone", "999")
	assert.Equal(t, "updated 1\n", out)

	got := h.list()
	require.Len(t, got, 1)
	assert.Equal(t, student.Student{ID: 1, Name: "Ana", Address: "Jl. A", Phone: "999"}, got[0])
}

func TestShowMissing(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "show", "42")
	require.EqualError(t, err, "student 42 not found")
}

func TestInvalidID(t *testing.T) {
	h := newHarness(t)
	for _, arg := range []string{"abc", "0", "-1"} {
		_, err := h.run("", "show", "--", arg)
		require.Error(t, err, arg)
	}
}

func TestDeletePrompt(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		deleted bool
		wantErr bool
	}{
		{name: "yes", stdin: "y\n", deleted: true},
		{name: "yes word", stdin: "YES\n", deleted: true},
		{name: "no", stdin: "n\n"},
		{name: "reprompts until explicit", stdin: "\nmaybe\nq\ny\n", deleted: true},
		{name: "reprompts then no", stdin: "x\nno\n"},
		{name: "eof is not an answer", stdin: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.mustRun("", "add", "--name", "Ana", "--address", "Jl. A", "--phone", "111")

			out, err := h.run(tt.stdin, "delete", "1")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err, out)
			}

			if tt.deleted {
				assert.Contains(t, out, "deleted 1")
				assert.Empty(t, h.list())
			} else {
				assert.Len(t, h.list(), 1)
			}
		})
	}
}

func TestDeleteYesSkipsPrompt(t *testing.T) {
	h := newHarness(t)
	h.mustRun("", "add", "--name", "Ana", "--address", "Jl. A", "--phone", "111")

	out := h.mustRun("", "delete", "1", "--yes")
	assert.NotContains(t, out, "[y/n]")
	assert.Empty(t, h.list())
}

func TestConfirmDeleteCountsPrompts(t *testing.T) {
	var out bytes.Buffer
	ok, err := confirmDelete(strings.NewReader("a\nb\nn\n"), &out, student.Student{ID: 3, Name: "Ana"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, strings.Count(out.String(), `delete "Ana" (3)?`))
}

func TestUnknownBackendFlag(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "list", "--backend", "postgres")
	require.Error(t, err)
}

func TestBackendFlagBeatsEnv(t *testing.T) {
	t.Setenv("ZROSTER_BACKEND", "bogus")
	h := newHarness(t)
	assert.Equal(t, "no students\n", h.mustRun("", "list"))
}

func TestDebugLogsToConsoleForSubcommands(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("", "add", "--name", "Ana", "--address", "Jl. A", "--phone", "111", "--debug")
	assert.Contains(t, out, "student inserted")
}

func TestDebugKeepsTUIConsoleQuiet(t *testing.T) {
	dir := t.TempDir()
	cmd := NewRootCmd("v1.2.3", func(_ context.Context, env *Env) error {
		env.Log.Debug().Msg("tui started")
		return nil
	})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "config.yaml"), "--data-dir", dir, "--backend", "sqlite", "--debug"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Empty(t, out.String())
	b, err := os.ReadFile(filepath.Join(dir, config.LogFile))
	require.NoError(t, err)
	assert.Contains(t, string(b), "tui started")
}

func TestInitConfig(t *testing.T) {
	t.Setenv("ZROSTER_BACKEND", "")
	t.Setenv("ZROSTER_DATA_DIR", "")
	t.Setenv("ZROSTER_LOG_LEVEL", "")
	h := newHarness(t)

	out := h.mustRun("", "init-config")
	assert.Equal(t, "wrote "+h.config+"\n", out)

	cfg, err := config.Load(h.config)
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQLite, cfg.Backend)
	assert.Equal(t, h.dataDir, cfg.DataDir)

	_, err = h.run("", "init-config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	h.mustRun("", "init-config", "--force", "--backend", "vault")
	cfg, err = config.Load(h.config)
	require.NoError(t, err)
	assert.Equal(t, config.BackendVault, cfg.Backend)
}

func TestLogFileWritten(t *testing.T) {
	h := newHarness(t)
	h.mustRun("", "add", "--name", "Ana", "--address", "Jl. A", "--phone", "111")
	h.mustRun("", "delete", "1", "--yes")

	b, err := os.ReadFile(filepath.Join(h.dataDir, config.LogFile))
	require.NoError(t, err)
	assert.Contains(t, string(b), "deleted from cli")
}

func TestIsFirstRun(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, IsFirstRun(dir))

	b, err := OpenBackend(context.Background(), config.Config{Backend: config.BackendVault, DataDir: dir}, []byte("pw"))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	assert.False(t, IsFirstRun(dir))
}

func TestOpenRepositoryVault(t *testing.T) {
	dir := t.TempDir()

	var firstRuns []bool
	env := &Env{
		Config: config.Config{Backend: config.BackendVault, DataDir: dir},
		Log:    zerolog.Nop(),
		ReadPassword: func(firstRun bool) ([]byte, error) {
			firstRuns = append(firstRuns, firstRun)
			return []byte("hunter2"), nil
		},
	}

	ctx := context.Background()
	repo, err := env.OpenRepository(ctx)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, student.Student{Name: "Ana", Address: "Jl. A", Phone: "111"})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = env.OpenRepository(ctx)
	require.NoError(t, err)
	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	require.Len(t, got, 1)
	assert.Equal(t, "Ana", got[0].Name)
	assert.Equal(t, []bool{true, false}, firstRuns)
}

func TestOpenBackendUnknown(t *testing.T) {
	_, err := OpenBackend(context.Background(), config.Config{Backend: "csv"}, nil)
	require.Error(t, err)
}
