package commands

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/ocn/internal/app"
	"github.com/dotcommander/ocn/internal/models"
	"github.com/dotcommander/ocn/internal/state"
)

// deadPID is above any kernel pid_max, so kill(2) reports ESRCH.
const deadPID = 99999999

type env struct {
	home     string
	stateDir string
	config   string
}

// setup isolates HOME and writes a config with every notifier disabled and
// history inside the temp dir.
func setup(t *testing.T) env {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OCN_CONFIG", "")
	t.Setenv("OCN_STATE_DIR", "")
	t.Setenv("OCN_DEBUG", "")
	t.Setenv("OCN_PRETTY_JSON", "")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Cleanup(func() {
		app.SetConfigPathOverride("")
		app.SetStateDirOverride("")
		app.ResetSettings()
	})

	e := env{
		home:     home,
		stateDir: filepath.Join(home, "state"),
		config:   filepath.Join(home, "ocn.yaml"),
	}
	cfg := strings.Join([]string{
		"notify:",
		"  desktop: {enabled: false}",
		"  bell: {enabled: false}",
		"  tmux_pane: {enabled: false}",
		"debounce_ms: 0",
		"history:",
		"  enabled: true",
		"  path: " + filepath.Join(home, "history.db"),
	}, "\n")
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o600))
	return e
}

func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd("test", new(slog.LevelVar))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.config, "--state-dir", e.stateDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func decodeData(t *testing.T, out string, into any) {
	t.Helper()
	var resp struct {
		SchemaVersion string          `json:"schema_version"`
		Success       bool            `json:"success"`
		Data          json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "v1", resp.SchemaVersion)
	require.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, into))
}

func TestRoot_Version(t *testing.T) {
	e := setup(t)
	out, err := e.run(t, "", "-v")
	require.NoError(t, err)

	var data struct {
		Version string `json:"version"`
	}
	decodeData(t, out, &data)
	require.Equal(t, "test", data.Version)
}

func TestRoot_DebugFlagRaisesLevel(t *testing.T) {
	e := setup(t)
	level := new(slog.LevelVar)
	root := newRootCmd("test", level)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", e.config, "--debug", "config"})
	require.NoError(t, root.Execute())
	require.Equal(t, slog.LevelDebug, level.Level())
}

func TestRoot_WritesDefaultConfigFile(t *testing.T) {
	e := setup(t)
	_, err := e.run(t, "", "config")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(e.home, ".config", "ocn", "config.yaml"))
}

func TestProjectName(t *testing.T) {
	require.Equal(t, "api", projectName("/home/me/src/api"))
	require.Equal(t, "api", projectName("/home/me/src/api/"))
	require.Equal(t, "unknown", projectName("/"))
	require.Equal(t, "unknown", projectName(""))
}

func TestMonitorFlags_Context(t *testing.T) {
	f := monitorFlags{pid: 42, directory: "/work/site"}
	ctx, err := f.context(models.SourcePlugin)
	require.NoError(t, err)
	require.Equal(t, 42, ctx.PID)
	require.Equal(t, "/work/site", ctx.Directory)
	require.Equal(t, "site", ctx.ProjectName)
	require.Equal(t, models.SourcePlugin, ctx.Source)

	f.project = "custom"
	ctx, err = f.context(models.SourceStream)
	require.NoError(t, err)
	require.Equal(t, "custom", ctx.ProjectName)

	wd, err := os.Getwd()
	require.NoError(t, err)
	ctx, err = (&monitorFlags{pid: 1}).context(models.SourcePlugin)
	require.NoError(t, err)
	require.Equal(t, wd, ctx.Directory)

	_, err = (&monitorFlags{pid: 0}).context(models.SourcePlugin)
	require.Error(t, err)
}

func TestPlugin_TracksInstanceAndRemovesStateOnEOF(t *testing.T) {
	e := setup(t)
	pid := strconv.Itoa(os.Getpid())
	stdin := strings.Join([]string{
		`{"type":"session.created","properties":{"info":{"id":"ses_root"}}}`,
		`{"type":"session.status","properties":{"sessionID":"ses_root","status":{"type":"busy"}}}`,
		`not json`,
		`{"type":"permission.asked","properties":{"sessionID":"ses_root","permission":"bash"}}`,
		`{"type":"permission.replied","properties":{"sessionID":"ses_root"}}`,
		`{"type":"session.idle","properties":{"sessionID":"ses_root"}}`,
	}, "\n") + "\n"

	_, err := e.run(t, stdin, "plugin", "--pid", pid, "--directory", "/work/site")
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(e.stateDir, pid+".json"))

	out, err := e.run(t, "", "history", "--instance", pid)
	require.NoError(t, err)
	var data struct {
		Transitions []models.Transition `json:"transitions"`
	}
	decodeData(t, out, &data)
	require.Len(t, data.Transitions, 4)

	newest := data.Transitions[0]
	require.Equal(t, models.StatusBusy, newest.From)
	require.Equal(t, models.StatusIdle, newest.To)
	require.Equal(t, "site", newest.Project)
	require.Equal(t, models.SourcePlugin, newest.Source)
	require.Equal(t, models.StatusPrompting, data.Transitions[2].To)
}

func TestPlugin_DisposedRemovesState(t *testing.T) {
	e := setup(t)
	pid := strconv.Itoa(os.Getpid())
	stdin := `{"type":"session.status","properties":{"sessionID":"s","status":{"type":"busy"}}}` + "\n" +
		`{"type":"server.instance.disposed","properties":{}}` + "\n"

	_, err := e.run(t, stdin, "plugin", "--pid", pid, "--directory", "/work/site")
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(e.stateDir, pid+".json"))
}

func writeRecords(t *testing.T, dir string) {
	t.Helper()
	store := state.New(dir)
	now := time.Now().UTC()
	require.NoError(t, store.Write("live", models.InstanceState{PID: os.Getpid(), Project: "site", Status: models.StatusBusy, LastTransition: now}))
	require.NoError(t, store.Write("dead", models.InstanceState{PID: deadPID, Project: "gone", Status: models.StatusError, LastTransition: now}))
}

func TestStatus_JSONIgnoresDeadInstances(t *testing.T) {
	e := setup(t)
	writeRecords(t, e.stateDir)

	out, err := e.run(t, "", "status")
	require.NoError(t, err)

	var data struct {
		Total     int `json:"total"`
		Busy      int `json:"busy"`
		Error     int `json:"error"`
		Instances []struct {
			Project string `json:"project"`
			PID     int    `json:"pid"`
		} `json:"instances"`
	}
	decodeData(t, out, &data)
	require.Equal(t, 1, data.Total)
	require.Equal(t, 1, data.Busy)
	require.Zero(t, data.Error)
	require.Equal(t, "site", data.Instances[0].Project)
	require.Equal(t, os.Getpid(), data.Instances[0].PID)
}

func TestStatus_TmuxFormat(t *testing.T) {
	e := setup(t)
	writeRecords(t, e.stateDir)

	out, err := e.run(t, "", "status", "--format", "tmux")
	require.NoError(t, err)
	require.Equal(t, "#[fg=#565f89,bg=#1a1b26]ocn:#[fg=#e0af68,bg=#1a1b26]1~ \n", out)

	out, err = e.run(t, "", "status", "--format", "tmux", "--theme", "plain")
	require.NoError(t, err)
	require.Equal(t, "#[fg=white,bg=default]ocn:#[fg=yellow,bg=default]1~ \n", out)
}

func TestStatus_EmptyDirectory(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "", "status", "--format", "tmux")
	require.NoError(t, err)
	require.Equal(t, "\n", out)
}

func TestStatus_RejectsUnknownFormat(t *testing.T) {
	e := setup(t)
	_, err := e.run(t, "", "status", "--format", "xml")
	require.Error(t, err)
}

func TestCleanup_RemovesDeadRecords(t *testing.T) {
	e := setup(t)
	writeRecords(t, e.stateDir)

	out, err := e.run(t, "", "cleanup")
	require.NoError(t, err)

	var data struct {
		StateDir string `json:"state_dir"`
		Removed  int    `json:"removed"`
	}
	decodeData(t, out, &data)
	require.Equal(t, 1, data.Removed)
	require.Equal(t, e.stateDir, data.StateDir)
	require.FileExists(t, filepath.Join(e.stateDir, "live.json"))
	require.NoFileExists(t, filepath.Join(e.stateDir, "dead.json"))
}

func TestHistory_EmptyJournal(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "", "history")
	require.NoError(t, err)
	var data struct {
		Path        string              `json:"path"`
		Transitions []models.Transition `json:"transitions"`
	}
	decodeData(t, out, &data)
	require.Equal(t, filepath.Join(e.home, "history.db"), data.Path)
	require.NotNil(t, data.Transitions)
	require.Empty(t, data.Transitions)
}

func TestConfig_ShowsSourceAndOverrides(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "", "config")
	require.NoError(t, err)
	var data struct {
		Source string     `json:"source"`
		Config app.Config `json:"config"`
	}
	decodeData(t, out, &data)
	require.Equal(t, e.config, data.Source)
	require.Equal(t, e.stateDir, data.Config.StateDir)
	require.False(t, data.Config.Notify.Desktop.Enabled)
	require.Equal(t, "tokyonight", data.Config.Theme)
}

func TestConfig_InvalidFileFails(t *testing.T) {
	e := setup(t)
	require.NoError(t, os.WriteFile(e.config, []byte("theme: neon\n"), 0o600))

	_, err := e.run(t, "", "config")
	require.Error(t, err)
	var pe printedError
	require.ErrorAs(t, err, &pe)
}

func TestDoctor_ReportsChecks(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "", "doctor")
	require.NoError(t, err)

	var data struct {
		StateDir      string          `json:"state_dir"`
		StateDirOK    bool            `json:"state_dir_ok"`
		HistoryOK     bool            `json:"history_ok"`
		SchemaVersion int64           `json:"schema_version"`
		Notifiers     []notifierCheck `json:"notifiers"`
		PluginStatus  string          `json:"plugin_status"`
		Hint          string          `json:"hint"`
	}
	decodeData(t, out, &data)
	require.Equal(t, e.stateDir, data.StateDir)
	require.True(t, data.StateDirOK)
	require.True(t, data.HistoryOK)
	require.Equal(t, int64(1), data.SchemaVersion)
	require.Empty(t, data.Notifiers)
	require.Equal(t, "missing", data.PluginStatus)
	require.Contains(t, data.Hint, "ocn hook install")

	entries, err := os.ReadDir(e.stateDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCheckNotifiers(t *testing.T) {
	cfg := app.DefaultConfig().Notify
	cfg.Bell.Enabled = true

	checks := checkNotifiers(cfg)
	require.Len(t, checks, 3)
	require.Equal(t, "desktop", checks[0].Name)
	require.NotEmpty(t, checks[0].Binary)
	require.Equal(t, notifierCheck{Name: "bell", Found: true}, checks[1])
	require.Equal(t, "tmux", checks[2].Binary)
}

func TestCmdErr(t *testing.T) {
	require.NoError(t, cmdErr(nil))

	err := cmdErr(os.ErrNotExist)
	require.EqualError(t, err, "error already printed")
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Equal(t, err, cmdErr(err))
}
