package hookcmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("OCN_PRETTY_JSON", "")
	return home
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func runHook(t *testing.T, args ...string) map[string]any {
	t.Helper()
	cmd := NewHookCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	var env envelope
	require.NoError(t, json.Unmarshal(out.Bytes(), &env))
	require.True(t, env.Success)
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func TestOpencodePluginPath(t *testing.T) {
	home := isolateHome(t)
	path, err := PluginPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "opencode", "plugins", "ocn-bridge.js"), path)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	path, err = PluginPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "opencode", "plugins", "ocn-bridge.js"), path)
}

func TestEmbeddedPluginSpawnsOcn(t *testing.T) {
	require.Contains(t, opencodeBridgePluginSource, `"plugin", "--pid"`)
	require.Contains(t, opencodeBridgePluginSource, "export const OcnBridge")
}

func TestInstall_InstalledThenSkippedThenUpdated(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, ".config", "opencode", "plugins", "ocn-bridge.js")

	data := runHook(t, "install")
	require.Equal(t, "installed", data["status"])
	require.Equal(t, path, data["path"])

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, opencodeBridgePluginSource, string(b))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data = runHook(t, "install")
	require.Equal(t, "skipped", data["status"])

	require.NoError(t, os.WriteFile(path, []byte("// old"), 0600))
	data = runHook(t, "install")
	require.Equal(t, "updated", data["status"])
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, opencodeBridgePluginSource, string(b))
}

func TestPluginStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocn-bridge.js")
	require.Equal(t, "missing", PluginStatus(path))

	require.NoError(t, os.WriteFile(path, []byte("// old"), 0600))
	require.Equal(t, "outdated", PluginStatus(path))

	_, err := installPlugin(path)
	require.NoError(t, err)
	require.Equal(t, "current", PluginStatus(path))
}

func TestUninstall_RemovesPlugin(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, ".config", "opencode", "plugins", "ocn-bridge.js")

	data := runHook(t, "uninstall")
	require.Equal(t, false, data["removed"])

	runHook(t, "install")
	data = runHook(t, "uninstall")
	require.Equal(t, true, data["removed"])
	require.NoFileExists(t, path)
}

func TestInstall_UnreadableTargetFails(t *testing.T) {
	home := isolateHome(t)
	// A directory where the plugin file should be cannot be read as a file.
	path := filepath.Join(home, ".config", "opencode", "plugins", "ocn-bridge.js")
	require.NoError(t, os.MkdirAll(path, 0o755))

	_, err := installPlugin(path)
	require.Error(t, err)
}
