package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns ~/.config/ocn/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ocn"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// EnsureParentDir creates the parent directory of path.
func EnsureParentDir(path string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return path, nil
}

const defaultConfig = `# ocn configuration
# Run: ocn --help

# Notification channels. The on_* flags gate every channel.
# notify:
#   desktop:   {enabled: true, on_idle: true, on_prompt: true, on_error: true}
#   bell:      {enabled: false}
#   tmux_pane: {enabled: true}

# Minimum gap between two notifications, across all statuses.
# debounce_ms: 2000

# Upper bound for a single notification channel call. 0 disables it.
# notify_timeout_ms: 5000

# Directory holding one JSON record per running instance.
# Can also be set via OCN_STATE_DIR or --state-dir.
# state_dir: ~/.local/state/ocn

# tmux status theme: tokyonight, catppuccin or plain.
# theme: tokyonight

# Transition history (SQLite). Empty path puts ocn-history.db next to state_dir.
# history:
#   enabled: true
#   path: ""
#   retention_days: 7

# Server used by "ocn stream".
# stream:
#   url: http://127.0.0.1:4096
`
