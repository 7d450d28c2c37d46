package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dotcommander/ocn/internal/status"
)

// Config is the ocn configuration loaded from YAML.
// Field names match snake_case YAML keys. Keys absent from the file keep
// their defaults.
type Config struct {
	Notify          NotifyConfig  `yaml:"notify" json:"notify"`
	DebounceMS      int           `yaml:"debounce_ms" json:"debounce_ms"`
	NotifyTimeoutMS int           `yaml:"notify_timeout_ms" json:"notify_timeout_ms"`
	StateDir        string        `yaml:"state_dir" json:"state_dir"`
	Theme           string        `yaml:"theme" json:"theme"`
	History         HistoryConfig `yaml:"history" json:"history"`
	Stream          StreamConfig  `yaml:"stream" json:"stream"`
}

// NotifyConfig selects notification channels and which statuses notify.
type NotifyConfig struct {
	Desktop  DesktopConfig `yaml:"desktop" json:"desktop"`
	Bell     ToggleConfig  `yaml:"bell" json:"bell"`
	TmuxPane ToggleConfig  `yaml:"tmux_pane" json:"tmux_pane"`
}

// DesktopConfig enables desktop banners. The on_* flags gate every channel,
// not only the desktop one.
type DesktopConfig struct {
	Enabled  bool `yaml:"enabled" json:"enabled"`
	OnIdle   bool `yaml:"on_idle" json:"on_idle"`
	OnPrompt bool `yaml:"on_prompt" json:"on_prompt"`
	OnError  bool `yaml:"on_error" json:"on_error"`
}

// ToggleConfig is a channel with only an enable switch.
type ToggleConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// HistoryConfig controls the transition journal.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	Path          string `yaml:"path" json:"path"`
	RetentionDays int    `yaml:"retention_days" json:"retention_days"`
}

// StreamConfig points the stream source at a running server.
type StreamConfig struct {
	URL string `yaml:"url" json:"url"`
}

const (
	defaultDebounceMS      = 2000
	defaultNotifyTimeoutMS = 5000
	defaultStateDir        = "~/.local/state/ocn"
	defaultRetentionDays   = 7
	defaultStreamURL       = "http://127.0.0.1:4096"
	maxRetentionDays       = 3650
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Notify: NotifyConfig{
			Desktop:  DesktopConfig{Enabled: true, OnIdle: true, OnPrompt: true, OnError: true},
			Bell:     ToggleConfig{Enabled: false},
			TmuxPane: ToggleConfig{Enabled: true},
		},
		DebounceMS:      defaultDebounceMS,
		NotifyTimeoutMS: defaultNotifyTimeoutMS,
		StateDir:        defaultStateDir,
		Theme:           status.DefaultTheme,
		History:         HistoryConfig{Enabled: true, RetentionDays: defaultRetentionDays},
		Stream:          StreamConfig{URL: defaultStreamURL},
	}
}

// Validate rejects values that cannot be used at runtime.
func (c Config) Validate() error {
	var errs []error
	if c.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("debounce_ms must be >= 0, got %d", c.DebounceMS))
	}
	if c.NotifyTimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("notify_timeout_ms must be >= 0, got %d", c.NotifyTimeoutMS))
	}
	if !status.HasTheme(c.Theme) {
		errs = append(errs, fmt.Errorf("unknown theme %q (supported: %v)", c.Theme, status.ThemeNames()))
	}
	if c.StateDir == "" {
		errs = append(errs, errors.New("state_dir must not be empty"))
	}
	if c.History.RetentionDays < 0 || c.History.RetentionDays > maxRetentionDays {
		errs = append(errs, fmt.Errorf("history.retention_days must be between 0 and %d, got %d", maxRetentionDays, c.History.RetentionDays))
	}
	return errors.Join(errs...)
}

// Debounce returns debounce_ms as a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// NotifyTimeout returns notify_timeout_ms as a duration.
func (c Config) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutMS) * time.Millisecond
}

// Retention returns the journal retention window. Zero keeps everything.
func (c Config) Retention() time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}

// settingsOnce, settings, settingsPath, settingsErr implement the sync.Once lazy-load singleton.
// The override fields back the --config and --state-dir flags.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex overrides are intentional process-wide state
var (
	settingsOnce sync.Once
	settings     Config
	settingsPath string
	settingsErr  error

	overrideMu         sync.RWMutex
	configPathOverride string
	stateDirOverride   string
)

// SetConfigPathOverride sets an explicit config file (--config).
func SetConfigPathOverride(path string) {
	overrideMu.Lock()
	configPathOverride = path
	overrideMu.Unlock()
}

// SetStateDirOverride sets a process-wide state directory override (--state-dir).
func SetStateDirOverride(dir string) {
	overrideMu.Lock()
	stateDirOverride = dir
	overrideMu.Unlock()
}

// ResetSettings drops the cached configuration so the next LoadSettings
// re-reads it. Call it after changing overrides, before any loads.
func ResetSettings() {
	settingsOnce = sync.Once{}
	settings = Config{}
	settingsPath = ""
	settingsErr = nil
}

func getOverrides() (configPath, stateDir string) {
	overrideMu.RLock()
	defer overrideMu.RUnlock()
	return configPathOverride, stateDirOverride
}

// LoadSettings loads configuration once using the documented lookup order.
// Lookup order (first found wins):
// 1) --config flag, then OCN_CONFIG (must exist when given)
// 2) ~/.config/ocn/config.yaml
// 3) /etc/ocn/config.yaml
// 4) ./ocn.yaml
// No file at all yields DefaultConfig. OCN_STATE_DIR and --state-dir are
// applied on top of whatever was loaded. On error the returned Config is the
// resolved default, so callers that must not fail can log and carry on.
func LoadSettings() (Config, error) {
	settingsOnce.Do(func() {
		settings, settingsPath, settingsErr = loadFromLookupOrder()
		if settingsErr != nil {
			settings, settingsPath = DefaultConfig(), ""
		}
		settings.StateDir = resolveStateDir(settings.StateDir)
		settings.History.Path = resolveHistoryPath(settings)
	})
	return settings, settingsErr
}

// SettingsSource returns the config file LoadSettings used, or "" for defaults.
func SettingsSource() string {
	_, _ = LoadSettings()
	return settingsPath
}

func loadFromLookupOrder() (Config, string, error) {
	explicit, _ := getOverrides()
	if explicit == "" {
		explicit = os.Getenv("OCN_CONFIG")
	}
	if explicit != "" {
		path := ExpandHome(explicit)
		cfg, err := loadSettingsFile(path)
		if err != nil {
			return Config{}, "", fmt.Errorf("load config %s: %w", path, err)
		}
		return cfg, path, nil
	}

	paths, err := configLookupPaths()
	if err != nil {
		return Config{}, "", err
	}
	for _, p := range paths {
		cfg, err := loadSettingsFile(p)
		if err == nil {
			return cfg, p, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return Config{}, "", fmt.Errorf("load config %s: %w", p, err)
	}
	return DefaultConfig(), "", nil
}

func configLookupPaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(string(os.PathSeparator), "etc", "ocn", "config.yaml"),
		"ocn.yaml",
	}, nil
}

// loadSettingsFile unmarshals path on top of DefaultConfig and validates the result.
func loadSettingsFile(path string) (Config, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the user
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolveStateDir applies --state-dir, then OCN_STATE_DIR, then the config value.
func resolveStateDir(fromConfig string) string {
	if _, dir := getOverrides(); dir != "" {
		return ExpandHome(dir)
	}
	if env := os.Getenv("OCN_STATE_DIR"); env != "" {
		return ExpandHome(env)
	}
	return ExpandHome(fromConfig)
}

// resolveHistoryPath places the journal next to the state directory so the
// state directory only ever holds instance records.
func resolveHistoryPath(cfg Config) string {
	if cfg.History.Path != "" {
		return ExpandHome(cfg.History.Path)
	}
	return filepath.Join(filepath.Dir(filepath.Clean(cfg.StateDir)), "ocn-history.db")
}
