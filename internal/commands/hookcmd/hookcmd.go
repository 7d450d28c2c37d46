// Package hookcmd installs and removes the OpenCode bridge plugin that feeds
// `ocn plugin`.
package hookcmd

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dotcommander/ocn/internal/output"
)

const opencodeBridgePluginFilename = "ocn-bridge.js"

// Install outcomes reported in the "status" field.
const (
	statusInstalled = "installed"
	statusUpdated   = "updated"
	statusSkipped   = "skipped"
)

//go:embed ocn-bridge.js
var opencodeBridgePluginSource string

// PluginPath is where install writes the bridge plugin. It honours
// XDG_CONFIG_HOME the way OpenCode does.
func PluginPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "opencode", "plugins", opencodeBridgePluginFilename), nil
}

// installPlugin writes the embedded plugin to path unless an identical copy
// is already there.
func installPlugin(path string) (string, error) {
	status := statusInstalled
	existing, err := os.ReadFile(path)
	switch {
	case err == nil && string(existing) == opencodeBridgePluginSource:
		return statusSkipped, nil
	case err == nil:
		status = statusUpdated
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read opencode bridge plugin: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("create opencode plugin directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(opencodeBridgePluginSource), 0600); err != nil {
		return "", fmt.Errorf("write opencode bridge plugin: %w", err)
	}
	return status, nil
}

// PluginStatus reports whether the plugin at path is "missing", "current"
// or "outdated" compared to the embedded copy.
func PluginStatus(path string) string {
	existing, err := os.ReadFile(path)
	switch {
	case err != nil:
		return "missing"
	case string(existing) == opencodeBridgePluginSource:
		return "current"
	default:
		return "outdated"
	}
}

func removePlugin(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove opencode bridge plugin: %w", err)
	}
	return true, nil
}

// NewInstallCmd creates the hook install command.
func NewInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install the OpenCode bridge plugin",
		Long:  "Writes the ocn bridge plugin into OpenCode's global plugin directory. The plugin starts `ocn plugin` for every OpenCode instance.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := PluginPath()
			if err != nil {
				return err
			}
			status, err := installPlugin(path)
			if err != nil {
				return err
			}

			type result struct {
				Path    string `json:"path"`
				Status  string `json:"status"`
				Message string `json:"message"`
			}
			msg := "OpenCode bridge plugin already installed"
			switch status {
			case statusInstalled:
				msg = "OpenCode bridge plugin installed"
			case statusUpdated:
				msg = "OpenCode bridge plugin updated"
			}
			msg += ". Restart OpenCode, then run 'ocn status' to verify."

			return output.PrintWith(output.To(cmd.OutOrStdout()), output.Success(result{Path: path, Status: status, Message: msg}))
		},
	}
}

// NewUninstallCmd creates the hook uninstall command.
func NewUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the OpenCode bridge plugin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := PluginPath()
			if err != nil {
				return err
			}
			removed, err := removePlugin(path)
			if err != nil {
				return err
			}

			type result struct {
				Path    string `json:"path"`
				Removed bool   `json:"removed"`
			}
			return output.PrintWith(output.To(cmd.OutOrStdout()), output.Success(result{Path: path, Removed: removed}))
		},
	}
}

// NewHookCmd creates the hook parent command with install and uninstall subcommands.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Install or remove the OpenCode bridge plugin",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(NewInstallCmd())
	cmd.AddCommand(NewUninstallCmd())

	return cmd
}
