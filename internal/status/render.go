// Package status aggregates instance records and renders them for the tmux
// status line or as a JSON summary.
package status

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dotcommander/ocn/internal/models"
)

// DefaultTheme is used when no theme, or an unknown one, is requested.
const DefaultTheme = "tokyonight"

// Theme holds the tmux colors for one palette.
type Theme struct {
	Green  string
	Yellow string
	Red    string
	Bg     string
	Muted  string
}

var themes = map[string]Theme{ //nolint:gochecknoglobals // read-only palette table
	"tokyonight": {Green: "#9ece6a", Yellow: "#e0af68", Red: "#f7768e", Bg: "#1a1b26", Muted: "#565f89"},
	"catppuccin": {Green: "#a6e3a1", Yellow: "#f9e2af", Red: "#f38ba8", Bg: "#1e1e2e", Muted: "#585b70"},
	"plain":      {Green: "green", Yellow: "yellow", Red: "red", Bg: "default", Muted: "white"},
}

// HasTheme reports whether name is a known theme.
func HasTheme(name string) bool {
	_, ok := themes[name]
	return ok
}

// ThemeNames lists known themes, sorted.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupTheme returns the named theme, falling back to DefaultTheme.
func LookupTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[DefaultTheme]
}

// Counts is the number of instances per status.
type Counts struct {
	Idle      int `json:"idle"`
	Busy      int `json:"busy"`
	Prompting int `json:"prompting"`
	Error     int `json:"error"`
}

// Attention is the number of instances waiting on a human.
func (c Counts) Attention() int {
	return c.Prompting + c.Error
}

// Count tallies states by status. Unknown statuses are ignored.
func Count(states []models.InstanceState) Counts {
	var c Counts
	for _, s := range states {
		switch s.Status {
		case models.StatusIdle:
			c.Idle++
		case models.StatusBusy:
			c.Busy++
		case models.StatusPrompting:
			c.Prompting++
		case models.StatusError:
			c.Error++
		}
	}
	return c
}

// RenderTmux renders a tmux status-line segment such as "ocn:1! 2~ 3✓ ".
// It is empty when there are no instances or every instance is idle.
func RenderTmux(states []models.InstanceState, themeName string) string {
	if len(states) == 0 {
		return ""
	}
	c := Count(states)
	if c.Busy == 0 && c.Attention() == 0 {
		return ""
	}
	t := LookupTheme(themeName)

	parts := make([]string, 0, 3)
	if c.Attention() > 0 {
		parts = append(parts, fmt.Sprintf("#[fg=%s,bg=%s,bold]%d!", t.Red, t.Bg, c.Attention()))
	}
	if c.Busy > 0 {
		parts = append(parts, fmt.Sprintf("#[fg=%s,bg=%s]%d~", t.Yellow, t.Bg, c.Busy))
	}
	if c.Idle > 0 {
		parts = append(parts, fmt.Sprintf("#[fg=%s,bg=%s]%d✓", t.Green, t.Bg, c.Idle))
	}

	return fmt.Sprintf("#[fg=%s,bg=%s]ocn:%s ", t.Muted, t.Bg, strings.Join(parts, " "))
}

// Instance is one row of a Summary.
type Instance struct {
	Project string        `json:"project"`
	Status  models.Status `json:"status"`
	PID     int           `json:"pid"`
}

// Summary is the JSON view of all instances.
type Summary struct {
	Total int `json:"total"`
	Counts
	Instances []Instance `json:"instances"`
}

// Summarize builds a Summary in the order states were given.
func Summarize(states []models.InstanceState) Summary {
	s := Summary{
		Total:     len(states),
		Counts:    Count(states),
		Instances: make([]Instance, 0, len(states)),
	}
	for _, st := range states {
		s.Instances = append(s.Instances, Instance{Project: st.Project, Status: st.Status, PID: st.PID})
	}
	return s
}
