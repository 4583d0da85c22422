package tui

import (
	"fmt"
	"strings"
)

// View types that support TUI mode.
const (
	ViewInspectShard = "inspect_shard"
	ViewStatsShards  = "stats_shards"
)

// Run starts the appropriate TUI based on the view type.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	switch {
	case !IsTUISupported(viewType):
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	case strings.HasPrefix(viewType, "inspect_"):
		return RunInspectTUI(viewType, data)
	default:
		return RunStatsTUI(viewType, data)
	}
}

// IsTUISupported returns true if the view type supports TUI mode.
// Only the read-only inspect and verify views do.
func IsTUISupported(viewType string) bool {
	for _, v := range SupportedTUIViews() {
		if v == viewType {
			return true
		}
	}
	return false
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewInspectShard, ViewStatsShards}
}
