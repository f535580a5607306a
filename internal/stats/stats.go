// Package stats reads the external warning/deactivation counters file
// maintained alongside the connection log and re-keys it by base user.
package stats

import (
	"encoding/json"
	"os"

	"github.com/Free-Guy-IR/monitoring-user-web/internal/parser"
)

// Counters holds the per-user warning and deactivation totals. The
// field names on the wire are the ones the V2IpLimit stats writer
// produces.
type Counters struct {
	Warn int `json:"warnings_after_second"`
	Deac int `json:"deactivated_times"`
}

// Load reads the stats file and returns counters keyed by base user,
// summing across every logged variant that collapses to the same base.
// A missing or malformed file yields an empty map, never an error.
func Load(path string) map[string]Counters {
	out := make(map[string]Counters)

	raw, err := os.ReadFile(path)
	if err != nil {
		return out
	}

	var byVariant map[string]Counters
	if err := json.Unmarshal(raw, &byVariant); err != nil {
		return out
	}

	for user, c := range byVariant {
		base := parser.BaseKey(user)
		agg := out[base]
		agg.Warn += c.Warn
		agg.Deac += c.Deac
		out[base] = agg
	}
	return out
}
