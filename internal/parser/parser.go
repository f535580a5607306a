// Package parser turns raw connection-log lines into structured events
// and normalizes logged usernames to their base identity.
package parser

import (
	"regexp"
	"strings"

	"github.com/Free-Guy-IR/monitoring-user-web/internal/model"
)

// Lines look like: "2024-05-01 13:37:00 | 5823.mohammad | example.com"
var lineRe = regexp.MustCompile(
	`^\s*(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\s*\|\s*([^|]+?)\s*\|\s*(.+?)\s*$`,
)

// Parse extracts a LogEvent from one raw line (no trailing newline).
// A line that does not match the grammar, or whose user field is empty
// after trimming, yields ok=false. An empty host becomes "UNKNOWN".
func Parse(line string) (model.LogEvent, bool) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return model.LogEvent{}, false
	}
	user := strings.TrimSpace(m[2])
	if user == "" {
		return model.LogEvent{}, false
	}
	host := strings.TrimSpace(m[3])
	if host == "" {
		host = "UNKNOWN"
	}
	return model.LogEvent{TS: m[1], User: user, Host: host}, true
}

// BaseKey strips a numeric session prefix from a logged username:
// "5823.mohammad" -> "mohammad". The prefix must sit before the first
// '.' at index > 0 and consist entirely of digits; otherwise the name
// is returned unchanged.
func BaseKey(user string) string {
	i := strings.IndexByte(user, '.')
	if i <= 0 {
		return user
	}
	if !allDigits(user[:i]) {
		return user
	}
	return user[i+1:]
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
