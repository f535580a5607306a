// Package history answers "last N events for this user older than T" by
// reading the raw log file backward, bypassing the in-memory index.
package history

import (
	"os"

	"github.com/Free-Guy-IR/monitoring-user-web/internal/model"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/parser"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/reader"
)

// Paginator pages over the raw log file for one configured path.
type Paginator struct {
	path string
}

// New creates a Paginator over the log file at path.
func New(path string) *Paginator {
	return &Paginator{path: path}
}

// PageBefore collects up to limit events for the given base user, walking
// the file from the end. When beforeTS is non-empty only events with
// ts < beforeTS (strict) are considered; callers pass the timestamp of
// the first (oldest) event of the previous page as the cursor. The
// result is returned in ascending chronological order.
//
// Known limitation: because the cursor comparison is strict, events that
// share an identical timestamp across a page boundary are skipped on the
// following page. Extending the cursor with an intra-timestamp sequence
// would close the gap.
//
// A missing log file yields an empty page, not an error.
func (p *Paginator) PageBefore(base string, limit int, beforeTS string) ([]model.LogEvent, error) {
	b, err := reader.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.LogEvent{}, nil
		}
		return nil, err
	}
	defer b.Close()

	results := make([]model.LogEvent, 0, limit)
	for b.Scan() {
		ev, ok := parser.Parse(b.Text())
		if !ok {
			continue
		}
		if beforeTS != "" && ev.TS >= beforeTS {
			continue
		}
		if parser.BaseKey(ev.User) != base {
			continue
		}
		results = append(results, ev)
		if len(results) >= limit {
			break
		}
	}
	if err := b.Err(); err != nil {
		return nil, err
	}

	// Collected newest-first; flip to ascending.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}
