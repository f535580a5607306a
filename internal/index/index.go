// Package index maintains the live, memory-resident aggregation of
// per-user activity. It is the single source of truth behind the
// dashboard's user snapshot.
package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/Free-Guy-IR/monitoring-user-web/internal/model"
	"github.com/Free-Guy-IR/monitoring-user-web/internal/parser"
)

// DefaultMaxHosts caps how many distinct sample hosts are retained per
// base user. Once full, newly seen hosts are dropped; existing entries
// are never evicted.
const DefaultMaxHosts = 200

// record is the rolling aggregate for one base user. Owned exclusively
// by the Index; never handed out directly.
type record struct {
	count      int64
	lastTS     string
	sampleHost string
	variants   map[string]struct{}
	hosts      map[string]struct{}
}

// UserSummary is the read-only projection returned by Snapshot.
type UserSummary struct {
	Base         string   `json:"base"`
	DisplayNames []string `json:"display_names"`
	Count        int64    `json:"count"`
	LastTS       string   `json:"last_ts"`
	SampleHost   string   `json:"sample_host"`
	Hosts        []string `json:"hosts"`
}

// Index aggregates events per base user. Two producers (tailer and full
// scanner) call Apply concurrently; query handlers call Snapshot. A
// whole-map RWMutex serializes Apply's lookup-or-create read-modify-write
// against both writers and readers.
type Index struct {
	mu       sync.RWMutex
	users    map[string]*record
	maxHosts int
	flagged  func(host string) bool
}

// Option configures an Index.
type Option func(*Index)

// WithMaxHosts overrides the per-user sample host cap.
func WithMaxHosts(n int) Option {
	return func(ix *Index) { ix.maxHosts = n }
}

// WithFlagged sets the predicate that marks a host as flagged. Flagged
// hosts are surfaced preferentially as a user's sample host.
func WithFlagged(pred func(host string) bool) Option {
	return func(ix *Index) { ix.flagged = pred }
}

// New creates an empty Index.
func New(opts ...Option) *Index {
	ix := &Index{
		users:    make(map[string]*record),
		maxHosts: DefaultMaxHosts,
		flagged:  func(string) bool { return false },
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Apply folds one event into the aggregate for its base user. It is the
// only mutating entry point and runs as one atomic unit under the write
// lock.
func (ix *Index) Apply(ev model.LogEvent) {
	base := parser.BaseKey(ev.User)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	r, ok := ix.users[base]
	if !ok {
		r = &record{
			lastTS:     ev.TS,
			sampleHost: ev.Host,
			variants:   map[string]struct{}{ev.User: {}},
			hosts:      make(map[string]struct{}),
		}
		if ev.Host != "" {
			r.hosts[ev.Host] = struct{}{}
		}
		ix.users[base] = r
	}

	r.count++
	// Ties favor the incoming event so the sample host tracks the most
	// recently applied activity.
	if ev.TS >= r.lastTS {
		r.lastTS = ev.TS
		r.sampleHost = ev.Host
	}
	r.variants[ev.User] = struct{}{}
	if ev.Host != "" && len(r.hosts) < ix.maxHosts {
		r.hosts[ev.Host] = struct{}{}
	}
}

// Len returns the number of base users currently tracked.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.users)
}

// Snapshot produces a point-in-time, read-only view of the index,
// filtered and ordered for the dashboard. userQ matches (substring,
// case-insensitive) the base key or any logged variant; siteQ matches
// any retained sample host. Results are sorted by last activity
// descending and truncated to limit.
func (ix *Index) Snapshot(userQ, siteQ string, limit int) []UserSummary {
	uq := strings.ToLower(strings.TrimSpace(userQ))
	sq := strings.ToLower(strings.TrimSpace(siteQ))

	ix.mu.RLock()
	items := make([]UserSummary, 0, len(ix.users))
	for base, r := range ix.users {
		names := make([]string, 0, len(r.variants))
		for v := range r.variants {
			names = append(names, v)
		}
		sort.Strings(names)

		hosts := make([]string, 0, len(r.hosts))
		for h := range r.hosts {
			hosts = append(hosts, h)
		}

		sample := r.sampleHost
		for _, h := range hosts {
			if ix.flagged(h) {
				sample = h
				break
			}
		}

		items = append(items, UserSummary{
			Base:         base,
			DisplayNames: names,
			Count:        r.count,
			LastTS:       r.lastTS,
			SampleHost:   sample,
			Hosts:        hosts,
		})
	}
	ix.mu.RUnlock()

	if uq != "" {
		items = filter(items, func(it UserSummary) bool {
			if strings.Contains(strings.ToLower(it.Base), uq) {
				return true
			}
			for _, n := range it.DisplayNames {
				if strings.Contains(strings.ToLower(n), uq) {
					return true
				}
			}
			return false
		})
	}
	if sq != "" {
		items = filter(items, func(it UserSummary) bool {
			for _, h := range it.Hosts {
				if strings.Contains(strings.ToLower(h), sq) {
					return true
				}
			}
			return false
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].LastTS > items[j].LastTS
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func filter(items []UserSummary, keep func(UserSummary) bool) []UserSummary {
	out := items[:0]
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// SubstringFlag builds a flagged-host predicate from a case-insensitive
// substring. An empty substring flags nothing.
func SubstringFlag(sub string) func(string) bool {
	sub = strings.ToLower(strings.TrimSpace(sub))
	if sub == "" {
		return func(string) bool { return false }
	}
	return func(host string) bool {
		return strings.Contains(strings.ToLower(host), sub)
	}
}
