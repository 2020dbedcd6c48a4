// Package relay stores and serves the event history: SQLite-backed
// storage, subscription fan-out, and the filter language peers query
// with.
package relay

import "hexempire/internal/chain"

// Filter selects events. Fields combine with AND; values inside one
// field combine with OR. The zero filter matches everything.
type Filter struct {
	IDs     []string            `json:"ids,omitempty"`
	Authors []string            `json:"authors,omitempty"`
	Kinds   []int               `json:"kinds,omitempty"`
	GameID  string              `json:"gameId,omitempty"`
	Since   int64               `json:"since,omitempty"` // inclusive unix seconds
	Until   int64               `json:"until,omitempty"` // inclusive unix seconds
	Tags    map[string][]string `json:"tags,omitempty"`
	Limit   int                 `json:"limit,omitempty"`
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(ev *chain.GameEvent) bool {
	if len(f.IDs) > 0 && !containsString(f.IDs, ev.ID) {
		return false
	}
	if len(f.Authors) > 0 && !containsString(f.Authors, ev.PlayerID) {
		return false
	}
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, ev.Kind()) {
		return false
	}
	if f.GameID != "" && ev.GameID != f.GameID {
		return false
	}
	if f.Since > 0 && ev.Timestamp < f.Since {
		return false
	}
	if f.Until > 0 && ev.Timestamp > f.Until {
		return false
	}
	if len(f.Tags) > 0 {
		tags := ev.Tags()
		for name, accepted := range f.Tags {
			if !tagMatches(tags, name, accepted) {
				return false
			}
		}
	}
	return true
}

// tagMatches reports whether any tag row named name carries one of the
// accepted values.
func tagMatches(tags [][]string, name string, accepted []string) bool {
	for _, row := range tags {
		if len(row) < 2 || row[0] != name {
			continue
		}
		if len(accepted) == 0 || containsString(accepted, row[1]) {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}
