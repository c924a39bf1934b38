// Package store keeps the per-group observation series the pipeline has
// ingested so far. It is the working set the HTTP API and the recompute
// step read from; durability comes from replaying the source topic, not
// from this process.
package store

import (
	"sort"
	"sync"

	"github.com/couchcryptid/hydro-index-service/internal/domain"
)

// Store is an in-memory, thread-safe collection of observation series keyed
// by group. Each series is kept sorted by date at all times.
type Store struct {
	mu     sync.RWMutex
	groups map[string][]domain.Observation
}

// New creates an empty store.
func New() *Store {
	return &Store{groups: make(map[string][]domain.Observation)}
}

// Upsert inserts an observation into its group's series, keeping date
// order. A second observation for the same group and date replaces the
// first, so replaying the source topic converges to the same state. The
// return value reports whether the stored data changed.
func (s *Store) Upsert(group string, obs domain.Observation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.groups[group]
	i := sort.Search(len(series), func(i int) bool {
		return !series[i].Date.Before(obs.Date.Time)
	})

	if i < len(series) && series[i].Date.Equal(obs.Date.Time) {
		if series[i].Precip == obs.Precip {
			return false
		}
		series[i] = obs
		return true
	}

	series = append(series, domain.Observation{})
	copy(series[i+1:], series[i:])
	series[i] = obs
	s.groups[group] = series
	return true
}

// Snapshot returns a copy of one group's series. The second return is false
// when the group is unknown.
func (s *Store) Snapshot(group string) (domain.Series, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.groups[group]
	if !ok {
		return nil, false
	}
	out := make(domain.Series, len(series))
	copy(out, series)
	return out, true
}

// Groups lists the known group keys in sorted order.
func (s *Store) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.groups))
	for k := range s.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GroupInfo describes one group's stored span.
type GroupInfo struct {
	Group string      `json:"group"`
	Days  int         `json:"days"`
	From  domain.Date `json:"from"`
	To    domain.Date `json:"to"`
}

// Info lists every group with its observation count and date span, sorted
// by group key.
func (s *Store) Info() []GroupInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]GroupInfo, 0, len(s.groups))
	for k, series := range s.groups {
		infos = append(infos, GroupInfo{
			Group: k,
			Days:  len(series),
			From:  series[0].Date,
			To:    series[len(series)-1].Date,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Group < infos[j].Group })
	return infos
}

// Size is the total observation count across all groups.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, series := range s.groups {
		n += len(series)
	}
	return n
}
