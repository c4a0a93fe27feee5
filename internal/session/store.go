// Package session keeps one view.Machine per page load in memory.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/view"
)

// entry wraps a machine with expiry and insertion order tracking.
type entry struct {
	machine   *view.Machine
	expiry    time.Time
	insertIdx int64
}

// Store maps session ids to view machines. Entries expire after ttl without
// access; at capacity the oldest entry is evicted.
// Thread-safe with sync.RWMutex.
type Store struct {
	mu         sync.RWMutex
	items      map[string]entry
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
	opts       view.Options
	logger     *common.Logger
}

// NewStore creates a Store whose machines are built with opts.
func NewStore(ttl time.Duration, maxEntries int, opts view.Options, logger *common.Logger) *Store {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Store{
		items:      make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		opts:       opts,
		logger:     logger,
	}
}

// Create starts a new session and returns its id and machine.
func (s *Store) Create() (string, *view.Machine) {
	id := uuid.New().String()
	m := view.New(s.opts, s.logger.WithCorrelationId(id))

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) >= s.maxEntries {
		s.evictOldest()
	}
	s.items[id] = entry{
		machine:   m,
		expiry:    time.Now().Add(s.ttl),
		insertIdx: s.nextIdx,
	}
	s.nextIdx++

	return id, m
}

// Get returns the machine for id and extends its expiry.
func (s *Store) Get(id string) (*view.Machine, bool) {
	s.mu.RLock()
	e, ok := s.items[id]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok = s.items[id]
	if !ok {
		return nil, false
	}
	if now.After(e.expiry) {
		// Expired: remove lazily
		delete(s.items, id)
		return nil, false
	}
	e.expiry = now.Add(s.ttl)
	s.items[id] = e
	return e.machine, true
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Len returns the number of stored sessions, expired ones included until swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.items {
		if now.After(e.expiry) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Debug().Int("removed", n).Int("remaining", s.Len()).Msg("expired sessions swept")
				}
			}
		}
	}()
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (s *Store) evictOldest() {
	var oldestID string
	var oldestIdx int64 = -1

	for id, e := range s.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestID = id
		}
	}

	if oldestID != "" {
		delete(s.items, oldestID)
	}
}
