// Package diagnosis keeps the most recent classification label per session so
// that chat requests can refer to it.
package diagnosis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Shared is the session id of the process-wide slot used by clients that do
// not send a session id.
const Shared = ""

type entry struct {
	label   string
	updated time.Time
}

type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewStore returns an empty store. Session slots idle for longer than ttl are
// dropped by Sweep; a zero ttl keeps them forever. The shared slot never expires.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *Store) NewSessionID() string {
	return uuid.NewString()
}

// Set overwrites the label for sessionID. The last writer wins.
func (s *Store) Set(sessionID, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = entry{label: label, updated: s.now()}
}

func (s *Store) Latest(sessionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[sessionID]
	if !ok || s.expired(sessionID, e) {
		return "", false
	}
	return e.label, true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep removes expired session slots and reports how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.entries {
		if s.expired(id, e) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("Expired diagnosis sessions", slog.Int("removed", n))
			}
		}
	}
}

func (s *Store) expired(id string, e entry) bool {
	return id != Shared && s.ttl > 0 && s.now().Sub(e.updated) > s.ttl
}
