// Package session provides the in-memory store that holds generated
// mosaics between the upload call and later export downloads.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/mosaicme/mosaicme/mosaic"
)

// ErrNotFound is returned when a session does not exist or has expired
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long a stored mosaic stays retrievable
const DefaultTTL = 24 * time.Hour

type entry struct {
	result    *mosaic.Result
	createdAt time.Time
}

// Store is a TTL-bounded in-memory session store. All methods are safe
// for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a store with the given TTL; a zero or negative ttl
// uses DefaultTTL
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores a mosaic result under its session id
func (s *Store) Put(result *mosaic.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[result.SessionID] = entry{result: result, createdAt: s.now()}
}

// Get returns the mosaic for a session id. Expired sessions are
// evicted on access and reported as ErrNotFound.
func (s *Store) Get(sessionID string) (*mosaic.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().Sub(e.createdAt) > s.ttl {
		delete(s.entries, sessionID)
		return nil, ErrNotFound
	}
	return e.result, nil
}

// Len returns the number of stored sessions, including any not yet
// swept expired entries
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup removes every expired session and returns how many were
// evicted. It is intended to run on a schedule.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.createdAt) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}
