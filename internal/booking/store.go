package booking

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dharmasatrya/farearbitrage/internal/models"
)

type entry struct {
	mu      sync.Mutex
	session *models.BookingSession
}

// Store owns every booking session. Each session has its own lock so that
// operations on one id are serialized without blocking the others. Expired
// sessions are invisible to lookups and removed by Sweep.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		sessions: make(map[string]*entry),
		now:      now,
	}
}

func (s *Store) Put(session *models.BookingSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = &entry{session: session.Clone()}
}

// Get returns a copy of a live session.
func (s *Store) Get(id string) (*models.BookingSession, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, sessionNotFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.IsExpired(s.now()) {
		return nil, sessionNotFound(id)
	}
	return e.session.Clone(), nil
}

// Peek returns a copy of a session even if it has expired but not yet been
// swept.
func (s *Store) Peek(id string) (*models.BookingSession, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, sessionNotFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// Update runs fn on a working copy of a live session under the session's
// lock. The copy replaces the stored session only if fn succeeds.
func (s *Store) Update(id string, fn func(*models.BookingSession) error) (*models.BookingSession, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, sessionNotFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.IsExpired(s.now()) {
		return nil, sessionNotFound(id)
	}
	working := e.session.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	e.session = working
	return working.Clone(), nil
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Sweep removes expired and cancelled sessions and returns how many went.
func (s *Store) Sweep() int {
	now := s.now()

	var doomed []string
	for id, e := range s.snapshot() {
		e.mu.Lock()
		if e.session.IsExpired(now) || e.session.Status == models.BookingStatusCancelled {
			doomed = append(doomed, id)
		}
		e.mu.Unlock()
	}
	removed := 0
	for _, id := range doomed {
		if s.Delete(id) {
			removed++
		}
	}
	return removed
}

// Counts tallies sessions by effective status.
func (s *Store) Counts() map[models.BookingStatus]int {
	now := s.now()
	counts := make(map[models.BookingStatus]int, len(models.BookingStatuses))
	for _, st := range models.BookingStatuses {
		counts[st] = 0
	}

	for _, e := range s.snapshot() {
		e.mu.Lock()
		counts[e.session.EffectiveStatus(now)]++
		e.mu.Unlock()
	}
	return counts
}

// snapshot copies the index so per-session locks are never taken while the
// map lock is held.
func (s *Store) snapshot() map[string]*entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*entry, len(s.sessions))
	for id, e := range s.sessions {
		out[id] = e
	}
	return out
}

// StartSweeper runs Sweep on every tick until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := s.Sweep(); n > 0 {
					log.Printf("Booking sweeper removed %d sessions", n)
				}
			}
		}
	}()
}

func (s *Store) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}
