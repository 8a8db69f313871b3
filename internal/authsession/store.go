package authsession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a browser session lives after creation.
const DefaultTTL = 900 * time.Second

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("authsession: session not found")

// State is the authorization progress of a session.
type State int

const (
	Fresh State = iota
	Authorizing
	Completed
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Authorizing:
		return "authorizing"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Session is one browser session. CSRFToken never changes once minted.
type Session struct {
	ID        string
	CSRFToken string
	State     State
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store is an in-memory, TTL-scoped session store. Sessions are
// independent; callers get copies and mutate through Upsert/Update.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *slog.Logger
	nowFunc  func() time.Time
}

// NewStore creates an empty store whose sessions expire after ttl.
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// TTL is the session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// get returns a copy of the live session with the given ID.
func (s *Store) get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(id)
	if !ok {
		return Session{}, ErrSessionNotFound
	}

	return *sess, nil
}

// Upsert applies fn to the live session with the given ID, creating a
// new session (with a fresh server-chosen ID) when there is none. An
// unknown client-supplied ID is never adopted.
func (s *Store) Upsert(id string, fn func(*Session) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(id)
	if !ok {
		now := s.nowFunc()
		sess = &Session{
			ID:        uuid.NewString(),
			State:     Fresh,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}
		s.sessions[sess.ID] = sess

		s.logger.Debug("session created", slog.String("session", shortID(sess.ID)))
	}

	if err := fn(sess); err != nil {
		return *sess, err
	}

	return *sess, nil
}

// Update applies fn to the live session with the given ID. fn's error is
// returned after the mutation it made has been kept.
func (s *Store) Update(id string, fn func(*Session) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(id)
	if !ok {
		return Session{}, ErrSessionNotFound
	}

	err := fn(sess)

	return *sess, err
}

// Delete invalidates a session before it expires. Deleting an unknown ID
// is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

// count returns the number of stored sessions, including expired ones not
// yet swept.
func (s *Store) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	removed := 0

	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("expired sessions swept", slog.Int("removed", n))
			}
		}
	}
}

// lookup returns the live session for id, dropping it if expired.
// Caller holds s.mu.
func (s *Store) lookup(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	if !s.nowFunc().Before(sess.ExpiresAt) {
		delete(s.sessions, id)
		return nil, false
	}

	return sess, true
}

// shortID truncates a session ID for logs.
func shortID(id string) string {
	const n = 8
	if len(id) <= n {
		return id
	}

	return id[:n]
}
