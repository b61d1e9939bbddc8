// ABOUTME: In-memory session store with sliding expiry and CSRF token binding
// ABOUTME: Owns session lifecycle: lazy creation, renewal, rotation, identity binding

package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// TTL is the sliding session lifetime, measured from last access.
// Deliberately distinct from the rate limiter's 15-minute fixed window.
const TTL = 30 * time.Minute

// ErrNotFound is returned when a session reference does not resolve.
var ErrNotFound = errors.New("session not found")

// Session correlates a transport-level cookie with expiry, a CSRF token,
// and an optionally bound principal identifier (empty = anonymous).
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
	CSRF      string
	Identity  string
}

// Authenticated reports whether a principal is bound to the session.
func (s Session) Authenticated() bool {
	return s.Identity != ""
}

// Store holds active sessions keyed by their opaque identifier.
// All mutation is per-key atomic under a single mutex; callers receive
// value copies, never references into the map.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	logger   *slog.Logger
	cancel   context.CancelFunc
	now      func() time.Time
}

// NewStore creates a session store and starts its expiry sweep goroutine.
// Lazy expiry in Resolve is authoritative; the sweep only reclaims memory
// for sessions that are never touched again.
func NewStore() *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		sessions: make(map[string]*Session),
		logger:   slog.Default().With("component", "session"),
		cancel:   cancel,
		now:      time.Now,
	}
	go s.sweepLoop(ctx)
	return s
}

// Close stops the expiry sweep goroutine.
func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Resolve returns the session for ref, sliding its expiry forward.
// If ref is empty, unknown, or expired, the stale record is deleted and a
// fresh anonymous session is created; isNew reports that so the transport
// layer knows to set a new session cookie. The check-expired-and-replace
// is a single critical section.
func (s *Store) Resolve(ref string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if ref != "" {
		if sess, ok := s.sessions[ref]; ok {
			if now.Before(sess.ExpiresAt) {
				sess.ExpiresAt = now.Add(TTL)
				return *sess, false
			}
			delete(s.sessions, ref)
		}
	}

	sess := &Session{
		ID:        newToken(),
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
		CSRF:      newToken(),
	}
	s.sessions[sess.ID] = sess
	return *sess, true
}

// RotateCSRF replaces the session's CSRF token and returns the new value.
// Called after every privilege-changing transition so a captured token
// cannot be replayed across an identity-state change.
func (s *Store) RotateCSRF(ref string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ref]
	if !ok {
		return "", ErrNotFound
	}
	sess.CSRF = newToken()
	return sess.CSRF, nil
}

// BindIdentity sets the bound principal on an existing session.
func (s *Store) BindIdentity(ref, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ref]
	if !ok {
		return ErrNotFound
	}
	sess.Identity = identifier
	return nil
}

// ClearIdentity removes the bound principal, leaving the session anonymous.
func (s *Store) ClearIdentity(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ref]
	if !ok {
		return ErrNotFound
	}
	sess.Identity = ""
	return nil
}

// BindAndRotate binds an identity and rotates the CSRF token in one
// critical section, so no half-mutated session is ever observable.
func (s *Store) BindAndRotate(ref, identifier string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ref]
	if !ok {
		return "", ErrNotFound
	}
	sess.Identity = identifier
	sess.CSRF = newToken()
	return sess.CSRF, nil
}

// ClearAndRotate clears the identity and rotates the CSRF token atomically.
// Clearing an already-anonymous session is a no-op apart from the rotation.
func (s *Store) ClearAndRotate(ref string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ref]
	if !ok {
		return "", ErrNotFound
	}
	sess.Identity = ""
	sess.CSRF = newToken()
	return sess.CSRF, nil
}

// Get returns a copy of the session without sliding its expiry.
func (s *Store) Get(ref string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ref]
	if !ok {
		return Session{}, ErrNotFound
	}
	return *sess, nil
}

// Len returns the number of live session records, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for id, sess := range s.sessions {
				if !now.Before(sess.ExpiresAt) {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// newToken returns a 256-bit hex token from crypto/rand. Session and CSRF
// identifiers must be cryptographically unguessable.
func newToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms; a broken entropy
		// source is not something to limp past.
		panic("session: reading random bytes: " + err.Error())
	}
	return hex.EncodeToString(b)
}
