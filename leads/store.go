package leads

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/trilokanam-ux/trilokana-telegram-bot/core/logger"
)

// Store owns active sessions keyed by Telegram user ID. Lock serializes
// event handling per user; implementations must guarantee that two events
// for the same user never mutate a session concurrently.
type Store interface {
	Get(userID int64) (Session, bool)
	Put(sess Session)
	Delete(userID int64)
	Active() int
	Lock(userID int64) (unlock func())
}

// MemoryStore is the single-process Store used by the bot. Sessions older
// than the configured TTL are treated as absent and swept periodically.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex

	ttl  time.Duration
	stop chan struct{}
	once sync.Once
}

// NewMemoryStore builds a MemoryStore. ttl <= 0 disables idle expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[int64]Session),
		locks:    make(map[int64]*sync.Mutex),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweep()
	}
	return s
}

// Get returns a copy of the user's session if present and not expired.
func (s *MemoryStore) Get(userID int64) (Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if s.expired(sess, time.Now()) {
		s.Delete(userID)
		return Session{}, false
	}
	return sess, true
}

// Put stores the session, stamping UpdatedAt.
func (s *MemoryStore) Put(sess Session) {
	sess.UpdatedAt = time.Now()
	s.mu.Lock()
	s.sessions[sess.UserID] = sess
	s.mu.Unlock()
}

// Delete removes the user's session if any.
func (s *MemoryStore) Delete(userID int64) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// Active returns the number of stored sessions, expired ones included
// until the next sweep.
func (s *MemoryStore) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Lock acquires the per-user mutex and returns its release function.
// The mutex outlives the session so that duplicate or late events for the
// same user serialize against an in-flight submission.
func (s *MemoryStore) Lock(userID int64) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

// Close stops the background sweeper.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) expired(sess Session, now time.Time) bool {
	return s.ttl > 0 && !sess.UpdatedAt.IsZero() && now.Sub(sess.UpdatedAt) > s.ttl
}

func (s *MemoryStore) sweep() {
	interval := s.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweepOnce(now)
		}
	}
}

func (s *MemoryStore) sweepOnce(now time.Time) {
	var dropped int
	s.mu.Lock()
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			dropped++
		}
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	if dropped > 0 {
		logger.Debug(context.Background(), "dialog", "session.expired",
			slog.String("status", "ok"),
			slog.Int("count", dropped),
			slog.Int("active", remaining),
		)
	}
}
