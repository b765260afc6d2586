package leads

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCRUD(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	_, ok := s.Get(7)
	assert.False(t, ok)

	s.Put(Session{UserID: 7, Option: "SEO", Step: StepName})
	sess, ok := s.Get(7)
	require.True(t, ok)
	assert.Equal(t, "SEO", sess.Option)
	assert.Equal(t, StepName, sess.Step)
	assert.False(t, sess.UpdatedAt.IsZero())
	assert.Equal(t, 1, s.Active())

	sess.Step = StepEmail
	s.Put(sess)
	sess, ok = s.Get(7)
	require.True(t, ok)
	assert.Equal(t, StepEmail, sess.Step)
	assert.Equal(t, 1, s.Active())

	s.Delete(7)
	_, ok = s.Get(7)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Active())
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()

	s.Put(Session{UserID: 1, Step: StepName})

	// Fresh session survives.
	_, ok := s.Get(1)
	require.True(t, ok)

	// Backdate past the TTL; Get treats it as absent.
	s.mu.Lock()
	sess := s.sessions[1]
	sess.UpdatedAt = time.Now().Add(-2 * time.Minute)
	s.sessions[1] = sess
	s.mu.Unlock()

	_, ok = s.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Active())
}

func TestMemoryStoreSweep(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()

	s.Put(Session{UserID: 1, Step: StepName})
	s.Put(Session{UserID: 2, Step: StepEmail})

	s.mu.Lock()
	sess := s.sessions[1]
	sess.UpdatedAt = time.Now().Add(-2 * time.Minute)
	s.sessions[1] = sess
	s.mu.Unlock()

	s.sweepOnce(time.Now())

	assert.Equal(t, 1, s.Active())
	_, ok := s.Get(2)
	assert.True(t, ok)
}

func TestMemoryStoreLockSerializes(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	const iterations = 100
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				unlock := s.Lock(42)
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4*iterations, counter)
}

func TestMemoryStoreLockOutlivesSession(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	s.Put(Session{UserID: 9, Step: StepConfirm})

	unlock := s.Lock(9)
	s.Delete(9)
	unlock()

	// A late event still finds a working lock for the user.
	unlock = s.Lock(9)
	unlock()
	_, ok := s.Get(9)
	assert.False(t, ok)
}
