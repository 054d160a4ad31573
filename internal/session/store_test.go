package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore() *InMemoryStore {
	return NewInMemoryStore(DefaultMaxHistory, DefaultInactivityTimeout, zap.NewNop())
}

func TestCreateSession(t *testing.T) {
	store := newTestStore()

	id := store.Create()
	require.NotEmpty(t, id)

	sess, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, sess.ID)
	assert.Empty(t, sess.History)
	assert.Empty(t, sess.Theme)
	assert.Empty(t, sess.CurrentCity)
	assert.False(t, sess.LastAccessed.IsZero())

	// Fresh ids never collide
	other := store.Create()
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, store.Len())
}

func TestGetTouchesSession(t *testing.T) {
	store := newTestStore()
	id := store.Create()

	first, ok := store.Get(id)
	require.True(t, ok)
	second, ok := store.Get(id)
	require.True(t, ok)

	assert.True(t, second.LastAccessed.After(first.LastAccessed),
		"every Get must strictly advance LastAccessed")
}

func TestGetUnknownSession(t *testing.T) {
	store := newTestStore()
	_, ok := store.Get("no-such-session")
	assert.False(t, ok)
}

func TestAppendExchangeTruncation(t *testing.T) {
	store := newTestStore()
	id := store.Create()

	for i := 0; i < 10; i++ {
		store.AppendExchange(id, fmt.Sprintf("user-%d", i), fmt.Sprintf("model-%d", i))

		sess, ok := store.Get(id)
		require.True(t, ok)
		assert.LessOrEqual(t, len(sess.History), DefaultMaxHistory)
	}

	sess, ok := store.Get(id)
	require.True(t, ok)
	require.Len(t, sess.History, DefaultMaxHistory)

	// Retained entries are the most recent ones, in original relative order.
	assert.Equal(t, Turn{Role: RoleUser, Content: "user-6"}, sess.History[0])
	assert.Equal(t, Turn{Role: RoleModel, Content: "model-6"}, sess.History[1])
	assert.Equal(t, Turn{Role: RoleModel, Content: "model-9"}, sess.History[7])
}

func TestAppendExchangePerEntryEviction(t *testing.T) {
	store := NewInMemoryStore(3, DefaultInactivityTimeout, zap.NewNop())
	id := store.Create()

	store.AppendExchange(id, "u1", "m1")
	store.AppendExchange(id, "u2", "m2")

	sess, ok := store.Get(id)
	require.True(t, ok)
	require.Len(t, sess.History, 3)

	// Eviction is per entry, not per exchange: with an odd bound the oldest
	// surviving entry is a model turn.
	assert.Equal(t, RoleModel, sess.History[0].Role)
	assert.Equal(t, "m1", sess.History[0].Content)
}

func TestMutationsOnMissingSessionAreNoOps(t *testing.T) {
	store := newTestStore()

	// None of these may panic or create a session as a side effect.
	store.AppendExchange("ghost", "hello", "{}")
	store.SetTheme("ghost", "photography")
	store.SetCurrentCity("ghost", "Tokyo")
	assert.Empty(t, store.CurrentCity("ghost"))
	assert.Equal(t, 0, store.Len())
}

func TestThemeAndCity(t *testing.T) {
	store := newTestStore()
	id := store.Create()

	store.SetTheme(id, "photography")
	store.SetCurrentCity(id, "Osaka")

	sess, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, "photography", sess.Theme)
	assert.Equal(t, "Osaka", sess.CurrentCity)
	assert.Equal(t, "Osaka", store.CurrentCity(id))

	// Overwrites replace the previous value unconditionally.
	store.SetCurrentCity(id, "Kyoto")
	assert.Equal(t, "Kyoto", store.CurrentCity(id))
}

func TestGetReturnsCopy(t *testing.T) {
	store := newTestStore()
	id := store.Create()
	store.AppendExchange(id, "hello", "{}")

	sess, ok := store.Get(id)
	require.True(t, ok)
	sess.History[0].Content = "mutated"
	sess.Theme = "mutated"

	fresh, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, "hello", fresh.History[0].Content)
	assert.Empty(t, fresh.Theme)
}

func TestSweep(t *testing.T) {
	store := NewInMemoryStore(DefaultMaxHistory, 30*time.Minute, zap.NewNop())

	stale := store.Create()
	fresh := store.Create()

	// Make one session provably stale without waiting on real time.
	store.mu.Lock()
	store.sessions[stale].LastAccessed = time.Now().Add(-31 * time.Minute)
	freshBefore := store.sessions[fresh].LastAccessed
	store.mu.Unlock()

	removed := store.Sweep(time.Now())
	assert.Equal(t, 1, removed)

	_, ok := store.Get(stale)
	assert.False(t, ok, "stale session must be removed")

	// Survivors keep their timestamps: inspect without touching.
	store.mu.Lock()
	assert.Equal(t, freshBefore, store.sessions[fresh].LastAccessed)
	store.mu.Unlock()
}

func TestSweepBoundary(t *testing.T) {
	store := NewInMemoryStore(DefaultMaxHistory, 30*time.Minute, zap.NewNop())
	id := store.Create()

	now := time.Now()
	store.mu.Lock()
	store.sessions[id].LastAccessed = now.Add(-30 * time.Minute)
	store.mu.Unlock()

	// Exactly at the timeout is not yet stale; the contract is strictly greater.
	assert.Equal(t, 0, store.Sweep(now))
	assert.Equal(t, 1, store.Len())
}

func TestConcurrentAccess(t *testing.T) {
	store := newTestStore()

	ids := make([]string, 8)
	for i := range ids {
		ids[i] = store.Create()
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := ids[n%len(ids)]
			store.AppendExchange(id, "ping", "{}")
			store.SetCurrentCity(id, "Tokyo")
			store.Get(id)
			store.Sweep(time.Now())
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		sess, ok := store.Get(id)
		require.True(t, ok)
		assert.LessOrEqual(t, len(sess.History), DefaultMaxHistory)
	}
}
