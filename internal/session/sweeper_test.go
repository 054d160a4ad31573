package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// countingStore records sweep calls so the loop can be observed without a
// real session map.
type countingStore struct {
	Store
	mu     sync.Mutex
	sweeps int
}

func (c *countingStore) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweeps++
	return 0
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweeps
}

func TestSweeperStartStop(t *testing.T) {
	cs := &countingStore{}
	sw := NewSweeper(cs, 5*time.Millisecond, zap.NewNop())

	sw.Start()
	sw.Start() // second Start is a no-op

	time.Sleep(30 * time.Millisecond)
	sw.Stop()
	sw.Stop() // second Stop is a no-op

	swept := cs.count()
	assert.Greater(t, swept, 0, "sweeper should have run at least once")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, swept, cs.count(), "no sweeps may run after Stop")
}

func TestSweeperRestart(t *testing.T) {
	cs := &countingStore{}
	sw := NewSweeper(cs, 5*time.Millisecond, zap.NewNop())

	sw.Start()
	time.Sleep(15 * time.Millisecond)
	sw.Stop()

	before := cs.count()
	sw.Start()
	time.Sleep(15 * time.Millisecond)
	sw.Stop()

	assert.Greater(t, cs.count(), before, "restarted sweeper should resume sweeping")
}
