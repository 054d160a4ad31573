package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper runs the inactivity sweep on a fixed interval, fully decoupled
// from request traffic. It is owned by the process lifecycle: callers start
// it once at boot and stop it during shutdown. Tests drive Store.Sweep
// directly instead of waiting on real time.
type Sweeper struct {
	store    Store
	interval time.Duration
	logger   *zap.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewSweeper creates a sweeper for the given store.
func NewSweeper(store Store, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the background sweep loop. Calling Start on a running
// sweeper is a no-op.
func (sw *Sweeper) Start() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.stop != nil {
		return
	}
	sw.stop = make(chan struct{})
	sw.done = make(chan struct{})

	go sw.run(sw.stop, sw.done)

	if sw.logger != nil {
		sw.logger.Info("Session cleanup scheduled",
			zap.Duration("interval", sw.interval))
	}
}

// Stop halts the loop and waits for the in-flight pass, if any, to finish.
func (sw *Sweeper) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.stop == nil {
		return
	}
	close(sw.stop)
	<-sw.done
	sw.stop = nil
	sw.done = nil
}

func (sw *Sweeper) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			sw.store.Sweep(now)
		}
	}
}
