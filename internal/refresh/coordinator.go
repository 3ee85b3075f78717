// Package refresh triggers a re-fetch callback whenever network
// connectivity is regained.
package refresh

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jones/weather-sync/internal/connectivity"
)

// Coordinator subscribes to reachability transitions and invokes the held
// callback on every reachable signal. Its subscription outlives any single
// screen session; it is started and stopped explicitly.
type Coordinator struct {
	monitor connectivity.Monitor
	log     *zap.Logger

	mu     sync.Mutex
	cancel func()
}

func NewCoordinator(monitor connectivity.Monitor, log *zap.Logger) *Coordinator {
	return &Coordinator{monitor: monitor, log: log}
}

// StartMonitoring begins observing connectivity and invokes onReconnected
// for every reachable emission. The callback runs on its own goroutine so a
// slow callback cannot stall subsequent transitions. Calling
// StartMonitoring while already monitoring replaces the previous callback
// and subscription.
func (c *Coordinator) StartMonitoring(onReconnected func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	ch, cancel := c.monitor.Watch()
	c.cancel = cancel

	go func() {
		for reachable := range ch {
			if !reachable {
				continue
			}
			c.log.Debug("connectivity regained, triggering refresh")
			go onReconnected()
		}
	}()
}

// StopMonitoring cancels the subscription and drops the callback.
// Idempotent: stopping twice, or without a prior start, is a no-op.
func (c *Coordinator) StopMonitoring() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Coordinator) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// IsReachable is a passthrough query, usable without an active
// monitoring session.
func (c *Coordinator) IsReachable() bool {
	return c.monitor.IsReachable()
}
