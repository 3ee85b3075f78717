package refresh_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jones/weather-sync/internal/connectivity"
	"github.com/jones/weather-sync/internal/refresh"
)

// fakeMonitor hands out a fresh channel per Watch call and counts
// cancellations.
type fakeMonitor struct {
	mu        sync.Mutex
	reachable bool
	ch        chan bool
	cancelled int
}

func (f *fakeMonitor) IsReachable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reachable
}

func (f *fakeMonitor) Watch() (<-chan bool, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan bool, 16)
	f.ch = ch
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.cancelled++
			close(ch)
		})
	}
	return ch, cancel
}

func (f *fakeMonitor) emit(v bool) {
	f.mu.Lock()
	ch := f.ch
	f.reachable = v
	f.mu.Unlock()
	ch <- v
}

func (f *fakeMonitor) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

var _ connectivity.Monitor = (*fakeMonitor)(nil)

func TestCallbackFiresOnReachableTransitionOnly(t *testing.T) {
	monitor := &fakeMonitor{}
	c := refresh.NewCoordinator(monitor, zap.NewNop())

	var calls atomic.Int32
	c.StartMonitoring(func() { calls.Add(1) })
	defer c.StopMonitoring()

	monitor.emit(false)
	monitor.emit(true)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// The false emission must not have produced a second invocation.
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, calls.Load())
}

func TestCallbackFiresPerReachableEmission(t *testing.T) {
	monitor := &fakeMonitor{}
	c := refresh.NewCoordinator(monitor, zap.NewNop())

	var calls atomic.Int32
	c.StartMonitoring(func() { calls.Add(1) })
	defer c.StopMonitoring()

	monitor.emit(true)
	monitor.emit(false)
	monitor.emit(true)

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestStopMonitoringIsIdempotent(t *testing.T) {
	monitor := &fakeMonitor{}
	c := refresh.NewCoordinator(monitor, zap.NewNop())

	// Stopping before any start is a no-op.
	c.StopMonitoring()

	c.StartMonitoring(func() {})
	c.StopMonitoring()
	c.StopMonitoring()

	require.Equal(t, 1, monitor.cancelCount())
}

func TestRestartReplacesSubscriptionAndCallback(t *testing.T) {
	monitor := &fakeMonitor{}
	c := refresh.NewCoordinator(monitor, zap.NewNop())

	var first, second atomic.Int32
	c.StartMonitoring(func() { first.Add(1) })
	c.StartMonitoring(func() { second.Add(1) })
	defer c.StopMonitoring()

	require.Equal(t, 1, monitor.cancelCount())

	monitor.emit(true)

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.EqualValues(t, 0, first.Load())
}

func TestIsReachablePassthrough(t *testing.T) {
	monitor := &fakeMonitor{reachable: true}
	c := refresh.NewCoordinator(monitor, zap.NewNop())
	require.True(t, c.IsReachable())
}
