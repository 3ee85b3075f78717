package connectivity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMonitor() *ProbeMonitor {
	probe := func(context.Context) bool { return false }
	return NewProbeMonitor(probe, time.Minute, time.Second, zap.NewNop())
}

func recvBool(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reachability event")
		return false
	}
}

func expectNoEmission(t *testing.T, ch <-chan bool) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected emission: %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchEmitsCurrentValueFirst(t *testing.T) {
	m := newTestMonitor()
	m.setReachable(true)

	ch, cancel := m.Watch()
	defer cancel()

	require.True(t, recvBool(t, ch))
}

func TestWatchSuppressesDuplicateValues(t *testing.T) {
	m := newTestMonitor()

	ch, cancel := m.Watch()
	defer cancel()

	require.False(t, recvBool(t, ch))

	// Repeating the current value must not produce an emission.
	m.setReachable(false)
	expectNoEmission(t, ch)

	m.setReachable(true)
	require.True(t, recvBool(t, ch))

	m.setReachable(true)
	expectNoEmission(t, ch)

	m.setReachable(false)
	require.False(t, recvBool(t, ch))
}

func TestLaggingWatcherNeverSeesEqualNeighbours(t *testing.T) {
	m := newTestMonitor()

	ch, cancel := m.Watch()
	defer cancel()

	// Flip far past the buffer size without consuming.
	for i := 0; i < 3*transitionBuffer; i++ {
		m.setReachable(i%2 == 0)
	}

	var got []bool
	for drained := false; !drained; {
		select {
		case v := <-ch:
			got = append(got, v)
		default:
			drained = true
		}
	}
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		require.NotEqual(t, got[i-1], got[i], "saw equal consecutive values at %d", i)
	}
	// The newest transition is always retained.
	require.Equal(t, m.IsReachable(), got[len(got)-1])
}

func TestIsReachableTracksProbeResult(t *testing.T) {
	m := newTestMonitor()
	require.False(t, m.IsReachable())

	m.setReachable(true)
	require.True(t, m.IsReachable())

	m.setReachable(false)
	require.False(t, m.IsReachable())
}

func TestCancelledWatcherStopsReceiving(t *testing.T) {
	m := newTestMonitor()

	ch, cancel := m.Watch()
	require.False(t, recvBool(t, ch))
	cancel()
	cancel() // idempotent

	_, open := <-ch
	require.False(t, open)

	m.setReachable(true) // must not panic with the watcher gone
}
