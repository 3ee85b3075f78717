package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jones/weather-sync/internal/connectivity"
	"github.com/jones/weather-sync/internal/refresh"
	"github.com/jones/weather-sync/internal/store"
	"github.com/jones/weather-sync/internal/weather"
)

// signalMonitor is a stubMonitor whose watchers can be fed transitions.
type signalMonitor struct {
	stubMonitor
	watchMu  sync.Mutex
	watchers []chan bool
}

func (m *signalMonitor) Watch() (<-chan bool, func()) {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	ch := make(chan bool, 16)
	ch <- m.IsReachable()
	m.watchers = append(m.watchers, ch)
	return ch, func() {}
}

func (m *signalMonitor) emit(v bool) {
	m.set(v)
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	for _, ch := range m.watchers {
		ch <- v
	}
}

var _ connectivity.Monitor = (*signalMonitor)(nil)

func nextState(t *testing.T, ch <-chan weather.State) weather.State {
	t.Helper()
	select {
	case st := <-ch:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state")
		return nil
	}
}

// waitFor reads states until pred matches, failing on timeout.
func waitFor(t *testing.T, ch <-chan weather.State, pred func(weather.State) bool) weather.State {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-ch:
			if pred(st) {
				return st
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching state")
			return nil
		}
	}
}

func newSession(t *testing.T, client weather.RemoteClient, cache weather.Store, monitor connectivity.Monitor) *weather.Session {
	t.Helper()
	repo := weather.NewRepository(client, cache, monitor, zap.NewNop())
	coordinator := refresh.NewCoordinator(monitor, zap.NewNop())
	s := weather.NewSession(repo, coordinator, weather.SessionConfig{
		APIKey:             "key",
		DefaultCoordinates: weather.Coordinates{Latitude: -1.29, Longitude: 36.81},
		ForecastCount:      7,
		Scope:              weather.DefaultScope,
	}, zap.NewNop())
	t.Cleanup(s.Close)
	return s
}

func TestSessionGoesLoadingThenSuccess(t *testing.T) {
	client := &fakeClient{currentPayload: nairobiPayload(), forecastPayload: forecastPayload(100, 200)}
	monitor := &stubMonitor{reachable: true}
	s := newSession(t, client, store.NewMemoryStore(), monitor)

	s.Refresh()

	st := nextState(t, s.States())
	require.IsType(t, weather.Loading{}, st)

	final := waitFor(t, s.States(), func(st weather.State) bool {
		success, ok := st.(weather.Success)
		return ok && success.Current != nil && len(success.Forecast) == 2
	})
	success := final.(weather.Success)
	require.True(t, success.Online)
	require.Equal(t, "Nairobi", success.Current.CityName)
	require.Equal(t, int64(100), success.Forecast[0].Timestamp)
}

func TestSessionEmitsCombinedStateBeforeFetchCompletes(t *testing.T) {
	// An empty cache still produces a combined emission immediately; the
	// screen never waits on the network.
	client := &fakeClient{err: errors.New("unreachable upstream")}
	monitor := &stubMonitor{reachable: true}
	s := newSession(t, client, store.NewMemoryStore(), monitor)

	s.Refresh()

	nextState(t, s.States()) // Loading
	st := waitFor(t, s.States(), func(st weather.State) bool {
		_, ok := st.(weather.Success)
		return ok
	})
	success := st.(weather.Success)
	require.Nil(t, success.Current)
	require.Empty(t, success.Forecast)
}

func TestSessionOfflineState(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{currentPayload: nairobiPayload()}
	cache := store.NewMemoryStore()
	require.NoError(t, cache.UpsertCurrent(ctx, weather.CurrentConditions{
		LocationID: weather.DefaultScope,
		CityName:   "Nairobi",
	}))

	monitor := &stubMonitor{reachable: false}
	s := newSession(t, client, cache, monitor)

	s.Refresh()

	nextState(t, s.States()) // Loading
	st := waitFor(t, s.States(), func(st weather.State) bool {
		_, ok := st.(weather.Offline)
		return ok
	})
	offline := st.(weather.Offline)
	require.NotNil(t, offline.Current)
	require.Equal(t, "Nairobi", offline.Current.CityName)

	currentCalls, forecastCalls := client.calls()
	require.Zero(t, currentCalls)
	require.Zero(t, forecastCalls)
}

func TestSessionRestartsFromLoadingOnLocationChange(t *testing.T) {
	client := &fakeClient{currentPayload: nairobiPayload(), forecastPayload: forecastPayload(100)}
	monitor := &stubMonitor{reachable: true}
	s := newSession(t, client, store.NewMemoryStore(), monitor)

	s.Refresh()
	waitFor(t, s.States(), func(st weather.State) bool {
		success, ok := st.(weather.Success)
		return ok && success.Current != nil
	})

	s.SetLocation(weather.Coordinates{Latitude: 51.5, Longitude: -0.12})

	st := waitFor(t, s.States(), func(st weather.State) bool {
		_, ok := st.(weather.Loading)
		return ok
	})
	require.IsType(t, weather.Loading{}, st)

	waitFor(t, s.States(), func(st weather.State) bool {
		_, ok := st.(weather.Success)
		return ok
	})
}

func TestSessionReconnectTriggersRefetch(t *testing.T) {
	client := &fakeClient{currentPayload: nairobiPayload(), forecastPayload: forecastPayload(100)}
	monitor := &signalMonitor{}
	monitor.set(true)
	s := newSession(t, client, store.NewMemoryStore(), monitor)

	s.Start()
	s.SetLocation(weather.Coordinates{Latitude: -1.29, Longitude: 36.81})

	waitFor(t, s.States(), func(st weather.State) bool {
		success, ok := st.(weather.Success)
		return ok && success.Current != nil
	})
	before, _ := client.calls()

	monitor.emit(false)
	monitor.emit(true)

	require.Eventually(t, func() bool {
		after, _ := client.calls()
		return after > before
	}, 2*time.Second, 10*time.Millisecond)
}

// failingStore simulates a broken storage engine underneath the watch.
type failingStore struct {
	err error
}

func (f *failingStore) GetCurrent(context.Context, weather.Scope) (*weather.CurrentConditions, error) {
	return nil, f.err
}
func (f *failingStore) UpsertCurrent(context.Context, weather.CurrentConditions) error { return f.err }
func (f *failingStore) WatchCurrent(weather.Scope) (<-chan weather.CurrentEvent, func()) {
	ch := make(chan weather.CurrentEvent, 1)
	ch <- weather.CurrentEvent{Err: f.err}
	return ch, func() {}
}
func (f *failingStore) GetForecast(context.Context, weather.Scope) ([]weather.ForecastEntry, error) {
	return nil, f.err
}
func (f *failingStore) ReplaceForecast(context.Context, weather.Scope, []weather.ForecastEntry) error {
	return f.err
}
func (f *failingStore) WatchForecast(weather.Scope) (<-chan weather.ForecastEvent, func()) {
	ch := make(chan weather.ForecastEvent, 1)
	ch <- weather.ForecastEvent{Err: f.err}
	return ch, func() {}
}
func (f *failingStore) ClearAll(context.Context) error                     { return f.err }
func (f *failingStore) ClearCurrent(context.Context) error                 { return f.err }
func (f *failingStore) ClearForecast(context.Context, weather.Scope) error { return f.err }

var _ weather.Store = (*failingStore)(nil)

func TestSessionSurfacesStoreFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("ignored: fetch errors are swallowed")}
	monitor := &stubMonitor{reachable: true}
	broken := &failingStore{err: errors.New("disk corrupted")}
	s := newSession(t, client, broken, monitor)

	s.Refresh()

	nextState(t, s.States()) // Loading
	st := waitFor(t, s.States(), func(st weather.State) bool {
		_, ok := st.(weather.Failure)
		return ok
	})
	failure := st.(weather.Failure)
	require.Contains(t, failure.Message, "disk corrupted")
	require.True(t, failure.Online)
}
