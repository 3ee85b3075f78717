package weather

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jones/weather-sync/internal/refresh"
)

// SessionConfig carries the process-wide values the session fetches with.
type SessionConfig struct {
	APIKey             string
	DefaultCoordinates Coordinates
	ForecastCount      int
	Scope              Scope
}

// Session drives the Loading -> {Success, Offline, Failure} machine for one
// observed location. It triggers both fetches concurrently, combines the
// two cache streams, and restarts from Loading on every re-trigger
// (explicit refresh, location change, or reconnect).
type Session struct {
	repo        *Repository
	coordinator *refresh.Coordinator
	cfg         SessionConfig
	log         *zap.Logger

	root       context.Context
	rootCancel context.CancelFunc

	states chan State
	latest atomic.Value // stateBox

	mu        sync.Mutex
	coords    *Coordinates
	runCancel context.CancelFunc
}

// stateBox keeps atomic.Value happy across the concrete state types.
type stateBox struct{ state State }

func NewSession(repo *Repository, coordinator *refresh.Coordinator, cfg SessionConfig, log *zap.Logger) *Session {
	root, cancel := context.WithCancel(context.Background())
	s := &Session{
		repo:        repo,
		coordinator: coordinator,
		cfg:         cfg,
		log:         log,
		root:        root,
		rootCancel:  cancel,
		states:      make(chan State, 16),
	}
	s.latest.Store(stateBox{Loading{}})
	return s
}

// Start wires the reconnect trigger: once connectivity comes back, the last
// observed location is re-fetched. It does not fetch by itself; call
// Refresh or SetLocation for the initial load.
func (s *Session) Start() {
	s.coordinator.StartMonitoring(func() {
		s.mu.Lock()
		coords := s.coords
		s.mu.Unlock()
		if coords != nil {
			s.SetLocation(*coords)
		}
	})
}

// SetLocation records new coordinates and restarts the machine for them.
func (s *Session) SetLocation(coords Coordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coords = &coords
	s.restartLocked(coords)
}

// Refresh restarts the machine for the last observed location, falling back
// to the configured default when none has been set yet.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	coords := s.cfg.DefaultCoordinates
	if s.coords != nil {
		coords = *s.coords
	}
	s.restartLocked(coords)
}

func (s *Session) restartLocked(coords Coordinates) {
	if s.runCancel != nil {
		s.runCancel()
	}
	ctx, cancel := context.WithCancel(s.root)
	s.runCancel = cancel

	s.emit(ctx, Loading{})
	go s.run(ctx, coords)
}

func (s *Session) run(ctx context.Context, coords Coordinates) {
	// Fetches and observation start together: first paint never waits on
	// the network.
	go func() {
		if err := s.repo.FetchCurrentConditions(ctx, s.cfg.Scope, coords, s.cfg.APIKey); err != nil {
			s.log.Error("current weather cache write failed", zap.Error(err))
		}
	}()
	go func() {
		if err := s.repo.FetchForecast(ctx, s.cfg.Scope, coords, s.cfg.APIKey, s.cfg.ForecastCount); err != nil {
			s.log.Error("forecast cache write failed", zap.Error(err))
		}
	}()

	currentCh, stopCurrent := s.repo.ObserveCurrentConditions(s.cfg.Scope)
	defer stopCurrent()
	forecastCh, stopForecast := s.repo.ObserveForecast(s.cfg.Scope)
	defer stopForecast()

	var (
		current      *CurrentConditions
		forecast     []ForecastEntry
		haveCurrent  bool
		haveForecast bool
	)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-currentCh:
			if !ok {
				return
			}
			if ev.Err != nil {
				s.emit(ctx, Failure{Message: ev.Err.Error(), Online: s.coordinator.IsReachable()})
				return
			}
			current, haveCurrent = ev.Current, true
		case ev, ok := <-forecastCh:
			if !ok {
				return
			}
			if ev.Err != nil {
				s.emit(ctx, Failure{Message: ev.Err.Error(), Online: s.coordinator.IsReachable()})
				return
			}
			forecast, haveForecast = ev.Entries, true
		}

		// Combined state starts once both streams have emitted.
		if !haveCurrent || !haveForecast {
			continue
		}
		if s.coordinator.IsReachable() {
			s.emit(ctx, Success{Current: current, Forecast: forecast, Online: true})
		} else {
			s.emit(ctx, Offline{Current: current, Forecast: forecast})
		}
	}
}

func (s *Session) emit(ctx context.Context, state State) {
	if ctx.Err() != nil {
		return
	}
	s.latest.Store(stateBox{state})
	select {
	case s.states <- state:
	default:
		// Slow consumer: drop the oldest buffered state.
		select {
		case <-s.states:
		default:
		}
		select {
		case s.states <- state:
		default:
		}
	}
}

// States streams every state transition. Delivery is best-effort: a slow
// consumer loses old transitions, never the newest.
func (s *Session) States() <-chan State {
	return s.states
}

// Latest returns the most recent state.
func (s *Session) Latest() State {
	return s.latest.Load().(stateBox).state
}

// Close stops reconnect monitoring and cancels any in-flight observation.
// The coordinator's own lifecycle (its monitor) is not touched.
func (s *Session) Close() {
	s.coordinator.StopMonitoring()
	s.rootCancel()
}
