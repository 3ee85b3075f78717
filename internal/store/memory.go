package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jones/weather-sync/internal/weather"
)

// ErrNotFound is returned when a record looked up by id does not exist.
var ErrNotFound = errors.New("record not found")

// MemoryStore is a concurrency-safe in-memory implementation of the weather
// cache. It backs tests and runs without a configured database.
type MemoryStore struct {
	mu       sync.Mutex
	current  map[weather.Scope]weather.CurrentConditions
	forecast map[weather.Scope][]weather.ForecastEntry
	nextID   int64

	currentHubs  map[weather.Scope]*hub[weather.CurrentEvent]
	forecastHubs map[weather.Scope]*hub[weather.ForecastEvent]
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		current:      make(map[weather.Scope]weather.CurrentConditions),
		forecast:     make(map[weather.Scope][]weather.ForecastEntry),
		currentHubs:  make(map[weather.Scope]*hub[weather.CurrentEvent]),
		forecastHubs: make(map[weather.Scope]*hub[weather.ForecastEvent]),
	}
}

func (s *MemoryStore) GetCurrent(_ context.Context, scope weather.Scope) (*weather.CurrentConditions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(scope), nil
}

// UpsertCurrent replaces the record for the scope; last writer wins.
func (s *MemoryStore) UpsertCurrent(_ context.Context, rec weather.CurrentConditions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current[rec.LocationID] = rec
	s.currentHub(rec.LocationID).publish(weather.CurrentEvent{Current: s.currentLocked(rec.LocationID)})
	return nil
}

func (s *MemoryStore) WatchCurrent(scope weather.Scope) (<-chan weather.CurrentEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := weather.CurrentEvent{Current: s.currentLocked(scope)}
	return s.currentHub(scope).subscribe(func() weather.CurrentEvent { return snapshot })
}

func (s *MemoryStore) GetForecast(_ context.Context, scope weather.Scope) ([]weather.ForecastEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forecastLocked(scope), nil
}

// ReplaceForecast swaps the full entry set for the scope in one step, so a
// watcher observes either the old set or the new set, never a mix.
func (s *MemoryStore) ReplaceForecast(_ context.Context, scope weather.Scope, entries []weather.ForecastEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replacement := make([]weather.ForecastEntry, len(entries))
	copy(replacement, entries)
	sort.Slice(replacement, func(i, j int) bool {
		return replacement[i].Timestamp < replacement[j].Timestamp
	})
	for i := range replacement {
		s.nextID++
		replacement[i].ID = s.nextID
		replacement[i].LocationID = scope
	}

	s.forecast[scope] = replacement
	s.forecastHub(scope).publish(weather.ForecastEvent{Entries: s.forecastLocked(scope)})
	return nil
}

func (s *MemoryStore) WatchForecast(scope weather.Scope) (<-chan weather.ForecastEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := weather.ForecastEvent{Entries: s.forecastLocked(scope)}
	return s.forecastHub(scope).subscribe(func() weather.ForecastEvent { return snapshot })
}

func (s *MemoryStore) ClearAll(ctx context.Context) error {
	if err := s.ClearCurrent(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for scope := range s.forecast {
		delete(s.forecast, scope)
		s.forecastHub(scope).publish(weather.ForecastEvent{})
	}
	return nil
}

func (s *MemoryStore) ClearCurrent(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for scope := range s.current {
		delete(s.current, scope)
		s.currentHub(scope).publish(weather.CurrentEvent{})
	}
	return nil
}

func (s *MemoryStore) ClearForecast(_ context.Context, scope weather.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forecast, scope)
	s.forecastHub(scope).publish(weather.ForecastEvent{})
	return nil
}

// currentLocked returns a copy of the scope's record, or nil when absent.
func (s *MemoryStore) currentLocked(scope weather.Scope) *weather.CurrentConditions {
	rec, ok := s.current[scope]
	if !ok {
		return nil
	}
	return &rec
}

// forecastLocked returns a copy of the scope's entries, already ordered.
func (s *MemoryStore) forecastLocked(scope weather.Scope) []weather.ForecastEntry {
	entries := s.forecast[scope]
	out := make([]weather.ForecastEntry, len(entries))
	copy(out, entries)
	return out
}

func (s *MemoryStore) currentHub(scope weather.Scope) *hub[weather.CurrentEvent] {
	h, ok := s.currentHubs[scope]
	if !ok {
		h = newHub[weather.CurrentEvent]()
		s.currentHubs[scope] = h
	}
	return h
}

func (s *MemoryStore) forecastHub(scope weather.Scope) *hub[weather.ForecastEvent] {
	h, ok := s.forecastHubs[scope]
	if !ok {
		h = newHub[weather.ForecastEvent]()
		s.forecastHubs[scope] = h
	}
	return h
}

var _ weather.Store = (*MemoryStore)(nil)
