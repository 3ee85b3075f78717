package store

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jones/weather-sync/internal/weather"
)

const watchReadTimeout = 5 * time.Second

// PostgresStore is the durable implementation of the weather cache. Change
// notification is in-process: writes publish to the same hubs the memory
// store uses, after the transaction commits.
type PostgresStore struct {
	pool *pgxpool.Pool

	mu           sync.Mutex
	currentHubs  map[weather.Scope]*hub[weather.CurrentEvent]
	forecastHubs map[weather.Scope]*hub[weather.ForecastEvent]
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:         pool,
		currentHubs:  make(map[weather.Scope]*hub[weather.CurrentEvent]),
		forecastHubs: make(map[weather.Scope]*hub[weather.ForecastEvent]),
	}
}

// EnsureSchema creates the cache tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS current_weather (
			location_id BIGINT PRIMARY KEY,
			city_name   TEXT,
			latitude    DOUBLE PRECISION,
			longitude   DOUBLE PRECISION,
			temp_kelvin DOUBLE PRECISION,
			condition   TEXT,
			description TEXT,
			icon_code   TEXT,
			observed_at BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS forecast (
			id          BIGSERIAL PRIMARY KEY,
			location_id BIGINT NOT NULL,
			city_name   TEXT,
			latitude    DOUBLE PRECISION,
			longitude   DOUBLE PRECISION,
			ts          BIGINT NOT NULL,
			temp_kelvin DOUBLE PRECISION,
			condition   TEXT,
			description TEXT,
			icon_code   TEXT,
			date_text   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS forecast_location_ts_idx ON forecast (location_id, ts)`,
		`CREATE TABLE IF NOT EXISTS favorite_places (
			id        BIGSERIAL PRIMARY KEY,
			name      TEXT NOT NULL,
			latitude  DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			added_at  BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) GetCurrent(ctx context.Context, scope weather.Scope) (*weather.CurrentConditions, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT location_id, city_name, latitude, longitude, temp_kelvin, condition, description, icon_code, observed_at
		FROM current_weather
		WHERE location_id = $1
	`, int64(scope))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanCurrent(rows)
	if err != nil {
		return nil, err
	}
	return &rec, rows.Err()
}

func (s *PostgresStore) UpsertCurrent(ctx context.Context, rec weather.CurrentConditions) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO current_weather (location_id, city_name, latitude, longitude, temp_kelvin, condition, description, icon_code, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (location_id) DO UPDATE SET
			city_name = EXCLUDED.city_name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			temp_kelvin = EXCLUDED.temp_kelvin,
			condition = EXCLUDED.condition,
			description = EXCLUDED.description,
			icon_code = EXCLUDED.icon_code,
			observed_at = EXCLUDED.observed_at
	`, int64(rec.LocationID), rec.CityName, rec.Latitude, rec.Longitude,
		rec.TempKelvin, rec.Condition, rec.Description, rec.IconCode, rec.ObservedAt)
	if err != nil {
		return err
	}
	s.currentHub(rec.LocationID).publish(weather.CurrentEvent{Current: &rec})
	return nil
}

func (s *PostgresStore) WatchCurrent(scope weather.Scope) (<-chan weather.CurrentEvent, func()) {
	return s.currentHub(scope).subscribe(func() weather.CurrentEvent {
		ctx, cancel := context.WithTimeout(context.Background(), watchReadTimeout)
		defer cancel()
		rec, err := s.GetCurrent(ctx, scope)
		return weather.CurrentEvent{Current: rec, Err: err}
	})
}

func (s *PostgresStore) GetForecast(ctx context.Context, scope weather.Scope) ([]weather.ForecastEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, location_id, city_name, latitude, longitude, ts, temp_kelvin, condition, description, icon_code, date_text
		FROM forecast
		WHERE location_id = $1
		ORDER BY ts ASC
	`, int64(scope))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]weather.ForecastEntry, 0)
	for rows.Next() {
		entry, err := scanForecast(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) ReplaceForecast(ctx context.Context, scope weather.Scope, entries []weather.ForecastEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM forecast WHERE location_id = $1`, int64(scope)); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO forecast (location_id, city_name, latitude, longitude, ts, temp_kelvin, condition, description, icon_code, date_text)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, int64(scope), e.CityName, e.Latitude, e.Longitude, e.Timestamp,
			e.TempKelvin, e.Condition, e.Description, e.IconCode, e.DateText)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	stored, err := s.GetForecast(ctx, scope)
	if err != nil {
		return err
	}
	s.forecastHub(scope).publish(weather.ForecastEvent{Entries: stored})
	return nil
}

func (s *PostgresStore) WatchForecast(scope weather.Scope) (<-chan weather.ForecastEvent, func()) {
	return s.forecastHub(scope).subscribe(func() weather.ForecastEvent {
		ctx, cancel := context.WithTimeout(context.Background(), watchReadTimeout)
		defer cancel()
		entries, err := s.GetForecast(ctx, scope)
		return weather.ForecastEvent{Entries: entries, Err: err}
	})
}

func (s *PostgresStore) ClearAll(ctx context.Context) error {
	if err := s.ClearCurrent(ctx); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM forecast`); err != nil {
		return err
	}
	s.mu.Lock()
	hubs := make([]*hub[weather.ForecastEvent], 0, len(s.forecastHubs))
	for _, h := range s.forecastHubs {
		hubs = append(hubs, h)
	}
	s.mu.Unlock()
	for _, h := range hubs {
		h.publish(weather.ForecastEvent{Entries: []weather.ForecastEntry{}})
	}
	return nil
}

func (s *PostgresStore) ClearCurrent(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM current_weather`); err != nil {
		return err
	}
	s.mu.Lock()
	hubs := make([]*hub[weather.CurrentEvent], 0, len(s.currentHubs))
	for _, h := range s.currentHubs {
		hubs = append(hubs, h)
	}
	s.mu.Unlock()
	for _, h := range hubs {
		h.publish(weather.CurrentEvent{})
	}
	return nil
}

func (s *PostgresStore) ClearForecast(ctx context.Context, scope weather.Scope) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM forecast WHERE location_id = $1`, int64(scope)); err != nil {
		return err
	}
	s.forecastHub(scope).publish(weather.ForecastEvent{Entries: []weather.ForecastEntry{}})
	return nil
}

func (s *PostgresStore) currentHub(scope weather.Scope) *hub[weather.CurrentEvent] {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.currentHubs[scope]
	if !ok {
		h = newHub[weather.CurrentEvent]()
		s.currentHubs[scope] = h
	}
	return h
}

func (s *PostgresStore) forecastHub(scope weather.Scope) *hub[weather.ForecastEvent] {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.forecastHubs[scope]
	if !ok {
		h = newHub[weather.ForecastEvent]()
		s.forecastHubs[scope] = h
	}
	return h
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCurrent(row rowScanner) (weather.CurrentConditions, error) {
	var rec weather.CurrentConditions
	var locationID int64
	if err := row.Scan(&locationID, &rec.CityName, &rec.Latitude, &rec.Longitude,
		&rec.TempKelvin, &rec.Condition, &rec.Description, &rec.IconCode, &rec.ObservedAt); err != nil {
		return weather.CurrentConditions{}, err
	}
	rec.LocationID = weather.Scope(locationID)
	return rec, nil
}

func scanForecast(row rowScanner) (weather.ForecastEntry, error) {
	var entry weather.ForecastEntry
	var locationID int64
	if err := row.Scan(&entry.ID, &locationID, &entry.CityName, &entry.Latitude, &entry.Longitude,
		&entry.Timestamp, &entry.TempKelvin, &entry.Condition, &entry.Description, &entry.IconCode, &entry.DateText); err != nil {
		return weather.ForecastEntry{}, err
	}
	entry.LocationID = weather.Scope(locationID)
	return entry, nil
}

var _ weather.Store = (*PostgresStore)(nil)
