package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jones/weather-sync/internal/places"
)

// MemoryPlaces is the in-memory favorite-places store.
type MemoryPlaces struct {
	mu     sync.Mutex
	byID   map[int64]places.Place
	nextID int64
}

func NewMemoryPlaces() *MemoryPlaces {
	return &MemoryPlaces{byID: make(map[int64]places.Place)}
}

func (s *MemoryPlaces) List(_ context.Context) ([]places.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]places.Place, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt != out[j].AddedAt {
			return out[i].AddedAt > out[j].AddedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryPlaces) GetByID(_ context.Context, id int64) (*places.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryPlaces) Add(_ context.Context, p places.Place) (places.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p.ID = s.nextID
	s.byID[p.ID] = p
	return p, nil
}

func (s *MemoryPlaces) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *MemoryPlaces) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[int64]places.Place)
	return nil
}

// PostgresPlaces is the durable favorite-places store.
type PostgresPlaces struct {
	pool *pgxpool.Pool
}

func NewPostgresPlaces(pool *pgxpool.Pool) *PostgresPlaces {
	return &PostgresPlaces{pool: pool}
}

func (s *PostgresPlaces) List(ctx context.Context) ([]places.Place, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, latitude, longitude, added_at
		FROM favorite_places
		ORDER BY added_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]places.Place, 0)
	for rows.Next() {
		var p places.Place
		if err := rows.Scan(&p.ID, &p.Name, &p.Latitude, &p.Longitude, &p.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresPlaces) GetByID(ctx context.Context, id int64) (*places.Place, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, latitude, longitude, added_at
		FROM favorite_places
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	var p places.Place
	if err := rows.Scan(&p.ID, &p.Name, &p.Latitude, &p.Longitude, &p.AddedAt); err != nil {
		return nil, err
	}
	return &p, rows.Err()
}

func (s *PostgresPlaces) Add(ctx context.Context, p places.Place) (places.Place, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO favorite_places (name, latitude, longitude, added_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, p.Name, p.Latitude, p.Longitude, p.AddedAt)
	if err := row.Scan(&p.ID); err != nil {
		return places.Place{}, err
	}
	return p, nil
}

func (s *PostgresPlaces) DeleteByID(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM favorite_places WHERE id = $1`, id)
	return err
}

func (s *PostgresPlaces) DeleteAll(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM favorite_places`)
	return err
}

var (
	_ places.Store = (*MemoryPlaces)(nil)
	_ places.Store = (*PostgresPlaces)(nil)
)
