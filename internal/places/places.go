package places

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Place is a user-saved location. Places are independent of the weather
// cache: the sync path never touches them.
type Place struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AddedAt   int64   `json:"addedAt"` // epoch millis
}

// Store persists favorite places. List returns newest first (added_at
// descending).
type Store interface {
	List(ctx context.Context) ([]Place, error)
	GetByID(ctx context.Context, id int64) (*Place, error)
	Add(ctx context.Context, p Place) (Place, error)
	DeleteByID(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}

// Candidate is a geocoding result the user can save as a Place.
type Candidate struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Searcher resolves a free-text place name to coordinate candidates.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// Service composes the store and the searcher for the favorites flows.
type Service struct {
	store    Store
	searcher Searcher
	log      *zap.Logger
}

func NewService(store Store, searcher Searcher, log *zap.Logger) *Service {
	return &Service{store: store, searcher: searcher, log: log}
}

func (s *Service) List(ctx context.Context) ([]Place, error) {
	return s.store.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Place, error) {
	return s.store.GetByID(ctx, id)
}

// Add saves a place, stamping AddedAt when the caller left it zero.
func (s *Service) Add(ctx context.Context, p Place) (Place, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.AddedAt == 0 {
		p.AddedAt = time.Now().UnixMilli()
	}
	saved, err := s.store.Add(ctx, p)
	if err != nil {
		return Place{}, err
	}
	s.log.Info("favorite place added", zap.Int64("id", saved.ID), zap.String("name", saved.Name))
	return saved, nil
}

func (s *Service) DeleteByID(ctx context.Context, id int64) error {
	return s.store.DeleteByID(ctx, id)
}

func (s *Service) DeleteAll(ctx context.Context) error {
	return s.store.DeleteAll(ctx)
}

// Search resolves a name through the configured geocoder.
func (s *Service) Search(ctx context.Context, query string) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	candidates, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return candidates, nil
}
