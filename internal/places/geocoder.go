package places

import (
	"context"
	"fmt"

	"github.com/kelvins/geocoder"
)

// GeocoderSearcher resolves place names through the Google geocoding API.
type GeocoderSearcher struct{}

// NewGeocoderSearcher configures the geocoder with the given API key.
func NewGeocoderSearcher(apiKey string) *GeocoderSearcher {
	geocoder.ApiKey = apiKey
	return &GeocoderSearcher{}
}

func (g *GeocoderSearcher) Search(_ context.Context, query string) ([]Candidate, error) {
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}

	location, err := geocoder.Geocoding(geocoder.Address{City: query})
	if err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", query, err)
	}

	return []Candidate{{
		Name:      query,
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
	}}, nil
}

var _ Searcher = (*GeocoderSearcher)(nil)
