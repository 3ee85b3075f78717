package remote

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/jones/weather-sync/internal/weather"
)

// RateLimitedClient wraps a weather.RemoteClient with per-endpoint rate
// limiting, so bursts of user-triggered refreshes cannot exhaust the API
// quota.
type RateLimitedClient struct {
	client          weather.RemoteClient
	weatherLimiter  *rate.Limiter
	forecastLimiter *rate.Limiter
}

// NewRateLimitedClient creates a rate limited client.
// rps is the maximum requests per second per endpoint (can be fractional
// for less than 1 request per second); burst is the maximum burst size.
func NewRateLimitedClient(client weather.RemoteClient, rps float64, burst int) *RateLimitedClient {
	return &RateLimitedClient{
		client:          client,
		weatherLimiter:  rate.NewLimiter(rate.Limit(rps), burst),
		forecastLimiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimitedClient) CurrentWeather(ctx context.Context, coords weather.Coordinates, apiKey string) (weather.CurrentWeatherPayload, error) {
	if err := r.weatherLimiter.Wait(ctx); err != nil {
		return weather.CurrentWeatherPayload{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.client.CurrentWeather(ctx, coords, apiKey)
}

func (r *RateLimitedClient) Forecast(ctx context.Context, coords weather.Coordinates, apiKey string, count int) (weather.ForecastPayload, error) {
	if err := r.forecastLimiter.Wait(ctx); err != nil {
		return weather.ForecastPayload{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.client.Forecast(ctx, coords, apiKey, count)
}

var _ weather.RemoteClient = (*RateLimitedClient)(nil)
