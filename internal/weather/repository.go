package weather

import (
	"context"

	"go.uber.org/zap"

	"github.com/jones/weather-sync/internal/connectivity"
)

// Repository is the single authority over when to talk to the network and
// what the cache holds. Fetch operations are side-effecting triggers; reads
// go through the watch channels and never wait on a fetch.
//
// Policy: when the network is unreachable a fetch is a silent no-op, and a
// remote failure is logged and swallowed. The cache keeps its last
// known-good value either way, so a failed refresh can never regress a
// reader from stale data to an error. Only a storage failure is returned.
type Repository struct {
	client  RemoteClient
	store   Store
	monitor connectivity.Monitor
	log     *zap.Logger
}

func NewRepository(client RemoteClient, store Store, monitor connectivity.Monitor, log *zap.Logger) *Repository {
	return &Repository{client: client, store: store, monitor: monitor, log: log}
}

// FetchCurrentConditions refreshes the cached current conditions for the
// scope from the remote API.
func (r *Repository) FetchCurrentConditions(ctx context.Context, scope Scope, coords Coordinates, apiKey string) error {
	if !r.monitor.IsReachable() {
		r.log.Debug("skipping current weather fetch while offline", zap.Int64("scope", int64(scope)))
		return nil
	}

	payload, err := r.client.CurrentWeather(ctx, coords, apiKey)
	if err != nil {
		r.log.Warn("current weather fetch failed, keeping cached value",
			zap.Int64("scope", int64(scope)), zap.Error(err))
		return nil
	}

	rec := CurrentConditions{
		LocationID: scope,
		CityName:   payload.Name,
		Latitude:   coords.Latitude,
		Longitude:  coords.Longitude,
		TempKelvin: payload.Main.Temp,
		ObservedAt: payload.Dt,
	}
	if len(payload.Weather) > 0 {
		rec.Condition = payload.Weather[0].Main
		rec.Description = payload.Weather[0].Description
		rec.IconCode = payload.Weather[0].Icon
	}

	return r.store.UpsertCurrent(ctx, rec)
}

// FetchForecast refreshes the cached forecast set for the scope. The prior
// set is replaced wholesale; an empty response leaves the scope cleared.
func (r *Repository) FetchForecast(ctx context.Context, scope Scope, coords Coordinates, apiKey string, count int) error {
	if !r.monitor.IsReachable() {
		r.log.Debug("skipping forecast fetch while offline", zap.Int64("scope", int64(scope)))
		return nil
	}

	payload, err := r.client.Forecast(ctx, coords, apiKey, count)
	if err != nil {
		r.log.Warn("forecast fetch failed, keeping cached entries",
			zap.Int64("scope", int64(scope)), zap.Error(err))
		return nil
	}

	entries := make([]ForecastEntry, 0, len(payload.List))
	for _, item := range payload.List {
		entry := ForecastEntry{
			LocationID: scope,
			CityName:   payload.City.Name,
			Latitude:   coords.Latitude,
			Longitude:  coords.Longitude,
			Timestamp:  item.Dt,
			TempKelvin: item.Main.Temp,
			DateText:   item.DtTxt,
		}
		if len(item.Weather) > 0 {
			entry.Condition = item.Weather[0].Main
			entry.Description = item.Weather[0].Description
			entry.IconCode = item.Weather[0].Icon
		}
		entries = append(entries, entry)
	}

	return r.store.ReplaceForecast(ctx, scope, entries)
}

// ObserveCurrentConditions streams the cached record for the scope.
func (r *Repository) ObserveCurrentConditions(scope Scope) (<-chan CurrentEvent, func()) {
	return r.store.WatchCurrent(scope)
}

// ObserveForecast streams the cached forecast set for the scope.
func (r *Repository) ObserveForecast(scope Scope) (<-chan ForecastEvent, func()) {
	return r.store.WatchForecast(scope)
}

// IsReachable reports the point-in-time connectivity state.
func (r *Repository) IsReachable() bool {
	return r.monitor.IsReachable()
}

// ClearCache evicts everything the sync path ever wrote.
func (r *Repository) ClearCache(ctx context.Context) error {
	return r.store.ClearAll(ctx)
}

// ClearCurrent evicts the cached current conditions for all scopes.
func (r *Repository) ClearCurrent(ctx context.Context) error {
	return r.store.ClearCurrent(ctx)
}

// ClearForecast evicts the cached forecast entries for one scope.
func (r *Repository) ClearForecast(ctx context.Context, scope Scope) error {
	return r.store.ClearForecast(ctx, scope)
}
