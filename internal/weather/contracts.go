package weather

import "context"

// WeatherDescriptor is the coarse condition block shared by both remote
// payloads.
type WeatherDescriptor struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CurrentWeatherPayload mirrors the remote current-conditions response.
type CurrentWeatherPayload struct {
	Name  string `json:"name"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []WeatherDescriptor `json:"weather"`
	Dt      int64               `json:"dt"`
}

// ForecastPayload mirrors the remote forecast response.
type ForecastPayload struct {
	City struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Coord struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
	} `json:"city"`
	List []ForecastItem `json:"list"`
}

// ForecastItem is one slot of the remote forecast list.
type ForecastItem struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []WeatherDescriptor `json:"weather"`
	DtTxt   string              `json:"dt_txt"`
}

// RemoteClient abstracts the weather API. Both calls may fail with a
// transport or decode error; the repository decides what that means.
type RemoteClient interface {
	CurrentWeather(ctx context.Context, coords Coordinates, apiKey string) (CurrentWeatherPayload, error)
	Forecast(ctx context.Context, coords Coordinates, apiKey string, count int) (ForecastPayload, error)
}

// CurrentEvent is one emission of a current-conditions watch. Current is
// nil while the scope holds no record. A non-nil Err signals a storage
// failure and is terminal for the subscription.
type CurrentEvent struct {
	Current *CurrentConditions
	Err     error
}

// ForecastEvent is one emission of a forecast watch. Entries is empty
// before the first population and after a clear.
type ForecastEvent struct {
	Entries []ForecastEntry
	Err     error
}

// Store is the durable cache contract. Watch channels emit the value as of
// subscription immediately, then the latest value after every mutation of
// the watched scope; delivery conflates so a slow reader sees the newest
// value rather than a backlog. The returned func detaches the subscriber.
type Store interface {
	GetCurrent(ctx context.Context, scope Scope) (*CurrentConditions, error)
	UpsertCurrent(ctx context.Context, rec CurrentConditions) error
	WatchCurrent(scope Scope) (<-chan CurrentEvent, func())

	GetForecast(ctx context.Context, scope Scope) ([]ForecastEntry, error)
	ReplaceForecast(ctx context.Context, scope Scope, entries []ForecastEntry) error
	WatchForecast(scope Scope) (<-chan ForecastEvent, func())

	ClearAll(ctx context.Context) error
	ClearCurrent(ctx context.Context) error
	ClearForecast(ctx context.Context, scope Scope) error
}
