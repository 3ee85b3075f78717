package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jones/weather-sync/internal/weather"
)

// OpenWeatherClient implements weather.RemoteClient against the
// OpenWeatherMap API. Temperatures come back in Kelvin (no units override).
type OpenWeatherClient struct {
	weatherURL  string
	forecastURL string
	httpCfg     HTTPClientConfig
	circuit     *gobreaker.CircuitBreaker
}

func NewOpenWeatherClient(client *http.Client) *OpenWeatherClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenWeatherClient{
		weatherURL:  "https://api.openweathermap.org/data/2.5/weather",
		forecastURL: "https://api.openweathermap.org/data/2.5/forecast",
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, coords weather.Coordinates, apiKey string) (weather.CurrentWeatherPayload, error) {
	var payload weather.CurrentWeatherPayload
	if err := c.get(ctx, c.weatherURL, coords, apiKey, 0, &payload); err != nil {
		return weather.CurrentWeatherPayload{}, err
	}
	return payload, nil
}

func (c *OpenWeatherClient) Forecast(ctx context.Context, coords weather.Coordinates, apiKey string, count int) (weather.ForecastPayload, error) {
	var payload weather.ForecastPayload
	if err := c.get(ctx, c.forecastURL, coords, apiKey, count, &payload); err != nil {
		return weather.ForecastPayload{}, err
	}
	return payload, nil
}

func (c *OpenWeatherClient) get(ctx context.Context, baseURL string, coords weather.Coordinates, apiKey string, count int, out any) error {
	if apiKey == "" {
		return fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
		values.Set("appid", apiKey)
		if count > 0 {
			values.Set("cnt", strconv.Itoa(count))
		}

		u := fmt.Sprintf("%s?%s", baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

var _ weather.RemoteClient = (*OpenWeatherClient)(nil)
