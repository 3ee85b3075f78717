package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/jones/weather-sync/internal/weather"
)

// Default location used until the caller supplies coordinates (Nairobi).
const (
	defaultLatitude  = -1.299657300813898
	defaultLongitude = 36.81313079227201
)

type AppConfig struct {
	OpenWeatherAPIKey string
	GeocoderAPIKey    string

	// DefaultCoordinates back an explicit refresh issued before any
	// location has been observed.
	DefaultCoordinates weather.Coordinates

	// ForecastCount is the result-count hint sent with forecast fetches.
	ForecastCount int

	// Connectivity probe settings.
	ProbeURL      string
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration

	// Outbound HTTP client timeout.
	HTTPTimeout time.Duration

	// PostgresDSN selects the durable store; empty means in-memory.
	PostgresDSN string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.DefaultCoordinates = weather.Coordinates{
		Latitude:  getenvFloat("DEFAULT_LATITUDE", defaultLatitude),
		Longitude: getenvFloat("DEFAULT_LONGITUDE", defaultLongitude),
	}

	cfg.ForecastCount = getenvInt("FORECAST_COUNT", 7)

	cfg.ProbeURL = getenvDefault("PROBE_URL", "https://clients3.google.com/generate_204")

	probeInterval, err := time.ParseDuration(getenvDefault("PROBE_INTERVAL", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_INTERVAL: %w", err)
	}
	cfg.ProbeInterval = probeInterval

	probeTimeout, err := time.ParseDuration(getenvDefault("PROBE_TIMEOUT", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_TIMEOUT: %w", err)
	}
	cfg.ProbeTimeout = probeTimeout

	httpTimeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = httpTimeout

	cfg.PostgresDSN = os.Getenv("DATABASE_URL")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
