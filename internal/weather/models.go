package weather

// Scope identifies the location partition a cached record belongs to.
// Both current conditions and forecasts are keyed by it, so the cache can
// hold weather for several places at once.
type Scope int64

// DefaultScope is the partition used for the device's current location.
const DefaultScope Scope = 0

// Coordinates is an immutable latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CurrentConditions is the cached "current weather" record. At most one
// record exists per scope; a successful fetch replaces the prior one.
type CurrentConditions struct {
	LocationID  Scope   `json:"locationId"`
	CityName    string  `json:"cityName,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	TempKelvin  float64 `json:"temperatureKelvin"`
	Condition   string  `json:"conditionMain,omitempty"`
	Description string  `json:"description,omitempty"`
	IconCode    string  `json:"iconCode,omitempty"`
	ObservedAt  int64   `json:"observedAtEpochSeconds"`
}

// ForecastEntry is one slot of a multi-day forecast. The full entry set for
// a scope is replaced atomically on every successful fetch and is always
// read in ascending timestamp order.
type ForecastEntry struct {
	ID          int64   `json:"id"`
	LocationID  Scope   `json:"locationId"`
	CityName    string  `json:"cityName,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timestamp   int64   `json:"timestampEpochSeconds"`
	TempKelvin  float64 `json:"temperatureKelvin"`
	Condition   string  `json:"conditionMain,omitempty"`
	Description string  `json:"description,omitempty"`
	IconCode    string  `json:"iconCode,omitempty"`
	// DateText keeps the raw textual timestamp from the source as a
	// display fallback.
	DateText string `json:"dateText,omitempty"`
}
