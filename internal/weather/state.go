package weather

// State is the presentation state derived from the combined cache
// observation. Exactly four variants exist: Loading, Success, Offline and
// Failure. The machine starts at Loading and returns to it on every
// re-trigger.
type State interface {
	isState()
}

// Loading is the initial state before the first combined emission.
type Loading struct{}

// Success carries the combined cache values while the network is reachable.
// Either payload may be absent/empty; that is not an error.
type Success struct {
	Current  *CurrentConditions
	Forecast []ForecastEntry
	Online   bool
}

// Offline carries the same combined values while unreachable. Offline
// styling is a state distinction, not a flag on Success.
type Offline struct {
	Current  *CurrentConditions
	Forecast []ForecastEntry
}

// Failure means the observation stream itself failed, i.e. the store broke.
// A swallowed fetch error never produces this state.
type Failure struct {
	Message string
	Online  bool
}

func (Loading) isState() {}
func (Success) isState() {}
func (Offline) isState() {}
func (Failure) isState() {}
