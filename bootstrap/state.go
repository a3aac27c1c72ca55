package bootstrap

// State is a position in the startup sequence. States only move forward;
// Failed is terminal.
type State int

const (
	Unconfigured State = iota
	Configured
	DatastoreConnected
	Migrated
	BrokerSubscribed
	Listening
	Serving
	Failed
)

var stateNames = [...]string{
	Unconfigured:       "unconfigured",
	Configured:         "configured",
	DatastoreConnected: "datastore-connected",
	Migrated:           "migrated",
	BrokerSubscribed:   "broker-subscribed",
	Listening:          "listening",
	Serving:            "serving",
	Failed:             "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// stepStates maps a step name to the state reached when it starts.
// The crash hook does not move the sequence.
var stepStates = map[string]State{
	"database":       DatastoreConnected,
	"migrations":     Migrated,
	"kafka-consumer": BrokerSubscribed,
	"http-server":    Listening,
}

// advance moves to next if it lies ahead of the current state. It reports
// whether the transition happened.
func (a *App) advance(next State) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == Failed || next <= a.state {
		return false
	}
	a.state = next
	a.history = append(a.history, next)
	a.Logger.Debug("State changed", map[string]interface{}{"state": next.String()})
	return true
}

// fail enters Failed and records reason. The first reason wins.
func (a *App) fail(reason error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == Failed {
		return
	}
	a.state = Failed
	a.failure = reason
	a.history = append(a.history, Failed)
}

// State returns the current state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the reason for Failed, or nil.
func (a *App) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failure
}

// History returns every state entered so far, oldest first.
func (a *App) History() []State {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]State, len(a.history))
	copy(out, a.history)
	return out
}
