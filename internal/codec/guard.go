package codec

import "time"

// GuardState is the state of a Guard
type GuardState int

const (
	GuardClosed GuardState = iota
	GuardHalfOpen
	GuardOpen
)

// String returns the state name
func (s GuardState) String() string {
	switch s {
	case GuardClosed:
		return "closed"
	case GuardHalfOpen:
		return "half-open"
	case GuardOpen:
		return "open"
	default:
		return "unknown"
	}
}

// GuardSettings configures a Guard
type GuardSettings struct {
	// Threshold is the number of consecutive failures that opens the guard
	Threshold int
	// Cooldown is how long the guard stays open before a trial encode
	Cooldown time.Duration
	// OnStateChange is called whenever the state changes
	OnStateChange func(scheme Scheme, from, to GuardState)
}

// Guard is a circuit breaker around one compressing backend. While open,
// tiles bypass the backend and go out raw. Not safe for concurrent use.
type Guard struct {
	scheme   Scheme
	settings GuardSettings
	now      func() time.Time

	state    GuardState
	failures int
	expiry   time.Time
}

// NewGuard creates a closed guard
func NewGuard(scheme Scheme, settings GuardSettings) *Guard {
	if settings.Threshold <= 0 {
		settings.Threshold = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	return &Guard{scheme: scheme, settings: settings, now: time.Now}
}

// State returns the current state, moving open to half-open after the cooldown
func (g *Guard) State() GuardState {
	if g.state == GuardOpen && !g.now().Before(g.expiry) {
		g.setState(GuardHalfOpen)
	}
	return g.state
}

// Allow reports whether the backend may be used
func (g *Guard) Allow() error {
	if g.State() == GuardOpen {
		return ErrBackendOpen
	}
	return nil
}

// Success records a successful encode
func (g *Guard) Success() {
	g.failures = 0
	if g.State() == GuardHalfOpen {
		g.setState(GuardClosed)
	}
}

// Failure records a failed encode
func (g *Guard) Failure() {
	switch g.State() {
	case GuardHalfOpen:
		g.setState(GuardOpen)
	case GuardClosed:
		g.failures++
		if g.failures >= g.settings.Threshold {
			g.setState(GuardOpen)
		}
	}
}

func (g *Guard) setState(state GuardState) {
	if g.state == state {
		return
	}
	prev := g.state
	g.state = state
	g.failures = 0
	if state == GuardOpen {
		g.expiry = g.now().Add(g.settings.Cooldown)
	}
	if g.settings.OnStateChange != nil {
		g.settings.OnStateChange(g.scheme, prev, state)
	}
}
