package deposit

import "strings"

// State is the lifecycle of one crypto deposit. Pending is the only
// non-terminal state; the four others admit no further transition.
type State string

const (
	StatePending   State = "PENDING"
	StateConfirmed State = "CONFIRMED"
	StateFailed    State = "FAILED"
	StateExpired   State = "EXPIRED"
	StateCancelled State = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateFailed, StateExpired, StateCancelled:
		return true
	}
	return false
}

// Explain returns the user-facing message for a state. Each terminal
// state reads distinctly; terminal states are explained outcomes, not
// errors.
func (s State) Explain() string {
	switch s {
	case StatePending:
		return "waiting for the deposit to be confirmed on the network"
	case StateConfirmed:
		return "deposit confirmed; the funds have been credited to your balance"
	case StateFailed:
		return "the deposit failed; no funds were credited"
	case StateExpired:
		return "the payment window expired before the deposit was confirmed"
	case StateCancelled:
		return "the deposit was cancelled"
	default:
		return "unknown deposit state"
	}
}

// ParseState maps a collaborator status string onto a State. Unknown
// strings map to ok=false; the poller treats those as "still pending"
// rather than failing the deposit.
func ParseState(s string) (State, bool) {
	switch State(strings.ToUpper(strings.TrimSpace(s))) {
	case StatePending:
		return StatePending, true
	case StateConfirmed:
		return StateConfirmed, true
	case StateFailed:
		return StateFailed, true
	case StateExpired:
		return StateExpired, true
	case StateCancelled:
		return StateCancelled, true
	default:
		return "", false
	}
}
