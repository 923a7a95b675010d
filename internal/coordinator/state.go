package coordinator

// State is the coordinator's position in the current evaluation cycle.
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateDispatching
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateDispatching:
		return "dispatching"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Outcome describes how the last cycle resolved.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeCached   Outcome = "cached"
	OutcomeReranked Outcome = "reranked"
	OutcomeFallback Outcome = "fallback"
)

// Snapshot is a point-in-time view of the coordinator, for diagnostics and tests.
type Snapshot struct {
	State           State
	Outcome         Outcome
	Generation      uint64
	LastFingerprint string
	DebouncePending bool
	CacheEntries    int
	// Cached lists resident cache fingerprints, oldest first. Expired
	// entries still count until a lookup or prune evicts them.
	Cached []string
}
