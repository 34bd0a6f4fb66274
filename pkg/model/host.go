package model

// Host is the component whose state a Model mirrors into.
//
// ApplyState replaces the whole host state with next and calls onApplied
// exactly once, after CurrentState reflects next. It may apply asynchronously.
// onApplied only records the applied state and never blocks.
type Host interface {
	CurrentState() map[string]any
	ApplyState(next map[string]any, onApplied func())
}

// Keys reserved in the host state.
const (
	DefaultModelKey   = "model"
	DefaultLoadingKey = "loading"
)

// State is the plain state type most callers use with Model.
type State map[string]any
