package domain

import "time"

// Change is a state that a host component has applied and made visible.
type Change struct {
	Key       string
	State     map[string]any
	AppliedAt time.Time
}
