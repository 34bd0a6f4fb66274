package publishers

import (
	"strconv"
	"strings"
	"time"
)

// Event represents a resource state change published downstream.
type Event struct {
	ResourceID string         `json:"resource_id"`
	State      map[string]any `json:"state"`
	Loading    bool           `json:"loading"`
	AppliedAt  time.Time      `json:"applied_at"`
}

// NewEvent constructs an Event for the given resource state.
func NewEvent(resourceID string, state map[string]any, loading bool, appliedAt time.Time) Event {
	if appliedAt.IsZero() {
		appliedAt = time.Now()
	}
	return Event{
		ResourceID: resourceID,
		State:      state,
		Loading:    loading,
		AppliedAt:  appliedAt.UTC(),
	}
}

// Attributes returns the message attributes sinks attach to the event.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"resource_id": e.ResourceID,
		"loading":     strconv.FormatBool(e.Loading),
	}
}

// DeduplicationID identifies one applied state of a resource.
func (e Event) DeduplicationID() string {
	return e.ResourceID + "-" + strconv.FormatInt(e.AppliedAt.UnixNano(), 10)
}

// isFIFO reports whether an SQS queue URL or SNS topic ARN names a FIFO target.
func isFIFO(target string) bool {
	return strings.HasSuffix(target, ".fifo")
}
