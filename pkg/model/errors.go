package model

import (
	"errors"
	"fmt"

	"github.com/samvad-hq/remote-model/pkg/httpclient"
)

// Errors raised by the HTTP layer, re-exported for callers of Fetch and Save.
type (
	TransportError = httpclient.TransportError
	FetchError     = httpclient.FetchError
	DecodeError    = httpclient.DecodeError
)

// ErrNotObject is returned when a decoded body must become state but is not an object.
var ErrNotObject = errors.New("model: decoded response is not an object")

// ConfigError reports an operation rejected before any I/O.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("model: invalid %s: %s", e.Field, e.Reason)
}

// IsConfigError checks if err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
