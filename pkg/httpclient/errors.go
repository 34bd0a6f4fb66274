package httpclient

import (
	"errors"
	"fmt"
)

// TransportError reports a request that never produced a response
// (connection refused, DNS failure, cancelled context, body encoding).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FetchError reports a response whose status exceeded 299. Data holds the
// decoded body so callers can inspect structured error payloads.
type FetchError struct {
	Status     int
	StatusText string
	Data       any
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Status, e.StatusText)
}

// DecodeError reports a body that could not be decoded as its declared media type.
type DecodeError struct {
	MediaType string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s body: %v", e.MediaType, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsTransportError checks if err is, or wraps, a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsFetchError returns the *FetchError in err's chain, if any.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

var errNotStructured = errors.New("response is not a structured media type")
