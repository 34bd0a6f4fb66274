package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	// Status returns the reason phrase ("Not Found"), without the numeric code.
	Status() string
	Header(name string) string
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Send(ctx context.Context, url, method string, payload Payload, opts Options) (Response, error)
}

// BasicAuth holds credentials for HTTP basic authentication.
type BasicAuth struct {
	Username string
	Password string
}

// Options is passed through to every outgoing request.
type Options struct {
	Headers     map[string]string
	QueryParams map[string]string
	BasicAuth   *BasicAuth
	AuthToken   string
}

// IsZero reports whether no option is set.
func (o Options) IsZero() bool {
	return len(o.Headers) == 0 && len(o.QueryParams) == 0 && o.BasicAuth == nil && o.AuthToken == ""
}

// DefaultHeaders returns the headers applied when a request carries no explicit headers.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":       MediaTypeJSON,
		"Content-Type": MediaTypeJSON,
	}
}

// RequestDescriptor describes the request being assembled. Encoder payloads
// receive it and may adjust its headers before the body is attached.
type RequestDescriptor struct {
	Method  string
	URL     string
	Headers map[string]string
}
