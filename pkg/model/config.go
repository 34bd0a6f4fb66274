package model

import (
	"context"

	"github.com/samvad-hq/remote-model/pkg/httpclient"
)

// URLSource resolves the request URL. It is called once per operation, so it
// may read mutable context such as the current state.
type URLSource func() string

// StaticURL returns a URLSource that always yields u.
func StaticURL(u string) URLSource {
	return func() string { return u }
}

// ParseFunc converts a raw response into a decoded value.
type ParseFunc func(resp httpclient.Response) (any, error)

// Hook runs at a fixed point of an operation.
type Hook func(ctx context.Context)

func (h Hook) call(ctx context.Context) {
	if h != nil {
		h(ctx)
	}
}

// Hooks are the lifecycle slots. An unset slot is a no-op. After hooks are
// skipped when the request or the parse step fails.
type Hooks struct {
	BeforeFetch Hook
	AfterFetch  Hook
	BeforeSave  Hook
	AfterSave   Hook
}

func (h Hooks) merge(over Hooks) Hooks {
	if over.BeforeFetch != nil {
		h.BeforeFetch = over.BeforeFetch
	}
	if over.AfterFetch != nil {
		h.AfterFetch = over.AfterFetch
	}
	if over.BeforeSave != nil {
		h.BeforeSave = over.BeforeSave
	}
	if over.AfterSave != nil {
		h.AfterSave = over.AfterSave
	}
	return h
}

// Config describes how a Model talks to its backend.
type Config struct {
	// URL is required.
	URL URLSource
	// Method overrides the verb; Fetch defaults to GET and Save to PUT.
	Method string
	// Parse overrides httpclient.Parse.
	Parse ParseFunc
	// Transport is passed through to the HTTP client. A per-call value
	// replaces the stored one as a whole.
	Transport httpclient.Options
	// StateCallback runs once the merged state is visible on the host, on the
	// goroutine that called Fetch or Save.
	StateCallback func()
	Hooks         Hooks
	// StateFromSaveResponse makes Save merge the decoded response instead of
	// the state that was sent. Defaults to false.
	StateFromSaveResponse *bool
}

// Bool returns a pointer to b, for Config.StateFromSaveResponse.
func Bool(b bool) *bool { return &b }

// Merge layers over on top of c: every field set on over wins.
func (c Config) Merge(over Config) Config {
	out := c
	if over.URL != nil {
		out.URL = over.URL
	}
	if over.Method != "" {
		out.Method = over.Method
	}
	if over.Parse != nil {
		out.Parse = over.Parse
	}
	if !over.Transport.IsZero() {
		out.Transport = over.Transport
	}
	if over.StateCallback != nil {
		out.StateCallback = over.StateCallback
	}
	out.Hooks = out.Hooks.merge(over.Hooks)
	if over.StateFromSaveResponse != nil {
		out.StateFromSaveResponse = over.StateFromSaveResponse
	}
	return out
}

func (c Config) resolveURL() (string, error) {
	if c.URL == nil {
		return "", &ConfigError{Field: "url", Reason: "not configured"}
	}
	u := c.URL()
	if u == "" {
		return "", &ConfigError{Field: "url", Reason: "resolved to an empty string"}
	}
	return u, nil
}

func (c Config) method(fallback string) string {
	if c.Method != "" {
		return c.Method
	}
	return fallback
}

func (c Config) parser() ParseFunc {
	if c.Parse != nil {
		return c.Parse
	}
	return httpclient.Parse
}

func (c Config) stateFromSaveResponse() bool {
	return c.StateFromSaveResponse != nil && *c.StateFromSaveResponse
}
