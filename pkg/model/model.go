package model

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/samvad-hq/remote-model/pkg/httpclient"
)

// Model mirrors a remote resource into one slice of a Host's state.
//
// Fetch and Save are not serialized against each other: overlapping calls on
// the same Model all run, and whichever host acknowledgement lands last
// decides both the state and the loading flag. Callers needing exclusivity
// must serialize externally. There is no cancellation of acknowledgements
// either; a host that applies a state after the caller's context is done
// still updates the Model.
type Model[S ~map[string]any] struct {
	host       Host
	cfg        Config
	client     httpclient.Client
	log        Logger
	modelKey   string
	loadingKey string

	mu      sync.RWMutex
	state   S
	loading bool
}

type settings struct {
	client     httpclient.Client
	log        Logger
	modelKey   string
	loadingKey string
}

// Option customizes a Model.
type Option func(*settings)

// WithClient sets the HTTP transport. Defaults to a resty client without timeout.
func WithClient(c httpclient.Client) Option {
	return func(s *settings) { s.client = c }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithKeys overrides the host state keys holding the snapshot and the loading flag.
func WithKeys(modelKey, loadingKey string) Option {
	return func(s *settings) {
		if modelKey != "" {
			s.modelKey = modelKey
		}
		if loadingKey != "" {
			s.loadingKey = loadingKey
		}
	}
}

// New binds a Model to host. A non-nil initial state seeds both the snapshot
// and the host; the host update is not awaited.
func New[S ~map[string]any](host Host, cfg Config, initial S, opts ...Option) *Model[S] {
	st := settings{modelKey: DefaultModelKey, loadingKey: DefaultLoadingKey}
	for _, opt := range opts {
		if opt != nil {
			opt(&st)
		}
	}
	if st.client == nil {
		st.client = httpclient.NewRestyClient(0)
	}

	m := &Model[S]{
		host:       host,
		cfg:        cfg,
		client:     st.client,
		log:        ensureLogger(st.log),
		modelKey:   st.modelKey,
		loadingKey: st.loadingKey,
		state:      S{},
	}
	if initial != nil {
		m.state = clone(initial)
		host.ApplyState(m.hostState(m.state, false), func() {})
	}
	return m
}

// State returns a copy of the current snapshot.
func (m *Model[S]) State() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.state)
}

// Loading reports whether an operation has started and not completed.
// It stays true after a failed operation until the caller resets it.
func (m *Model[S]) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Fetch loads the resource and merges it over the current snapshot.
func (m *Model[S]) Fetch(ctx context.Context, extra ...Config) (S, error) {
	cfg := m.config(extra)
	url, err := cfg.resolveURL()
	if err != nil {
		return nil, err
	}
	method := cfg.method(http.MethodGet)

	if err := m.SetState(ctx, m.State(), true, nil); err != nil {
		return nil, err
	}
	cfg.Hooks.BeforeFetch.call(ctx)

	start := time.Now()
	decoded, err := m.roundTrip(ctx, cfg, url, method, httpclient.Empty())
	if err != nil {
		return nil, err
	}
	state, err := toState[S](decoded)
	if err != nil {
		m.logFailure("fetch", method, url, err)
		return nil, err
	}

	cfg.Hooks.AfterFetch.call(ctx)

	if err := m.UpdateState(ctx, state, false, cfg.StateCallback); err != nil {
		return nil, err
	}
	m.log.DebugObj("model fetch completed", "model_fetch", map[string]any{
		"url":        url,
		"method":     method,
		"fields":     len(state),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return clone(state), nil
}

// Save sends state (the current snapshot when nil) and merges either the
// sent state or, with StateFromSaveResponse, the decoded response. It returns
// the decoded response body.
func (m *Model[S]) Save(ctx context.Context, state S, extra ...Config) (any, error) {
	if state == nil {
		state = m.State()
	} else {
		state = clone(state)
	}
	cfg := m.config(extra)
	url, err := cfg.resolveURL()
	if err != nil {
		return nil, err
	}
	method := cfg.method(http.MethodPut)

	if err := m.SetState(ctx, m.State(), true, nil); err != nil {
		return nil, err
	}
	cfg.Hooks.BeforeSave.call(ctx)

	start := time.Now()
	decoded, err := m.roundTrip(ctx, cfg, url, method, httpclient.Structured(map[string]any(state)))
	if err != nil {
		return nil, err
	}
	next := state
	if cfg.stateFromSaveResponse() {
		if next, err = toState[S](decoded); err != nil {
			m.logFailure("save", method, url, err)
			return nil, err
		}
	}

	cfg.Hooks.AfterSave.call(ctx)

	if err := m.UpdateState(ctx, next, false, cfg.StateCallback); err != nil {
		return nil, err
	}
	m.log.DebugObj("model save completed", "model_save", map[string]any{
		"url":                      url,
		"method":                   method,
		"state_from_save_response": cfg.stateFromSaveResponse(),
		"elapsed_ms":               time.Since(start).Milliseconds(),
	})
	return decoded, nil
}

// SetState replaces the snapshot. The host receives its current state with
// the snapshot and loading flag overwritten; once the host acknowledges, the
// Model's own snapshot and flag are updated together. SetState blocks until
// then, or returns ctx.Err() if ctx ends first. callback runs on the calling
// goroutine after the acknowledgement, so it may start further operations on
// the same Model; it does not run when ctx ends first.
func (m *Model[S]) SetState(ctx context.Context, next S, loading bool, callback func()) error {
	snapshot := clone(next)
	done := make(chan struct{})
	m.host.ApplyState(m.hostState(snapshot, loading), func() {
		m.mu.Lock()
		m.state = snapshot
		m.loading = loading
		m.mu.Unlock()
		close(done)
	})

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if callback != nil {
		callback()
	}
	return nil
}

// UpdateState shallow-merges partial over the snapshot and applies the result
// with a single SetState.
func (m *Model[S]) UpdateState(ctx context.Context, partial S, loading bool, callback func()) error {
	merged := m.State()
	for k, v := range partial {
		merged[k] = v
	}
	return m.SetState(ctx, merged, loading, callback)
}

func (m *Model[S]) config(extra []Config) Config {
	cfg := m.cfg
	for _, c := range extra {
		cfg = cfg.Merge(c)
	}
	return cfg
}

func (m *Model[S]) roundTrip(ctx context.Context, cfg Config, url, method string, payload httpclient.Payload) (any, error) {
	resp, err := m.client.Send(ctx, url, method, payload, cfg.Transport)
	if err != nil {
		m.logFailure("request", method, url, err)
		return nil, err
	}
	decoded, err := cfg.parser()(resp)
	if err != nil {
		m.logFailure("parse", method, url, err)
		return nil, err
	}
	return decoded, nil
}

func (m *Model[S]) logFailure(step, method, url string, err error) {
	m.log.WarnObj("model operation failed", "model_error", map[string]any{
		"step":   step,
		"method": method,
		"url":    url,
		"error":  err.Error(),
	})
}

func (m *Model[S]) hostState(snapshot S, loading bool) map[string]any {
	current := m.host.CurrentState()
	out := make(map[string]any, len(current)+2)
	for k, v := range current {
		out[k] = v
	}
	out[m.modelKey] = map[string]any(clone(snapshot))
	out[m.loadingKey] = loading
	return out
}

// toState converts a decoded body into state. A nil body is an empty object.
func toState[S ~map[string]any](decoded any) (S, error) {
	switch v := decoded.(type) {
	case nil:
		return S{}, nil
	case S:
		return clone(v), nil
	case map[string]any:
		return clone(S(v)), nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrNotObject, decoded)
	}
}

func clone[S ~map[string]any](src S) S {
	out := make(S, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
