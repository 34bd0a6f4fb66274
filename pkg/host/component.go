package host

import (
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/remote-model/internal/domain"
	"github.com/samvad-hq/remote-model/internal/storage"
)

const queueSize = 16

// Logger defines the logging surface the component relies on.
type Logger interface {
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

type update struct {
	next      map[string]any
	onApplied func()
}

// Component is a model.Host whose state is persisted in a storage.Store under
// a single key. Applies are processed in order by one goroutine: the state is
// saved, made readable through CurrentState, published to subscribers, and
// only then acknowledged. Subscribers and acknowledgements run on the apply
// goroutine and must not wait for another apply on the same Component.
type Component struct {
	key   string
	store storage.Store
	log   Logger

	mu    sync.RWMutex
	state map[string]any

	subMu sync.RWMutex
	subs  []func(domain.Change)

	queue     chan update
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New loads the state stored under key and starts the apply loop.
func New(key string, store storage.Store, log Logger) (*Component, error) {
	if key == "" {
		return nil, fmt.Errorf("host key must not be empty")
	}
	if store == nil {
		return nil, fmt.Errorf("host %q requires a store", key)
	}
	if log == nil {
		log = noopLogger{}
	}

	initial, err := store.Load(key)
	if err != nil {
		return nil, fmt.Errorf("load host state %q: %w", key, err)
	}
	if initial == nil {
		initial = map[string]any{}
	}

	c := &Component{
		key:   key,
		store: store,
		log:   log,
		state: initial,
		queue: make(chan update, queueSize),
		done:  make(chan struct{}),
	}
	c.wg.Add(1)
	go c.loop()
	return c, nil
}

// Key returns the storage key of the component.
func (c *Component) Key() string { return c.key }

// CurrentState returns a copy of the visible state.
func (c *Component) CurrentState() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyState(c.state)
}

// ApplyState queues next for application. Updates arriving after Close are
// dropped and never acknowledged.
func (c *Component) ApplyState(next map[string]any, onApplied func()) {
	u := update{next: copyState(next), onApplied: onApplied}
	select {
	case <-c.done:
		c.log.WarnObj("host update dropped after close", "host_key", c.key)
	case c.queue <- u:
	}
}

// Subscribe registers fn to receive every applied state.
func (c *Component) Subscribe(fn func(domain.Change)) {
	if fn == nil {
		return
	}
	c.subMu.Lock()
	c.subs = append(c.subs, fn)
	c.subMu.Unlock()
}

// Close stops the apply loop after draining queued updates. It does not close the store.
func (c *Component) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
	return nil
}

func (c *Component) loop() {
	defer c.wg.Done()
	for {
		select {
		case u := <-c.queue:
			c.apply(u)
		case <-c.done:
			for {
				select {
				case u := <-c.queue:
					c.apply(u)
				default:
					return
				}
			}
		}
	}
}

func (c *Component) apply(u update) {
	if err := c.store.Save(c.key, u.next); err != nil {
		c.log.ErrorObj("host state persist failed", "host_error", map[string]any{
			"host_key": c.key,
			"error":    err.Error(),
		})
	}

	c.mu.Lock()
	c.state = u.next
	c.mu.Unlock()

	change := domain.Change{Key: c.key, State: copyState(u.next), AppliedAt: time.Now().UTC()}
	c.subMu.RLock()
	subs := append([]func(domain.Change){}, c.subs...)
	c.subMu.RUnlock()
	for _, fn := range subs {
		fn(change)
	}

	if u.onApplied != nil {
		u.onApplied()
	}
}

func copyState(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
