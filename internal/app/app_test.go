package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/remote-model/internal/config"
	"github.com/samvad-hq/remote-model/internal/storage"
	"github.com/samvad-hq/remote-model/pkg/model"
	"github.com/samvad-hq/remote-model/pkg/publishers"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig(t *testing.T, resourceURL string, publisherURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		AppName:      "remote-model-test",
		Env:          "test",
		SyncInterval: time.Hour,
		StorageType:  "bbolt",
		BBoltPath:    filepath.Join(dir, "state.db"),
	}
	cfg.ResourcesFile = writeFile(t, dir, "resources.yaml", `
resources:
  - id: profile
    url: `+resourceURL+`
    save_method: post
    initial_state:
      name: seed
`)
	if publisherURL != "" {
		cfg.PublishersFile = writeFile(t, dir, "publishers.yaml", `
publishers:
  - id: sink
    type: http
    http:
      url: `+publisherURL+`
      method: POST
`)
	}
	return cfg
}

type eventSink struct {
	mu     sync.Mutex
	events []publishers.Event
	got    chan publishers.Event
}

func newEventSink() (*eventSink, *httptest.Server) {
	sink := &eventSink{got: make(chan publishers.Event, 64)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &evt); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sink.mu.Lock()
		sink.events = append(sink.events, evt)
		sink.mu.Unlock()
		sink.got <- evt
		w.WriteHeader(http.StatusNoContent)
	}))
	return sink, srv
}

func TestSyncerPublishesFetchedState(t *testing.T) {
	resource := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"remote","age":30}`))
	}))
	defer resource.Close()
	sink, publisher := newEventSink()
	defer publisher.Close()

	cfg := testConfig(t, resource.URL, publisher.URL)
	syncer, err := NewSyncer(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewSyncer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx) }()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case evt := <-sink.got:
			if evt.Loading || evt.State["name"] != "remote" {
				continue
			}
			if evt.ResourceID != "profile" || evt.State["age"] != float64(30) {
				t.Fatalf("unexpected event %#v", evt)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Run: %v", err)
			}
			return
		case <-timeout:
			cancel()
			t.Fatalf("no fetched state published")
		}
	}
}

func TestSyncerResetsLoadingAfterFailedFetch(t *testing.T) {
	resource := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"down"}`))
	}))
	defer resource.Close()

	cfg := testConfig(t, resource.URL, "")
	syncer, err := NewSyncer(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewSyncer: %v", err)
	}
	defer syncer.Close()

	err = syncer.runOnce(context.Background())
	if err == nil {
		t.Fatalf("expected sync error")
	}
	var fe *model.FetchError
	if !errors.As(err, &fe) || fe.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected FetchError 503, got %v", err)
	}

	b := syncer.bindings[0]
	if b.model.Loading() {
		t.Fatalf("loading should be reset after failed fetch")
	}
	if got := b.model.State()["name"]; got != "seed" {
		t.Fatalf("snapshot should keep the seed state, got %v", got)
	}
	if loading, _ := b.host.CurrentState()[model.DefaultLoadingKey].(bool); loading {
		t.Fatalf("host loading flag should be false")
	}
}

func TestSyncerRestoresPersistedSnapshot(t *testing.T) {
	resource := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer resource.Close()

	cfg := testConfig(t, resource.URL, "")
	store, err := storage.NewStore("bbolt", cfg.BBoltPath, storage.Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Save("profile", map[string]any{
		model.DefaultModelKey:   map[string]any{"name": "persisted"},
		model.DefaultLoadingKey: false,
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	syncer, err := NewSyncer(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewSyncer: %v", err)
	}
	defer syncer.Close()

	if got := syncer.bindings[0].model.State()["name"]; got != "persisted" {
		t.Fatalf("expected persisted snapshot, got %v", got)
	}
}

func TestNewSyncerRejectsMissingResources(t *testing.T) {
	cfg := &config.Config{ResourcesFile: filepath.Join(t.TempDir(), "missing.yaml"), SyncInterval: time.Second}
	if _, err := NewSyncer(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for missing resources file")
	}
	if _, err := NewSyncer(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestPusherSavesStateFile(t *testing.T) {
	var (
		gotMethod string
		gotBody   map[string]any
	)
	resource := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer resource.Close()

	cfg := testConfig(t, resource.URL, "")
	statePath := writeFile(t, t.TempDir(), "state.yaml", "name: pushed\ntags:\n  - a\n")

	pusher, err := NewPusher(cfg, nil)
	if err != nil {
		t.Fatalf("NewPusher: %v", err)
	}
	resp, err := pusher.Push(context.Background(), "profile", statePath)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := pusher.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotBody["name"] != "pushed" {
		t.Fatalf("unexpected body %#v", gotBody)
	}
	if obj, ok := resp.(map[string]any); !ok || obj["id"] != float64(7) {
		t.Fatalf("unexpected response %#v", resp)
	}

	store, err := storage.NewStore("bbolt", cfg.BBoltPath, storage.Options{})
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	persisted, err := store.Load("profile")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	snapshot, _ := persisted[model.DefaultModelKey].(map[string]any)
	if snapshot["name"] != "pushed" {
		t.Fatalf("expected pushed state persisted, got %#v", persisted)
	}
}

func TestPusherUnknownResource(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1", "")
	cfg.StorageType = "memory"
	pusher, err := NewPusher(cfg, nil)
	if err != nil {
		t.Fatalf("NewPusher: %v", err)
	}
	defer pusher.Close()
	if _, err := pusher.Push(context.Background(), "nope", "state.yaml"); err == nil {
		t.Fatalf("expected unknown resource error")
	}
}

func TestNewPusherFailsWhileStoreIsHeld(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1", "")
	held, err := storage.NewStore("bbolt", cfg.BBoltPath, storage.Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer held.Close()

	_, err = NewPusher(cfg, nil)
	if err == nil {
		t.Fatalf("expected error while another handle holds the bbolt file")
	}
	if !strings.Contains(err.Error(), cfg.BBoltPath) {
		t.Fatalf("error should name the store path: %v", err)
	}
}

func TestLoadStateFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := writeFile(t, dir, "state.json", `{"a":1}`)
	state, err := LoadStateFile(jsonPath)
	if err != nil || state["a"] != float64(1) {
		t.Fatalf("json state %#v, err %v", state, err)
	}

	emptyPath := writeFile(t, dir, "empty.yaml", "")
	if _, err := LoadStateFile(emptyPath); err == nil {
		t.Fatalf("expected error for empty state file")
	}
	listPath := writeFile(t, dir, "list.yaml", "- a\n- b\n")
	if _, err := LoadStateFile(listPath); err == nil {
		t.Fatalf("expected error for non-object state file")
	}
	if _, err := LoadStateFile(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
