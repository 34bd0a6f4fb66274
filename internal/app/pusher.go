package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/remote-model/internal/config"
	"github.com/samvad-hq/remote-model/internal/logger"
	"github.com/samvad-hq/remote-model/internal/storage"
	"github.com/samvad-hq/remote-model/pkg/httpclient"
	"github.com/samvad-hq/remote-model/pkg/resources"
)

// Pusher saves a local state file to one configured resource.
type Pusher struct {
	cfg         *config.Config
	resourceReg *resources.Registry
	store       storage.Store
	client      httpclient.Client
	log         logger.Logger
}

// NewPusher builds a pusher runtime from config files.
func NewPusher(cfg *config.Config, log logger.Logger) (*Pusher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	resourceReg, err := resources.LoadRegistry(cfg.ResourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load resources registry: %w", err)
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{})
	if err != nil {
		return nil, fmt.Errorf("init storage (is a syncer holding %s?): %w", cfg.BBoltPath, err)
	}

	return &Pusher{
		cfg:         cfg,
		resourceReg: resourceReg,
		store:       store,
		client:      httpclient.NewRestyClient(cfg.RequestTimeout),
		log:         log,
	}, nil
}

// Push saves the state read from statePath to the resource and returns the
// decoded response body. The applied snapshot is persisted in the store, so a
// syncer started later on the same store resumes from it. A bbolt store is
// locked by one process at a time: pushing while a syncer holds bbolt_path
// fails when opening the store.
func (p *Pusher) Push(ctx context.Context, resourceID, statePath string) (any, error) {
	if p == nil || p.store == nil {
		return nil, fmt.Errorf("pusher is not initialized")
	}
	res, ok := p.resourceReg.ByID(resourceID)
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", resourceID)
	}

	state, err := LoadStateFile(statePath)
	if err != nil {
		return nil, err
	}

	b, err := bind(res, p.store, p.client, p.log)
	if err != nil {
		return nil, err
	}
	defer b.host.Close()

	start := time.Now()
	resp, err := b.model.Save(ctx, state, res.SaveConfig())
	if err != nil {
		return nil, fmt.Errorf("save resource %q: %w", res.ID, err)
	}
	p.log.InfoObj("resource saved", "push_meta", map[string]any{
		"resource_id": res.ID,
		"fields":      len(state),
		"response":    resp,
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	return resp, nil
}

// Close releases the store.
func (p *Pusher) Close() error {
	if p == nil || p.store == nil {
		return nil
	}
	return p.store.Close()
}

// LoadStateFile reads a YAML or JSON object from path.
func LoadStateFile(path string) (map[string]any, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("state file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &state)
	default:
		err = yaml.Unmarshal(raw, &state)
	}
	if err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	if state == nil {
		return nil, errors.New("state file contains no object")
	}
	return state, nil
}
