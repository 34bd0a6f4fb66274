package resources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/remote-model/pkg/httpclient"
	"github.com/samvad-hq/remote-model/pkg/model"
)

// Package resources contains remote resource definitions loaded from YAML/JSON.

// Resource describes one remote resource mirrored by a model.
type Resource struct {
	ID                    string            `json:"id" yaml:"id"`
	URL                   string            `json:"url" yaml:"url"`
	FetchMethod           string            `json:"fetch_method" yaml:"fetch_method"`
	SaveMethod            string            `json:"save_method" yaml:"save_method"`
	Headers               map[string]string `json:"headers" yaml:"headers"`
	AuthToken             string            `json:"auth_token" yaml:"auth_token"`
	StateFromSaveResponse bool              `json:"state_from_save_response" yaml:"state_from_save_response"`
	InitialState          map[string]any    `json:"initial_state" yaml:"initial_state"`
}

type configFile struct {
	Resources []Resource `json:"resources" yaml:"resources"`
}

// Registry materializes resource definitions loaded from config files.
type Registry struct {
	mu        sync.RWMutex
	resources []Resource
	idx       map[string]Resource
}

// LoadRegistry loads the resource registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("resources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open resources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read resources file: %w", err)
	}

	cfg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(cfg.Resources) == 0 {
		return nil, errors.New("resources file contains no resources entries")
	}

	reg := &Registry{
		resources: make([]Resource, len(cfg.Resources)),
		idx:       make(map[string]Resource, len(cfg.Resources)),
	}
	for i := range cfg.Resources {
		r := sanitizeResource(cfg.Resources[i])
		if err := validateResource(r); err != nil {
			return nil, fmt.Errorf("resources[%d]: %w", i, err)
		}
		if _, exists := reg.idx[r.ID]; exists {
			return nil, fmt.Errorf("duplicate resource id %q", r.ID)
		}
		reg.resources[i] = r
		reg.idx[r.ID] = r
	}
	return reg, nil
}

type unmarshalFn func([]byte, any) error

func parseRegistry(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var cfg configFile
		if err := d.fn(data, &cfg); err == nil {
			return cfg, nil
		}
	}

	return configFile{}, errors.New("resources file format not recognized (expected YAML or JSON)")
}

func sanitizeResource(r Resource) Resource {
	r.ID = strings.TrimSpace(r.ID)
	r.URL = strings.TrimSpace(r.URL)
	r.FetchMethod = strings.ToUpper(strings.TrimSpace(r.FetchMethod))
	r.SaveMethod = strings.ToUpper(strings.TrimSpace(r.SaveMethod))
	r.AuthToken = strings.TrimSpace(r.AuthToken)

	if len(r.Headers) > 0 {
		headers := make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			key, val := strings.TrimSpace(k), strings.TrimSpace(v)
			if key == "" || val == "" {
				continue
			}
			headers[key] = val
		}
		r.Headers = headers
	}
	if len(r.Headers) == 0 {
		r.Headers = nil
	}
	return r
}

func validateResource(r Resource) error {
	if r.ID == "" {
		return errors.New("id is required")
	}
	if r.URL == "" {
		return fmt.Errorf("url is required for resource %q", r.ID)
	}
	return nil
}

// ByID returns the resource by id.
func (r *Registry) ByID(id string) (Resource, bool) {
	if r == nil {
		return Resource{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Resource{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.idx[id]
	return res, ok
}

// All returns all configured resources.
func (r *Registry) All() []Resource {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Resource, len(r.resources))
	copy(out, r.resources)
	return out
}

// ModelConfig returns the stored model configuration for the resource.
func (r Resource) ModelConfig() model.Config {
	return model.Config{
		URL: model.StaticURL(r.URL),
		Transport: httpclient.Options{
			Headers:   r.Headers,
			AuthToken: r.AuthToken,
		},
		StateFromSaveResponse: model.Bool(r.StateFromSaveResponse),
	}
}

// FetchConfig returns the per-call overrides for Fetch.
func (r Resource) FetchConfig() model.Config {
	return model.Config{Method: r.FetchMethod}
}

// SaveConfig returns the per-call overrides for Save.
func (r Resource) SaveConfig() model.Config {
	return model.Config{Method: r.SaveMethod}
}
