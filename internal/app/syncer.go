package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/remote-model/internal/config"
	"github.com/samvad-hq/remote-model/internal/domain"
	"github.com/samvad-hq/remote-model/internal/logger"
	"github.com/samvad-hq/remote-model/internal/storage"
	"github.com/samvad-hq/remote-model/pkg/host"
	"github.com/samvad-hq/remote-model/pkg/httpclient"
	"github.com/samvad-hq/remote-model/pkg/model"
	"github.com/samvad-hq/remote-model/pkg/publishers"
	"github.com/samvad-hq/remote-model/pkg/resources"
)

// binding ties a resource to the host component and model mirroring it.
type binding struct {
	resource resources.Resource
	host     *host.Component
	model    *model.Model[model.State]
}

// Syncer represents the sync runtime. It keeps one model per configured
// resource fresh, fetching on an interval, and fans every applied host state
// out to the configured publishers.
type Syncer struct {
	cfg          *config.Config
	bindings     []*binding
	fanout       *publishers.Fanout
	store        storage.Store
	syncInterval time.Duration
	log          logger.Logger
	closeOnce    sync.Once
}

// NewSyncer builds a syncer runtime from config files.
func NewSyncer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Syncer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	resourceReg, err := resources.LoadRegistry(cfg.ResourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load resources registry: %w", err)
	}
	resourceList := resourceReg.All()
	resourceIDs := make([]string, 0, len(resourceList))
	for _, r := range resourceList {
		resourceIDs = append(resourceIDs, r.ID)
	}
	log.InfoObj("resources registry loaded", "resources_meta", map[string]any{
		"count": len(resourceIDs),
		"ids":   resourceIDs,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.BBoltPath,
	})

	s := &Syncer{
		cfg:          cfg,
		fanout:       fanout,
		store:        store,
		syncInterval: cfg.SyncInterval,
		log:          log,
	}

	client := httpclient.NewRestyClient(cfg.RequestTimeout)
	for _, r := range resourceList {
		b, err := bind(r, store, client, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.bindings = append(s.bindings, b)
	}
	return s, nil
}

// buildFanout builds the enabled publishers. A syncer without a publishers
// file still syncs; it just has nowhere to announce changes.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		log.WarnObj("no publishers file configured; changes stay local", "publishers_file", cfg.PublishersFile)
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// bind creates the host component for r and a model seeded with the last
// persisted snapshot, or the resource's initial state when none exists.
func bind(r resources.Resource, store storage.Store, client httpclient.Client, log logger.Logger) (*binding, error) {
	component, err := host.New(r.ID, store, log)
	if err != nil {
		return nil, fmt.Errorf("init host for resource %q: %w", r.ID, err)
	}

	initial := model.State(r.InitialState)
	if persisted, ok := component.CurrentState()[model.DefaultModelKey].(map[string]any); ok {
		initial = model.State(persisted)
	}

	m := model.New(component, r.ModelConfig(), initial,
		model.WithClient(client),
		model.WithLogger(log),
	)
	return &binding{resource: r, host: component, model: m}, nil
}

// Run starts the sync loop until the context is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	if s == nil || s.store == nil || s.fanout == nil {
		return fmt.Errorf("syncer is not initialized")
	}
	defer s.Close()

	if len(s.bindings) == 0 {
		s.log.WarnObj("no resources configured; syncer idle", "resources_file", s.cfg.ResourcesFile)
		<-ctx.Done()
		return ctx.Err()
	}

	for _, b := range s.bindings {
		id := b.resource.ID
		b.host.Subscribe(func(change domain.Change) {
			s.publish(ctx, id, change)
		})
	}

	s.log.InfoObj("syncer loop starting", "syncer_state", map[string]any{
		"resources_count":  len(s.bindings),
		"publishers_count": s.fanout.Size(),
		"sync_interval":    s.syncInterval.String(),
	})

	if err := s.runOnce(ctx); err != nil {
		s.log.ErrorObj("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("syncer loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := s.runOnce(ctx); err != nil {
				s.log.ErrorObj("scheduled sync failed", "error", err)
			}
		}
	}
}

// runOnce fetches every resource concurrently.
func (s *Syncer) runOnce(ctx context.Context) error {
	start := time.Now()
	s.log.InfoObj("sync started", "sync_meta", map[string]any{
		"resources_count": len(s.bindings),
		"started_at":      start.UTC(),
	})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, b := range s.bindings {
		wg.Add(1)
		go func(b *binding) {
			defer wg.Done()
			if err := s.syncResource(ctx, b); err != nil {
				s.log.ErrorObj("resource sync failed", "resource_error", map[string]any{
					"resource_id": b.resource.ID,
					"error":       err.Error(),
				})
				mu.Lock()
				errs = append(errs, fmt.Errorf("resource[%s]: %w", b.resource.ID, err))
				mu.Unlock()
			}
		}(b)
	}
	wg.Wait()

	s.log.InfoObj("sync completed", "sync_meta", map[string]any{
		"resources_count": len(s.bindings),
		"failed":          len(errs),
		"elapsed_ms":      time.Since(start).Milliseconds(),
	})
	return errors.Join(errs...)
}

// syncResource fetches one resource. A failed fetch leaves the model loading,
// so the flag is cleared here while keeping the previous snapshot.
func (s *Syncer) syncResource(ctx context.Context, b *binding) error {
	_, err := b.model.Fetch(ctx, b.resource.FetchConfig())
	if err == nil {
		return nil
	}
	if model.IsConfigError(err) || ctx.Err() != nil {
		return err
	}
	if resetErr := b.model.SetState(ctx, b.model.State(), false, nil); resetErr != nil {
		return errors.Join(err, fmt.Errorf("reset loading: %w", resetErr))
	}
	return err
}

func (s *Syncer) publish(ctx context.Context, resourceID string, change domain.Change) {
	state, _ := change.State[model.DefaultModelKey].(map[string]any)
	loading, _ := change.State[model.DefaultLoadingKey].(bool)

	evt := publishers.NewEvent(resourceID, state, loading, change.AppliedAt)
	if _, err := s.fanout.Publish(ctx, evt); err != nil {
		s.log.ErrorObj("change publish failed", "publish_error", map[string]any{
			"resource_id": resourceID,
			"error":       err.Error(),
		})
	}
}

// Close stops the host components, then releases storage and publishers.
func (s *Syncer) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		for _, b := range s.bindings {
			_ = b.host.Close()
		}
		if err := s.store.Close(); err != nil {
			s.log.ErrorObj("storage close failed", "error", err)
		}
		if err := s.fanout.Close(); err != nil {
			s.log.ErrorObj("publishers close failed", "error", err)
		}
	})
}
