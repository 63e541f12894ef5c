package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-joke-harvester/internal/config"
	"github.com/samvad-hq/samvad-joke-harvester/internal/harvest"
	"github.com/samvad-hq/samvad-joke-harvester/internal/logger"
	"github.com/samvad-hq/samvad-joke-harvester/internal/storage"
	"github.com/samvad-hq/samvad-joke-harvester/pkg/jokes"
	"github.com/samvad-hq/samvad-joke-harvester/pkg/publishers"
)

// Harvester is the joke harvester runtime. It owns the joke client, the
// delivered-joke store and the publisher fanout, and drives harvest passes
// on a fixed interval.
type Harvester struct {
	cfg      *config.Config
	fanout   *publishers.Fanout
	service  *harvest.Service
	endpoint string
	interval time.Duration
	runOnce  bool
	log      logger.Logger
	store    storage.Store
}

// NewHarvester builds a harvester runtime from cfg.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := jokes.NewClient(jokes.Config{
		BaseURL:    cfg.JokeAPIBaseURL,
		Timeout:    cfg.JokeAPITimeout,
		MaxRetries: cfg.JokeAPIMaxRetries,
		RetryDelay: cfg.JokeAPIRetryDelay,
	}, nil, log)
	clientCfg := client.Config()
	log.InfoObj("joke client ready", "joke_api", map[string]any{
		"base_url":    clientCfg.BaseURL,
		"timeout":     clientCfg.Timeout.String(),
		"max_retries": clientCfg.MaxRetries,
		"retry_delay": clientCfg.RetryDelay.String(),
	})

	publisherReg, err := loadPublisherRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
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

	store, err := storage.NewStore(cfg.StorageType, storageAddr(cfg), storage.Options{
		JokeTTL:         cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
		RedisPassword:   cfg.RedisPassword,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init storage: %w", err), fanout.Close())
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"addr":                     storageAddr(cfg),
		"joke_ttl_seconds":         int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Harvester{
		cfg:      cfg,
		fanout:   fanout,
		service:  harvest.NewService(client, fanout, log, store),
		endpoint: cfg.HarvestEndpoint,
		interval: cfg.HarvestInterval,
		runOnce:  cfg.RunOnce,
		log:      log,
		store:    store,
	}, nil
}

// loadPublisherRegistry reads path, or falls back to the built-in log publisher when unset.
func loadPublisherRegistry(path string) (*publishers.ConfigRegistry, error) {
	if strings.TrimSpace(path) == "" {
		return publishers.NewConfigRegistry([]publishers.PublisherConfig{publishers.LogPublisherConfig()})
	}
	return publishers.LoadRegistry(path)
}

func storageAddr(cfg *config.Config) string {
	if strings.EqualFold(strings.TrimSpace(cfg.StorageType), "redis") {
		return cfg.RedisAddr
	}
	return cfg.BBoltPath
}

// Run performs an initial harvest pass and then repeats it every interval
// until ctx is cancelled. With run_once set it returns the first pass's error.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.service == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.shutdown()

	if h.runOnce {
		_, err := h.pass(ctx)
		return err
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"endpoint":         h.endpoint,
		"publishers_count": h.fanout.Size(),
		"harvest_interval": h.interval.String(),
	})

	if _, err := h.pass(ctx); err != nil {
		h.log.ErrorObj("initial harvest failed", "error", err.Error())
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("harvester loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if _, err := h.pass(ctx); err != nil {
				h.log.ErrorObj("scheduled harvest failed", "error", err.Error())
			}
		}
	}
}

// pass runs a single harvest against the configured endpoint.
func (h *Harvester) pass(ctx context.Context) (harvest.Summary, error) {
	start := time.Now()
	h.log.InfoObj("harvest started", "harvest_meta", map[string]any{
		"endpoint":   h.endpoint,
		"started_at": start.UTC(),
	})
	summary, err := h.service.Run(ctx, h.endpoint)
	if err != nil {
		return summary, err
	}
	h.log.InfoObj("harvest completed", "harvest_meta", map[string]any{
		"endpoint":   h.endpoint,
		"published":  summary.Published,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return summary, nil
}

// shutdown closes the publishers and the store, logging failures.
func (h *Harvester) shutdown() {
	if err := h.fanout.Close(); err != nil {
		h.log.ErrorObj("publishers close failed", "error", err.Error())
	}
	if h.store == nil {
		return
	}
	if err := h.store.Close(); err != nil {
		h.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
