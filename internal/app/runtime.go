package app

import (
	"context"
	"fmt"

	"github.com/samvad-hq/samvad-graph-harvester/internal/config"
	"github.com/samvad-hq/samvad-graph-harvester/internal/harvest"
	"github.com/samvad-hq/samvad-graph-harvester/internal/logger"
	"github.com/samvad-hq/samvad-graph-harvester/internal/storage"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/graph"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/httpclient"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/jobs"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/publishers"
)

// runtime bundles the components shared by the harvester and the collector.
type runtime struct {
	jobs    *jobs.Registry
	fanout  *publishers.Fanout
	store   storage.Store
	harvest *harvest.Service
}

func newRuntime(ctx context.Context, cfg *config.Config, log logger.Logger) (*runtime, error) {
	jobReg, err := jobs.LoadRegistry(cfg.JobsFile)
	if err != nil {
		return nil, fmt.Errorf("load jobs registry: %w", err)
	}
	enabledJobs := jobReg.Enabled()
	jobIDs := make([]string, 0, len(enabledJobs))
	for _, j := range enabledJobs {
		jobIDs = append(jobIDs, j.ID)
	}
	log.InfoObj("jobs registry loaded", "jobs_meta", map[string]any{
		"count": len(jobIDs),
		"ids":   jobIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
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

	client, err := newGraphClient(cfg, log)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init graph client: %w", err)
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		SnapshotTTL:     cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"snapshot_ttl_seconds":     int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &runtime{
		jobs:    jobReg,
		fanout:  fanout,
		store:   store,
		harvest: harvest.NewService(client, fanout, log, store),
	}, nil
}

// newGraphClient builds the v2 and rest transports and the graph client over them.
func newGraphClient(cfg *config.Config, log logger.Logger) (*graph.Client, error) {
	v2 := newTransport(cfg, "graph-v2", cfg.V2BaseURL, log)
	rest := newTransport(cfg, "graph-rest", cfg.RestBaseURL, log)
	log.InfoObj("graph transports configured", "transport_config", map[string]any{
		"v2_base_url":     cfg.V2BaseURL,
		"rest_base_url":   cfg.RestBaseURL,
		"timeout":         cfg.HTTPTimeout.String(),
		"breaker_enabled": cfg.BreakerEnabled(),
	})
	return graph.NewClient(v2, rest, graph.WithLogger(log))
}

func newTransport(cfg *config.Config, name, baseURL string, log logger.Logger) httpclient.Client {
	base := httpclient.NewRestyClient(baseURL, cfg.HTTPTimeout)
	if !cfg.BreakerEnabled() {
		return base
	}
	return httpclient.NewBreakerClient(base, httpclient.BreakerSettings{
		Name:        name,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
		OnStateChange: func(name, from, to string) {
			log.WarnObj("graph transport breaker state changed", "breaker_state", map[string]any{
				"name": name,
				"from": from,
				"to":   to,
			})
		},
	})
}

// close releases the store and publishers, logging any errors encountered.
func (r *runtime) close(log logger.Logger) {
	if r == nil {
		return
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
	if err := r.fanout.Close(); err != nil {
		log.ErrorObj("publishers close failed", "error", err.Error())
	}
}
