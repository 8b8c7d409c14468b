package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-graph-harvester/internal/config"
	"github.com/samvad-hq/samvad-graph-harvester/internal/logger"
	"github.com/samvad-hq/samvad-graph-harvester/internal/status"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/jobs"
)

// statusRunner serves the status surface until its context ends.
type statusRunner interface {
	Run(ctx context.Context) error
}

// Harvester represents the graph harvester runtime. It runs the snapshot loop
// over the configured jobs, publishes changed graphs and optionally serves the
// status endpoints. It owns the storage and publisher lifecycles.
type Harvester struct {
	cfg      *config.Config
	rt       *runtime
	interval time.Duration
	status   statusRunner
	log      logger.Logger
}

// NewHarvester builds a harvester runtime from config files.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newRuntime(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	h := &Harvester{
		cfg:      cfg,
		rt:       rt,
		interval: cfg.SnapshotInterval,
		log:      log,
	}
	if cfg.StatusAddr != "" {
		h.status = status.NewServer(cfg.StatusAddr, rt.store, log)
	}
	return h, nil
}

// Run starts the snapshot loop until the context is cancelled.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.rt == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.rt.close(h.log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if h.status != nil {
		statusDone := make(chan struct{})
		go func() {
			defer close(statusDone)
			if err := h.status.Run(ctx); err != nil {
				h.log.ErrorObj("status server stopped", "error", err.Error())
			}
		}()
		// The store must outlive in-flight status requests.
		defer func() {
			cancel()
			<-statusDone
		}()
	}

	enabled := h.rt.jobs.Enabled()
	if len(enabled) == 0 {
		h.log.WarnObj("no enabled jobs; harvester idle", "jobs_file", h.cfg.JobsFile)
		<-ctx.Done()
		return nil
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"jobs_count":        len(enabled),
		"publishers_count":  h.rt.fanout.Size(),
		"snapshot_interval": h.interval.String(),
	})

	if err := runOnce(ctx, h.rt, enabled, h.log); err != nil {
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
			if err := runOnce(ctx, h.rt, enabled, h.log); err != nil {
				h.log.ErrorObj("scheduled harvest failed", "error", err.Error())
			}
		}
	}
}

// runOnce performs a single harvest pass across jobs.
func runOnce(ctx context.Context, rt *runtime, js []jobs.Job, log logger.Logger) error {
	start := time.Now()
	log.InfoObj("harvest started", "harvest_meta", map[string]any{
		"jobs_count": len(js),
		"started_at": start.UTC(),
	})
	if err := rt.harvest.Run(ctx, js); err != nil {
		return err
	}
	log.InfoObj("harvest completed", "harvest_meta", map[string]any{
		"jobs_count": len(js),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return nil
}
