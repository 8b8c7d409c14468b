package app

import (
	"context"
	"fmt"

	"github.com/samvad-hq/samvad-graph-harvester/internal/config"
	"github.com/samvad-hq/samvad-graph-harvester/internal/logger"
)

// Collector runs a single harvest pass and exits. It is meant for cron-style
// scheduling and ad-hoc backfills.
type Collector struct {
	rt  *runtime
	log logger.Logger
}

// NewCollector builds a one-shot runtime from config files.
func NewCollector(ctx context.Context, cfg *config.Config, log logger.Logger) (*Collector, error) {
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
	return &Collector{rt: rt, log: log}, nil
}

// Run executes one pass over the enabled jobs and releases resources.
func (c *Collector) Run(ctx context.Context) error {
	if c == nil || c.rt == nil {
		return fmt.Errorf("collector is not initialized")
	}
	defer c.rt.close(c.log)

	enabled := c.rt.jobs.Enabled()
	if len(enabled) == 0 {
		return fmt.Errorf("no enabled jobs in registry")
	}
	return runOnce(ctx, c.rt, enabled, c.log)
}
