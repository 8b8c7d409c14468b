package harvest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-graph-harvester/internal/domain"
	"github.com/samvad-hq/samvad-graph-harvester/internal/logger"
	"github.com/samvad-hq/samvad-graph-harvester/internal/storage"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/jobs"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/publishers"
)

var (
	// ErrQueryFailed means the graph client answered with its failure value.
	ErrQueryFailed = errors.New("graph query failed")
	// errNoData marks a result that cannot be told apart from a failed lookup.
	errNoData = errors.New("graph query returned no data")
)

// Service runs snapshot jobs against the graph backend and publishes changed results.
type Service struct {
	graph     GraphQuerier
	publisher EventPublisher
	store     SnapshotStore
	log       logger.Logger
	now       func() time.Time
}

// NewService wires a harvester with the graph client, publisher and store.
func NewService(g GraphQuerier, pub EventPublisher, log logger.Logger, store SnapshotStore) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		graph:     g,
		publisher: pub,
		store:     store,
		log:       log,
		now:       time.Now,
	}
}

// Run executes one harvest pass over jobs and joins the per-job errors.
func (s *Service) Run(ctx context.Context, js []jobs.Job) error {
	if s == nil || s.graph == nil {
		return fmt.Errorf("harvest service is not initialized")
	}
	if len(js) == 0 {
		return fmt.Errorf("no jobs configured for harvesting")
	}

	errs := s.runAll(ctx, js)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (s *Service) runAll(ctx context.Context, js []jobs.Job) []error {
	errs := make([]error, 0, len(js))

	for _, job := range js {
		if ctx.Err() != nil {
			s.log.InfoObj("harvest pass interrupted", "reason", ctx.Err().Error())
			break
		}
		if err := s.runJob(ctx, job); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("snapshot job failed", "job_error", map[string]any{
				"job_id": job.ID,
				"kind":   job.Kind,
				"error":  err.Error(),
			})
		}
	}

	return errs
}

func (s *Service) runJob(ctx context.Context, job jobs.Job) error {
	snap, err := s.snapshot(ctx, job)
	if errors.Is(err, errNoData) {
		s.log.WarnObj("snapshot job returned no data; keeping previous snapshot", "job_id", job.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("job %s: %w", job.ID, err)
	}

	if s.store != nil {
		changed, err := s.store.Changed(snap.JobID, snap.Hash)
		if err != nil {
			return fmt.Errorf("job %s: check snapshot: %w", job.ID, err)
		}
		if !changed {
			s.log.DebugObj("snapshot unchanged", "job_id", job.ID)
			return nil
		}
	}

	var publishErr error
	if s.publisher != nil {
		delivered, err := s.publisher.Publish(ctx, publishers.NewEvent(snap))
		if err != nil && delivered == 0 {
			return fmt.Errorf("job %s: publish snapshot: %w", job.ID, err)
		}
		publishErr = err
	}

	if s.store != nil {
		if err := s.store.Save(storage.Record{
			JobID:   snap.JobID,
			Kind:    snap.Kind,
			Hash:    snap.Hash,
			Payload: snap.Payload,
		}); err != nil {
			return fmt.Errorf("job %s: save snapshot: %w", job.ID, err)
		}
	}

	s.log.InfoObj("snapshot published", "snapshot_meta", map[string]any{
		"job_id": snap.JobID,
		"kind":   snap.Kind,
		"hash":   snap.Hash,
		"counts": snap.Counts,
	})

	if publishErr != nil {
		return fmt.Errorf("job %s: partial publish: %w", job.ID, publishErr)
	}
	return nil
}

// snapshot runs the job's graph query and packages the result.
func (s *Service) snapshot(ctx context.Context, job jobs.Job) (domain.Snapshot, error) {
	var (
		result any
		counts domain.Counts
	)

	switch job.Kind {
	case jobs.KindNodes:
		nodes, ok := s.graph.FetchGraphNodes(ctx, job.QueryParameters())
		if !ok {
			return domain.Snapshot{}, ErrQueryFailed
		}
		result = nodes
		counts = domain.Counts{Vertices: len(nodes.Vertices), Edges: len(nodes.Edges)}
	case jobs.KindDefinitions:
		defs := s.graph.FetchGraphDefinitionsByResourceID(ctx, job.ResourceID)
		if len(defs.Name) == 0 {
			return domain.Snapshot{}, errNoData
		}
		result = defs
		counts = domain.Counts{Definitions: len(defs.Name)}
	case jobs.KindDefinition:
		prefab := s.graph.FetchDefinitionData(ctx, job.Definition)
		if prefab == nil {
			return domain.Snapshot{}, ErrQueryFailed
		}
		result = prefab
	default:
		return domain.Snapshot{}, fmt.Errorf("unsupported job kind %q", job.Kind)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}

	return domain.Snapshot{
		JobID:       job.ID,
		JobName:     job.Name,
		Kind:        job.Kind,
		Hash:        hashPayload(payload),
		Payload:     payload,
		Counts:      counts,
		CollectedAt: s.now().UTC(),
	}, nil
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
