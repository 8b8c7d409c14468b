package harvest

import (
	"context"

	"github.com/samvad-hq/samvad-graph-harvester/internal/storage"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/graph"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/publishers"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/querystring"
)

// GraphQuerier is the graph client surface the harvester drives.
type GraphQuerier interface {
	FetchGraphNodes(ctx context.Context, params querystring.Parameters) (graph.NodesResponse, bool)
	FetchGraphDefinitionsByResourceID(ctx context.Context, id string) graph.DefinitionsResponse
	FetchDefinitionData(ctx context.Context, definition string) graph.PreFabGraph
}

// EventPublisher publishes snapshot events downstream and reports how many sinks accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// SnapshotStore remembers the last published snapshot per job.
type SnapshotStore interface {
	Changed(jobID, hash string) (bool, error)
	Save(rec storage.Record) error
}
