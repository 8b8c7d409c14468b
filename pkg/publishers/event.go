package publishers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-graph-harvester/internal/domain"
)

// Event represents the payload published downstream when a job's graph changes.
type Event struct {
	ID          string          `json:"id"`
	JobID       string          `json:"job_id"`
	JobName     string          `json:"job_name"`
	Kind        string          `json:"kind"`
	Hash        string          `json:"hash"`
	Counts      domain.Counts   `json:"counts"`
	Payload     json.RawMessage `json:"payload"`
	CollectedAt time.Time       `json:"collected_at"`
}

// NewEvent constructs an Event for the given snapshot.
func NewEvent(snap domain.Snapshot) Event {
	collected := snap.CollectedAt
	if collected.IsZero() {
		collected = time.Now()
	}
	return Event{
		ID:          uuid.NewString(),
		JobID:       snap.JobID,
		JobName:     snap.JobName,
		Kind:        snap.Kind,
		Hash:        snap.Hash,
		Counts:      snap.Counts,
		Payload:     snap.Payload,
		CollectedAt: collected.UTC(),
	}
}

// IdempotencyKey identifies the snapshot content of one job. Redelivering the
// same snapshot yields the same key, so sinks can drop duplicates.
func (e Event) IdempotencyKey() string {
	return e.JobID + ":" + e.Hash
}

// attributes are the routing attributes attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_id": e.ID,
		"job_id":   e.JobID,
		"kind":     e.Kind,
		"hash":     e.Hash,
	}
}

// eventPathParams lists the URL placeholders an HTTP sink may route on.
var eventPathParams = map[string]func(Event) string{
	"job_id": func(e Event) string { return e.JobID },
	"kind":   func(e Event) string { return e.Kind },
}

func (e Event) pathParams() map[string]string {
	out := make(map[string]string, len(eventPathParams))
	for name, value := range eventPathParams {
		out[name] = value(e)
	}
	return out
}
