package domain

import (
	"encoding/json"
	"time"
)

// Domain contains core models shared by the harvester components.

// Counts summarizes the size of a snapshot payload.
type Counts struct {
	Vertices    int `json:"vertices,omitempty"`
	Edges       int `json:"edges,omitempty"`
	Definitions int `json:"definitions,omitempty"`
}

// Snapshot is one successful graph query result for a job.
type Snapshot struct {
	JobID       string
	JobName     string
	Kind        string
	Hash        string
	Payload     json.RawMessage
	Counts      Counts
	CollectedAt time.Time
}
