// Package jobs loads the graph snapshot jobs declared in YAML/JSON files.
package jobs

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samvad-hq/samvad-graph-harvester/pkg/querystring"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/registryfile"
)

const (
	// KindNodes snapshots the filtered node graph.
	KindNodes = "nodes"
	// KindDefinitions snapshots the graph definitions available for a resource.
	KindDefinitions = "definitions"
	// KindDefinition snapshots a single pre-built graph.
	KindDefinition = "definition"
)

// Job describes one graph query executed on every harvest pass.
type Job struct {
	ID         string         `json:"id" yaml:"id"`
	Name       string         `json:"name" yaml:"name"`
	Kind       string         `json:"kind" yaml:"kind"`
	Params     map[string]any `json:"params" yaml:"params"`
	ResourceID string         `json:"resource_id" yaml:"resource_id"`
	Definition string         `json:"definition" yaml:"definition"`
	Enabled    *bool          `json:"enabled" yaml:"enabled"`
}

// QueryParameters returns the node filters, or nil when none are configured.
func (j Job) QueryParameters() querystring.Parameters {
	if len(j.Params) == 0 {
		return nil
	}
	return querystring.Parameters(j.Params)
}

// EnabledValue returns enabled flag defaulting to true.
func (j Job) EnabledValue() bool {
	if j.Enabled == nil {
		return true
	}
	return *j.Enabled
}

type jobsFile struct {
	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// Registry holds the validated jobs loaded from a file.
type Registry struct {
	mu   sync.RWMutex
	jobs []Job
	idx  map[string]Job
}

// LoadRegistry loads the jobs registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	var parsed jobsFile
	if err := registryfile.Load(path, "jobs", &parsed); err != nil {
		return nil, err
	}
	return NewRegistry(parsed.Jobs)
}

// NewRegistry validates jobs and indexes them by id.
func NewRegistry(jobs []Job) (*Registry, error) {
	if len(jobs) == 0 {
		return nil, errors.New("jobs file contains no jobs entries")
	}

	reg := &Registry{
		jobs: make([]Job, len(jobs)),
		idx:  make(map[string]Job, len(jobs)),
	}
	for i := range jobs {
		j := sanitizeJob(jobs[i])
		if err := validateJob(j); err != nil {
			return nil, fmt.Errorf("jobs[%d]: %w", i, err)
		}
		if _, exists := reg.idx[j.ID]; exists {
			return nil, fmt.Errorf("duplicate job id %q", j.ID)
		}
		reg.jobs[i] = j
		reg.idx[j.ID] = j
	}
	return reg, nil
}

func sanitizeJob(j Job) Job {
	j.ID = strings.TrimSpace(j.ID)
	j.Name = strings.TrimSpace(j.Name)
	j.Kind = strings.ToLower(strings.TrimSpace(j.Kind))
	j.ResourceID = strings.TrimSpace(j.ResourceID)
	j.Definition = strings.TrimSpace(j.Definition)
	if j.Name == "" {
		j.Name = j.ID
	}
	if j.Enabled == nil {
		def := true
		j.Enabled = &def
	}
	return j
}

func validateJob(j Job) error {
	if j.ID == "" {
		return errors.New("id is required")
	}
	switch j.Kind {
	case KindNodes:
	case KindDefinitions:
		if j.ResourceID == "" {
			return fmt.Errorf("resource_id is required for job %q", j.ID)
		}
	case KindDefinition:
		if j.Definition == "" {
			return fmt.Errorf("definition is required for job %q", j.ID)
		}
	case "":
		return fmt.Errorf("kind is required for job %q", j.ID)
	default:
		return fmt.Errorf("unsupported kind %q for job %q", j.Kind, j.ID)
	}
	return nil
}

// All returns all configured jobs.
func (r *Registry) All() []Job {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// Enabled returns jobs that are enabled.
func (r *Registry) Enabled() []Job {
	all := r.All()
	if len(all) == 0 {
		return nil
	}
	out := make([]Job, 0, len(all))
	for _, j := range all {
		if j.EnabledValue() {
			out = append(out, j)
		}
	}
	return out
}

// ByID returns the job with the given id.
func (r *Registry) ByID(id string) (Job, bool) {
	if r == nil {
		return Job{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Job{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.idx[id]
	return j, ok
}
