package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-graph-harvester/internal/config"
	"github.com/samvad-hq/samvad-graph-harvester/internal/logger"
	"github.com/samvad-hq/samvad-graph-harvester/internal/storage"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/jobs"
	"github.com/samvad-hq/samvad-graph-harvester/pkg/publishers"
)

type sink struct {
	mu     sync.Mutex
	events []publishers.Event
}

func (s *sink) handler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var evt publishers.Event
		if err := json.Unmarshal(body, &evt); err != nil {
			t.Errorf("decode event: %v", err)
		}
		s.mu.Lock()
		s.events = append(s.events, evt)
		s.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *sink) kinds() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, evt := range s.events {
		out[evt.Kind]++
	}
	return out
}

func newGraphBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/graphs/nodes/nodes", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.RawQuery; got != "limit=10" {
			t.Errorf("unexpected nodes query %q", got)
		}
		_, _ = w.Write([]byte(`{"vertices":[{"id":"v1"},{"id":"v2"}],"edges":[{"id":"e1"}]}`))
	})
	mux.HandleFunc("/rest/graphs/for/node-1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":["nodes","vmware"]}`))
	})
	mux.HandleFunc("/rest/graphs/nodes", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"graphs":[{"id":"nodes"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig(t *testing.T, backendURL, sinkURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	jobsFile := writeFile(t, dir, "jobs.yaml", `
jobs:
  - id: topology
    kind: nodes
    params:
      limit: 10
  - id: node-1-graphs
    kind: definitions
    resource_id: node-1
  - id: nodes-prefab
    kind: definition
    definition: nodes
  - id: disabled
    kind: definition
    definition: other
    enabled: false
`)
	publishersFile := writeFile(t, dir, "publishers.yaml", `
publishers:
  - id: sink
    type: http
    http:
      url: `+sinkURL+`
`)

	return &config.Config{
		JobsFile:               jobsFile,
		PublishersFile:         publishersFile,
		SnapshotInterval:       time.Hour,
		V2BaseURL:              backendURL + "/api/v2",
		RestBaseURL:            backendURL + "/rest",
		HTTPTimeout:            2 * time.Second,
		BreakerMaxFailures:     3,
		BreakerOpenTimeout:     time.Second,
		StorageType:            "bbolt",
		BBoltPath:              filepath.Join(dir, "snapshots.db"),
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
	}
}

func TestCollectorPublishesEachEnabledJob(t *testing.T) {
	backend := newGraphBackend(t)
	s := &sink{}
	sinkSrv := httptest.NewServer(s.handler(t))
	defer sinkSrv.Close()

	cfg := testConfig(t, backend.URL, sinkSrv.URL)
	collector, err := NewCollector(context.Background(), cfg, logger.NopLogger{})
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	if err := collector.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	kinds := s.kinds()
	if s.count() != 3 || kinds["nodes"] != 1 || kinds["definitions"] != 1 || kinds["definition"] != 1 {
		t.Fatalf("unexpected events: %v", kinds)
	}
}

func TestCollectorSkipsUnchangedSnapshots(t *testing.T) {
	backend := newGraphBackend(t)
	s := &sink{}
	sinkSrv := httptest.NewServer(s.handler(t))
	defer sinkSrv.Close()

	cfg := testConfig(t, backend.URL, sinkSrv.URL)
	for i := 0; i < 2; i++ {
		collector, err := NewCollector(context.Background(), cfg, nil)
		if err != nil {
			t.Fatalf("NewCollector pass %d: %v", i, err)
		}
		if err := collector.Run(context.Background()); err != nil {
			t.Fatalf("Run pass %d: %v", i, err)
		}
	}

	if got := s.count(); got != 3 {
		t.Fatalf("expected 3 events across both passes, got %d", got)
	}
}

func TestCollectorReportsBackendFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()
	s := &sink{}
	sinkSrv := httptest.NewServer(s.handler(t))
	defer sinkSrv.Close()

	cfg := testConfig(t, backend.URL, sinkSrv.URL)
	collector, err := NewCollector(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	err = collector.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error when backend fails")
	}
	if !strings.Contains(err.Error(), "topology") || !strings.Contains(err.Error(), "nodes-prefab") {
		t.Fatalf("expected failing job ids in error, got %v", err)
	}
	if s.count() != 0 {
		t.Fatalf("expected no events, got %d", s.count())
	}
}

func TestNewCollectorRejectsMissingJobsFile(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	cfg.JobsFile = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := NewCollector(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for missing jobs file")
	}
}

func TestNewHarvesterRejectsNilConfig(t *testing.T) {
	if _, err := NewHarvester(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestHarvesterRunsInitialPassAndStops(t *testing.T) {
	backend := newGraphBackend(t)
	s := &sink{}
	sinkSrv := httptest.NewServer(s.handler(t))
	defer sinkSrv.Close()

	cfg := testConfig(t, backend.URL, sinkSrv.URL)
	h, err := NewHarvester(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewHarvester: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for s.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("harvester did not stop after cancel")
	}
	if got := s.count(); got != 3 {
		t.Fatalf("expected 3 events from initial pass, got %d", got)
	}
}

type slowStatus struct {
	finished atomic.Bool
}

func (s *slowStatus) Run(ctx context.Context) error {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	s.finished.Store(true)
	return nil
}

type orderedStore struct {
	storage.Store
	status          *slowStatus
	closedBeforeEnd atomic.Bool
	closed          atomic.Bool
}

func (s *orderedStore) Close() error {
	if !s.status.finished.Load() {
		s.closedBeforeEnd.Store(true)
	}
	s.closed.Store(true)
	return nil
}

func TestHarvesterClosesStoreAfterStatusServerStops(t *testing.T) {
	disabled := false
	reg, err := jobs.NewRegistry([]jobs.Job{{ID: "idle", Kind: jobs.KindDefinition, Definition: "nodes", Enabled: &disabled}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	st := &slowStatus{}
	store := &orderedStore{status: st}

	h := &Harvester{
		cfg:      &config.Config{},
		rt:       &runtime{jobs: reg, fanout: publishers.NewFanout(nil), store: store},
		interval: time.Hour,
		status:   st,
		log:      logger.NopLogger{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("harvester did not stop")
	}
	if !store.closed.Load() {
		t.Fatalf("expected store to be closed")
	}
	if store.closedBeforeEnd.Load() {
		t.Fatalf("store closed while the status server was still shutting down")
	}
}
