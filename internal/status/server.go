// Package status exposes a read-only HTTP view of the harvester's stored snapshots.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/samvad-hq/samvad-graph-harvester/internal/logger"
	"github.com/samvad-hq/samvad-graph-harvester/internal/storage"
)

// SnapshotReader looks up the latest stored snapshot for a job.
type SnapshotReader interface {
	Latest(jobID string) (storage.Record, bool, error)
}

// Server serves health and snapshot lookups.
type Server struct {
	srv *http.Server
	log logger.Logger
}

// NewRouter builds the status routes.
func NewRouter(store SnapshotReader, log logger.Logger) *mux.Router {
	if log == nil {
		log = logger.NopLogger{}
	}
	h := &handler{store: store, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/snapshots/{jobID}", h.snapshot).Methods(http.MethodGet)
	return r
}

// NewServer builds a status server listening on addr.
func NewServer(addr string, store SnapshotReader, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(store, log),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("status server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

type handler struct {
	store SnapshotReader
	log   logger.Logger
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) snapshot(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]
	if h.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "snapshot storage disabled"})
		return
	}

	rec, ok, err := h.store.Latest(jobID)
	if err != nil {
		h.log.ErrorObj("snapshot lookup failed", "status_error", map[string]any{
			"job_id": jobID,
			"error":  err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "snapshot lookup failed"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot for job"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
