// Package server exposes the ingestion and admin HTTP API: text ingestion,
// queue inspection, requeue, and live event streaming over SSE and
// websocket.
package server

import (
	"net/http"
	"strings"

	"github.com/worq1337/parcer-sub001/internal/eventlog"
	"github.com/worq1337/parcer-sub001/internal/extractor"
	"github.com/worq1337/parcer-sub001/internal/hub"
	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/pipeline"
	"github.com/worq1337/parcer-sub001/internal/storage"
)

// Server bundles the HTTP handlers over the pipeline and its stores.
type Server struct {
	coordinator *pipeline.Coordinator
	recorder    *eventlog.Recorder
	store       *storage.Storage
	hub         *hub.Hub
	registry    *extractor.Registry
	logger      logging.Logger
}

// New creates the server. registry may be nil when pool diagnostics are not
// wanted.
func New(coordinator *pipeline.Coordinator, recorder *eventlog.Recorder, store *storage.Storage, h *hub.Hub, registry *extractor.Registry, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Server{
		coordinator: coordinator,
		recorder:    recorder,
		store:       store,
		hub:         h,
		registry:    registry,
		logger:      logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ingest/text", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleIngestText(w, r)
	})

	mux.HandleFunc("/api/checks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleListChecks(w, r)
	})

	mux.HandleFunc("/api/checks/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		checkID := strings.TrimPrefix(r.URL.Path, "/api/checks/")
		if checkID == "" {
			writeError(w, http.StatusBadRequest, "check id is required")
			return
		}
		s.handleGetCheck(w, r, checkID)
	})

	mux.HandleFunc("/admin/queue", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleQueue(w, r)
	})

	mux.HandleFunc("/admin/queue/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleQueueStats(w, r)
	})

	mux.HandleFunc("/admin/queue/pool", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handlePool(w, r)
	})

	mux.HandleFunc("/admin/queue/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleStream(w, r)
	})

	mux.HandleFunc("/admin/queue/ws", func(w http.ResponseWriter, r *http.Request) {
		s.handleWebsocket(w, r)
	})

	// /admin/queue/{check_id}/events and /admin/queue/{check_id}/requeue
	mux.HandleFunc("/admin/queue/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/admin/queue/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		checkID, action := parts[0], parts[1]
		switch {
		case action == "events" && r.Method == http.MethodGet:
			s.handleCheckEvents(w, r, checkID)
		case action == "requeue" && r.Method == http.MethodPost:
			s.handleRequeue(w, r, checkID)
		default:
			writeError(w, http.StatusNotFound, "not found")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}
