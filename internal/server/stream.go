package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/worq1337/parcer-sub001/internal/hub"
)

// handleStream serves the SSE feed. The first frame is always
// {"type":"connected"} so clients can confirm the subscription before any
// pipeline event arrives.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, cancel := s.hub.Subscribe()
	defer cancel()

	if err := writeSSE(w, hub.Event{Type: hub.EventConnected, Timestamp: time.Now()}); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSE(w, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event hub.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
