package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/worq1337/parcer-sub001/internal/hub"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The admin API sits behind a trusted reverse proxy.
		return true
	},
}

// handleWebsocket serves the same event feed as the SSE stream over a
// websocket, for clients that keep a bidirectional connection open.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	events, cancel := s.hub.Subscribe()

	// Reader goroutine: inbound frames are discarded, but reading is what
	// detects a closed peer.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go s.writePump(conn, events, cancel)
}

func (s *Server) writePump(conn *websocket.Conn, events <-chan hub.Event, cancel func()) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
	}()

	connected := hub.Event{Type: hub.EventConnected, Timestamp: time.Now()}
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(connected); err != nil {
		return
	}

	for {
		select {
		case event, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
