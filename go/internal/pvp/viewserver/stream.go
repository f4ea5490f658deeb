package viewserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// HandleViewStream upgrades to a WebSocket and pushes every new view as a
// JSON text frame. The first frame is the current view.
func (h *Handler) HandleViewStream(w http.ResponseWriter, r *http.Request) {
	// Subscribe first so no view rendered during the handshake is missed.
	views, cancel := h.engine.Subscribe()
	defer cancel()

	upgrader := h.config.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade view stream")
		return
	}

	streamID := uuid.NewString()

	log.Info().Str("stream_id", streamID).Str("remote_addr", r.RemoteAddr).Msg("view stream opened")
	defer log.Info().Str("stream_id", streamID).Msg("view stream closed")

	// Reads only detect the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case view, ok := <-views:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(view); err != nil {
				log.Error().Err(err).Str("stream_id", streamID).Msg("failed to write view")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("stream_id", streamID).Msg("failed to send ping")
				return
			}

		case <-gone:
			return

		case <-r.Context().Done():
			return
		}
	}
}
