package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/handvolume/internal/telemetry"
)

// writeWait bounds each websocket write.
const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// TelemetryHandler streams control frames to websocket clients as JSON.
type TelemetryHandler struct {
	hub *telemetry.Hub
	log *zap.Logger
}

// NewTelemetryHandler creates a new TelemetryHandler publishing from hub.
func NewTelemetryHandler(hub *telemetry.Hub, log *zap.Logger) *TelemetryHandler {
	return &TelemetryHandler{hub: hub, log: log}
}

// ServeHTTP upgrades the request and forwards frames until the client goes
// away. A slow client misses frames rather than stalling the control loop.
func (h *TelemetryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe()
	defer sub.Close()

	// The read side only detects disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if f, ok := h.hub.Latest(); ok {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(f); err != nil {
			return
		}
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case f, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				h.log.Debug("websocket write", zap.Error(err))
				return
			}
		}
	}
}
