package fanout

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	v1 "github.com/drlau/megumin.love/internal/api/v1"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long a subscriber may stay silent. The ping
	// period leaves enough slack for the pong to come back before the
	// read deadline fires.
	pongWait     = 60 * time.Second
	pingPeriod   = 25 * time.Second
	pingDeadline = 5 * time.Second

	// maxEventBytes caps inbound frames; client events are tiny.
	maxEventBytes = 512
)

// Board is the aggregate the inbound client events act on.
type Board interface {
	RecordClick()
	RecordPlay(filename string) bool
	Snapshot() (total int64, stats v1.Statistics, sounds []v1.Sound)
}

// RegisterRoutes registers the WebSocket endpoint.
func (h *Hub) RegisterRoutes(r gin.IRouter, board Board) {
	r.GET("/ws", h.serveWS(board))
}

func (h *Hub) serveWS(board Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			slog.Warn("[Fanout] WebSocket upgrade failed", "remote", c.ClientIP(), "error", err)
			return
		}

		sub := &subscriber{id: uuid.New(), send: make(chan []byte, sendBuffer)}
		if !h.register(sub) {
			conn.Close()
			return
		}

		// Every subscriber starts from a full snapshot so the client
		// renders without an extra REST round-trip.
		total, stats, sounds := board.Snapshot()
		if payload, err := json.Marshal(v1.SnapshotNotification(total, stats, sounds)); err == nil {
			h.queue(sub, payload)
		}

		slog.Info("[Fanout] Subscriber connected", "subscriber", sub.id, "remote", c.ClientIP())

		go h.writePump(conn, sub)
		h.readPump(conn, sub, board)
	}
}

// readPump consumes client events until the connection dies. It owns
// the read deadline: every pong extends it, so a silent peer is
// dropped one missed ping later.
func (h *Hub) readPump(conn *websocket.Conn, sub *subscriber, board Board) {
	defer func() {
		h.unregister(sub)
		conn.Close()
	}()

	conn.SetReadLimit(maxEventBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("[Fanout] Subscriber read ended", "subscriber", sub.id, "error", err)
			}
			return
		}
		h.handleEvent(payload, board)
	}
}

// handleEvent applies one inbound client event. Malformed or unknown
// events are dropped silently so clients can evolve ahead of the
// server.
func (h *Hub) handleEvent(payload []byte, board Board) {
	var event v1.ClientEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		slog.Debug("[Fanout] Ignoring malformed client event", "error", err)
		return
	}

	switch event.Type {
	case v1.ClientClick:
		board.RecordClick()
		h.metrics.ClickEvent()
	case v1.ClientPlay:
		if event.Sound == nil || event.Sound.Filename == "" {
			return
		}
		if board.RecordPlay(event.Sound.Filename) {
			h.metrics.PlayEvent()
		}
	}
}

// writePump owns the socket for writes: queued notifications, pings,
// and the close frame once the subscriber is dropped.
func (h *Hub) writePump(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingDeadline)); err != nil {
				return
			}
		}
	}
}
