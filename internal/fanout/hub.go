// Package fanout pushes board notifications to WebSocket subscribers
// and feeds inbound client events back into the board.
package fanout

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	v1 "github.com/drlau/megumin.love/internal/api/v1"
)

const sendBuffer = 64

// Metrics receives fan-out activity for observability.
type Metrics interface {
	SubscribersChanged(active int)
	ClickEvent()
	PlayEvent()
}

type nopMetrics struct{}

func (nopMetrics) SubscribersChanged(int) {}
func (nopMetrics) ClickEvent()            {}
func (nopMetrics) PlayEvent()             {}

// subscriber is one connected client. Its send channel is the only way
// bytes reach the connection; the write pump owns the socket.
type subscriber struct {
	id   uuid.UUID
	send chan []byte
}

// Hub fans notifications out to every connected subscriber. Broadcast
// never blocks the caller: a subscriber that cannot drain its buffer is
// evicted so one slow client cannot stall the board.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*subscriber
	closed      bool

	upgrader websocket.Upgrader
	metrics  Metrics
}

func NewHub(m Metrics) *Hub {
	if m == nil {
		m = nopMetrics{}
	}
	return &Hub{
		subscribers: make(map[uuid.UUID]*subscriber),
		metrics:     m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// Broadcast encodes the notification once and hands it to every
// subscriber. Callers may hold locks: the per-subscriber send is
// non-blocking and overflowing subscribers are dropped afterwards.
func (h *Hub) Broadcast(n v1.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		slog.Error("[Fanout] Could not encode notification", "type", n.Type, "error", err)
		return
	}

	var evicted []*subscriber
	h.mu.RLock()
	for _, sub := range h.subscribers {
		select {
		case sub.send <- payload:
		default:
			evicted = append(evicted, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range evicted {
		slog.Warn("[Fanout] Evicting subscriber with full buffer", "subscriber", sub.id)
		h.unregister(sub)
	}
}

// Count reports the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close evicts every subscriber and refuses new registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for _, sub := range h.subscribers {
		close(sub.send)
	}
	h.subscribers = make(map[uuid.UUID]*subscriber)
	h.metrics.SubscribersChanged(0)

	slog.Info("[Fanout] Hub closed")
}

// queue hands one payload to a subscriber if it is still registered.
// Membership and channel close are guarded by the same lock, so a send
// here cannot race a close.
func (h *Hub) queue(sub *subscriber, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.subscribers[sub.id]; !ok {
		return false
	}
	select {
	case sub.send <- payload:
		return true
	default:
		return false
	}
}

func (h *Hub) register(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.subscribers[sub.id] = sub
	h.metrics.SubscribersChanged(len(h.subscribers))
	return true
}

// unregister is idempotent: the read pump, the write pump and a
// broadcast eviction can all race to drop the same subscriber.
func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub.id]; !ok {
		return
	}
	delete(h.subscribers, sub.id)
	close(sub.send)
	h.metrics.SubscribersChanged(len(h.subscribers))
}
