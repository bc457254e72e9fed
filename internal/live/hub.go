// Package live fans freshly generated posts out to websocket subscribers.
package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/k-kitchen/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxInbound = 512
)

var (
	subscribersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kkitchen_live_subscribers",
		Help: "Connected live feed subscribers.",
	})
	droppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kkitchen_live_dropped_total",
		Help: "Subscribers disconnected because they fell behind.",
	})
)

func init() {
	prometheus.MustRegister(subscribersGauge, droppedTotal)
}

// Event is the message pushed to subscribers.
type Event struct {
	Type string       `json:"type"`
	Post *domain.Post `json:"post"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks subscribers and broadcasts posts to them. A subscriber whose
// buffer is full is disconnected rather than blocking Publish.
type Hub struct {
	// Buffer is the per-subscriber queue length.
	Buffer   int
	Upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

// NewHub returns a hub accepting any origin allowed by allowOrigin. A nil
// allowOrigin accepts all origins.
func NewHub(allowOrigin func(origin string) bool) *Hub {
	h := &Hub{
		Buffer: 16,
		subs:   make(map[*subscriber]struct{}),
	}
	h.Upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowOrigin == nil {
				return true
			}
			o := r.Header.Get("Origin")
			return o == "" || allowOrigin(o)
		},
	}
	return h
}

// Publish queues p for every subscriber.
func (h *Hub) Publish(p *domain.Post) {
	msg, err := json.Marshal(Event{Type: "post", Post: p})
	if err != nil {
		log.Error().Err(err).Str("post_id", p.ID).Msg("live: encode post")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.send <- msg:
		default:
			droppedTotal.Inc()
			h.removeLocked(s)
		}
	}
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request and streams events until the client goes
// away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("live: upgrade failed")
		return
	}
	s := &subscriber{conn: conn, send: make(chan []byte, max(h.Buffer, 1))}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.subs[s] = struct{}{}
	subscribersGauge.Inc()
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(s)
	}()
	h.readLoop(s)
	<-done
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.subs {
		h.removeLocked(s)
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *Hub) removeLocked(s *subscriber) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.send)
	subscribersGauge.Dec()
}

// readLoop only services control frames; clients have nothing to say.
func (h *Hub) readLoop(s *subscriber) {
	defer h.remove(s)
	s.conn.SetReadLimit(maxInbound)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
