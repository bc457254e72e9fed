package live

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"github.com/tbourn/k-kitchen/internal/domain"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastsToAllSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a, b := dial(t, srv), dial(t, srv)
	defer a.Close()
	defer b.Close()
	waitFor(t, func() bool { return hub.Len() == 2 })

	hub.Publish(&domain.Post{ID: "p1", Title: "Stew night", Tags: []domain.Tag{}})

	for _, c := range []*websocket.Conn{a, b} {
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.Type != "post" || ev.Post == nil || ev.Post.ID != "p1" {
			t.Fatalf("event = %+v", ev)
		}
	}

	hub.Close()
	waitFor(t, func() bool { return hub.Len() == 0 })
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c := dial(t, srv)
	waitFor(t, func() bool { return hub.Len() == 1 })
	_ = c.Close()
	waitFor(t, func() bool { return hub.Len() == 0 })

	// Publishing with nobody listening is a no-op.
	hub.Publish(&domain.Post{ID: "p2"})
	hub.Close()
}

func TestHub_SlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub(nil)
	s := &subscriber{send: make(chan []byte, 1)}
	hub.subs[s] = struct{}{}
	subscribersGauge.Inc()

	hub.Publish(&domain.Post{ID: "p1"})
	hub.Publish(&domain.Post{ID: "p2"})

	if hub.Len() != 0 {
		t.Fatalf("slow subscriber should be removed")
	}
	if _, ok := <-s.send; !ok {
		t.Fatalf("first message should still be queued")
	}
	if _, ok := <-s.send; ok {
		t.Fatalf("channel should be closed after drop")
	}
}

func TestHub_RejectsOriginAndClosedHub(t *testing.T) {
	hub := NewHub(func(o string) bool { return o == "https://ok.example" })
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	hdr := map[string][]string{"Origin": {"https://evil.example"}}
	if _, resp, err := websocket.DefaultDialer.Dial(url, hdr); err == nil || resp == nil || resp.StatusCode != 403 {
		t.Fatalf("expected 403 for disallowed origin, got %v", err)
	}

	hub.Close()
	c := dial(t, srv)
	defer c.Close()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := c.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going-away close, got %v", err)
	}
}
