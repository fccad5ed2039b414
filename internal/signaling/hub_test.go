package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newHubServer(t *testing.T, opts Options) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(NewRelay(nil, nil), opts)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		_ = hub.ServeWS(w, r, q.Get("user"), q.Get("device"))
	}))
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, ReadyData) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	ev := readEvent(t, conn)
	var ready ReadyData
	if ev.Op != OpReady || json.Unmarshal(ev.Data, &ready) != nil || ready.ConnID == "" {
		t.Fatalf("first event = %+v", ev)
	}
	return conn, ready
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	return ev
}

// readUntil skips events until one with op arrives.
func readUntil(t *testing.T, conn *websocket.Conn, op string) Event {
	t.Helper()
	for i := 0; i < 20; i++ {
		if ev := readEvent(t, conn); ev.Op == op {
			return ev
		}
	}
	t.Fatalf("no %s event", op)
	return Event{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met")
}

func TestHub_RelayBetweenConnections(t *testing.T) {
	hub, srv := newHubServer(t, Options{})
	a, readyA := dial(t, srv, "user=u1")
	b, _ := dial(t, srv, "user=u2")

	_ = a.WriteJSON(Event{Op: OpJoin, CallID: "call-1"})
	readUntil(t, a, OpJoined)
	_ = b.WriteJSON(Event{Op: OpJoin, CallID: "call-1"})
	readUntil(t, b, OpJoined)
	readUntil(t, a, OpPeerJoined)

	_ = a.WriteJSON(Event{Op: OpOffer, CallID: "call-1", Data: offer("v=0")})
	got := readUntil(t, b, OpOffer)
	if got.From != readyA.ConnID {
		t.Fatalf("offer from %q; want %q", got.From, readyA.ConnID)
	}

	_ = a.Close()
	left := readUntil(t, b, OpParticipantLeft)
	if left.From != readyA.ConnID {
		t.Fatalf("participant_left from %q", left.From)
	}
	waitFor(t, func() bool { return hub.Online("u1") == 0 })
	if hub.relay.Registry().Size("call-1") != 1 {
		t.Fatalf("room size = %d; want 1", hub.relay.Registry().Size("call-1"))
	}
}

func TestHub_PublishAndDeviceDelivery(t *testing.T) {
	hub, srv := newHubServer(t, Options{})
	phone, _ := dial(t, srv, "user=u1&device=tok-phone")
	laptop, _ := dial(t, srv, "user=u1")
	if hub.Online("u1") != 2 {
		t.Fatalf("online = %d", hub.Online("u1"))
	}

	hub.PublishToUser("u1", "message", map[string]string{"id": "m1"})
	for _, c := range []*websocket.Conn{phone, laptop} {
		if ev := readEvent(t, c); ev.Op != "message" || !strings.Contains(string(ev.Data), "m1") {
			t.Fatalf("published event = %+v", ev)
		}
	}

	if !hub.DeliverToDevice("tok-phone", "push", map[string]string{"title": "hi"}) {
		t.Fatalf("device delivery failed")
	}
	if ev := readEvent(t, phone); ev.Op != "push" {
		t.Fatalf("device event = %+v", ev)
	}
	if hub.DeliverToDevice("tok-unknown", "push", nil) {
		t.Fatalf("unknown device reported delivered")
	}
}

func TestHub_HeartbeatAndErrors(t *testing.T) {
	_, srv := newHubServer(t, Options{})
	c, _ := dial(t, srv, "user=u1")

	_ = c.WriteJSON(Event{Op: OpHeartbeat})
	if ev := readEvent(t, c); ev.Op != OpHeartbeatAck {
		t.Fatalf("heartbeat reply = %+v", ev)
	}

	_ = c.WriteMessage(websocket.TextMessage, []byte("{nope"))
	var e ErrorData
	if ev := readEvent(t, c); ev.Op != OpError || json.Unmarshal(ev.Data, &e) != nil || e.Code != CodeBadRequest {
		t.Fatalf("bad json reply = %+v", ev)
	}
}

func TestHub_RateLimitsRelayedOps(t *testing.T) {
	_, srv := newHubServer(t, Options{RelayRPS: 0.001, RelayBurst: 2})
	c, _ := dial(t, srv, "user=u1")
	_ = c.WriteJSON(Event{Op: OpJoin, CallID: "call-1"})
	readUntil(t, c, OpJoined)

	for i := 0; i < 3; i++ {
		_ = c.WriteJSON(Event{Op: OpIceCandidate, CallID: "call-1", Data: json.RawMessage(`{"candidate":"c"}`)})
	}
	ev := readUntil(t, c, OpError)
	var e ErrorData
	if json.Unmarshal(ev.Data, &e) != nil || e.Code != CodeRateLimited {
		t.Fatalf("error = %+v", e)
	}
}

func TestHub_CheckOrigin(t *testing.T) {
	hub := NewHub(nil, Options{AllowedOrigins: []string{"https://app.example.com"}})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if !hub.checkOrigin(req) {
		t.Fatalf("requests without Origin must pass")
	}
	req.Header.Set("Origin", "https://APP.example.com")
	if !hub.checkOrigin(req) {
		t.Fatalf("allowed origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example.com")
	if hub.checkOrigin(req) {
		t.Fatalf("foreign origin accepted")
	}
	open := NewHub(nil, Options{AllowedOrigins: []string{"*"}})
	if !open.checkOrigin(req) {
		t.Fatalf("wildcard must allow all")
	}
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	hub, srv := newHubServer(t, Options{})
	c, _ := dial(t, srv, "user=u1")
	hub.Shutdown()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	if hub.Online("u1") != 0 {
		t.Fatalf("connections left after shutdown")
	}
}

func TestHub_DroppedClientLeavesNoRoom(t *testing.T) {
	hub := NewHub(NewRelay(nil, nil), Options{})
	rooms := hub.relay.Registry()
	c := &Client{hub: hub, id: "conn-1", userID: "u1", send: make(chan []byte, 8)}
	hub.add(c)

	// Dropped on a full send buffer while the read loop still holds frames.
	hub.remove(c)
	if c.dispatch(context.Background(), Event{Op: OpJoin, CallID: "call-1"}) {
		t.Fatalf("dispatch accepted a frame for a dropped client")
	}
	if rooms.Rooms() != 0 {
		t.Fatalf("dropped client joined a room")
	}

	// A join that slipped in between the check and the drop is undone by
	// the read loop's final cleanup.
	hub.relay.Handle(context.Background(), c, Event{Op: OpJoin, CallID: "call-1"})
	if rooms.Size("call-1") != 1 {
		t.Fatalf("setup: size = %d", rooms.Size("call-1"))
	}
	hub.release(c)
	if rooms.Rooms() != 0 || rooms.Size("call-1") != 0 || len(rooms.RoomsOf("conn-1")) != 0 {
		t.Fatalf("room leaked: rooms=%d size=%d of=%v", rooms.Rooms(), rooms.Size("call-1"), rooms.RoomsOf("conn-1"))
	}
	if hub.Online("u1") != 0 {
		t.Fatalf("client still registered")
	}
}
