package signaling

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tbourn/gym-realtime/internal/observability"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
	// pongWait is how long a silent connection stays open.
	pongWait = 60 * time.Second
	// pingPeriod must stay below pongWait.
	pingPeriod = pongWait * 9 / 10
	// maxMessageSize fits SDP offers with many codecs.
	maxMessageSize = 64 << 10
)

// Client is one websocket connection. Outbound events go through a buffered
// queue drained by WritePump, the only goroutine writing to the socket, so a
// peer receives events in the order they were queued.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	id      string
	userID  string
	device  string
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// ID implements Peer.
func (c *Client) ID() string { return c.id }

// UserID implements Peer.
func (c *Client) UserID() string { return c.userID }

// Send implements Peer. A full queue drops the connection.
func (c *Client) Send(ev Event) bool {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Warn().Err(err).Str("op", ev.Op).Msg("marshal ws event")
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		log.Warn().Str("conn_id", c.id).Str("user_id", c.userID).Msg("send buffer full, dropping connection")
		go c.hub.remove(c)
		return false
	}
}

// close stops the write queue. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ReadPump reads client events until the connection fails and then
// releases the client, which runs the relay's disconnect cleanup.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.release(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn_id", c.id).Msg("unexpected ws close")
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			sendError(c, "", CodeBadRequest, "invalid json")
			continue
		}
		if ev.Op == OpHeartbeat {
			_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		}
		if !c.dispatch(ctx, ev) {
			return
		}
	}
}

// dispatch handles one event read from the socket. It reports false once
// the client has been dropped; frames still buffered after that are ignored
// so a dropped client never re-enters a room.
func (c *Client) dispatch(ctx context.Context, ev Event) bool {
	if c.isClosed() {
		return false
	}
	switch ev.Op {
	case OpHeartbeat:
		c.Send(Event{Op: OpHeartbeatAck})
		return true
	case OpOffer, OpAnswer, OpIceCandidate:
		if c.limiter != nil && !c.limiter.Allow() {
			observability.RateLimited.WithLabelValues("ws").Inc()
			sendError(c, ev.CallID, CodeRateLimited, "too many signaling messages")
			return true
		}
	}
	c.hub.relay.Handle(ctx, c, ev)
	return true
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
