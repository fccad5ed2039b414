package signaling

import (
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tbourn/gym-realtime/internal/observability"
)

// Options tunes the websocket side.
type Options struct {
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int
	// RelayRPS and RelayBurst bound relayed messages per connection.
	// RelayRPS <= 0 disables the limit.
	RelayRPS   float64
	RelayBurst int
	// AllowedOrigins restricts browser origins; empty or "*" allows all.
	AllowedOrigins []string
}

// Hub tracks open connections by user and by device token. It is the
// realtime event publisher for the services and the device channel of the
// in-app push provider.
type Hub struct {
	relay    *Relay
	opts     Options
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	byUser   map[string]map[*Client]struct{}
	byDevice map[string]*Client
}

// NewHub returns a Hub dispatching client events to relay.
func NewHub(relay *Relay, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.RelayBurst <= 0 {
		opts.RelayBurst = 100
	}
	h := &Hub{
		relay:    relay,
		opts:     opts,
		byUser:   make(map[string]map[*Client]struct{}),
		byDevice: make(map[string]*Client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 || slices.Contains(h.opts.AllowedOrigins, "*") {
		return true
	}
	return slices.ContainsFunc(h.opts.AllowedOrigins, func(o string) bool {
		return strings.EqualFold(o, origin)
	})
}

// ServeWS upgrades the request and serves the connection until it closes.
// userID must already be authenticated; device is the optional push token
// of this device. On upgrade failure the upgrader has already replied.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID, device string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{
		hub:    h,
		conn:   conn,
		id:     uuid.NewString(),
		userID: userID,
		device: device,
		send:   make(chan []byte, h.opts.SendBuffer),
	}
	if h.opts.RelayRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(h.opts.RelayRPS), h.opts.RelayBurst)
	}
	h.add(c)
	c.Send(Event{Op: OpReady, Data: encode(ReadyData{ConnID: c.id, UserID: userID})})

	go c.WritePump()
	c.ReadPump(r.Context())
	return nil
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	set, ok := h.byUser[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.byUser[c.userID] = set
	}
	set[c] = struct{}{}
	if c.device != "" {
		h.byDevice[c.device] = c
	}
	n := len(set)
	h.mu.Unlock()

	observability.WSConnections.Inc()
	log.Debug().Str("conn_id", c.id).Str("user_id", c.userID).Int("user_connections", n).Msg("ws connected")
}

// remove unregisters c once, closes its queue and leaves its rooms.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	set, ok := h.byUser[c.userID]
	if _, member := set[c]; !ok || !member {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.byUser, c.userID)
	}
	if c.device != "" && h.byDevice[c.device] == c {
		delete(h.byDevice, c.device)
	}
	h.mu.Unlock()

	c.close()
	h.relay.OnDisconnect(c)
	observability.WSConnections.Dec()
	log.Debug().Str("conn_id", c.id).Str("user_id", c.userID).Msg("ws disconnected")
}

// release is the read loop's final cleanup. remove may already have run
// while frames were still being handled, so room cleanup runs again
// unconditionally.
func (h *Hub) release(c *Client) {
	h.remove(c)
	h.relay.OnDisconnect(c)
}

// PublishToUser sends an event to every open connection of userID.
func (h *Hub) PublishToUser(userID, event string, data any) {
	ev := Event{Op: event, Data: encode(data)}
	for _, c := range h.clientsOf(userID) {
		c.Send(ev)
	}
}

// DeliverToDevice sends an event to the connection registered for token.
func (h *Hub) DeliverToDevice(token, event string, data any) bool {
	h.mu.RLock()
	c, ok := h.byDevice[token]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return c.Send(Event{Op: event, Data: encode(data)})
}

// Online returns the number of open connections of userID.
func (h *Hub) Online(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

// Shutdown closes every connection.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	var all []*Client
	for _, set := range h.byUser {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range all {
		h.remove(c)
	}
	log.Info().Int("connections", len(all)).Msg("ws hub shut down")
}

func (h *Hub) clientsOf(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		out = append(out, c)
	}
	return out
}
