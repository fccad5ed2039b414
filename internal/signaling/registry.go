package signaling

import (
	"hash/fnv"
	"sync"

	"github.com/tbourn/gym-realtime/internal/observability"
)

// Peer is one connected device.
type Peer interface {
	// ID is the connection id relayed messages are tagged with.
	ID() string
	UserID() string
	// Send queues ev for the connection and reports whether it was accepted.
	// Events sent to one peer are delivered in the order Send is called.
	Send(ev Event) bool
}

const shardCount = 64

type shard struct {
	mu    sync.Mutex
	rooms map[string]map[string]Peer
}

// Registry is the in-memory room table. Rooms are spread over 64 shards by
// call id; every mutation of a room happens under its shard lock, and a room
// is deleted in the same critical section that removes its last member.
type Registry struct {
	shards [shardCount]shard

	// memberships maps a connection id to the rooms it is in. It is only
	// written while the corresponding shard lock is held.
	idxMu       sync.Mutex
	memberships map[string]map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{memberships: make(map[string]map[string]struct{})}
	for i := range r.shards {
		r.shards[i].rooms = make(map[string]map[string]Peer)
	}
	return r
}

func (r *Registry) shardFor(callID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(callID))
	return &r.shards[h.Sum32()%shardCount]
}

// Join adds p to callID's room. It returns the members that were already
// present and whether p was newly added.
func (r *Registry) Join(callID string, p Peer) (others []Peer, added bool) {
	s := r.shardFor(callID)
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[callID]
	if !ok {
		room = make(map[string]Peer, 2)
		s.rooms[callID] = room
		observability.SignalingRooms.Inc()
	}
	for id, m := range room {
		if id != p.ID() {
			others = append(others, m)
		}
	}
	if _, member := room[p.ID()]; member {
		return others, false
	}
	room[p.ID()] = p
	r.track(p.ID(), callID, true)
	return others, true
}

// Leave removes connID from callID's room. It returns the remaining members
// and whether connID was a member. The room is deleted when it empties.
func (r *Registry) Leave(callID, connID string) (remaining []Peer, removed bool) {
	s := r.shardFor(callID)
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[callID]
	if !ok {
		return nil, false
	}
	if _, member := room[connID]; !member {
		return nil, false
	}
	delete(room, connID)
	r.track(connID, callID, false)
	if len(room) == 0 {
		delete(s.rooms, callID)
		observability.SignalingRooms.Dec()
		return nil, true
	}
	for _, m := range room {
		remaining = append(remaining, m)
	}
	return remaining, true
}

// Others returns the members of callID other than connID, and whether
// connID is itself a member.
func (r *Registry) Others(callID, connID string) (others []Peer, member bool) {
	s := r.shardFor(callID)
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[callID]
	if !ok {
		return nil, false
	}
	_, member = room[connID]
	for id, m := range room {
		if id != connID {
			others = append(others, m)
		}
	}
	return others, member
}

// RoomsOf returns the call ids connID is currently in.
func (r *Registry) RoomsOf(connID string) []string {
	r.idxMu.Lock()
	defer r.idxMu.Unlock()
	set := r.memberships[connID]
	out := make([]string, 0, len(set))
	for callID := range set {
		out = append(out, callID)
	}
	return out
}

// Size returns the number of members in callID's room.
func (r *Registry) Size(callID string) int {
	s := r.shardFor(callID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms[callID])
}

// Rooms returns the number of open rooms.
func (r *Registry) Rooms() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		n += len(s.rooms)
		s.mu.Unlock()
	}
	return n
}

// track updates the membership index. Callers hold the room's shard lock.
func (r *Registry) track(connID, callID string, in bool) {
	r.idxMu.Lock()
	defer r.idxMu.Unlock()
	set := r.memberships[connID]
	if in {
		if set == nil {
			set = make(map[string]struct{}, 1)
			r.memberships[connID] = set
		}
		set[callID] = struct{}{}
		return
	}
	delete(set, callID)
	if len(set) == 0 {
		delete(r.memberships, connID)
	}
}
