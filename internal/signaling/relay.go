package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/gym-realtime/internal/observability"
)

// Relay errors. They are reported to the sending connection only.
var (
	ErrEmptyCallID = errors.New("call_id is required")
	ErrBadPayload  = errors.New("malformed payload")
	ErrNotInRoom   = errors.New("not a member of this room")
	ErrNotAllowed  = errors.New("not a participant of this call")
)

// RoomAuthorizer decides whether userID may join callID's room. Without one
// the call id itself is the capability.
type RoomAuthorizer interface {
	CanJoin(ctx context.Context, callID, userID string) (bool, error)
}

// AuthorizerFunc adapts a function to RoomAuthorizer.
type AuthorizerFunc func(ctx context.Context, callID, userID string) (bool, error)

// CanJoin calls f.
func (f AuthorizerFunc) CanJoin(ctx context.Context, callID, userID string) (bool, error) {
	return f(ctx, callID, userID)
}

// Relay implements the room operations on top of a Registry.
type Relay struct {
	rooms *Registry
	auth  RoomAuthorizer
}

// NewRelay returns a Relay over reg. auth may be nil.
func NewRelay(reg *Registry, auth RoomAuthorizer) *Relay {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Relay{rooms: reg, auth: auth}
}

// Registry exposes the room table for read-only inspection.
func (r *Relay) Registry() *Registry { return r.rooms }

// JoinRoom adds p to callID's room. Joining twice is a no-op. Members
// already present receive peer_joined; p receives the current member list.
func (r *Relay) JoinRoom(ctx context.Context, p Peer, callID string) error {
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return ErrEmptyCallID
	}
	if r.auth != nil {
		ok, err := r.auth.CanJoin(ctx, callID, p.UserID())
		if err != nil || !ok {
			if err != nil {
				log.Debug().Err(err).Str("call_id", callID).Str("conn_id", p.ID()).Msg("room authorization failed")
			}
			return ErrNotAllowed
		}
	}

	others, added := r.rooms.Join(callID, p)

	peers := make([]PeerData, 0, len(others))
	for _, o := range others {
		peers = append(peers, PeerData{ConnID: o.ID(), UserID: o.UserID()})
	}
	p.Send(Event{Op: OpJoined, CallID: callID, Data: encode(JoinedData{Peers: peers})})
	if !added {
		return nil
	}
	log.Debug().Str("call_id", callID).Str("conn_id", p.ID()).Int("members", len(others)+1).Msg("joined room")
	r.broadcast(others, Event{
		Op:     OpPeerJoined,
		CallID: callID,
		From:   p.ID(),
		Data:   encode(PeerData{ConnID: p.ID(), UserID: p.UserID()}),
	})
	return nil
}

// RelayOffer forwards an SDP offer to the other members of callID.
func (r *Relay) RelayOffer(p Peer, callID string, payload json.RawMessage) error {
	return r.relaySDP(OpOffer, p, callID, payload)
}

// RelayAnswer forwards an SDP answer to the other members of callID.
func (r *Relay) RelayAnswer(p Peer, callID string, payload json.RawMessage) error {
	return r.relaySDP(OpAnswer, p, callID, payload)
}

// RelayIceCandidate forwards an ICE candidate to the other members of callID.
func (r *Relay) RelayIceCandidate(p Peer, callID string, payload json.RawMessage) error {
	var ice icePayload
	if err := json.Unmarshal(payload, &ice); err != nil || strings.TrimSpace(ice.Candidate) == "" {
		return fmt.Errorf("%w: ice_candidate needs a candidate", ErrBadPayload)
	}
	return r.relay(OpIceCandidate, p, callID, payload)
}

func (r *Relay) relaySDP(op string, p Peer, callID string, payload json.RawMessage) error {
	var sdp sdpPayload
	if err := json.Unmarshal(payload, &sdp); err != nil || strings.TrimSpace(sdp.SDP) == "" {
		return fmt.Errorf("%w: %s needs an sdp", ErrBadPayload, op)
	}
	return r.relay(op, p, callID, payload)
}

// relay sends payload, tagged with the sender's connection id, to every
// other member of the room.
func (r *Relay) relay(op string, p Peer, callID string, payload json.RawMessage) error {
	if callID == "" {
		return ErrEmptyCallID
	}
	others, member := r.rooms.Others(callID, p.ID())
	if !member {
		return ErrNotInRoom
	}
	r.broadcast(others, Event{Op: op, CallID: callID, From: p.ID(), Data: payload})
	observability.SignalingRelayed.WithLabelValues(op).Inc()
	return nil
}

// LeaveCall removes p from callID's room; the remaining members receive
// call_ended.
func (r *Relay) LeaveCall(p Peer, callID string) error {
	if callID == "" {
		return ErrEmptyCallID
	}
	remaining, removed := r.rooms.Leave(callID, p.ID())
	if !removed {
		return ErrNotInRoom
	}
	r.broadcast(remaining, Event{Op: OpCallEnded, CallID: callID, From: p.ID()})
	return nil
}

// OnDisconnect removes p from every room it is in and tells the remaining
// members it left.
func (r *Relay) OnDisconnect(p Peer) {
	for _, callID := range r.rooms.RoomsOf(p.ID()) {
		remaining, removed := r.rooms.Leave(callID, p.ID())
		if !removed {
			continue
		}
		r.broadcast(remaining, Event{
			Op:     OpParticipantLeft,
			CallID: callID,
			From:   p.ID(),
			Data:   encode(PeerData{ConnID: p.ID(), UserID: p.UserID()}),
		})
	}
}

// Handle dispatches one client event. Failures are answered with an error
// event to p only.
func (r *Relay) Handle(ctx context.Context, p Peer, ev Event) {
	var err error
	switch ev.Op {
	case OpJoin:
		err = r.JoinRoom(ctx, p, ev.CallID)
	case OpLeave:
		err = r.LeaveCall(p, ev.CallID)
	case OpOffer:
		err = r.RelayOffer(p, ev.CallID, ev.Data)
	case OpAnswer:
		err = r.RelayAnswer(p, ev.CallID, ev.Data)
	case OpIceCandidate:
		err = r.RelayIceCandidate(p, ev.CallID, ev.Data)
	default:
		sendError(p, ev.CallID, CodeUnknownOp, fmt.Sprintf("unknown op %q", ev.Op))
		return
	}
	if err != nil {
		sendError(p, ev.CallID, errorCode(err), err.Error())
	}
}

func (r *Relay) broadcast(peers []Peer, ev Event) {
	for _, m := range peers {
		if !m.Send(ev) {
			log.Debug().Str("op", ev.Op).Str("call_id", ev.CallID).Str("conn_id", m.ID()).Msg("signaling delivery dropped")
		}
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotInRoom):
		return CodeNotInRoom
	case errors.Is(err, ErrNotAllowed):
		return CodeForbidden
	default:
		return CodeBadRequest
	}
}

func sendError(p Peer, callID, code, msg string) {
	p.Send(Event{Op: OpError, CallID: callID, Data: encode(ErrorData{Code: code, Message: msg})})
}
