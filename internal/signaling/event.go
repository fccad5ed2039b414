// Package signaling relays WebRTC negotiation messages between the
// participants of a call and pushes realtime events to connected devices.
//
// Every websocket connection is a Peer with its own connection id. Rooms are
// keyed by call id and live only in memory; nothing here is persisted.
package signaling

import "encoding/json"

// Event is the single wire envelope in both directions.
type Event struct {
	Op     string          `json:"op"`
	CallID string          `json:"call_id,omitempty"`
	From   string          `json:"from,omitempty"`
	Data   json.RawMessage `json:"d,omitempty"`
}

// Client -> server ops.
const (
	OpJoin      = "join"
	OpLeave     = "leave"
	OpHeartbeat = "heartbeat"
)

// Relayed ops, sent by a client and forwarded to the other members.
const (
	OpOffer        = "offer"
	OpAnswer       = "answer"
	OpIceCandidate = "ice_candidate"
)

// Server -> client ops.
const (
	OpReady           = "ready"
	OpJoined          = "joined"
	OpPeerJoined      = "peer_joined"
	OpCallEnded       = "call_ended"
	OpParticipantLeft = "participant_left"
	OpError           = "error"
	OpHeartbeatAck    = "heartbeat_ack"
)

// Error codes carried by OpError events.
const (
	CodeBadRequest  = "bad_request"
	CodeNotInRoom   = "not_in_room"
	CodeForbidden   = "forbidden"
	CodeRateLimited = "rate_limited"
	CodeUnknownOp   = "unknown_op"
)

// ErrorData is the body of an OpError event.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PeerData identifies a member of a room.
type PeerData struct {
	ConnID string `json:"conn_id"`
	UserID string `json:"user_id"`
}

// JoinedData acknowledges a join with the members already present.
type JoinedData struct {
	Peers []PeerData `json:"peers"`
}

// ReadyData is the first event on a new connection.
type ReadyData struct {
	ConnID string `json:"conn_id"`
	UserID string `json:"user_id"`
}

// sdpPayload is the minimum shape of an offer or answer.
type sdpPayload struct {
	Type string `json:"type,omitempty"`
	SDP  string `json:"sdp"`
}

// icePayload is the minimum shape of an ICE candidate.
type icePayload struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *int    `json:"sdpMLineIndex,omitempty"`
}

// encode marshals v for an Event's Data, dropping values that cannot be
// encoded.
func encode(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
