package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// NotificationType is the closed set of event kinds a notification can carry.
type NotificationType string

const (
	NotifyIncomingCall          NotificationType = "incoming_call"
	NotifyMissedCall            NotificationType = "missed_call"
	NotifyCallRejected          NotificationType = "call_rejected"
	NotifyNewMessage            NotificationType = "new_message"
	NotifyCollaborationRequest  NotificationType = "collaboration_request"
	NotifyCollaborationAccepted NotificationType = "collaboration_accepted"
	NotifySystem                NotificationType = "system"
)

// Valid reports whether t belongs to the closed set.
func (t NotificationType) Valid() bool {
	switch t {
	case NotifyIncomingCall, NotifyMissedCall, NotifyCallRejected, NotifyNewMessage,
		NotifyCollaborationRequest, NotifyCollaborationAccepted, NotifySystem:
		return true
	}
	return false
}

// Priority orders notifications for delivery and display.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// DefaultNotificationTTL is how long a notification stays active.
const DefaultNotificationTTL = 30 * 24 * time.Hour

// Notification is a durable per-recipient record of an event. Only IsRead
// and ReadAt change after creation. Records past ExpiresAt are excluded from
// active queries.
type Notification struct {
	ID          string           `json:"id"           gorm:"type:char(36);primaryKey"`
	RecipientID string           `json:"recipient_id" gorm:"type:varchar(64);not null;index:idx_notif_recipient,priority:1"`
	SenderID    *string          `json:"sender_id,omitempty" gorm:"type:varchar(64)"`
	Type        NotificationType `json:"type"         gorm:"type:varchar(32);not null"`
	Title       string           `json:"title"        gorm:"type:varchar(255);not null"`
	Message     string           `json:"message"      gorm:"type:text"`
	Payload     datatypes.JSON   `json:"payload,omitempty" swaggertype:"object"`
	Link        *string          `json:"link,omitempty" gorm:"type:varchar(512)"`
	IsRead      bool             `json:"is_read"      gorm:"not null;default:false;index:idx_notif_recipient,priority:2"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	Priority    Priority         `json:"priority"     gorm:"type:varchar(8);not null;default:'medium';check:priority IN ('low','medium','high','urgent')"`
	ExpiresAt   time.Time        `json:"expires_at"   gorm:"not null;index"`
	CreatedAt   time.Time        `json:"created_at"   gorm:"index"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// Payload is the structured body of a notification. Each notification type
// has a known variant; DataPayload is the open fallback.
type Payload interface {
	PayloadType() NotificationType
}

// IncomingCallPayload accompanies incoming_call notifications.
type IncomingCallPayload struct {
	CallID   string   `json:"call_id"`
	CallerID string   `json:"caller_id"`
	Kind     CallKind `json:"kind"`
	ThreadID string   `json:"thread_id,omitempty"`
}

func (IncomingCallPayload) PayloadType() NotificationType { return NotifyIncomingCall }

// MissedCallPayload accompanies missed_call notifications.
type MissedCallPayload struct {
	CallID   string   `json:"call_id"`
	CallerID string   `json:"caller_id"`
	Kind     CallKind `json:"kind"`
}

func (MissedCallPayload) PayloadType() NotificationType { return NotifyMissedCall }

// CallRejectedPayload accompanies call_rejected notifications.
type CallRejectedPayload struct {
	CallID      string `json:"call_id"`
	RecipientID string `json:"recipient_id"`
}

func (CallRejectedPayload) PayloadType() NotificationType { return NotifyCallRejected }

// NewMessagePayload accompanies new_message notifications.
type NewMessagePayload struct {
	ThreadID  string `json:"thread_id"`
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id"`
	Preview   string `json:"preview"`
}

func (NewMessagePayload) PayloadType() NotificationType { return NotifyNewMessage }

// CollaborationPayload accompanies collaboration_* notifications.
type CollaborationPayload struct {
	CollaborationID string `json:"collaboration_id"`
	UserID          string `json:"user_id"`
	Status          string `json:"status,omitempty"`
}

func (CollaborationPayload) PayloadType() NotificationType { return NotifyCollaborationAccepted }

// DataPayload is an opaque key-value bag for types without a known shape.
type DataPayload map[string]any

func (DataPayload) PayloadType() NotificationType { return NotifySystem }

// EncodePayload serializes p for storage. A nil payload encodes to nil.
func EncodePayload(p Payload) (datatypes.JSON, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// DecodePayload restores the variant registered for t. If the stored shape
// does not fit the variant (or t has none), the raw object is returned as a
// DataPayload so nothing stored is lost.
func DecodePayload(t NotificationType, raw datatypes.JSON) (Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var p Payload
	switch t {
	case NotifyIncomingCall:
		p = decodeStrict[IncomingCallPayload](raw)
	case NotifyMissedCall:
		p = decodeStrict[MissedCallPayload](raw)
	case NotifyCallRejected:
		p = decodeStrict[CallRejectedPayload](raw)
	case NotifyNewMessage:
		p = decodeStrict[NewMessagePayload](raw)
	case NotifyCollaborationRequest, NotifyCollaborationAccepted:
		p = decodeStrict[CollaborationPayload](raw)
	}
	if p != nil {
		return p, nil
	}
	var bag DataPayload
	if err := json.Unmarshal(raw, &bag); err != nil {
		return nil, err
	}
	return bag, nil
}

// decodeStrict unmarshals raw into T, rejecting unknown fields. It returns
// nil when raw does not match T exactly.
func decodeStrict[T Payload](raw []byte) Payload {
	var v T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

// PayloadData flattens a payload into string pairs for push providers.
func PayloadData(p Payload) map[string]string {
	out := map[string]string{}
	if p == nil {
		return out
	}
	b, err := json.Marshal(p)
	if err != nil {
		return out
	}
	var m map[string]any
	if json.Unmarshal(b, &m) != nil {
		return out
	}
	for k, v := range m {
		switch vv := v.(type) {
		case string:
			out[k] = vv
		case nil:
		default:
			if enc, err := json.Marshal(vv); err == nil {
				out[k] = string(enc)
			}
		}
	}
	return out
}
