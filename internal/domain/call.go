package domain

import "time"

// CallKind distinguishes voice from video sessions.
type CallKind string

const (
	CallVoice CallKind = "voice"
	CallVideo CallKind = "video"
)

// Valid reports whether k is a known call kind.
func (k CallKind) Valid() bool { return k == CallVoice || k == CallVideo }

// CallStatus is a state of the call state machine:
//
//	initiated -> ringing -> accepted -> ended
//	                     -> rejected | missed
//
// rejected, ended and missed are terminal.
type CallStatus string

const (
	CallInitiated CallStatus = "initiated"
	CallRinging   CallStatus = "ringing"
	CallAccepted  CallStatus = "accepted"
	CallRejected  CallStatus = "rejected"
	CallEnded     CallStatus = "ended"
	CallMissed    CallStatus = "missed"
)

// LiveCallStatuses are the statuses in which a call occupies both parties.
var LiveCallStatuses = []CallStatus{CallInitiated, CallRinging, CallAccepted}

// IsLive reports whether the status keeps its participants busy.
func (s CallStatus) IsLive() bool {
	return s == CallInitiated || s == CallRinging || s == CallAccepted
}

// IsTerminal reports whether no further transition is allowed.
func (s CallStatus) IsTerminal() bool {
	return s == CallRejected || s == CallEnded || s == CallMissed
}

// Call is one voice/video session attempt between two users.
//
// CallID is the externally visible identifier used by REST operations and as
// the signaling room key; ID is the internal row key. DurationSec is only
// computed on the transition into ended.
type Call struct {
	ID          string     `json:"-"            gorm:"type:char(36);primaryKey"`
	CallID      string     `json:"call_id"      gorm:"type:char(36);not null;uniqueIndex:ux_calls_call_id"`
	CallerID    string     `json:"caller_id"    gorm:"type:varchar(64);not null;index:idx_calls_caller"`
	RecipientID string     `json:"recipient_id" gorm:"type:varchar(64);not null;index:idx_calls_recipient"`
	ThreadID    *string    `json:"thread_id,omitempty" gorm:"type:char(36)"`
	Kind        CallKind   `json:"kind"         gorm:"type:varchar(8);not null;check:kind IN ('voice','video')"`
	Status      CallStatus `json:"status"       gorm:"type:varchar(16);not null;index:idx_calls_status_started,priority:1"`
	StartedAt   time.Time  `json:"started_at"   gorm:"not null;index:idx_calls_status_started,priority:2"`
	AnsweredAt  *time.Time `json:"answered_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	DurationSec int        `json:"duration"     gorm:"not null;default:0"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Call.
func (Call) TableName() string { return "calls" }

// IsParticipant reports whether userID is the caller or the recipient.
func (c Call) IsParticipant(userID string) bool {
	return userID != "" && (c.CallerID == userID || c.RecipientID == userID)
}

// Counterpart returns the other party of the call for userID.
func (c Call) Counterpart(userID string) string {
	switch userID {
	case c.CallerID:
		return c.RecipientID
	case c.RecipientID:
		return c.CallerID
	}
	return ""
}

// LiveCallSlot records that UserID is occupied by the live call CallID.
// The primary key on user_id guarantees at most one live call per user.
type LiveCallSlot struct {
	UserID    string    `gorm:"type:varchar(64);primaryKey"`
	CallID    string    `gorm:"type:char(36);not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the database table name for LiveCallSlot.
func (LiveCallSlot) TableName() string { return "live_call_slots" }

// WholeSeconds returns the floor of end-start in seconds, never negative.
func WholeSeconds(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}
