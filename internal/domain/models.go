// Package domain defines the persistence models for chat threads, messages,
// read receipts, calls, notifications and the collaborator records consumed
// by the real-time core. These types are mapped with GORM and form the data
// layer shared by the repo and services packages.
package domain

import (
	"time"
)

// ChatThread is one durable conversation scoped to exactly one accepted
// collaboration between two users.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - CollaborationID: owning collaboration; unique, so a collaboration has
//     at most one thread.
//   - ParticipantA / ParticipantB: the two parties, stored in sorted order.
//     They never change after creation.
//   - IsActive: soft deactivation flag; inactive threads are hidden from lists.
//   - LastMessage*: cached preview of the newest message for list views.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type ChatThread struct {
	ID                  string     `json:"id"                     gorm:"type:char(36);primaryKey"`
	CollaborationID     string     `json:"collaboration_id"       gorm:"type:char(36);not null;uniqueIndex:ux_thread_collaboration"`
	ParticipantA        string     `json:"participant_a"          gorm:"type:varchar(64);not null;index:idx_thread_participant_a"`
	ParticipantB        string     `json:"participant_b"          gorm:"type:varchar(64);not null;index:idx_thread_participant_b"`
	IsActive            bool       `json:"is_active"              gorm:"not null;default:true"`
	LastMessageContent  string     `json:"last_message_content"   gorm:"type:text"`
	LastMessageSenderID string     `json:"last_message_sender_id" gorm:"type:varchar(64)"`
	LastMessageAt       *time.Time `json:"last_message_at"        gorm:"index"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ChatThread.
func (ChatThread) TableName() string { return "chat_threads" }

// HasParticipant reports whether userID is one of the two parties.
func (t ChatThread) HasParticipant(userID string) bool {
	return userID != "" && (t.ParticipantA == userID || t.ParticipantB == userID)
}

// Counterpart returns the other participant, or "" when userID is not a party.
func (t ChatThread) Counterpart(userID string) string {
	switch userID {
	case t.ParticipantA:
		return t.ParticipantB
	case t.ParticipantB:
		return t.ParticipantA
	}
	return ""
}

// SortedPair returns a and b in lexical order.
func SortedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Message is one entry in a thread's append-only log. Messages are never
// edited or removed; there is no update path for them in this module.
type Message struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ThreadID  string    `json:"thread_id"  gorm:"type:char(36);not null;index:idx_thread_msgs,priority:1"`
	SenderID  string    `json:"sender_id"  gorm:"type:varchar(64);not null"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_thread_msgs,priority:2"`

	// ReadBy holds the (reader, timestamp) pairs for this message.
	ReadBy []ReadReceipt `json:"read_by,omitempty" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	Thread ChatThread `json:"-" gorm:"foreignKey:ThreadID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// ReadReceipt marks that ReaderID has seen MessageID. The unique index on
// (message_id, reader_id) keeps a reader pair to at most one row.
type ReadReceipt struct {
	ID        string    `json:"-"         gorm:"type:char(36);primaryKey"`
	MessageID string    `json:"-"         gorm:"type:char(36);not null;uniqueIndex:ux_receipt_message_reader,priority:1"`
	ThreadID  string    `json:"-"         gorm:"type:char(36);not null;index:idx_receipt_thread_reader,priority:1"`
	ReaderID  string    `json:"reader_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_receipt_message_reader,priority:2;index:idx_receipt_thread_reader,priority:2"`
	ReadAt    time.Time `json:"read_at"   gorm:"not null"`
}

// TableName returns the database table name for ReadReceipt.
func (ReadReceipt) TableName() string { return "read_receipts" }
