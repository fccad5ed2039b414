// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// and ReadReceipt models.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/gym-realtime/internal/domain"
)

// unreadFor scopes a message query to messages readerID did not send and has
// not yet acknowledged.
const unreadFor = "sender_id <> ? AND NOT EXISTS (SELECT 1 FROM read_receipts r WHERE r.message_id = messages.id AND r.reader_id = ?)"

// CreateMessage inserts a new message row.
func CreateMessage(ctx context.Context, db *gorm.DB, threadID, senderID, content string, now time.Time) (*domain.Message, error) {
	m := &domain.Message{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: now,
	}
	return m, db.WithContext(ctx).Omit("Thread").Create(m).Error
}

// ListMessages returns messages ordered deterministically (CreatedAt ASC, ID ASC).
func ListMessages(ctx context.Context, db *gorm.DB, threadID string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.WithContext(ctx).Where("thread_id = ?", threadID).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, threadID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM messages WHERE thread_id = ?", threadID).Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC)
// with each message's read receipts preloaded.
func ListMessagesPage(ctx context.Context, db *gorm.DB, threadID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Preload("ReadBy", func(tx *gorm.DB) *gorm.DB { return tx.Order("read_at ASC") }).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkThreadRead records a receipt for readerID on every message in threadID
// sent by someone else that readerID has not yet acknowledged. Inserts that
// race with another MarkThreadRead are skipped by the unique index. It
// returns how many receipts were actually added.
func MarkThreadRead(ctx context.Context, db *gorm.DB, threadID, readerID string, now time.Time) (int64, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("thread_id = ?", threadID).
		Where(unreadFor, readerID, readerID).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	receipts := make([]domain.ReadReceipt, 0, len(ids))
	for _, id := range ids {
		receipts = append(receipts, domain.ReadReceipt{
			ID:        uuid.NewString(),
			MessageID: id,
			ThreadID:  threadID,
			ReaderID:  readerID,
			ReadAt:    now,
		})
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&receipts, 200)
	return res.RowsAffected, res.Error
}

// CountUnread returns how many messages in threadID readerID has not read.
// Messages sent by readerID are never unread for them.
func CountUnread(ctx context.Context, db *gorm.DB, threadID, readerID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("thread_id = ?", threadID).
		Where(unreadFor, readerID, readerID).
		Count(&total).Error
	return total, err
}

// CreateReceipt records that readerID has seen messageID.
func CreateReceipt(ctx context.Context, db *gorm.DB, messageID, threadID, readerID string, now time.Time) error {
	r := &domain.ReadReceipt{
		ID:        uuid.NewString(),
		MessageID: messageID,
		ThreadID:  threadID,
		ReaderID:  readerID,
		ReadAt:    now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(r).Error
}
