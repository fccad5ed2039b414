// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ChatThread
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a thread is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - A unique violation on collaboration_id is reported as ErrDuplicate so
//     callers can re-read the winning row.
//   - On other DB errors the raw gorm error is propagated.
//
// Functions:
//
//   - CreateThread(ctx, db, collaborationID, a, b, now) -> *domain.ChatThread, error
//   - GetThread(ctx, db, id) -> *domain.ChatThread, error
//   - GetThreadByCollaboration(ctx, db, collaborationID) -> *domain.ChatThread, error
//   - CountThreads(ctx, db, userID) -> int64, error
//   - ListThreadsPage(ctx, db, userID, offset, limit) -> []domain.ChatThread, error
//   - UpdateThreadPreview(ctx, db, id, senderID, preview, at) -> error
//   - DeactivateThread(ctx, db, id, now) -> error
//
// This repository is wrapped by services.ChatService, which enforces
// participant checks and content rules.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/gym-realtime/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that a unique index rejected the insert.
var ErrDuplicate = errors.New("duplicate")

// IsDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite: "UNIQUE constraint failed"; Postgres: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint failed: unique") ||
		strings.Contains(msg, "duplicate key")
}

// activeParticipant scopes a query to active threads where userID is a party.
func activeParticipant(db *gorm.DB, userID string) *gorm.DB {
	return db.Where("is_active = ? AND (participant_a = ? OR participant_b = ?)", true, userID, userID)
}

// CreateThread inserts a thread for collaborationID between a and b. The
// participants are stored in sorted order. A concurrent insert for the same
// collaboration yields ErrDuplicate.
func CreateThread(ctx context.Context, db *gorm.DB, collaborationID, a, b string, now time.Time) (*domain.ChatThread, error) {
	pa, pb := domain.SortedPair(a, b)
	t := &domain.ChatThread{
		ID:              uuid.NewString(),
		CollaborationID: collaborationID,
		ParticipantA:    pa,
		ParticipantB:    pb,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return t, nil
}

// GetThread fetches a thread by ID, or ErrNotFound if missing.
func GetThread(ctx context.Context, db *gorm.DB, id string) (*domain.ChatThread, error) {
	var t domain.ChatThread
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetThreadByCollaboration fetches the thread owned by collaborationID.
func GetThreadByCollaboration(ctx context.Context, db *gorm.DB, collaborationID string) (*domain.ChatThread, error) {
	var t domain.ChatThread
	err := db.WithContext(ctx).
		Where("collaboration_id = ?", collaborationID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CountThreads returns the number of active threads userID participates in.
func CountThreads(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := activeParticipant(db.WithContext(ctx).Model(&domain.ChatThread{}), userID).
		Count(&total).Error
	return total, err
}

// ListThreadsPage returns active threads for userID ordered by most recent
// activity (last message time, falling back to update time), ties broken by
// ID so paging is stable.
func ListThreadsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.ChatThread, error) {
	var out []domain.ChatThread
	err := activeParticipant(db.WithContext(ctx), userID).
		Order("COALESCE(last_message_at, updated_at) DESC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateThreadPreview caches the newest message on the thread row.
func UpdateThreadPreview(ctx context.Context, db *gorm.DB, id, senderID, preview string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.ChatThread{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_message_content":   preview,
			"last_message_sender_id": senderID,
			"last_message_at":        at,
			"updated_at":             at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateThread hides a thread from listings. Messages are retained.
func DeactivateThread(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.ChatThread{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
