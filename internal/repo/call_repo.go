// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Call and
// LiveCallSlot models.
//
// State transitions are compare-and-set: an UPDATE guarded by the expected
// current statuses. Callers inspect the returned bool to learn whether they
// won the transition.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/gym-realtime/internal/domain"
)

// ErrSlotTaken indicates that a user already holds a live call slot.
var ErrSlotTaken = errors.New("live call slot taken")

// CreateCall inserts c as-is. The caller assigns IDs and timestamps.
func CreateCall(ctx context.Context, db *gorm.DB, c *domain.Call) error {
	return db.WithContext(ctx).Create(c).Error
}

// GetCallByCallID fetches a call by its external call id.
func GetCallByCallID(ctx context.Context, db *gorm.DB, callID string) (*domain.Call, error) {
	var c domain.Call
	if err := db.WithContext(ctx).Where("call_id = ?", callID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// TransitionCall applies updates to the call only if its status is one of
// from. It reports whether the row was changed.
func TransitionCall(ctx context.Context, db *gorm.DB, callID string, from []domain.CallStatus, updates map[string]any) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Call{}).
		Where("call_id = ? AND status IN ?", callID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClaimLiveSlots occupies one slot per user for callID. If any user already
// holds a slot the insert fails with ErrSlotTaken and nothing should be
// committed; call it inside a transaction.
func ClaimLiveSlots(ctx context.Context, db *gorm.DB, callID string, userIDs []string, now time.Time) error {
	slots := make([]domain.LiveCallSlot, 0, len(userIDs))
	for _, u := range userIDs {
		slots = append(slots, domain.LiveCallSlot{UserID: u, CallID: callID, CreatedAt: now})
	}
	if err := db.WithContext(ctx).Create(&slots).Error; err != nil {
		if IsDuplicate(err) {
			return ErrSlotTaken
		}
		return err
	}
	return nil
}

// ReleaseLiveSlots frees every slot held by callID.
func ReleaseLiveSlots(ctx context.Context, db *gorm.DB, callID string) error {
	return db.WithContext(ctx).
		Where("call_id = ?", callID).
		Delete(&domain.LiveCallSlot{}).Error
}

// LiveSlotHolder returns the slot held by userID, or ErrNotFound.
func LiveSlotHolder(ctx context.Context, db *gorm.DB, userID string) (*domain.LiveCallSlot, error) {
	var s domain.LiveCallSlot
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListStaleRinging returns calls still initiated or ringing that started
// before cutoff, oldest first.
func ListStaleRinging(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]domain.Call, error) {
	var out []domain.Call
	err := db.WithContext(ctx).
		Where("status IN ? AND started_at < ?", []domain.CallStatus{domain.CallInitiated, domain.CallRinging}, cutoff).
		Order("started_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListCallsPage returns calls involving userID, newest first.
func ListCallsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Call, error) {
	var out []domain.Call
	err := db.WithContext(ctx).
		Where("caller_id = ? OR recipient_id = ?", userID, userID).
		Order("started_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountCalls returns the number of calls involving userID.
func CountCalls(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Call{}).
		Where("caller_id = ? OR recipient_id = ?", userID, userID).
		Count(&total).Error
	return total, err
}
