// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/gym-realtime/internal/domain"
)

// activeFor scopes a query to unexpired notifications of recipientID.
func activeFor(db *gorm.DB, recipientID string, now time.Time) *gorm.DB {
	return db.Where("recipient_id = ? AND expires_at > ?", recipientID, now)
}

// CreateNotifications inserts all rows in a single batch statement.
func CreateNotifications(ctx context.Context, db *gorm.DB, rows []domain.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(&rows, 100).Error
}

// GetNotification fetches a notification by ID scoped to its recipient.
func GetNotification(ctx context.Context, db *gorm.DB, id, recipientID string) (*domain.Notification, error) {
	var n domain.Notification
	err := db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// CountActiveNotifications returns the number of unexpired notifications.
func CountActiveNotifications(ctx context.Context, db *gorm.DB, recipientID string, now time.Time) (int64, error) {
	var total int64
	err := activeFor(db.WithContext(ctx).Model(&domain.Notification{}), recipientID, now).
		Count(&total).Error
	return total, err
}

// ListActiveNotificationsPage returns unexpired notifications, newest first.
func ListActiveNotificationsPage(ctx context.Context, db *gorm.DB, recipientID string, now time.Time, offset, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := activeFor(db.WithContext(ctx), recipientID, now).
		Order("created_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountUnreadNotifications returns unexpired unread notifications.
func CountUnreadNotifications(ctx context.Context, db *gorm.DB, recipientID string, now time.Time) (int64, error) {
	var total int64
	err := activeFor(db.WithContext(ctx).Model(&domain.Notification{}), recipientID, now).
		Where("is_read = ?", false).
		Count(&total).Error
	return total, err
}

// MarkNotificationRead flips is_read for one notification owned by
// recipientID. Marking an already read notification is a no-op; a missing
// one returns ErrNotFound.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id, recipientID string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", id, recipientID, false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		_, err := GetNotification(ctx, db, id, recipientID)
		return err
	}
	return nil
}

// MarkAllNotificationsRead flips every unread notification of recipientID
// and returns how many changed.
func MarkAllNotificationsRead(ctx context.Context, db *gorm.DB, recipientID string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	return res.RowsAffected, res.Error
}

// DeleteExpiredNotifications removes rows past their expiry.
func DeleteExpiredNotifications(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.Notification{})
	return res.RowsAffected, res.Error
}
