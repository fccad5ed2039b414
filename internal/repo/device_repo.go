// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// DeviceRegistration model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/gym-realtime/internal/domain"
)

// UpsertDevice registers token for userID. A token already known (possibly
// under another user, after a device changes hands) is reassigned.
func UpsertDevice(ctx context.Context, db *gorm.DB, userID, token string, platform domain.Platform, now time.Time) (*domain.DeviceRegistration, error) {
	d := &domain.DeviceRegistration{
		ID:         uuid.NewString(),
		UserID:     userID,
		Token:      token,
		Platform:   platform,
		LastUsedAt: now,
		CreatedAt:  now,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "last_used_at"}),
		}).
		Create(d).Error
	if err != nil {
		return nil, err
	}
	var out domain.DeviceRegistration
	if err := db.WithContext(ctx).Where("token = ?", token).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDevices returns every registration of userID, most recently used first.
func ListDevices(ctx context.Context, db *gorm.DB, userID string) ([]domain.DeviceRegistration, error) {
	var out []domain.DeviceRegistration
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_used_at DESC").
		Find(&out).Error
	return out, err
}

// DeleteDevice removes token from userID's registrations.
func DeleteDevice(ctx context.Context, db *gorm.DB, userID, token string) error {
	res := db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&domain.DeviceRegistration{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDeviceTokens removes userID's registrations for tokens. A token
// reassigned to another user in the meantime is left alone.
func DeleteDeviceTokens(ctx context.Context, db *gorm.DB, userID string, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Where("user_id = ? AND token IN ?", userID, tokens).
		Delete(&domain.DeviceRegistration{})
	return res.RowsAffected, res.Error
}

// DeviceOwnedBy reports whether token is registered to userID.
func DeviceOwnedBy(ctx context.Context, db *gorm.DB, userID, token string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.DeviceRegistration{}).
		Where("user_id = ? AND token = ?", userID, token).
		Count(&n).Error
	return n > 0, err
}
