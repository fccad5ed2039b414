// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Collaboration model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/gym-realtime/internal/domain"
)

// CreateCollaboration inserts a pending collaboration request.
func CreateCollaboration(ctx context.Context, db *gorm.DB, requesterID, addresseeID string, now time.Time) (*domain.Collaboration, error) {
	c := &domain.Collaboration{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      domain.CollaborationPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetCollaboration fetches a collaboration by ID.
func GetCollaboration(ctx context.Context, db *gorm.DB, id string) (*domain.Collaboration, error) {
	var c domain.Collaboration
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// SetCollaborationStatus moves the collaboration from one status to another
// and reports whether it did.
func SetCollaborationStatus(ctx context.Context, db *gorm.DB, id string, from, to domain.CollaborationStatus, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Collaboration{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListCollaborations returns collaborations where userID is either party.
func ListCollaborations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Collaboration, error) {
	var out []domain.Collaboration
	err := db.WithContext(ctx).
		Where("requester_id = ? OR addressee_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
