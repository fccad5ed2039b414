package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/gym-realtime/internal/domain"
)

// IdemKey identifies one client retry chain: the same Key may be reused by
// another user or in another scope.
type IdemKey struct {
	UserID string
	Scope  string
	Key    string
}

func (k IdemKey) valid() bool {
	return strings.TrimSpace(k.Scope) != "" && k.Key != ""
}

// GetIdempotency returns the unexpired record for k, or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, k IdemKey, now time.Time) (*domain.Idempotency, error) {
	if !k.valid() {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND scope = ? AND key = ? AND expires_at > ?", k.UserID, k.Scope, k.Key, now).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveIdempotency stores the outcome of k for ttl. A record left over from
// an expired chain is overwritten; a live one yields ErrDuplicate, and the
// caller keeps the first outcome.
func SaveIdempotency(ctx context.Context, db *gorm.DB, k IdemKey, resourceID string, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	if !k.valid() {
		return nil, errors.New("idempotency: scope and key are required")
	}
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		UserID:     k.UserID,
		Scope:      k.Scope,
		Key:        k.Key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "scope"}, {Name: "key"}},
		Where:     clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "idempotency.expires_at <= ?", Vars: []any{now}}}},
		DoUpdates: clause.AssignmentColumns([]string{"id", "resource_id", "status", "created_at", "expires_at"}),
	}).Create(rec)
	if res.Error != nil {
		if IsDuplicate(res.Error) {
			return nil, ErrDuplicate
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuplicate
	}
	return rec, nil
}

// DeleteExpiredIdempotency removes records past their expiry.
func DeleteExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
