package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/gym-realtime/internal/domain"
)

func TestGetIdempotency_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()

	expired := &domain.Idempotency{
		ID: "expired", UserID: "member", Scope: "t1", Key: "k1", ResourceID: "m1",
		Status: 201, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(expired).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	for name, k := range map[string]IdemKey{
		"blank scope": {UserID: "member", Scope: "  ", Key: "k1"},
		"expired":     {UserID: "member", Scope: "t1", Key: "k1"},
		"missing":     {UserID: "member", Scope: "t1", Key: "other"},
		"other user":  {UserID: "coach", Scope: "t1", Key: "k1"},
	} {
		if rec, err := GetIdempotency(ctx, db, k, now); rec != nil || !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: got (%v, %v)", name, rec, err)
		}
	}

	n, err := DeleteExpiredIdempotency(ctx, db, now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpiredIdempotency = %d, %v", n, err)
	}
}

func TestSaveIdempotency_FirstOutcomeWins(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	k := IdemKey{UserID: "member", Scope: "t1", Key: "msg-1"}

	rec, err := SaveIdempotency(ctx, db, k, "m1", 201, now, time.Hour)
	if err != nil || rec.ResourceID != "m1" || !rec.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("SaveIdempotency: %+v %v", rec, err)
	}
	if _, err := SaveIdempotency(ctx, db, k, "m2", 201, now.Add(time.Minute), time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("live duplicate: %v", err)
	}
	got, err := GetIdempotency(ctx, db, k, now.Add(time.Minute))
	if err != nil || got.ResourceID != "m1" {
		t.Fatalf("GetIdempotency: %+v %v", got, err)
	}

	// Same key in another scope is a separate chain.
	if _, err := SaveIdempotency(ctx, db, IdemKey{UserID: "member", Scope: "/api/v1/calls", Key: "msg-1"}, "c1", 201, now, time.Hour); err != nil {
		t.Fatalf("other scope: %v", err)
	}
}

func TestSaveIdempotency_ReplacesExpiredRecord(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	k := IdemKey{UserID: "member", Scope: "/api/v1/calls", Key: "call-1"}

	if _, err := SaveIdempotency(ctx, db, k, "c1", 201, now, time.Hour); err != nil {
		t.Fatalf("first: %v", err)
	}
	later := now.Add(2 * time.Hour)
	rec, err := SaveIdempotency(ctx, db, k, "c2", 201, later, time.Hour)
	if err != nil {
		t.Fatalf("expired record not replaced: %v", err)
	}
	got, err := GetIdempotency(ctx, db, k, later)
	if err != nil || got.ResourceID != "c2" || got.ID != rec.ID {
		t.Fatalf("after replace: %+v %v", got, err)
	}
	var n int64
	db.Model(&domain.Idempotency{}).Count(&n)
	if n != 1 {
		t.Fatalf("rows = %d", n)
	}
}

func TestSaveIdempotency_Errors(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	if _, err := SaveIdempotency(ctx, newTestDB(t, &domain.Idempotency{}), IdemKey{UserID: "u1", Key: "k"}, "m1", 201, now, time.Hour); err == nil {
		t.Fatalf("expected error for blank scope")
	}
	if _, err := SaveIdempotency(ctx, newTestDB(t), IdemKey{UserID: "u1", Scope: "t1", Key: "k1"}, "m1", 201, now, time.Hour); err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected table error, got %v", err)
	}
}
