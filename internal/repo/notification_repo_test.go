package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/gym-realtime/internal/domain"
)

func TestNotifications_ActiveUnreadAndMark(t *testing.T) {
	db := newTestDB(t, &domain.Notification{})
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mk := func(recipient string, created time.Time, expires time.Time) domain.Notification {
		return domain.Notification{
			ID: uuid.NewString(), RecipientID: recipient, Type: domain.NotifySystem,
			Title: "t", Priority: domain.PriorityMedium, CreatedAt: created, ExpiresAt: expires,
		}
	}
	rows := []domain.Notification{
		mk("u1", now.Add(-time.Hour), now.Add(time.Hour)),
		mk("u1", now.Add(-time.Minute), now.Add(time.Hour)),
		mk("u1", now.Add(-48*time.Hour), now.Add(-time.Hour)), // expired
		mk("u2", now, now.Add(time.Hour)),
	}
	if err := CreateNotifications(ctx, db, rows); err != nil {
		t.Fatalf("CreateNotifications: %v", err)
	}
	if err := CreateNotifications(ctx, db, nil); err != nil {
		t.Fatalf("empty batch should be a no-op: %v", err)
	}

	total, _ := CountActiveNotifications(ctx, db, "u1", now)
	page, err := ListActiveNotificationsPage(ctx, db, "u1", now, 0, 10)
	if err != nil || total != 2 || len(page) != 2 || page[0].ID != rows[1].ID {
		t.Fatalf("active = %d %+v %v", total, page, err)
	}

	if err := MarkNotificationRead(ctx, db, rows[0].ID, "u1", now); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	if err := MarkNotificationRead(ctx, db, rows[0].ID, "u1", now); err != nil {
		t.Fatalf("re-marking must be a no-op: %v", err)
	}
	if err := MarkNotificationRead(ctx, db, rows[3].ID, "u1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign notification: expected ErrNotFound, got %v", err)
	}
	unread, _ := CountUnreadNotifications(ctx, db, "u1", now)
	if unread != 1 {
		t.Fatalf("unread = %d; want 1", unread)
	}

	n, err := MarkAllNotificationsRead(ctx, db, "u1", now)
	if err != nil || n != 2 { // the active one plus the expired one
		t.Fatalf("MarkAll = %d, %v", n, err)
	}

	purged, err := DeleteExpiredNotifications(ctx, db, now)
	if err != nil || purged != 1 {
		t.Fatalf("DeleteExpired = %d, %v", purged, err)
	}
}

func TestDevices_UpsertListDelete(t *testing.T) {
	db := newTestDB(t, &domain.DeviceRegistration{})
	ctx := context.Background()
	now := time.Now().UTC()

	d, err := UpsertDevice(ctx, db, "u1", "tok-1", domain.PlatformIOS, now)
	if err != nil || d.UserID != "u1" {
		t.Fatalf("UpsertDevice: %+v %v", d, err)
	}
	// Same token moves to another user.
	d2, err := UpsertDevice(ctx, db, "u2", "tok-1", domain.PlatformAndroid, now.Add(time.Second))
	if err != nil || d2.UserID != "u2" || d2.ID != d.ID || d2.Platform != domain.PlatformAndroid {
		t.Fatalf("reassign: %+v %v", d2, err)
	}
	_, _ = UpsertDevice(ctx, db, "u2", "tok-2", domain.PlatformWeb, now)

	list, _ := ListDevices(ctx, db, "u1")
	if len(list) != 0 {
		t.Fatalf("u1 should have no devices, got %d", len(list))
	}
	list, _ = ListDevices(ctx, db, "u2")
	if len(list) != 2 {
		t.Fatalf("u2 devices = %d", len(list))
	}

	if err := DeleteDevice(ctx, db, "u1", "tok-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete: expected ErrNotFound, got %v", err)
	}
	n, err := DeleteDeviceTokens(ctx, db, "u1", []string{"tok-1", "tok-x"})
	if err != nil || n != 1 {
		t.Fatalf("DeleteDeviceTokens = %d, %v", n, err)
	}
	if err := DeleteDevice(ctx, db, "u2", "tok-2"); err != nil {
		t.Fatalf("DeleteDevice: %v", err)
	}
}

func TestCollaborations_StatusCAS(t *testing.T) {
	db := newTestDB(t, &domain.Collaboration{})
	ctx := context.Background()
	now := time.Now().UTC()

	c, err := CreateCollaboration(ctx, db, "trainer", "member", now)
	if err != nil || c.Status != domain.CollaborationPending {
		t.Fatalf("CreateCollaboration: %+v %v", c, err)
	}
	ok, err := SetCollaborationStatus(ctx, db, c.ID, domain.CollaborationPending, domain.CollaborationAccepted, now)
	if err != nil || !ok {
		t.Fatalf("accept: %v %v", ok, err)
	}
	ok, _ = SetCollaborationStatus(ctx, db, c.ID, domain.CollaborationPending, domain.CollaborationDeclined, now)
	if ok {
		t.Fatalf("second transition from pending must fail")
	}
	list, _ := ListCollaborations(ctx, db, "member")
	if len(list) != 1 || list[0].Status != domain.CollaborationAccepted {
		t.Fatalf("list = %+v", list)
	}
}
