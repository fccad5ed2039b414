package domain

import (
	"testing"
	"time"
)

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		ChatThread{}.TableName():         "chat_threads",
		Message{}.TableName():            "messages",
		ReadReceipt{}.TableName():        "read_receipts",
		Call{}.TableName():               "calls",
		LiveCallSlot{}.TableName():       "live_call_slots",
		Notification{}.TableName():       "notifications",
		DeviceRegistration{}.TableName(): "device_registrations",
		Collaboration{}.TableName():      "collaborations",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_IndexesAndCascades(t *testing.T) {
	db := newTestDB(t)
	db.Exec("PRAGMA foreign_keys=ON;")

	if err := db.AutoMigrate(&ChatThread{}, &Message{}, &ReadReceipt{}, &Call{}, &LiveCallSlot{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, idx := range []struct {
		model any
		name  string
	}{
		{&ChatThread{}, "ux_thread_collaboration"},
		{&Message{}, "idx_thread_msgs"},
		{&ReadReceipt{}, "ux_receipt_message_reader"},
		{&Call{}, "ux_calls_call_id"},
		{&Call{}, "idx_calls_status_started"},
	} {
		if !m.HasIndex(idx.model, idx.name) {
			t.Fatalf("expected index %s on %T", idx.name, idx.model)
		}
	}

	now := time.Now().UTC()
	a, b := SortedPair("zed", "amy")
	th := &ChatThread{ID: "t1", CollaborationID: "col1", ParticipantA: a, ParticipantB: b, IsActive: true}
	if err := db.Create(th).Error; err != nil {
		t.Fatalf("insert thread: %v", err)
	}
	dupe := &ChatThread{ID: "t2", CollaborationID: "col1", ParticipantA: a, ParticipantB: b}
	if err := db.Create(dupe).Error; err == nil {
		t.Fatalf("expected unique violation on collaboration_id")
	}

	msg := &Message{ID: "m1", ThreadID: "t1", SenderID: "amy", Content: "hi", CreatedAt: now}
	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("insert message: %v", err)
	}
	rr := &ReadReceipt{ID: "r1", MessageID: "m1", ThreadID: "t1", ReaderID: "zed", ReadAt: now}
	if err := db.Create(rr).Error; err != nil {
		t.Fatalf("insert receipt: %v", err)
	}
	if err := db.Create(&ReadReceipt{ID: "r2", MessageID: "m1", ThreadID: "t1", ReaderID: "zed", ReadAt: now}).Error; err == nil {
		t.Fatalf("expected unique violation on (message_id, reader_id)")
	}

	if err := db.Delete(&ChatThread{}, "id = ?", "t1").Error; err != nil {
		t.Fatalf("delete thread: %v", err)
	}
	var cnt int64
	db.Model(&Message{}).Where("thread_id = ?", "t1").Count(&cnt)
	if cnt != 0 {
		t.Fatalf("messages should cascade with their thread, got %d", cnt)
	}
	db.Model(&ReadReceipt{}).Where("message_id = ?", "m1").Count(&cnt)
	if cnt != 0 {
		t.Fatalf("receipts should cascade with their message, got %d", cnt)
	}
}

func TestChatThread_Helpers(t *testing.T) {
	a, b := SortedPair("u2", "u1")
	if a != "u1" || b != "u2" {
		t.Fatalf("SortedPair = %q,%q", a, b)
	}
	th := ChatThread{ParticipantA: "u1", ParticipantB: "u2", UpdatedAt: time.Unix(10, 0)}
	if !th.HasParticipant("u1") || th.HasParticipant("u3") || th.HasParticipant("") {
		t.Fatalf("HasParticipant mismatch")
	}
	if th.Counterpart("u1") != "u2" || th.Counterpart("u3") != "" {
		t.Fatalf("Counterpart mismatch")
	}
}

func TestCallStatus_Classes(t *testing.T) {
	for _, s := range LiveCallStatuses {
		if !s.IsLive() || s.IsTerminal() {
			t.Fatalf("%s should be live", s)
		}
	}
	for _, s := range []CallStatus{CallRejected, CallEnded, CallMissed} {
		if s.IsLive() || !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	if !CallVideo.Valid() || CallKind("fax").Valid() {
		t.Fatalf("CallKind.Valid mismatch")
	}
}

func TestWholeSeconds(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if got := WholeSeconds(start, start.Add(125*time.Second+900*time.Millisecond)); got != 125 {
		t.Fatalf("WholeSeconds = %d; want 125", got)
	}
	if got := WholeSeconds(start, start.Add(-time.Second)); got != 0 {
		t.Fatalf("negative span should clamp to 0, got %d", got)
	}
}

func TestCall_Participants(t *testing.T) {
	c := Call{CallerID: "a", RecipientID: "b"}
	if !c.IsParticipant("a") || !c.IsParticipant("b") || c.IsParticipant("c") {
		t.Fatalf("IsParticipant mismatch")
	}
	if c.Counterpart("a") != "b" || c.Counterpart("b") != "a" || c.Counterpart("x") != "" {
		t.Fatalf("Counterpart mismatch")
	}
}
