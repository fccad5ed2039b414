package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/push"
	"github.com/tbourn/gym-realtime/internal/repo"
)

// newTestDB opens a fresh in-memory database with every table migrated
// unless bare is set.
func newTestDB(t *testing.T, bare ...bool) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:services_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if len(bare) == 0 || !bare[0] {
		if err := repo.AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

// countLiveCalls counts calls involving userID that are still live.
func countLiveCalls(t *testing.T, db *gorm.DB, userID string) (int64, error) {
	t.Helper()
	var n int64
	err := db.Model(&domain.Call{}).
		Where("(caller_id = ? OR recipient_id = ?) AND status IN ?", userID, userID, domain.LiveCallStatuses).
		Count(&n).Error
	return n, err
}

// testClock is a manually advanced clock.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// recordingNotifier captures Notify calls.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []NotifyParams
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, p NotifyParams) (*domain.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, p)
	if n.err != nil {
		return nil, n.err
	}
	return &domain.Notification{ID: uuid.NewString(), RecipientID: p.RecipientID, Type: p.Type}, nil
}

func (n *recordingNotifier) byType(t domain.NotificationType) []NotifyParams {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []NotifyParams
	for _, c := range n.calls {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

type published struct {
	UserID string
	Event  string
	Data   any
}

// recordingPublisher captures realtime events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishToUser(userID, event string, data any) {
	p.mu.Lock()
	p.events = append(p.events, published{userID, event, data})
	p.mu.Unlock()
}

func (p *recordingPublisher) count(userID, event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.UserID == userID && e.Event == event {
			n++
		}
	}
	return n
}

// fakeProvider is a push.Provider whose per-token result is scripted.
type fakeProvider struct {
	mu       sync.Mutex
	fail     map[string]error
	sent     []string
	topics   []string
	subs     map[string][]string
	topicErr error
	forgot   []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{fail: map[string]error{}, subs: map[string][]string{}}
}

func (f *fakeProvider) SendToToken(_ context.Context, token string, _ push.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, token)
	return f.fail[token]
}

func (f *fakeProvider) SendToTopic(_ context.Context, topic string, _ push.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return f.topicErr
}

func (f *fakeProvider) Subscribe(_ context.Context, token, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic] = append(f.subs[topic], token)
	return nil
}

func (f *fakeProvider) Unsubscribe(context.Context, string, string) error { return nil }

func (f *fakeProvider) Forget(_ context.Context, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgot = append(f.forgot, token)
}

func (f *fakeProvider) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// acceptedCollaboration seeds an accepted collaboration between a and b.
func acceptedCollaboration(t *testing.T, db *gorm.DB, a, b string) *domain.Collaboration {
	t.Helper()
	ctx := context.Background()
	c, err := repo.CreateCollaboration(ctx, db, a, b, time.Now().UTC())
	if err != nil {
		t.Fatalf("seed collaboration: %v", err)
	}
	if ok, err := repo.SetCollaborationStatus(ctx, db, c.ID, domain.CollaborationPending, domain.CollaborationAccepted, time.Now().UTC()); err != nil || !ok {
		t.Fatalf("accept collaboration: %v %v", ok, err)
	}
	c.Status = domain.CollaborationAccepted
	return c
}
