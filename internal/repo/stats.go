package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/gym-realtime/internal/domain"
)

// The *Stats queries feed weak ETags on list endpoints: each returns a row
// count and the newest timestamp that moves whenever the listing would.

// countAndLatest counts q's rows and reads the largest value of column. The
// newest row is fetched by ordering, since MAX() comes back as TEXT on SQLite.
func countAndLatest(q *gorm.DB, column string) (int64, *time.Time, error) {
	var count int64
	if err := q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	var ts []time.Time
	if err := q.Session(&gorm.Session{}).Order(column+" DESC").Limit(1).Pluck(column, &ts).Error; err != nil {
		return 0, nil, err
	}
	if len(ts) == 0 {
		return count, nil, nil
	}
	return count, &ts[0], nil
}

// ThreadsStats covers userID's active threads. A thread's updated_at moves
// with every appended message.
func ThreadsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return countAndLatest(activeParticipant(db.WithContext(ctx).Model(&domain.ChatThread{}), userID), "updated_at")
}

// MessagesStats covers one thread's messages, which are append-only.
func MessagesStats(ctx context.Context, db *gorm.DB, threadID string) (int64, *time.Time, error) {
	return countAndLatest(db.WithContext(ctx).Model(&domain.Message{}).Where("thread_id = ?", threadID), "created_at")
}

// NotificationsStats covers recipientID's unexpired notifications and also
// reports how many are unread, so marking one read changes the tag.
func NotificationsStats(ctx context.Context, db *gorm.DB, recipientID string, now time.Time) (count, unread int64, latest *time.Time, err error) {
	active := func() *gorm.DB {
		return activeFor(db.WithContext(ctx).Model(&domain.Notification{}), recipientID, now)
	}
	count, latest, err = countAndLatest(active(), "created_at")
	if err != nil || count == 0 {
		return count, 0, latest, err
	}
	if err = active().Where("is_read = ?", false).Count(&unread).Error; err != nil {
		return 0, 0, nil, err
	}
	return count, unread, latest, nil
}
