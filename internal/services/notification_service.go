// Package services – NotificationService
//
// NotificationService persists one durable record per recipient and then
// pushes it to the recipient's devices. Persistence decides success; push
// delivery is attempted afterwards and its failures are classified, logged
// and counted but never returned from Notify/NotifyMany.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/observability"
	"github.com/tbourn/gym-realtime/internal/push"
	"github.com/tbourn/gym-realtime/internal/repo"
)

// NotifyParams describes one notification. Priority defaults to medium.
type NotifyParams struct {
	RecipientID string
	Type        domain.NotificationType
	Title       string
	Message     string
	Payload     domain.Payload
	Link        string
	Priority    domain.Priority
	SenderID    string
}

// NotificationService creates notifications and fans them out to devices.
type NotificationService struct {
	DB      *gorm.DB
	Push    Dispatcher
	Devices DeviceSource
	Invalid InvalidTokenSink
	Events  EventPublisher

	// TTL is how long a notification stays active.
	TTL time.Duration
	// Concurrency bounds parallel recipients and parallel device pushes.
	Concurrency int
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (s *NotificationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *NotificationService) limit() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return 8
}

func (s *NotificationService) events() EventPublisher {
	if s.Events == nil {
		return nopPublisher{}
	}
	return s.Events
}

// build validates p and returns the row to insert.
func (s *NotificationService) build(p NotifyParams, now time.Time) (domain.Notification, error) {
	if strings.TrimSpace(p.RecipientID) == "" || !p.Type.Valid() || strings.TrimSpace(p.Title) == "" {
		return domain.Notification{}, ErrInvalidNotification
	}
	if p.Priority == "" {
		p.Priority = domain.PriorityMedium
	}
	if !p.Priority.Valid() {
		return domain.Notification{}, fmt.Errorf("%w: unknown priority %q", ErrValidation, p.Priority)
	}
	raw, err := domain.EncodePayload(p.Payload)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("%w: payload: %v", ErrValidation, err)
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = domain.DefaultNotificationTTL
	}
	n := domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: p.RecipientID,
		Type:        p.Type,
		Title:       strings.TrimSpace(p.Title),
		Message:     p.Message,
		Payload:     raw,
		Priority:    p.Priority,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
	if p.SenderID != "" {
		n.SenderID = &p.SenderID
	}
	if p.Link != "" {
		n.Link = &p.Link
	}
	return n, nil
}

// pushMessage derives the provider message for n.
func pushMessage(n *domain.Notification, payload domain.Payload) push.Message {
	data := domain.PayloadData(payload)
	data["notification_id"] = n.ID
	data["type"] = string(n.Type)
	if n.Link != nil {
		data["link"] = *n.Link
	}
	return push.Message{Title: n.Title, Body: n.Message, Data: data}
}

// Notify persists the notification, then delivers it. A persistence failure
// aborts with an error and nothing is pushed. Delivery failures are logged.
func (s *NotificationService) Notify(ctx context.Context, p NotifyParams) (*domain.Notification, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "Notify",
		trace.WithAttributes(
			attribute.String("recipient.id", p.RecipientID),
			attribute.String("notification.type", string(p.Type)),
		),
	)
	defer span.End()

	n, err := s.build(p, s.now())
	if err != nil {
		return nil, err
	}
	if err := repo.CreateNotifications(ctx, s.DB, []domain.Notification{n}); err != nil {
		span.RecordError(err)
		return nil, transient("create notification", err)
	}
	observability.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()

	s.deliver(ctx, &n, p.Payload)
	return &n, nil
}

// deliver publishes the realtime event and pushes to devices. It never fails.
func (s *NotificationService) deliver(ctx context.Context, n *domain.Notification, payload domain.Payload) {
	s.events().PublishToUser(n.RecipientID, EventNotification, n)

	rep, err := s.PushToUser(ctx, n.RecipientID, pushMessage(n, payload))
	if err != nil {
		log.Warn().Err(fmt.Errorf("%w: %w", ErrDelivery, err)).
			Str("notification_id", n.ID).
			Str("recipient_id", n.RecipientID).
			Msg("push skipped")
		return
	}
	if len(rep.Results) > 0 {
		log.Debug().
			Str("notification_id", n.ID).
			Int("delivered", rep.Count(push.OutcomeDelivered)).
			Int("invalid", rep.Count(push.OutcomeInvalidToken)).
			Int("transient", rep.Count(push.OutcomeTransient)).
			Msg("push fan-out done")
	}
}

// NotifyMany sends the same notification to every distinct recipient.
// Recipients are processed concurrently; one failing recipient (or device)
// never prevents the others. The returned slice holds the notifications that
// were persisted, in input order; the error joins every persistence failure.
func (s *NotificationService) NotifyMany(ctx context.Context, recipientIDs []string, p NotifyParams) ([]domain.Notification, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "NotifyMany",
		trace.WithAttributes(attribute.Int("recipients", len(recipientIDs))),
	)
	defer span.End()

	seen := make(map[string]struct{}, len(recipientIDs))
	ids := make([]string, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	slots := make([]*domain.Notification, len(ids))
	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(s.limit())
	for i, id := range ids {
		g.Go(func() error {
			q := p
			q.RecipientID = id
			n, err := s.Notify(ctx, q)
			if err != nil {
				errs[i] = fmt.Errorf("recipient %s: %w", id, err)
				return nil
			}
			slots[i] = n
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.Notification, 0, len(ids))
	for _, n := range slots {
		if n != nil {
			out = append(out, *n)
		}
	}
	return out, errors.Join(errs...)
}

// PushToUser delivers msg to every registered device of recipientID
// concurrently. Invalid tokens are handed to the InvalidTokenSink. Only a
// failed device lookup is returned as an error.
func (s *NotificationService) PushToUser(ctx context.Context, recipientID string, msg push.Message) (push.Report, error) {
	if s.Devices == nil || s.Push == nil {
		return push.Report{}, nil
	}
	devices, err := s.Devices.Devices(ctx, recipientID)
	if err != nil {
		return push.Report{}, transient("list devices", err)
	}
	if len(devices) == 0 {
		return push.Report{}, nil
	}

	results := make([]push.Result, len(devices))
	var g errgroup.Group
	g.SetLimit(s.limit())
	for i, d := range devices {
		g.Go(func() error {
			t := push.Target{Token: d.Token, Platform: d.Platform}
			err := s.Push.Send(ctx, t, msg)
			results[i] = push.Result{Target: t, Outcome: push.Classify(err), Err: err}
			return nil
		})
	}
	_ = g.Wait()

	rep := push.Report{Results: results}
	for _, r := range results {
		observability.PushOutcomes.WithLabelValues(string(r.Outcome)).Inc()
		if r.Outcome == push.OutcomeTransient {
			log.Warn().Err(r.Err).
				Str("recipient_id", recipientID).
				Str("platform", string(r.Target.Platform)).
				Msg("push delivery failed")
		}
	}
	if bad := rep.InvalidTokens(); len(bad) > 0 && s.Invalid != nil {
		if err := s.Invalid.Prune(ctx, recipientID, bad); err != nil {
			log.Warn().Err(err).Str("recipient_id", recipientID).Int("tokens", len(bad)).Msg("prune invalid tokens failed")
		}
	}
	return rep, nil
}

// BroadcastTopic pushes to a topic without creating records.
func (s *NotificationService) BroadcastTopic(ctx context.Context, topic, title, message string, payload domain.Payload) (push.Report, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return push.Report{}, ErrEmptyTopic
	}
	if s.Push == nil {
		return push.Report{}, nil
	}
	data := domain.PayloadData(payload)
	data["topic"] = topic
	rep := s.Push.SendToTopic(ctx, topic, push.Message{Title: title, Body: message, Data: data})
	for _, r := range rep.Results {
		observability.PushOutcomes.WithLabelValues(string(r.Outcome)).Inc()
		if r.Outcome == push.OutcomeTransient {
			log.Warn().Err(r.Err).Str("topic", topic).Msg("topic broadcast failed")
		}
	}
	return rep, nil
}

// ListActive returns a page of unexpired notifications, newest first.
func (s *NotificationService) ListActive(ctx context.Context, recipientID string, page, pageSize int) ([]domain.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	now := s.now()
	total, err := repo.CountActiveNotifications(ctx, s.DB, recipientID, now)
	if err != nil {
		return nil, 0, transient("count notifications", err)
	}
	if total == 0 {
		return []domain.Notification{}, 0, nil
	}
	items, err := repo.ListActiveNotificationsPage(ctx, s.DB, recipientID, now, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, transient("list notifications", err)
	}
	return items, total, nil
}

// UnreadCount returns the number of unread, unexpired notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	n, err := repo.CountUnreadNotifications(ctx, s.DB, recipientID, s.now())
	if err != nil {
		return 0, transient("count unread notifications", err)
	}
	return n, nil
}

// MarkRead marks one notification read. Repeating it is not an error.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	err := repo.MarkNotificationRead(ctx, s.DB, id, recipientID, s.now())
	switch {
	case isNotFound(err):
		return ErrNotificationMissing
	case err != nil:
		return transient("mark notification read", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of recipientID read.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	n, err := repo.MarkAllNotificationsRead(ctx, s.DB, recipientID, s.now())
	if err != nil {
		return 0, transient("mark all notifications read", err)
	}
	return n, nil
}

// PurgeExpired deletes notifications past their expiry.
func (s *NotificationService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := repo.DeleteExpiredNotifications(ctx, s.DB, s.now())
	if err != nil {
		return 0, transient("purge notifications", err)
	}
	return n, nil
}
