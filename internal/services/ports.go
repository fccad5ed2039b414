package services

import (
	"context"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/push"
)

// Realtime event names published to connected users.
const (
	EventNotification = "notification"
	EventCallStatus   = "call_status"
	EventMessage      = "message"
)

// EventPublisher pushes realtime events to every open connection of a user.
// Delivery is best effort.
type EventPublisher interface {
	PublishToUser(userID, event string, data any)
}

// Notifier is what the chat and call flows need from the notification
// fan-out.
type Notifier interface {
	Notify(ctx context.Context, p NotifyParams) (*domain.Notification, error)
}

// CollaborationResolver looks up the collaboration a thread belongs to.
type CollaborationResolver interface {
	Resolve(ctx context.Context, id string) (*domain.Collaboration, error)
}

// DeviceSource lists the push addresses of a user.
type DeviceSource interface {
	Devices(ctx context.Context, userID string) ([]domain.DeviceRegistration, error)
}

// InvalidTokenSink receives tokens a provider reported as permanently invalid.
type InvalidTokenSink interface {
	Prune(ctx context.Context, userID string, tokens []string) error
}

// Dispatcher delivers pushes. *push.Router implements it.
type Dispatcher interface {
	Send(ctx context.Context, t push.Target, msg push.Message) error
	SendToTopic(ctx context.Context, topic string, msg push.Message) push.Report
	Subscribe(ctx context.Context, t push.Target, topic string) error
	Unsubscribe(ctx context.Context, t push.Target, topic string) error
	Forget(ctx context.Context, token string)
}

type nopPublisher struct{}

func (nopPublisher) PublishToUser(string, string, any) {}
