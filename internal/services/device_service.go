package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/push"
	"github.com/tbourn/gym-realtime/internal/repo"
)

// DeviceService owns device registrations. It is the DeviceSource and the
// InvalidTokenSink of the notification fan-out.
type DeviceService struct {
	DB   *gorm.DB
	Push Dispatcher
	Now  func() time.Time
}

func (s *DeviceService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Register upserts token for userID and subscribes it to topics. Topic
// subscription failures are logged; the registration itself stands.
func (s *DeviceService) Register(ctx context.Context, userID, token string, platform domain.Platform, topics []string) (*domain.DeviceRegistration, error) {
	token = strings.TrimSpace(token)
	if token == "" || !platform.Valid() || userID == "" {
		return nil, ErrInvalidDevice
	}
	d, err := repo.UpsertDevice(ctx, s.DB, userID, token, platform, s.now())
	if err != nil {
		return nil, transient("register device", err)
	}
	if s.Push != nil {
		t := push.Target{Token: token, Platform: platform}
		for _, topic := range topics {
			if topic = strings.TrimSpace(topic); topic == "" {
				continue
			}
			if err := s.Push.Subscribe(ctx, t, topic); err != nil && push.Classify(err) != push.OutcomeUnconfigured {
				log.Warn().Err(err).Str("user_id", userID).Str("topic", topic).Msg("topic subscribe failed")
			}
		}
	}
	return d, nil
}

// Unregister removes token from userID and drops its topic subscriptions.
func (s *DeviceService) Unregister(ctx context.Context, userID, token string) error {
	err := repo.DeleteDevice(ctx, s.DB, userID, token)
	switch {
	case isNotFound(err):
		return ErrDeviceNotFound
	case err != nil:
		return transient("unregister device", err)
	}
	if s.Push != nil {
		s.Push.Forget(ctx, token)
	}
	return nil
}

// Owns reports whether token is registered to userID.
func (s *DeviceService) Owns(ctx context.Context, userID, token string) (bool, error) {
	ok, err := repo.DeviceOwnedBy(ctx, s.DB, userID, token)
	if err != nil {
		return false, transient("device owner", err)
	}
	return ok, nil
}

// Devices implements DeviceSource.
func (s *DeviceService) Devices(ctx context.Context, userID string) ([]domain.DeviceRegistration, error) {
	return repo.ListDevices(ctx, s.DB, userID)
}

// Prune implements InvalidTokenSink by deleting the reported tokens still
// registered to userID.
func (s *DeviceService) Prune(ctx context.Context, userID string, tokens []string) error {
	n, err := repo.DeleteDeviceTokens(ctx, s.DB, userID, tokens)
	if err != nil {
		return transient("prune devices", err)
	}
	log.Info().Str("user_id", userID).Int64("pruned", n).Msg("invalid push tokens pruned")
	return nil
}
