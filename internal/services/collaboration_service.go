package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/repo"
)

// CollaborationService manages the trainer/member pairings that chat threads
// hang off. It is the CollaborationResolver of the ChatService.
type CollaborationService struct {
	DB       *gorm.DB
	Notifier Notifier
	Now      func() time.Time
}

func (s *CollaborationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Request creates a pending collaboration and notifies the addressee.
func (s *CollaborationService) Request(ctx context.Context, requesterID, addresseeID string) (*domain.Collaboration, error) {
	requesterID, addresseeID = strings.TrimSpace(requesterID), strings.TrimSpace(addresseeID)
	if requesterID == "" || addresseeID == "" || requesterID == addresseeID {
		return nil, fmt.Errorf("%w: collaboration needs two distinct users", ErrValidation)
	}
	c, err := repo.CreateCollaboration(ctx, s.DB, requesterID, addresseeID, s.now())
	if err != nil {
		return nil, transient("create collaboration", err)
	}
	s.notify(ctx, addresseeID, requesterID, domain.NotifyCollaborationRequest, "New collaboration request", c)
	return c, nil
}

// Accept moves a pending collaboration to accepted. Only the addressee may
// accept.
func (s *CollaborationService) Accept(ctx context.Context, id, actingUserID string) (*domain.Collaboration, error) {
	c, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.AddresseeID != actingUserID {
		return nil, ErrNotCollaborator
	}
	ok, err := repo.SetCollaborationStatus(ctx, s.DB, id, domain.CollaborationPending, domain.CollaborationAccepted, s.now())
	if err != nil {
		return nil, transient("accept collaboration", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: collaboration is %s", ErrInvalidState, c.Status)
	}
	c.Status = domain.CollaborationAccepted
	s.notify(ctx, c.RequesterID, actingUserID, domain.NotifyCollaborationAccepted, "Collaboration accepted", c)
	return c, nil
}

// Resolve implements CollaborationResolver.
func (s *CollaborationService) Resolve(ctx context.Context, id string) (*domain.Collaboration, error) {
	c, err := repo.GetCollaboration(ctx, s.DB, id)
	switch {
	case isNotFound(err):
		return nil, ErrCollaborationNotFound
	case err != nil:
		return nil, transient("get collaboration", err)
	}
	return c, nil
}

// List returns the collaborations userID takes part in.
func (s *CollaborationService) List(ctx context.Context, userID string) ([]domain.Collaboration, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	out, err := repo.ListCollaborations(ctx, s.DB, userID)
	if err != nil {
		return nil, transient("list collaborations", err)
	}
	return out, nil
}

func (s *CollaborationService) notify(ctx context.Context, to, from string, t domain.NotificationType, title string, c *domain.Collaboration) {
	if s.Notifier == nil {
		return
	}
	_, err := s.Notifier.Notify(ctx, NotifyParams{
		RecipientID: to,
		SenderID:    from,
		Type:        t,
		Title:       title,
		Payload:     domain.CollaborationPayload{CollaborationID: c.ID, UserID: from, Status: string(c.Status)},
	})
	if err != nil {
		log.Warn().Err(err).Str("collaboration_id", c.ID).Msg("collaboration notification failed")
	}
}
