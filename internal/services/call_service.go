// Package services – CallService
//
// This file implements the call session manager. Calls move through
//
//	ringing -> accepted -> ended
//	        -> rejected | missed
//
// Every transition is a compare-and-set UPDATE guarded by the allowed source
// statuses, so of two concurrent transitions on the same call exactly one
// wins; the loser gets ErrInvalidState with the call's current status.
//
// A user takes part in at most one live call. PlaceCall checks the live-call
// slot table inside its transaction and then claims one slot per party; the
// slot table's primary key on user_id rejects a concurrent second claim, so
// the rule holds under races. Terminal transitions release the slots in the
// same transaction.
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
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/observability"
	"github.com/tbourn/gym-realtime/internal/repo"
)

// PlaceCallParams describes a new call. ThreadID is optional.
type PlaceCallParams struct {
	CallerID    string
	RecipientID string
	Kind        domain.CallKind
	ThreadID    string
}

// CallService manages call sessions.
type CallService struct {
	DB       *gorm.DB
	Notifier Notifier
	Events   EventPublisher
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// errCASLost aborts a transition transaction whose UPDATE matched no row.
var errCASLost = errors.New("call transition lost")

// staleBatch bounds how many ringing calls ExpireRinging loads per query.
const staleBatch = 100

var titleCaser = cases.Title(language.English)

func (s *CallService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *CallService) events() EventPublisher {
	if s.Events == nil {
		return nopPublisher{}
	}
	return s.Events
}

// PlaceCall creates a ringing call from caller to recipient. It fails with
// ErrConflict when either party is already in a live call.
func (s *CallService) PlaceCall(ctx context.Context, p PlaceCallParams) (*domain.Call, error) {
	tr := otel.Tracer("services/CallService")
	ctx, span := tr.Start(ctx, "PlaceCall",
		trace.WithAttributes(
			attribute.String("caller.id", p.CallerID),
			attribute.String("recipient.id", p.RecipientID),
			attribute.String("call.kind", string(p.Kind)),
		),
	)
	defer span.End()

	p.CallerID, p.RecipientID = strings.TrimSpace(p.CallerID), strings.TrimSpace(p.RecipientID)
	if p.CallerID == "" || p.RecipientID == "" {
		return nil, fmt.Errorf("%w: caller and recipient are required", ErrValidation)
	}
	if p.CallerID == p.RecipientID {
		return nil, ErrSelfCall
	}
	if !p.Kind.Valid() {
		return nil, ErrInvalidCallKind
	}

	now := s.now()
	call := &domain.Call{
		ID:          uuid.NewString(),
		CallID:      uuid.NewString(),
		CallerID:    p.CallerID,
		RecipientID: p.RecipientID,
		Kind:        p.Kind,
		Status:      domain.CallRinging,
		StartedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t := strings.TrimSpace(p.ThreadID); t != "" {
		call.ThreadID = &t
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range []string{p.CallerID, p.RecipientID} {
			if err := busy(ctx, tx, u); err != nil {
				return err
			}
		}
		if err := repo.CreateCall(ctx, tx, call); err != nil {
			return err
		}
		if err := repo.ClaimLiveSlots(ctx, tx, call.CallID, []string{p.CallerID, p.RecipientID}, now); err != nil {
			if errors.Is(err, repo.ErrSlotTaken) {
				return fmt.Errorf("%w: a participant is already in a call", ErrConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			observability.CallConflicts.Inc()
			return nil, err
		}
		span.RecordError(err)
		return nil, transient("place call", err)
	}
	observability.CallTransitions.WithLabelValues(string(domain.CallRinging)).Inc()
	log.Info().Str("call_id", call.CallID).Str("kind", string(call.Kind)).Msg("call placed")

	s.publish(call)
	s.notify(ctx, NotifyParams{
		RecipientID: call.RecipientID,
		SenderID:    call.CallerID,
		Type:        domain.NotifyIncomingCall,
		Title:       titleCaser.String("incoming " + string(call.Kind) + " call"),
		Priority:    domain.PriorityUrgent,
		Payload: domain.IncomingCallPayload{
			CallID:   call.CallID,
			CallerID: call.CallerID,
			Kind:     call.Kind,
			ThreadID: p.ThreadID,
		},
	}, call.CallID)
	return call, nil
}

// busy returns a conflict error if userID holds a live call slot.
func busy(ctx context.Context, tx *gorm.DB, userID string) error {
	slot, err := repo.LiveSlotHolder(ctx, tx, userID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	status := domain.CallStatus("")
	if c, err := repo.GetCallByCallID(ctx, tx, slot.CallID); err == nil {
		status = c.Status
	}
	return &CallStateError{Kind: ErrConflict, CallID: slot.CallID, Status: status, UserID: userID}
}

// load fetches a call by its external id.
func (s *CallService) load(ctx context.Context, callID string) (*domain.Call, error) {
	c, err := repo.GetCallByCallID(ctx, s.DB, callID)
	switch {
	case isNotFound(err):
		return nil, ErrCallNotFound
	case err != nil:
		return nil, transient("get call", err)
	}
	return c, nil
}

// transition applies a compare-and-set from the allowed statuses to to.
// Moving into a terminal status releases the call's live slots in the same
// transaction. A lost CAS reports the current status.
func (s *CallService) transition(ctx context.Context, c *domain.Call, from []domain.CallStatus, to domain.CallStatus, updates map[string]any) error {
	updates["status"] = to
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.TransitionCall(ctx, tx, c.CallID, from, updates)
		if err != nil {
			return err
		}
		if !ok {
			return errCASLost
		}
		if to.IsTerminal() {
			return repo.ReleaseLiveSlots(ctx, tx, c.CallID)
		}
		return nil
	})
	if errors.Is(err, errCASLost) {
		cur, lerr := s.load(ctx, c.CallID)
		if lerr != nil {
			return lerr
		}
		return &CallStateError{Kind: ErrInvalidState, CallID: cur.CallID, Status: cur.Status}
	}
	if err != nil {
		return transient("transition call", err)
	}
	observability.CallTransitions.WithLabelValues(string(to)).Inc()
	log.Info().Str("call_id", c.CallID).Str("from", string(c.Status)).Str("to", string(to)).Msg("call transition")
	return nil
}

// Accept answers a ringing call. Only the recipient may accept.
func (s *CallService) Accept(ctx context.Context, callID, actingUserID string) (*domain.Call, error) {
	tr := otel.Tracer("services/CallService")
	ctx, span := tr.Start(ctx, "Accept", trace.WithAttributes(attribute.String("call.id", callID)))
	defer span.End()

	c, err := s.load(ctx, callID)
	if err != nil {
		return nil, err
	}
	if c.RecipientID != actingUserID {
		return nil, ErrNotCallRecipient
	}
	now := s.now()
	err = s.transition(ctx, c, []domain.CallStatus{domain.CallRinging}, domain.CallAccepted, map[string]any{
		"answered_at": now,
		"updated_at":  now,
	})
	if err != nil {
		return nil, err
	}
	c.Status, c.AnsweredAt, c.UpdatedAt = domain.CallAccepted, &now, now
	s.publish(c)
	return c, nil
}

// Reject declines a call that has not been answered. Only the recipient may
// reject; the caller is notified.
func (s *CallService) Reject(ctx context.Context, callID, actingUserID string) error {
	tr := otel.Tracer("services/CallService")
	ctx, span := tr.Start(ctx, "Reject", trace.WithAttributes(attribute.String("call.id", callID)))
	defer span.End()

	c, err := s.load(ctx, callID)
	if err != nil {
		return err
	}
	if c.RecipientID != actingUserID {
		return ErrNotCallRecipient
	}
	now := s.now()
	err = s.transition(ctx, c, []domain.CallStatus{domain.CallInitiated, domain.CallRinging}, domain.CallRejected, map[string]any{
		"ended_at":   now,
		"updated_at": now,
	})
	if err != nil {
		return err
	}
	c.Status, c.EndedAt, c.UpdatedAt = domain.CallRejected, &now, now
	s.publish(c)
	s.notify(ctx, NotifyParams{
		RecipientID: c.CallerID,
		SenderID:    c.RecipientID,
		Type:        domain.NotifyCallRejected,
		Title:       "Call declined",
		Payload:     domain.CallRejectedPayload{CallID: c.CallID, RecipientID: c.RecipientID},
	}, c.CallID)
	return nil
}

// End hangs up a live call and records its duration in whole seconds since
// it was placed. Either participant may end it. Ending an already finished
// call fails with ErrInvalidState and leaves the recorded values untouched.
func (s *CallService) End(ctx context.Context, callID, actingUserID string) (*domain.Call, error) {
	tr := otel.Tracer("services/CallService")
	ctx, span := tr.Start(ctx, "End", trace.WithAttributes(attribute.String("call.id", callID)))
	defer span.End()

	c, err := s.load(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !c.IsParticipant(actingUserID) {
		return nil, ErrNotCallParticipant
	}
	now := s.now()
	dur := domain.WholeSeconds(c.StartedAt, now)
	err = s.transition(ctx, c, domain.LiveCallStatuses, domain.CallEnded, map[string]any{
		"ended_at":     now,
		"duration_sec": dur,
		"updated_at":   now,
	})
	if err != nil {
		return nil, err
	}
	c.Status, c.EndedAt, c.DurationSec, c.UpdatedAt = domain.CallEnded, &now, dur, now
	s.publish(c)
	return c, nil
}

// MarkMissed moves an unanswered call to missed and notifies the recipient.
func (s *CallService) MarkMissed(ctx context.Context, callID string) (*domain.Call, error) {
	tr := otel.Tracer("services/CallService")
	ctx, span := tr.Start(ctx, "MarkMissed", trace.WithAttributes(attribute.String("call.id", callID)))
	defer span.End()

	c, err := s.load(ctx, callID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	err = s.transition(ctx, c, []domain.CallStatus{domain.CallInitiated, domain.CallRinging}, domain.CallMissed, map[string]any{
		"ended_at":   now,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}
	c.Status, c.EndedAt, c.UpdatedAt = domain.CallMissed, &now, now
	s.publish(c)
	s.notify(ctx, NotifyParams{
		RecipientID: c.RecipientID,
		SenderID:    c.CallerID,
		Type:        domain.NotifyMissedCall,
		Title:       titleCaser.String("missed " + string(c.Kind) + " call"),
		Priority:    domain.PriorityHigh,
		Payload:     domain.MissedCallPayload{CallID: c.CallID, CallerID: c.CallerID, Kind: c.Kind},
	}, c.CallID)
	return c, nil
}

// Get returns a call to one of its participants.
func (s *CallService) Get(ctx context.Context, callID, actingUserID string) (*domain.Call, error) {
	c, err := s.load(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !c.IsParticipant(actingUserID) {
		return nil, ErrNotCallParticipant
	}
	return c, nil
}

// CanJoinRoom admits userID to callID's signaling room while the call is
// live and userID takes part in it.
func (s *CallService) CanJoinRoom(ctx context.Context, callID, userID string) (bool, error) {
	c, err := s.load(ctx, callID)
	if err != nil {
		return false, err
	}
	return c.IsParticipant(userID) && c.Status.IsLive(), nil
}

// ExpireRinging marks calls ringing for longer than olderThan as missed and
// returns how many it moved. Calls answered or ended in the meantime are
// skipped.
func (s *CallService) ExpireRinging(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	n := 0
	for {
		stale, err := repo.ListStaleRinging(ctx, s.DB, cutoff, staleBatch)
		if err != nil {
			return n, transient("list stale calls", err)
		}
		moved := 0
		for _, c := range stale {
			if _, err := s.MarkMissed(ctx, c.CallID); err != nil {
				if errors.Is(err, ErrInvalidState) {
					continue
				}
				return n, err
			}
			moved++
		}
		n += moved
		if len(stale) < staleBatch || moved == 0 {
			return n, nil
		}
	}
}

// History returns one page of calls involving userID, newest first.
func (s *CallService) History(ctx context.Context, userID string, page, pageSize int) ([]domain.Call, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountCalls(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, transient("count calls", err)
	}
	if total == 0 {
		return []domain.Call{}, 0, nil
	}
	items, err := repo.ListCallsPage(ctx, s.DB, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, transient("list calls", err)
	}
	return items, total, nil
}

func (s *CallService) publish(c *domain.Call) {
	s.events().PublishToUser(c.CallerID, EventCallStatus, c)
	s.events().PublishToUser(c.RecipientID, EventCallStatus, c)
}

func (s *CallService) notify(ctx context.Context, p NotifyParams, callID string) {
	if s.Notifier == nil {
		return
	}
	if _, err := s.Notifier.Notify(ctx, p); err != nil {
		log.Warn().Err(err).Str("call_id", callID).Str("type", string(p.Type)).Msg("call notification failed")
	}
}
