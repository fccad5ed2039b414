// Package services defines the business logic for chat threads, calls,
// notifications and their collaborators. This file centralizes the error
// taxonomy so that service methods return predictable, classifiable errors
// and handlers can map them to HTTP results consistently.
//
// Every returned error wraps exactly one kind sentinel (ErrValidation,
// ErrForbidden, ...). Callers test the kind with errors.Is and may test the
// more specific sentinel (ErrEmptyContent, ErrCallNotFound, ...) when they
// need to.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/repo"
)

// Error kinds.
var (
	// ErrValidation reports malformed or missing input. Not retryable.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden reports an authenticated actor acting on an entity it does
	// not take part in.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound reports an id that does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports an invariant violation such as a second live call.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState reports a state-machine precondition that is not met.
	ErrInvalidState = errors.New("invalid state")

	// ErrTransient reports a storage or network hiccup. Safe to retry with
	// backoff; services never retry on their own.
	ErrTransient = errors.New("temporarily unavailable")

	// ErrDelivery reports a push or signaling delivery failure. It is logged
	// and never returned from the business operation that triggered it.
	ErrDelivery = errors.New("delivery failed")
)

// Chat errors.
var (
	ErrEmptyContent           = fmt.Errorf("%w: message content is empty", ErrValidation)
	ErrContentTooLong         = fmt.Errorf("%w: message content too long", ErrValidation)
	ErrThreadNotFound         = fmt.Errorf("%w: thread not found", ErrNotFound)
	ErrNotThreadParticipant   = fmt.Errorf("%w: not a participant of this thread", ErrForbidden)
	ErrCollaborationNotFound  = fmt.Errorf("%w: collaboration not found", ErrNotFound)
	ErrCollaborationNotActive = fmt.Errorf("%w: collaboration is not accepted", ErrForbidden)
	ErrNotCollaborator        = fmt.Errorf("%w: not a party of this collaboration", ErrForbidden)
)

// Call errors.
var (
	ErrCallNotFound       = fmt.Errorf("%w: call not found", ErrNotFound)
	ErrSelfCall           = fmt.Errorf("%w: caller and recipient must differ", ErrValidation)
	ErrInvalidCallKind    = fmt.Errorf("%w: call kind must be voice or video", ErrValidation)
	ErrNotCallRecipient   = fmt.Errorf("%w: only the recipient may answer this call", ErrForbidden)
	ErrNotCallParticipant = fmt.Errorf("%w: not a participant of this call", ErrForbidden)
)

// Notification and device errors.
var (
	ErrInvalidNotification = fmt.Errorf("%w: notification requires recipient, known type and title", ErrValidation)
	ErrNotificationMissing = fmt.Errorf("%w: notification not found", ErrNotFound)
	ErrEmptyTopic          = fmt.Errorf("%w: topic is empty", ErrValidation)
	ErrInvalidDevice       = fmt.Errorf("%w: device requires token and known platform", ErrValidation)
	ErrDeviceNotFound      = fmt.Errorf("%w: device not registered", ErrNotFound)
)

// CallStateError is returned when a call transition is refused. It carries
// the call's current status so clients can resynchronize.
type CallStateError struct {
	Kind   error // ErrInvalidState or ErrConflict
	CallID string
	Status domain.CallStatus
	// UserID is the busy party for conflicts.
	UserID string
}

func (e *CallStateError) Error() string {
	if e.UserID != "" {
		return fmt.Sprintf("%v: user %s already in call %s (%s)", e.Kind, e.UserID, e.CallID, e.Status)
	}
	return fmt.Sprintf("%v: call %s is %s", e.Kind, e.CallID, e.Status)
}

func (e *CallStateError) Unwrap() error { return e.Kind }

// transient wraps a storage failure. Not-found results are not transient and
// are passed through untouched so callers can map them.
func transient(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

// isNotFound treats repo-level not found sentinels as "not found".
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound)
}
