// Package push delivers notification pushes to devices and topics.
//
// Providers speak to one delivery backend each (in-app websocket, email).
// A Router picks the provider for a device platform and degrades to a silent
// no-op when a platform has no provider configured, so the system works with
// zero devices and zero backends.
//
// Every delivery error is classified into one Outcome:
//
//   - invalid_token: the address is permanently unusable and should be pruned
//   - unconfigured:  nothing to deliver with; not an error for callers
//   - transient:     anything else; logged, never retried here
package push

import (
	"context"
	"errors"

	"github.com/tbourn/gym-realtime/internal/domain"
)

var (
	// ErrInvalidToken reports a token the provider will never accept again.
	ErrInvalidToken = errors.New("push: invalid token")

	// ErrUnconfigured reports that no provider can serve the request.
	ErrUnconfigured = errors.New("push: provider not configured")
)

// Message is the provider-agnostic push content.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Provider delivers to one backend. Implementations must be safe for
// concurrent use.
type Provider interface {
	SendToToken(ctx context.Context, token string, msg Message) error
	SendToTopic(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, token, topic string) error
	Unsubscribe(ctx context.Context, token, topic string) error
}

// Target is one device address.
type Target struct {
	Token    string          `json:"-"`
	Platform domain.Platform `json:"platform"`
}

// Outcome is the classified result of one delivery attempt.
type Outcome string

const (
	OutcomeDelivered    Outcome = "delivered"
	OutcomeInvalidToken Outcome = "invalid_token"
	OutcomeTransient    Outcome = "transient"
	OutcomeUnconfigured Outcome = "unconfigured"
)

// Classify maps a delivery error to its Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeDelivered
	case errors.Is(err, ErrInvalidToken):
		return OutcomeInvalidToken
	case errors.Is(err, ErrUnconfigured):
		return OutcomeUnconfigured
	default:
		return OutcomeTransient
	}
}

// Result records the outcome for one target.
type Result struct {
	Target  Target  `json:"target"`
	Outcome Outcome `json:"outcome"`
	Err     error   `json:"-"`
}

// Report aggregates delivery results of one fan-out.
type Report struct {
	Results []Result `json:"results"`
}

// Count returns how many results have outcome o.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// InvalidTokens returns the tokens classified as invalid, in result order.
func (r Report) InvalidTokens() []string {
	var out []string
	for _, res := range r.Results {
		if res.Outcome == OutcomeInvalidToken {
			out = append(out, res.Target.Token)
		}
	}
	return out
}

// TokenForgetter is implemented by providers that keep per-token state,
// such as topic subscriptions, which must go when a registration does.
type TokenForgetter interface {
	Forget(ctx context.Context, token string)
}

// Noop is the provider used when nothing is configured.
type Noop struct{}

func (Noop) SendToToken(context.Context, string, Message) error { return ErrUnconfigured }
func (Noop) SendToTopic(context.Context, string, Message) error { return ErrUnconfigured }
func (Noop) Subscribe(context.Context, string, string) error    { return ErrUnconfigured }
func (Noop) Unsubscribe(context.Context, string, string) error  { return ErrUnconfigured }
