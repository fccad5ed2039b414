package push

import (
	"context"
	"fmt"
	"html"
	"net/mail"
	"strings"

	"github.com/resend/resend-go/v3"
)

// Email sends pushes as transactional email through Resend. The device
// token is the recipient address.
type Email struct {
	from string
	send func(ctx context.Context, req *resend.SendEmailRequest) error
}

// NewEmail returns an Email provider. An empty apiKey yields nil so callers
// can leave the email platform unconfigured.
func NewEmail(apiKey, from string) *Email {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	client := resend.NewClient(apiKey)
	return &Email{
		from: from,
		send: func(ctx context.Context, req *resend.SendEmailRequest) error {
			_, err := client.Emails.SendWithContext(ctx, req)
			return err
		},
	}
}

// SendToToken emails msg to the address in token. A malformed address or a
// provider validation rejection is an invalid token.
func (e *Email) SendToToken(ctx context.Context, token string, msg Message) error {
	addr, err := mail.ParseAddress(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	req := &resend.SendEmailRequest{
		From:    e.from,
		To:      []string{addr.Address},
		Subject: msg.Title,
		Text:    msg.Body,
		Html:    "<p>" + html.EscapeString(msg.Body) + "</p>",
	}
	if err := e.send(ctx, req); err != nil {
		if isRejectedAddress(err) {
			return fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// isRejectedAddress matches Resend's validation error for bad recipients.
func isRejectedAddress(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "validation_error") && strings.Contains(msg, "to")
}

// SendToTopic is unsupported for email.
func (e *Email) SendToTopic(context.Context, string, Message) error { return ErrUnconfigured }

// Subscribe is unsupported for email.
func (e *Email) Subscribe(context.Context, string, string) error { return ErrUnconfigured }

// Unsubscribe is unsupported for email.
func (e *Email) Unsubscribe(context.Context, string, string) error { return ErrUnconfigured }
