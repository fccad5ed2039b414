// Package services – ChatService
//
// This file implements the ChatService, the chat store of the real-time
// core. It owns threads (one per accepted collaboration), the append-only
// message log and per-reader read receipts. Content is normalized before it
// is stored, participants are enforced on every operation, and the thread's
// last-message preview is kept in the same transaction as the insert.
//
// Notifications to the counterpart are sent after the transaction commits
// and never fail the append.
package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/observability"
	"github.com/tbourn/gym-realtime/internal/repo"
	"github.com/tbourn/gym-realtime/internal/search"
)

// ChatService provides thread and message operations.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Collaborations resolves the collaboration a thread is created for.
	Collaborations CollaborationResolver
	// Notifier receives new_message notifications; nil disables them.
	Notifier Notifier
	// Events receives realtime message events; nil disables them.
	Events EventPublisher

	// MaxContentRunes caps message length after normalization.
	MaxContentRunes int
	// PreviewRunes caps the preview cached on the thread and sent in
	// notifications.
	PreviewRunes int
	// PageSize is the page size used by ListThreads.
	PageSize int
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// NewChatService constructs a ChatService with default limits.
func NewChatService(db *gorm.DB, collabs CollaborationResolver, n Notifier, ev EventPublisher) *ChatService {
	return &ChatService{
		DB:              db,
		Collaborations:  collabs,
		Notifier:        n,
		Events:          ev,
		MaxContentRunes: 4000,
		PreviewRunes:    120,
		PageSize:        50,
	}
}

func (s *ChatService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *ChatService) events() EventPublisher {
	if s.Events == nil {
		return nopPublisher{}
	}
	return s.Events
}

// GetOrCreateThread returns the thread of an accepted collaboration, creating
// it on first use. Concurrent callers for the same collaboration receive the
// same thread.
func (s *ChatService) GetOrCreateThread(ctx context.Context, collaborationID, requestingUserID string) (*domain.ChatThread, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "GetOrCreateThread",
		trace.WithAttributes(attribute.String("collaboration.id", collaborationID)),
	)
	defer span.End()

	if s.Collaborations == nil {
		return nil, ErrCollaborationNotFound
	}
	c, err := s.Collaborations.Resolve(ctx, collaborationID)
	if err != nil {
		return nil, err
	}
	if !c.IsParty(requestingUserID) {
		return nil, ErrNotCollaborator
	}
	if c.Status != domain.CollaborationAccepted {
		return nil, ErrCollaborationNotActive
	}

	t, err := repo.GetThreadByCollaboration(ctx, s.DB, c.ID)
	if err == nil {
		return t, nil
	}
	if !isNotFound(err) {
		return nil, transient("get thread", err)
	}

	t, err = repo.CreateThread(ctx, s.DB, c.ID, c.RequesterID, c.AddresseeID, s.now())
	if errors.Is(err, repo.ErrDuplicate) {
		// Lost the race to a concurrent creator; return its row.
		t, err = repo.GetThreadByCollaboration(ctx, s.DB, c.ID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, transient("create thread", err)
	}
	return t, nil
}

// thread loads an active thread and checks that userID takes part in it.
func (s *ChatService) thread(ctx context.Context, threadID, userID string) (*domain.ChatThread, error) {
	t, err := repo.GetThread(ctx, s.DB, threadID)
	switch {
	case isNotFound(err):
		return nil, ErrThreadNotFound
	case err != nil:
		return nil, transient("get thread", err)
	}
	if !t.IsActive {
		return nil, ErrThreadNotFound
	}
	if !t.HasParticipant(userID) {
		return nil, ErrNotThreadParticipant
	}
	return t, nil
}

// AppendMessage stores a message from senderID and notifies the counterpart.
func (s *ChatService) AppendMessage(ctx context.Context, threadID, senderID, content string) (*domain.Message, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "AppendMessage",
		trace.WithAttributes(attribute.String("thread.id", threadID)),
	)
	defer span.End()

	content = normalizeContent(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return nil, ErrContentTooLong
	}

	t, err := s.thread(ctx, threadID, senderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	preview := clipRunes(content, s.PreviewRunes)
	var msg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(ctx, tx, t.ID, senderID, content, now)
		if err != nil {
			return err
		}
		if err := repo.CreateReceipt(ctx, tx, m.ID, t.ID, senderID, now); err != nil {
			return err
		}
		if err := repo.UpdateThreadPreview(ctx, tx, t.ID, senderID, preview, now); err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, transient("append message", err)
	}
	msg.ReadBy = []domain.ReadReceipt{{MessageID: msg.ID, ThreadID: t.ID, ReaderID: senderID, ReadAt: now}}
	observability.ChatMessages.Inc()

	counterpart := t.Counterpart(senderID)
	s.events().PublishToUser(counterpart, EventMessage, msg)
	s.events().PublishToUser(senderID, EventMessage, msg)

	if s.Notifier != nil {
		_, err := s.Notifier.Notify(ctx, NotifyParams{
			RecipientID: counterpart,
			SenderID:    senderID,
			Type:        domain.NotifyNewMessage,
			Title:       "New message",
			Message:     preview,
			Payload: domain.NewMessagePayload{
				ThreadID:  t.ID,
				MessageID: msg.ID,
				SenderID:  senderID,
				Preview:   preview,
			},
		})
		if err != nil {
			log.Warn().Err(err).Str("thread_id", t.ID).Str("message_id", msg.ID).Msg("new message notification failed")
		}
	}
	return msg, nil
}

// MarkRead records a receipt for readerID on every unread message in the
// thread. It returns how many receipts were added; repeating it adds none.
func (s *ChatService) MarkRead(ctx context.Context, threadID, readerID string) (int, error) {
	t, err := s.thread(ctx, threadID, readerID)
	if err != nil {
		return 0, err
	}
	n, err := repo.MarkThreadRead(ctx, s.DB, t.ID, readerID, s.now())
	if err != nil {
		return 0, transient("mark thread read", err)
	}
	return int(n), nil
}

// UnreadCount returns how many messages from others userID has not read.
func (s *ChatService) UnreadCount(ctx context.Context, threadID, userID string) (int64, error) {
	t, err := s.thread(ctx, threadID, userID)
	if err != nil {
		return 0, err
	}
	n, err := repo.CountUnread(ctx, s.DB, t.ID, userID)
	if err != nil {
		return 0, transient("count unread", err)
	}
	return n, nil
}

// ListThreads lazily yields the active threads of userID, most recently
// active first. Each range over the sequence runs its own queries, one page
// of PageSize threads at a time. A query failure is yielded once and ends
// the sequence.
func (s *ChatService) ListThreads(ctx context.Context, userID string) iter.Seq2[domain.ChatThread, error] {
	size := s.PageSize
	if size <= 0 {
		size = 50
	}
	return func(yield func(domain.ChatThread, error) bool) {
		for offset := 0; ; offset += size {
			page, err := repo.ListThreadsPage(ctx, s.DB, userID, offset, size)
			if err != nil {
				yield(domain.ChatThread{}, transient("list threads", err))
				return
			}
			for _, t := range page {
				if !yield(t, nil) {
					return
				}
			}
			if len(page) < size {
				return
			}
		}
	}
}

// ListThreadsPage returns one page of threads plus the total count.
// It applies defaults for invalid page/pageSize.
func (s *ChatService) ListThreadsPage(ctx context.Context, userID string, page, pageSize int) ([]domain.ChatThread, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountThreads(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, transient("count threads", err)
	}
	if total == 0 {
		return []domain.ChatThread{}, 0, nil
	}
	items, err := repo.ListThreadsPage(ctx, s.DB, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, transient("list threads", err)
	}
	return items, total, nil
}

// ListMessagesPage returns one page of a thread's messages, oldest first,
// with read receipts.
func (s *ChatService) ListMessagesPage(ctx context.Context, threadID, userID string, page, pageSize int) ([]domain.Message, int64, error) {
	if _, err := s.thread(ctx, threadID, userID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountMessages(ctx, s.DB, threadID)
	if err != nil {
		return nil, 0, transient("count messages", err)
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}
	items, err := repo.ListMessagesPage(ctx, s.DB, threadID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, transient("list messages", err)
	}
	return items, total, nil
}

// SearchMessages ranks the thread's messages against query and returns the
// k best matches.
func (s *ChatService) SearchMessages(ctx context.Context, threadID, userID, query string, k int) ([]search.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", ErrValidation)
	}
	if _, err := s.thread(ctx, threadID, userID); err != nil {
		return nil, err
	}
	msgs, err := repo.ListMessages(ctx, s.DB, threadID, 0)
	if err != nil {
		return nil, transient("list messages", err)
	}
	docs := make([]search.Doc, 0, len(msgs))
	for _, m := range msgs {
		docs = append(docs, search.Doc{ID: m.ID, SenderID: m.SenderID, Text: m.Content, At: m.CreatedAt})
	}
	out := search.NewIndex(docs).TopK(query, k)
	if out == nil {
		out = []search.Result{}
	}
	return out, nil
}

// Deactivate hides the thread from listings for both participants.
func (s *ChatService) Deactivate(ctx context.Context, threadID, userID string) error {
	t, err := s.thread(ctx, threadID, userID)
	if err != nil {
		return err
	}
	err = repo.DeactivateThread(ctx, s.DB, t.ID, s.now())
	switch {
	case isNotFound(err):
		return ErrThreadNotFound
	case err != nil:
		return transient("deactivate thread", err)
	}
	return nil
}

// normalizeContent unifies line endings, applies NFC and trims.
func normalizeContent(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(norm.NFC.String(s))
}

// clipRunes truncates s to n runes, appending an ellipsis when cut.
func clipRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n])) + "…"
}
