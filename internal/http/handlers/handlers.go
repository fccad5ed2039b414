// Package handlers exposes the REST surface of the realtime core: chat
// threads and messages, call sessions, notifications, device registration,
// collaborations, and the websocket upgrade.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses (including conditional
// and idempotent replays). Service errors are mapped by kind in failErr.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/http/middleware"
	"github.com/tbourn/gym-realtime/internal/push"
	"github.com/tbourn/gym-realtime/internal/repo"
	"github.com/tbourn/gym-realtime/internal/search"
	"github.com/tbourn/gym-realtime/internal/services"
	"github.com/tbourn/gym-realtime/internal/utils"
)

//
// Service contracts (context-aware)
//

// ChatService defines the chat store operations consumed by HTTP handlers.
type ChatService interface {
	GetOrCreateThread(ctx context.Context, collaborationID, userID string) (*domain.ChatThread, error)
	AppendMessage(ctx context.Context, threadID, senderID, content string) (*domain.Message, error)
	MarkRead(ctx context.Context, threadID, readerID string) (int, error)
	UnreadCount(ctx context.Context, threadID, userID string) (int64, error)
	ListThreadsPage(ctx context.Context, userID string, page, pageSize int) ([]domain.ChatThread, int64, error)
	ListMessagesPage(ctx context.Context, threadID, userID string, page, pageSize int) ([]domain.Message, int64, error)
	SearchMessages(ctx context.Context, threadID, userID, query string, k int) ([]search.Result, error)
	Deactivate(ctx context.Context, threadID, userID string) error
}

// CallService defines the call session operations consumed by HTTP handlers.
type CallService interface {
	PlaceCall(ctx context.Context, p services.PlaceCallParams) (*domain.Call, error)
	Accept(ctx context.Context, callID, userID string) (*domain.Call, error)
	Reject(ctx context.Context, callID, userID string) error
	End(ctx context.Context, callID, userID string) (*domain.Call, error)
	Get(ctx context.Context, callID, userID string) (*domain.Call, error)
	History(ctx context.Context, userID string, page, pageSize int) ([]domain.Call, int64, error)
}

// NotificationService defines the notification read path and topic broadcast.
type NotificationService interface {
	ListActive(ctx context.Context, recipientID string, page, pageSize int) ([]domain.Notification, int64, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	BroadcastTopic(ctx context.Context, topic, title, message string, payload domain.Payload) (push.Report, error)
}

// DeviceService registers push addresses.
type DeviceService interface {
	Register(ctx context.Context, userID, token string, platform domain.Platform, topics []string) (*domain.DeviceRegistration, error)
	Unregister(ctx context.Context, userID, token string) error
	Owns(ctx context.Context, userID, token string) (bool, error)
}

// CollaborationService manages trainer/member pairings.
type CollaborationService interface {
	Request(ctx context.Context, requesterID, addresseeID string) (*domain.Collaboration, error)
	Accept(ctx context.Context, id, userID string) (*domain.Collaboration, error)
	List(ctx context.Context, userID string) ([]domain.Collaboration, error)
}

// WSServer serves an authenticated websocket connection.
type WSServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID, device string) error
}

//
// Handler wiring
//

// Deps carries the handler dependencies. DB is optional; without it ETags
// and idempotent replays are disabled.
type Deps struct {
	Chat           ChatService
	Calls          CallService
	Notifications  NotificationService
	Devices        DeviceService
	Collaborations CollaborationService
	WS             WSServer

	DB             *gorm.DB
	IdempotencyTTL time.Duration
	// CanBroadcast reports whether a user may broadcast to topics. Nil
	// denies everyone.
	CanBroadcast func(userID string) bool
}

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	chat    ChatService
	calls   CallService
	notes   NotificationService
	devices DeviceService
	collabs CollaborationService
	ws      WSServer

	db           *gorm.DB
	idemTTL      time.Duration
	canBroadcast func(string) bool
}

// New constructs a Handlers instance bound to the given services.
func New(d Deps) *Handlers {
	ttl := d.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Handlers{
		chat:         d.Chat,
		calls:        d.Calls,
		notes:        d.Notifications,
		devices:      d.Devices,
		collabs:      d.Collaborations,
		ws:           d.WS,
		db:           d.DB,
		idemTTL:      ttl,
		canBroadcast: d.CanBroadcast,
	}
}

// userID returns the caller set by the identity middleware.
func userID(c *gin.Context) string { return middleware.UserID(c) }

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func paginate(page, pageSize int, total int64) Pagination {
	p := utils.Page{Number: page, Size: pageSize}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: p.TotalPages(total),
		HasNext:    p.HasNext(total),
	}
}

//
// Helpers
//

// clampPagination reads page and page_size: 20 per page by default, at
// most 100.
func clampPagination(c *gin.Context) (page, pageSize int) {
	p := utils.ParsePage(c.Query("page"), c.Query("page_size"), 20, 100)
	return p.Number, p.Size
}

// notModified sets etag and reports whether If-None-Match already matches,
// in which case a 304 has been written.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// stamp renders an optional timestamp for ETags.
func stamp(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}

// replayed looks up a previous result for the request's Idempotency-Key and
// returns its resource id and status.
func (h *Handlers) replayed(c *gin.Context) (resourceID string, status int, found bool) {
	if rep, ok := middleware.StoredReplay(c); ok {
		return rep.ResourceID, rep.Status, true
	}
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok || h.db == nil {
		return "", 0, false
	}
	rec, err := repo.GetIdempotency(c.Request.Context(), h.db, idemKey(c, key), time.Now().UTC())
	if err != nil {
		return "", 0, false
	}
	return rec.ResourceID, rec.Status, true
}

func idemKey(c *gin.Context, key string) repo.IdemKey {
	return repo.IdemKey{UserID: userID(c), Scope: middleware.IdempotencyScope(c), Key: key}
}

// remember records the result of a keyed request. Best effort.
func (h *Handlers) remember(c *gin.Context, resourceID string, status int) {
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok || h.db == nil {
		return
	}
	_, err := repo.SaveIdempotency(c.Request.Context(), h.db, idemKey(c, key), resourceID, status, time.Now().UTC(), h.idemTTL)
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record failed")
	}
}

// bindJSON decodes the body or writes a 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// pathID returns the trimmed :id parameter or writes a 400.
func pathID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id is required")
		return "", false
	}
	return id, true
}
