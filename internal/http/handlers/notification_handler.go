// Notification HTTP handlers.
//
//   - GET  /notifications                 (active notifications, paginated)
//   - GET  /notifications/unread-count
//   - POST /notifications/{id}/read
//   - POST /notifications/read-all
//   - POST /topics/{topic}/broadcast      (topic push, restricted)
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/repo"
)

// ListNotificationsResponse wraps a page of notifications.
type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Pagination    Pagination            `json:"pagination"`
}

// MarkAllReadResponse reports how many notifications were marked read.
type MarkAllReadResponse struct {
	Marked int64 `json:"marked" example:"4"`
}

// BroadcastRequest is the JSON payload of a topic broadcast.
type BroadcastRequest struct {
	Title   string         `json:"title" binding:"required" example:"Pool closed"`
	Message string         `json:"message" example:"The north pool is closed for maintenance today."`
	Data    map[string]any `json:"data,omitempty"`
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List active notifications
// @Description Returns the caller's non-expired notifications, newest first.
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListNotificationsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	if h.db != nil {
		if count, unread, latest, err := repo.NotificationsStats(ctx, h.db, uid, time.Now().UTC()); err == nil {
			etag := fmt.Sprintf(`W/"notifications:%s:%d:%d:%d:%d:%d"`, uid, count, unread, stamp(latest), page, pageSize)
			if notModified(c, etag) {
				return
			}
		}
	}

	items, total, err := h.notes.ListActive(ctx, uid, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListNotificationsResponse{Notifications: items, Pagination: paginate(page, pageSize, total)})
}

// NotificationsUnread godoc
// @ID          notificationsUnread
// @Summary     Unread notification count
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.UnreadResponse
// @Router      /notifications/unread-count [get]
func (h *Handlers) NotificationsUnread(c *gin.Context) {
	n, err := h.notes.UnreadCount(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, UnreadResponse{Unread: n})
}

// MarkNotificationRead godoc
// @ID          markNotificationRead
// @Summary     Mark one notification read
// @Tags        Notifications
// @Security    BearerAuth
// @Param       id   path  string  true  "Notification ID"
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Notification not found"
// @Router      /notifications/{id}/read [post]
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := h.notes.MarkRead(c.Request.Context(), id, userID(c)); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// MarkAllNotificationsRead godoc
// @ID          markAllNotificationsRead
// @Summary     Mark every notification read
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.MarkAllReadResponse
// @Router      /notifications/read-all [post]
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.notes.MarkAllRead(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, MarkAllReadResponse{Marked: n})
}

// BroadcastTopic godoc
// @ID          broadcastTopic
// @Summary     Push to a topic
// @Description Sends a push to every device subscribed to the topic. Nothing is persisted; per-provider outcomes are reported.
// @Tags        Notifications
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       topic  path  string  true  "Topic"
// @Param       body   body  handlers.BroadcastRequest  true  "Push content"
// @Success     202  {object}  push.Report
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     403  {object}  handlers.ErrorResponse  "Not allowed to broadcast"
// @Router      /topics/{topic}/broadcast [post]
func (h *Handlers) BroadcastTopic(c *gin.Context) {
	if h.canBroadcast == nil || !h.canBroadcast(userID(c)) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not allowed to broadcast")
		return
	}
	var req BroadcastRequest
	if !bindJSON(c, &req) {
		return
	}
	var payload domain.Payload
	if len(req.Data) > 0 {
		payload = domain.DataPayload(req.Data)
	}
	rep, err := h.notes.BroadcastTopic(c.Request.Context(), strings.TrimSpace(c.Param("topic")), req.Title, req.Message, payload)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusAccepted, rep)
}
