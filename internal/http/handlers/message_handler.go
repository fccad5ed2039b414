// Message HTTP handlers.
//
// This file exposes REST endpoints for thread messages:
//   - POST /threads/{id}/messages   (append a message)
//   - GET  /threads/{id}/messages   (list paginated messages, oldest first)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, thread, key), the handler returns that recorded
// message and sets `Idempotency-Replayed: true`.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/repo"
)

// PostMessageRequest is the JSON payload for sending a message. Content is
// normalized by the service (line endings, NFC, surrounding whitespace).
type PostMessageRequest struct {
	Content string `json:"content" binding:"required" example:"Leg day moved to 7pm, see you there"`
}

// PostMessageResponse is the JSON envelope for a stored message.
type PostMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// ListMessagesResponse contains a page of messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a message
// @Description Appends a message to the thread, updates its preview, and notifies the other participant.
// @Description Supports idempotency via the Idempotency-Key header (same key, same result).
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       id               path    string  true  "Thread ID"
// @Param       body             body    handlers.PostMessageRequest  true  "Message payload"
// @Success     201  {object}  handlers.PostMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Empty or too long"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a participant"
// @Failure     404  {object}  handlers.ErrorResponse  "Thread not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Temporarily unavailable"
// @Router      /threads/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	threadID, valid := pathID(c)
	if !valid {
		return
	}
	var req PostMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	// Idempotency (replay path).
	if id, status, found := h.replayed(c); found {
		if prev, err := repo.GetMessage(ctx, h.db, id); err == nil && prev.ThreadID == threadID {
			c.Header("Idempotency-Replayed", "true")
			ok(c, status, PostMessageResponse{Message: prev})
			return
		}
	}

	m, err := h.chat.AppendMessage(ctx, threadID, userID(c), req.Content)
	if err != nil {
		failErr(c, err)
		return
	}

	// Idempotency (store path).
	h.remember(c, m.ID, http.StatusCreated)
	ok(c, http.StatusCreated, PostMessageResponse{Message: m})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a thread
// @Description Returns a page of the thread's messages, oldest first. Supports weak ETag via If-None-Match.
// @Tags        Messages
// @Produce     json
// @Security    BearerAuth
// @Param       id         path   string  true  "Thread ID"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListMessagesResponse
// @Success     304  {string} string "Not Modified"
// @Failure     403  {object} handlers.ErrorResponse "Not a participant"
// @Failure     404  {object} handlers.ErrorResponse "Thread not found"
// @Router      /threads/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	threadID, valid := pathID(c)
	if !valid {
		return
	}
	page, pageSize := clampPagination(c)

	// Participant check runs inside the service, so the ETag is computed
	// after it succeeds. Receipts on the page are part of the response.
	items, total, err := h.chat.ListMessagesPage(ctx, threadID, userID(c), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	if h.db != nil {
		if count, maxTS, err := repo.MessagesStats(ctx, h.db, threadID); err == nil {
			receipts := 0
			for _, m := range items {
				receipts += len(m.ReadBy)
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d:%d:%d:%d"`, threadID, count, stamp(maxTS), receipts, page, pageSize)
			if notModified(c, etag) {
				return
			}
		}
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Pagination: paginate(page, pageSize, total)})
}
