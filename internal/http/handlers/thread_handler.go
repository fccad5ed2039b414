// Chat thread HTTP handlers.
//
//   - POST   /collaborations/{id}/thread   (get or create the thread)
//   - GET    /threads                      (list, paginated, ETag support)
//   - DELETE /threads/{id}                 (deactivate)
//   - POST   /threads/{id}/read            (mark all read)
//   - GET    /threads/{id}/unread          (unread count)
//   - GET    /threads/{id}/search          (ranked message search)
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/repo"
	"github.com/tbourn/gym-realtime/internal/search"
	"github.com/tbourn/gym-realtime/internal/utils"
)

// ListThreadsResponse wraps a page of threads and pagination information.
type ListThreadsResponse struct {
	Threads    []domain.ChatThread `json:"threads"`
	Pagination Pagination          `json:"pagination"`
}

// MarkReadResponse reports how many messages were newly marked read.
type MarkReadResponse struct {
	Marked int `json:"marked" example:"3"`
}

// UnreadResponse carries an unread counter.
type UnreadResponse struct {
	Unread int64 `json:"unread" example:"2"`
}

// SearchResponse carries ranked search hits.
type SearchResponse struct {
	Results []search.Result `json:"results"`
}

// OpenThread godoc
// @ID          openThread
// @Summary     Get or create the chat thread of a collaboration
// @Description Returns the collaboration's thread, creating it on first use. Only the two parties of an accepted collaboration may open it.
// @Tags        Threads
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Collaboration ID"
// @Success     200  {object}  domain.ChatThread
// @Failure     403  {object}  handlers.ErrorResponse  "Not a party or not accepted"
// @Failure     404  {object}  handlers.ErrorResponse  "Collaboration not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Temporarily unavailable"
// @Router      /collaborations/{id}/thread [post]
func (h *Handlers) OpenThread(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	t, err := h.chat.GetOrCreateThread(c.Request.Context(), id, userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// ListThreads godoc
// @ID          listThreads
// @Summary     List chat threads (paginated)
// @Description Returns the caller's active threads, most recent activity first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Threads
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListThreadsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     503  {object}  handlers.ErrorResponse "Temporarily unavailable"
// @Router      /threads [get]
func (h *Handlers) ListThreads(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if h.db != nil {
		if count, maxTS, err := repo.ThreadsStats(ctx, h.db, uid); err == nil {
			etag := fmt.Sprintf(`W/"threads:%s:%d:%d:%d:%d"`, uid, count, stamp(maxTS), page, pageSize)
			if notModified(c, etag) {
				return
			}
		}
	}

	items, total, err := h.chat.ListThreadsPage(ctx, uid, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListThreadsResponse{Threads: items, Pagination: paginate(page, pageSize, total)})
}

// DeactivateThread godoc
// @ID          deactivateThread
// @Summary     Deactivate a thread
// @Description Hides the thread from listings and refuses further messages. History is kept.
// @Tags        Threads
// @Security    BearerAuth
// @Param       id   path  string  true  "Thread ID"
// @Success     204  {string}  string "No Content"
// @Failure     403  {object}  handlers.ErrorResponse "Not a participant"
// @Failure     404  {object}  handlers.ErrorResponse "Thread not found"
// @Router      /threads/{id} [delete]
func (h *Handlers) DeactivateThread(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := h.chat.Deactivate(c.Request.Context(), id, userID(c)); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// MarkThreadRead godoc
// @ID          markThreadRead
// @Summary     Mark a thread read
// @Description Records a read receipt for every message the caller has not read yet. Idempotent.
// @Tags        Threads
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Thread ID"
// @Success     200  {object}  handlers.MarkReadResponse
// @Failure     403  {object}  handlers.ErrorResponse "Not a participant"
// @Failure     404  {object}  handlers.ErrorResponse "Thread not found"
// @Router      /threads/{id}/read [post]
func (h *Handlers) MarkThreadRead(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	n, err := h.chat.MarkRead(c.Request.Context(), id, userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, MarkReadResponse{Marked: n})
}

// ThreadUnread godoc
// @ID          threadUnread
// @Summary     Unread messages in a thread
// @Tags        Threads
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Thread ID"
// @Success     200  {object}  handlers.UnreadResponse
// @Failure     403  {object}  handlers.ErrorResponse "Not a participant"
// @Failure     404  {object}  handlers.ErrorResponse "Thread not found"
// @Router      /threads/{id}/unread [get]
func (h *Handlers) ThreadUnread(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	n, err := h.chat.UnreadCount(c.Request.Context(), id, userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, UnreadResponse{Unread: n})
}

// SearchThread godoc
// @ID          searchThread
// @Summary     Search messages in a thread
// @Description Ranks the thread's messages by token overlap with q.
// @Tags        Threads
// @Produce     json
// @Security    BearerAuth
// @Param       id  path   string  true   "Thread ID"
// @Param       q   query  string  true   "Query"
// @Param       k   query  int     false  "Max results" minimum(1) maximum(50) default(10)
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse "Empty query"
// @Failure     403  {object}  handlers.ErrorResponse "Not a participant"
// @Router      /threads/{id}/search [get]
func (h *Handlers) SearchThread(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q is required")
		return
	}
	k := utils.Clamp(utils.AtoiDefault(c.Query("k"), 10), 1, 50)
	res, err := h.chat.SearchMessages(c.Request.Context(), id, userID(c), q, k)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SearchResponse{Results: res})
}
