// Call session HTTP handlers.
//
//   - POST /calls              (place a call, Idempotency-Key aware)
//   - GET  /calls              (caller's call history)
//   - GET  /calls/{id}         (one call)
//   - POST /calls/{id}/accept
//   - POST /calls/{id}/reject
//   - POST /calls/{id}/end
//
// Refused transitions answer 409 with the call's current state so clients
// can resynchronize.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/gym-realtime/internal/domain"
	"github.com/tbourn/gym-realtime/internal/repo"
	"github.com/tbourn/gym-realtime/internal/services"
)

// PlaceCallRequest is the JSON payload for starting a call.
type PlaceCallRequest struct {
	RecipientID string `json:"recipient_id" binding:"required" example:"coach-42"`
	Kind        string `json:"kind" example:"voice" enums:"voice,video"`
	ThreadID    string `json:"thread_id,omitempty" example:"9b2e6c1a-3f4d-4e5f-8a9b-0c1d2e3f4a5b"`
}

// ListCallsResponse wraps a page of calls.
type ListCallsResponse struct {
	Calls      []domain.Call `json:"calls"`
	Pagination Pagination    `json:"pagination"`
}

// PlaceCall godoc
// @ID          placeCall
// @Summary     Place a call
// @Description Creates a ringing call and notifies the recipient. Refused with 409 when either party already has a live call.
// @Tags        Calls
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       body             body    handlers.PlaceCallRequest  true  "Call payload"
// @Success     201  {object}  domain.Call
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse  "A participant is already in a call"
// @Failure     503  {object}  handlers.ErrorResponse  "Temporarily unavailable"
// @Router      /calls [post]
func (h *Handlers) PlaceCall(c *gin.Context) {
	ctx := c.Request.Context()
	var req PlaceCallRequest
	if !bindJSON(c, &req) {
		return
	}

	if id, status, found := h.replayed(c); found {
		if prev, err := repo.GetCallByCallID(ctx, h.db, id); err == nil {
			c.Header("Idempotency-Replayed", "true")
			ok(c, status, prev)
			return
		}
	}

	kind := domain.CallKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if kind == "" {
		kind = domain.CallVoice
	}
	call, err := h.calls.PlaceCall(ctx, services.PlaceCallParams{
		CallerID:    userID(c),
		RecipientID: req.RecipientID,
		Kind:        kind,
		ThreadID:    strings.TrimSpace(req.ThreadID),
	})
	if err != nil {
		failErr(c, err)
		return
	}
	h.remember(c, call.CallID, http.StatusCreated)
	ok(c, http.StatusCreated, call)
}

// ListCalls godoc
// @ID          listCalls
// @Summary     Call history
// @Description Returns the caller's calls, newest first.
// @Tags        Calls
// @Produce     json
// @Security    BearerAuth
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListCallsResponse
// @Router      /calls [get]
func (h *Handlers) ListCalls(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.calls.History(c.Request.Context(), userID(c), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListCallsResponse{Calls: items, Pagination: paginate(page, pageSize, total)})
}

// GetCall godoc
// @ID          getCall
// @Summary     Get a call
// @Tags        Calls
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Call ID"
// @Success     200  {object}  domain.Call
// @Failure     403  {object}  handlers.ErrorResponse  "Not a participant"
// @Failure     404  {object}  handlers.ErrorResponse  "Call not found"
// @Router      /calls/{id} [get]
func (h *Handlers) GetCall(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	call, err := h.calls.Get(c.Request.Context(), id, userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, call)
}

// AcceptCall godoc
// @ID          acceptCall
// @Summary     Accept a ringing call
// @Description Only the recipient may accept. Exactly one of concurrent accept/reject/missed wins.
// @Tags        Calls
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Call ID"
// @Success     200  {object}  domain.Call
// @Failure     403  {object}  handlers.ErrorResponse  "Not the recipient"
// @Failure     409  {object}  handlers.ErrorResponse  "Call is no longer ringing"
// @Router      /calls/{id}/accept [post]
func (h *Handlers) AcceptCall(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	call, err := h.calls.Accept(c.Request.Context(), id, userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, call)
}

// RejectCall godoc
// @ID          rejectCall
// @Summary     Decline a call
// @Tags        Calls
// @Security    BearerAuth
// @Param       id   path  string  true  "Call ID"
// @Success     204  {string}  string "No Content"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the recipient"
// @Failure     409  {object}  handlers.ErrorResponse  "Call is no longer ringing"
// @Router      /calls/{id}/reject [post]
func (h *Handlers) RejectCall(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := h.calls.Reject(c.Request.Context(), id, userID(c)); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// EndCall godoc
// @ID          endCall
// @Summary     Hang up
// @Description Ends a live call and records its whole-second duration. Either participant may end it.
// @Tags        Calls
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Call ID"
// @Success     200  {object}  domain.Call
// @Failure     403  {object}  handlers.ErrorResponse  "Not a participant"
// @Failure     409  {object}  handlers.ErrorResponse  "Call already finished"
// @Router      /calls/{id}/end [post]
func (h *Handlers) EndCall(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	call, err := h.calls.End(c.Request.Context(), id, userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, call)
}
