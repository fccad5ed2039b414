package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/gym-realtime/internal/http/middleware"
	"github.com/tbourn/gym-realtime/internal/services"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching server logs
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code string `json:"code" example:"not_found"`
	// Safe to show to users
	Message string `json:"message" example:"resource not found"`
	// Current call state when a call transition was refused
	State *CallState `json:"state,omitempty"`
}

// CallState lets a client resynchronize after a refused call transition.
type CallState struct {
	CallID string `json:"call_id" example:"6f1c2d0e-8a4b-4f3e-9d2c-1b0a9e8f7d6c"`
	Status string `json:"status" example:"ended"`
	// UserID is the busy participant on conflicts.
	UserID string `json:"user_id,omitempty"`
}

// errorKinds maps service error kinds to responses, first match wins.
var errorKinds = []struct {
	kind   error
	status int
	code   string
}{
	{services.ErrValidation, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{services.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrConflict, http.StatusConflict, ErrCodeConflict},
	{services.ErrInvalidState, http.StatusConflict, ErrCodeInvalidState},
}

// fail aborts with an error envelope.
func fail(c *gin.Context, status int, code, msg string) {
	abort(c, status, ErrorResponse{Code: code, Message: msg}, nil)
}

// Fail is fail for the router's NoRoute and NoMethod handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// abort writes resp. Server errors are logged with their cause, which never
// reaches the client.
func abort(c *gin.Context, status int, resp ErrorResponse, cause error) {
	resp.RequestID = middleware.GetRequestID(c)
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Err(cause).
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, resp)
}

// failErr translates a service error into the envelope. Refused call
// transitions carry the call's current state; transient storage errors
// become 503 with Retry-After; anything unrecognized is a 500.
func failErr(c *gin.Context, err error) {
	var cse *services.CallStateError
	if errors.As(err, &cse) {
		code := ErrCodeInvalidState
		if errors.Is(err, services.ErrConflict) {
			code = ErrCodeConflict
		}
		abort(c, http.StatusConflict, ErrorResponse{
			Code:    code,
			Message: err.Error(),
			State:   &CallState{CallID: cse.CallID, Status: string(cse.Status), UserID: cse.UserID},
		}, nil)
		return
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			fail(c, k.status, k.code, err.Error())
			return
		}
	}
	if errors.Is(err, services.ErrTransient) {
		c.Header("Retry-After", "1")
		abort(c, http.StatusServiceUnavailable, ErrorResponse{Code: ErrCodeUnavailable, Message: "temporarily unavailable, retry later"}, err)
		return
	}
	abort(c, http.StatusInternalServerError, ErrorResponse{Code: ErrCodeInternal, Message: "internal error"}, err)
}

func ok(c *gin.Context, status int, body any) { c.JSON(status, body) }

func noContent(c *gin.Context) { c.Status(http.StatusNoContent) }
