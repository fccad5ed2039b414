package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/gym-realtime/internal/http/middleware"
)

// ServeWS godoc
// @ID          serveWS
// @Summary     Realtime websocket
// @Description Upgrades to a websocket carrying signaling (join, offer, answer, ice_candidate, leave) and realtime events. Browsers pass the JWT as ?token=.
// @Tags        Realtime
// @Security    BearerAuth
// @Param       token   query  string  false  "JWT when headers cannot be set"
// @Param       device  query  string  false  "Push token of this device, enables in-app delivery"
// @Success     101  {string}  string "Switching Protocols"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Device not registered to the caller"
// @Router      /ws [get]
func (h *Handlers) ServeWS(c *gin.Context) {
	if h.ws == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "realtime disabled")
		return
	}
	uid, device := userID(c), strings.TrimSpace(c.Query("device"))
	if device != "" {
		owned := false
		if h.devices != nil {
			var err error
			if owned, err = h.devices.Owns(c.Request.Context(), uid, device); err != nil {
				failErr(c, err)
				return
			}
		}
		if !owned {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "device is not registered to this user")
			return
		}
	}
	if err := h.ws.ServeWS(c.Writer, c.Request, uid, device); err != nil {
		// The upgrader has already written the HTTP error.
		middleware.LoggerFrom(c).Debug().Err(err).Msg("websocket upgrade failed")
		c.Abort()
	}
}
