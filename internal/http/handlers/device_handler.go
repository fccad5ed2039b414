// Device and collaboration HTTP handlers.
//
//   - PUT    /devices                        (register or refresh a push address)
//   - DELETE /devices/{token}
//   - POST   /collaborations                 (request a pairing)
//   - GET    /collaborations
//   - POST   /collaborations/{id}/accept
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/gym-realtime/internal/domain"
)

// RegisterDeviceRequest is the JSON payload of a device registration.
type RegisterDeviceRequest struct {
	Token    string   `json:"token" binding:"required" example:"fcm:APA91bH..."`
	Platform string   `json:"platform" binding:"required" example:"android" enums:"ios,android,web,email"`
	Topics   []string `json:"topics,omitempty" example:"gym-news"`
}

// CollaborationRequest is the JSON payload of a pairing request.
type CollaborationRequest struct {
	AddresseeID string `json:"addressee_id" binding:"required" example:"coach-42"`
}

// ListCollaborationsResponse lists the caller's pairings.
type ListCollaborationsResponse struct {
	Collaborations []domain.Collaboration `json:"collaborations"`
}

// RegisterDevice godoc
// @ID          registerDevice
// @Summary     Register a push address
// @Description Upserts the device token for the caller and subscribes it to the given topics.
// @Tags        Devices
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.RegisterDeviceRequest  true  "Device"
// @Success     200  {object}  domain.DeviceRegistration
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /devices [put]
func (h *Handlers) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if !bindJSON(c, &req) {
		return
	}
	platform := domain.Platform(strings.ToLower(strings.TrimSpace(req.Platform)))
	d, err := h.devices.Register(c.Request.Context(), userID(c), req.Token, platform, req.Topics)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// UnregisterDevice godoc
// @ID          unregisterDevice
// @Summary     Remove a push address
// @Tags        Devices
// @Security    BearerAuth
// @Param       token  path  string  true  "Device token"
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Device not registered"
// @Router      /devices/{token} [delete]
func (h *Handlers) UnregisterDevice(c *gin.Context) {
	if err := h.devices.Unregister(c.Request.Context(), userID(c), c.Param("token")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// RequestCollaboration godoc
// @ID          requestCollaboration
// @Summary     Request a collaboration
// @Tags        Collaborations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.CollaborationRequest  true  "Addressee"
// @Success     201  {object}  domain.Collaboration
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /collaborations [post]
func (h *Handlers) RequestCollaboration(c *gin.Context) {
	var req CollaborationRequest
	if !bindJSON(c, &req) {
		return
	}
	col, err := h.collabs.Request(c.Request.Context(), userID(c), req.AddresseeID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, col)
}

// ListCollaborations godoc
// @ID          listCollaborations
// @Summary     List collaborations
// @Tags        Collaborations
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ListCollaborationsResponse
// @Router      /collaborations [get]
func (h *Handlers) ListCollaborations(c *gin.Context) {
	list, err := h.collabs.List(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	if list == nil {
		list = []domain.Collaboration{}
	}
	ok(c, http.StatusOK, ListCollaborationsResponse{Collaborations: list})
}

// AcceptCollaboration godoc
// @ID          acceptCollaboration
// @Summary     Accept a collaboration
// @Description Only the addressee may accept a pending request.
// @Tags        Collaborations
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Collaboration ID"
// @Success     200  {object}  domain.Collaboration
// @Failure     403  {object}  handlers.ErrorResponse  "Not the addressee"
// @Failure     409  {object}  handlers.ErrorResponse  "Not pending"
// @Router      /collaborations/{id}/accept [post]
func (h *Handlers) AcceptCollaboration(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	col, err := h.collabs.Accept(c.Request.Context(), id, userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, col)
}
