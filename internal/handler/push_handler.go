package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/choviet/choviet-api/internal/model"
	"github.com/choviet/choviet-api/internal/service"
)

// PushHandler handles the endpoint registry API
type PushHandler struct {
	pushService *service.PushService
}

func NewPushHandler(pushService *service.PushService) *PushHandler {
	return &PushHandler{pushService: pushService}
}

// RegisterEndpoint godoc
// @Summary Register or refresh a push endpoint for this device
// @Tags Push
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body model.RegisterEndpointRequest true "Endpoint"
// @Success 200 {object} model.RegisterEndpointResponse
// @Failure 422 {object} model.ErrorResponse
// @Router /push/endpoints [post]
func (h *PushHandler) RegisterEndpoint(c *gin.Context) {
	var req model.RegisterEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	ep, err := h.pushService.RegisterEndpoint(currentUserID(c), req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusUnprocessableEntity, model.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to register endpoint"})
		return
	}

	c.JSON(http.StatusOK, model.RegisterEndpointResponse{
		Success:    true,
		EndpointID: ep.ID,
		Message:    "Endpoint registered",
	})
}

// UnregisterEndpoint godoc
// @Summary Deactivate a push endpoint, e.g. on logout
// @Tags Push
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body model.UnregisterEndpointRequest true "Endpoint"
// @Success 200 {object} model.SuccessResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /push/endpoints [delete]
func (h *PushHandler) UnregisterEndpoint(c *gin.Context) {
	var req model.UnregisterEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	if err := h.pushService.UnregisterEndpoint(currentUserID(c), req); err != nil {
		if errors.Is(err, service.ErrEndpointNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to unregister endpoint"})
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Endpoint deactivated"})
}
