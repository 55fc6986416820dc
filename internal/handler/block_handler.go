package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/choviet/choviet-api/internal/model"
	"github.com/choviet/choviet-api/internal/repository"
	"github.com/google/uuid"
)

// BlockHandler handles the block list API
type BlockHandler struct {
	blockRepo *repository.BlockRepository
}

func NewBlockHandler(blockRepo *repository.BlockRepository) *BlockHandler {
	return &BlockHandler{blockRepo: blockRepo}
}

// CreateBlock godoc
// @Summary Block another user
// @Tags Trust
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body model.CreateBlockRequest true "Block"
// @Success 201 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /blocks [post]
func (h *BlockHandler) CreateBlock(c *gin.Context) {
	var req model.CreateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	blockerID := currentUserID(c)
	if blockerID == req.BlockedID {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "You cannot block yourself"})
		return
	}

	block := &model.Block{BlockerID: blockerID, BlockedID: req.BlockedID}
	if err := h.blockRepo.Create(block); err != nil {
		// the unique pair index makes re-blocking a no-op for the client
		c.JSON(http.StatusOK, model.SuccessResponse{Message: "User already blocked"})
		return
	}

	c.JSON(http.StatusCreated, model.SuccessResponse{Message: "User blocked"})
}

// DeleteBlock godoc
// @Summary Unblock a user
// @Tags Trust
// @Security BearerAuth
// @Produce json
// @Param id path string true "Blocked user ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /blocks/{id} [delete]
func (h *BlockHandler) DeleteBlock(c *gin.Context) {
	blockedID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	if err := h.blockRepo.Delete(currentUserID(c), blockedID); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to unblock user"})
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "User unblocked"})
}
