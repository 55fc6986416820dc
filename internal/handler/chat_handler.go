package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/choviet/choviet-api/internal/model"
	"github.com/choviet/choviet-api/internal/service"
	"github.com/choviet/choviet-api/internal/ws"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatHandler handles conversation and message endpoints
type ChatHandler struct {
	chatService *service.ChatService
	hub         *ws.Hub
}

func NewChatHandler(chatService *service.ChatService, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{chatService: chatService, hub: hub}
}

// StartDirect godoc
// @Summary Find or create the direct conversation with another user
// @Tags Chat
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body model.DirectConversationRequest true "Partner"
// @Success 200 {object} model.Conversation
// @Failure 400 {object} model.ErrorResponse
// @Router /conversations/direct [post]
func (h *ChatHandler) StartDirect(c *gin.Context) {
	var req model.DirectConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	conv, err := h.chatService.GetOrCreateDirect(currentUserID(c), req.PartnerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBlockedPair):
			c.JSON(http.StatusForbidden, model.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrSelfConversation):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, conv)
}

// GetConversations godoc
// @Summary List my conversations, latest activity first
// @Tags Chat
// @Security BearerAuth
// @Produce json
// @Success 200 {array} model.Conversation
// @Router /conversations [get]
func (h *ChatHandler) GetConversations(c *gin.Context) {
	conversations, err := h.chatService.GetConversations(currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, conversations)
}

// GetMessages godoc
// @Summary Get paginated messages for a conversation
// @Tags Chat
// @Security BearerAuth
// @Produce json
// @Param id path string true "Conversation ID"
// @Param before query string false "Cursor (message ID)"
// @Param limit query int false "Page size"
// @Success 200 {array} model.Message
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/messages [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid conversation ID"})
		return
	}

	var query model.MessageListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid query", Message: err.Error()})
		return
	}

	var before *uuid.UUID
	if query.Before != "" {
		cursor, err := uuid.Parse(query.Before)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid cursor"})
			return
		}
		before = &cursor
	}

	messages, err := h.chatService.GetMessages(convID, currentUserID(c), before, query.Limit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotParticipant):
			c.JSON(http.StatusForbidden, model.ErrorResponse{Error: err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Conversation not found"})
		default:
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to load messages"})
		}
		return
	}

	c.JSON(http.StatusOK, messages)
}

// SendMessage godoc
// @Summary Send a message in a conversation
// @Tags Chat
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param body body model.SendMessageRequest true "Message"
// @Success 201 {object} model.Message
// @Failure 403 {object} model.ErrorResponse
// @Router /conversations/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid conversation ID"})
		return
	}

	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	senderID := currentUserID(c)
	msg, recipientID, err := h.chatService.SendMessage(c.Request.Context(), senderID, convID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotParticipant):
			c.JSON(http.StatusForbidden, model.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrBlockedPair):
			c.JSON(http.StatusForbidden, model.ErrorResponse{Error: err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Conversation not found"})
		default:
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to send message"})
		}
		return
	}

	// Real-time delivery to the recipient's open tabs
	h.hub.SendToUser(recipientID, &model.WSEvent{
		Type:    model.WSEventNewMessage,
		Payload: msg,
	})

	c.JSON(http.StatusCreated, msg)
}
