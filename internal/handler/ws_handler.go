package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/choviet/choviet-api/internal/model"
	"github.com/choviet/choviet-api/internal/service"
	"github.com/choviet/choviet-api/internal/ws"
	"github.com/choviet/choviet-api/pkg/auth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, validate origin
	},
}

// WSHandler handles WebSocket connections for in-app delivery
type WSHandler struct {
	hub         *ws.Hub
	chatService *service.ChatService
	jwtManager  *auth.JWTManager
}

func NewWSHandler(hub *ws.Hub, chatService *service.ChatService, jwtManager *auth.JWTManager) *WSHandler {
	return &WSHandler{
		hub:         hub,
		chatService: chatService,
		jwtManager:  jwtManager,
	}
}

// HandleWebSocket upgrades HTTP to WebSocket and manages the connection
// Client connects with: ws://host/ws?token=<jwt_token>
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// Authenticate via query parameter (WebSocket can't use Authorization header)
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	claims, err := h.jwtManager.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID, claims.Name)
	h.hub.Register(client)

	log.Printf("✅ WS Connected: UserID=%s Name=%s", claims.UserID, claims.Name)

	go client.WritePump()
	go client.ReadPump(h.handleWSMessage)
}

// handleWSMessage processes incoming WebSocket messages from clients
func (h *WSHandler) handleWSMessage(client *ws.Client, event model.WSEvent) {
	switch event.Type {
	case model.WSEventTyping, model.WSEventStopTyping:
		h.relayTyping(client, event)
	default:
		log.Printf("Unknown WebSocket event type: %s", event.Type)
	}
}

// relayTyping forwards typing indicators to the conversation peer
func (h *WSHandler) relayTyping(client *ws.Client, event model.WSEvent) {
	payloadBytes, _ := json.Marshal(event.Payload)
	var payload struct {
		ConversationID uuid.UUID `json:"conversation_id"`
	}
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return
	}

	peerID, err := h.chatService.ConversationPeer(payload.ConversationID, client.UserID)
	if err != nil {
		return
	}

	h.hub.SendToUser(peerID, &model.WSEvent{
		Type: event.Type,
		Payload: model.TypingEvent{
			ConversationID: payload.ConversationID,
			UserID:         client.UserID,
			Name:           client.Name,
		},
	})
}
