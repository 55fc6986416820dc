package model

import "github.com/google/uuid"

// ========== Auth DTOs ==========

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Locale   string `json:"locale" binding:"omitempty,oneof=vi ko en"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UpdateSettingsRequest struct {
	Locale      string `json:"locale" binding:"omitempty,oneof=vi ko en"`
	PushEnabled *bool  `json:"push_enabled"`
	DMEnabled   *bool  `json:"dm_enabled"`
}

// ========== Push Endpoint DTOs ==========

type WebPushKeys struct {
	Auth   string `json:"auth"`
	P256dh string `json:"p256dh"`
}

type RegisterEndpointRequest struct {
	Platform    Platform     `json:"platform" binding:"required"`
	Token       string       `json:"token" binding:"required"`
	DeviceID    *string      `json:"device_id"`
	EndpointURL string       `json:"endpoint_url"`
	Keys        *WebPushKeys `json:"keys"`
}

type UnregisterEndpointRequest struct {
	Platform Platform `json:"platform" binding:"required"`
	Token    string   `json:"token" binding:"required"`
}

type RegisterEndpointResponse struct {
	Success    bool      `json:"success"`
	EndpointID uuid.UUID `json:"endpoint_id"`
	Message    string    `json:"message"`
}

// ========== Conversation DTOs ==========

type DirectConversationRequest struct {
	PartnerID uuid.UUID `json:"partner_id" binding:"required"`
}

type SendMessageRequest struct {
	Body string `json:"body" binding:"required,max=1000"`
}

type MessageListRequest struct {
	Before string `form:"before"` // cursor for pagination (message ID)
	Limit  int    `form:"limit,default=50"`
}

// ========== Block DTOs ==========

type CreateBlockRequest struct {
	BlockedID uuid.UUID `json:"blocked_id" binding:"required"`
}

// ========== Report DTOs ==========

type CreateReportRequest struct {
	TargetKind  ReportTargetKind `json:"target_kind" binding:"required"`
	TargetID    uuid.UUID        `json:"target_id" binding:"required"`
	ReasonCode  ReportReason     `json:"reason_code" binding:"required"`
	Description string           `json:"description" binding:"max=1000"`
}

type CreateReportResponse struct {
	Success  bool      `json:"success"`
	ReportID uuid.UUID `json:"report_id"`
}

// ========== WebSocket Event DTOs ==========

type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocket event types
const (
	WSEventNewMessage = "new_message"
	WSEventTyping     = "typing"
	WSEventStopTyping = "stop_typing"
	WSEventOnline     = "online"
	WSEventOffline    = "offline"
)

type TypingEvent struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Name           string    `json:"name"`
}

type OnlineEvent struct {
	UserID   uuid.UUID `json:"user_id"`
	IsOnline bool      `json:"is_online"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
