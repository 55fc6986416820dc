package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageStatus defines the moderation visibility of a message
type MessageStatus string

const (
	MessageStatusVisible MessageStatus = "visible"
	MessageStatusHidden  MessageStatus = "hidden" // auto-hidden after report threshold
)

// Message represents one message inside a conversation.
// System messages (trust warnings) have a nil sender.
type Message struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationID uuid.UUID      `json:"conversation_id" gorm:"type:uuid;index;not null"`
	SenderID       *uuid.UUID     `json:"sender_id,omitempty" gorm:"type:uuid;index"`
	Body           string         `json:"body" gorm:"type:text;not null"`
	System         bool           `json:"system" gorm:"default:false"`
	Status         MessageStatus  `json:"status" gorm:"type:varchar(20);default:'visible'"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Sender       *User        `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID"`
}
