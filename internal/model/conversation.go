package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation represents a direct trade conversation between two users.
// UserAID is always the smaller UUID so the pair is unique.
type Conversation struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserAID   uuid.UUID      `json:"user_a_id" gorm:"type:uuid;uniqueIndex:idx_conv_pair;not null"`
	UserBID   uuid.UUID      `json:"user_b_id" gorm:"type:uuid;uniqueIndex:idx_conv_pair;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	UserA User `json:"user_a" gorm:"foreignKey:UserAID"`
	UserB User `json:"user_b" gorm:"foreignKey:UserBID"`
}

// Includes checks if a user participates in the conversation
func (c *Conversation) Includes(userID uuid.UUID) bool {
	return userID == c.UserAID || userID == c.UserBID
}

// OtherParticipant returns the peer of the given participant
func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if userID == c.UserAID {
		return c.UserBID
	}
	return c.UserAID
}

// NormalizePair orders two user ids for the unique pair index
func NormalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
