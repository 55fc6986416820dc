package model

import (
	"time"

	"github.com/google/uuid"
)

// Block represents one user blocking another.
// Delivery suppression treats the relationship as symmetric.
type Block struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BlockerID uuid.UUID `json:"blocker_id" gorm:"type:uuid;uniqueIndex:idx_blocker_blocked;not null"`
	BlockedID uuid.UUID `json:"blocked_id" gorm:"type:uuid;uniqueIndex:idx_blocker_blocked;not null"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Blocker User `json:"-" gorm:"foreignKey:BlockerID"`
	Blocked User `json:"-" gorm:"foreignKey:BlockedID"`
}
