package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostStatus defines the moderation visibility of a community post
type PostStatus string

const (
	PostStatusVisible PostStatus = "visible"
	PostStatusHidden  PostStatus = "hidden"
)

// Post is a community post; the pipeline cares about it as a
// reportable (auto-hidable) target and as a notification source.
type Post struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID      `json:"user_id" gorm:"type:uuid;index;not null"`
	Title     string         `json:"title" gorm:"size:255;not null"`
	Body      string         `json:"body" gorm:"type:text"`
	Status    PostStatus     `json:"status" gorm:"type:varchar(20);default:'visible'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}
