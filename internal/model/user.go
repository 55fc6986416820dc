package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered marketplace user
type User struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name     string    `json:"name" gorm:"size:100;not null"`
	Email    string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password string    `json:"-" gorm:"size:255"`
	Avatar   string    `json:"avatar" gorm:"size:500;default:''"`

	// User Settings
	Locale      string `json:"locale" gorm:"size:10;default:'vi'"` // vi, ko, en
	PushEnabled bool   `json:"push_enabled" gorm:"column:notification_push_enabled;default:true"`
	DMEnabled   bool   `json:"dm_enabled" gorm:"column:notification_dm_enabled;default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Vietnamese checks if the user's locale is Vietnamese
func (u *User) Vietnamese() bool {
	return u.Locale == "vi"
}

// Korean checks if the user's locale is Korean
func (u *User) Korean() bool {
	return u.Locale == "ko"
}

// UserResponse is the safe version of User for API responses
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Avatar      string    `json:"avatar"`
	Locale      string    `json:"locale"`
	PushEnabled bool      `json:"push_enabled"`
	DMEnabled   bool      `json:"dm_enabled"`
}

// ToResponse converts User to safe UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Avatar:      u.Avatar,
		Locale:      u.Locale,
		PushEnabled: u.PushEnabled,
		DMEnabled:   u.DMEnabled,
	}
}
