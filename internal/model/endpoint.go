package model

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the push backend an endpoint belongs to
type Platform string

const (
	PlatformWeb     Platform = "web"     // PWA / Web Push
	PlatformAndroid Platform = "android" // FCM for Android
	PlatformIOS     Platform = "ios"     // FCM via APNS for iOS
)

// ValidPlatform checks a platform value coming from the API
func ValidPlatform(p Platform) bool {
	return p == PlatformWeb || p == PlatformAndroid || p == PlatformIOS
}

// PushEndpoint represents one addressable device/channel for a user.
// Uniqueness: (user, platform, token) when device_id is absent,
// (user, platform, device_id) when present. Never hard-deleted;
// `active` flips false on unregistration, permanent delivery failure,
// or the periodic stale sweep.
type PushEndpoint struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID   uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	Platform Platform  `json:"platform" gorm:"type:varchar(20);not null"`
	Token    string    `json:"token" gorm:"size:512;not null"`
	DeviceID *string   `json:"device_id,omitempty" gorm:"size:255"`

	// Web Push only
	EndpointURL string `json:"endpoint_url,omitempty" gorm:"size:1024"`
	KeyAuth     string `json:"-" gorm:"column:key_auth;size:255"`
	KeyP256dh   string `json:"-" gorm:"column:key_p256dh;size:255"`

	Active     bool      `json:"active" gorm:"default:true;index"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// Web checks if the endpoint targets the web-push backend
func (e *PushEndpoint) Web() bool {
	return e.Platform == PlatformWeb
}

// HasWebPushKeys checks the encryption keys required for web delivery
func (e *PushEndpoint) HasWebPushKeys() bool {
	return e.KeyAuth != "" && e.KeyP256dh != ""
}
