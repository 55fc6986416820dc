package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationKind defines what event a notification is about
type NotificationKind string

const (
	NotificationKindDMMessage      NotificationKind = "dm_message"      // Direct message received
	NotificationKindPostLiked      NotificationKind = "post_liked"      // Someone liked your post
	NotificationKindPostCommented  NotificationKind = "post_commented"  // Someone commented on your post
	NotificationKindReviewReceived NotificationKind = "review_received" // Someone left you a review
	NotificationKindSystemAlert    NotificationKind = "system_alert"    // System notifications
)

// NotificationStatus is the delivery lifecycle state.
// pending is the only non-terminal state; once a record reaches
// delivered/skipped/failed it never transitions again.
type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "pending"
	NotificationStatusDelivered NotificationStatus = "delivered"
	NotificationStatusSkipped   NotificationStatus = "skipped"
	NotificationStatusFailed    NotificationStatus = "failed"
)

// Skip reason codes written to failure_reason when status is skipped
const (
	SkipReasonPushDisabled      = "push_disabled"
	SkipReasonDMDisabled        = "dm_disabled"
	SkipReasonBlocked           = "blocked"
	SkipReasonUnknown           = "unknown"
	SkipReasonNoActiveEndpoints = "no_active_endpoints"
	SkipReasonNoneProcessed     = "no endpoints processed"
)

// FailReasonAllEndpoints is written when every endpoint attempt failed
const FailReasonAllEndpoints = "all endpoints failed"

// Notification is a durable record of one decision to notify one
// recipient about one event. Created pending by the triggering domain
// action and transitioned exactly once by the delivery dispatcher.
type Notification struct {
	ID          uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RecipientID uuid.UUID        `json:"recipient_id" gorm:"type:uuid;index;not null"`
	ActorID     *uuid.UUID       `json:"actor_id,omitempty" gorm:"type:uuid"`
	Kind        NotificationKind `json:"kind" gorm:"type:varchar(30);not null"`

	// Polymorphic reference to the source object (e.g. the message)
	NotifiableType string     `json:"notifiable_type,omitempty" gorm:"size:30"`
	NotifiableID   *uuid.UUID `json:"notifiable_id,omitempty" gorm:"type:uuid"`

	Title   string            `json:"title" gorm:"size:255"`
	Body    string            `json:"body" gorm:"type:text"`
	Payload datatypes.JSONMap `json:"payload" gorm:"type:jsonb"`

	Status        NotificationStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	DeliveredAt   *time.Time         `json:"delivered_at,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Recipient User  `json:"-" gorm:"foreignKey:RecipientID"`
	Actor     *User `json:"-" gorm:"foreignKey:ActorID"`
}

// Terminal checks whether the status will never change again
func (n *Notification) Terminal() bool {
	return n.Status != NotificationStatusPending
}

// LocalizedTitle builds the push title in the recipient's locale.
// actorName is the display name of the acting user, empty when absent.
func (n *Notification) LocalizedTitle(recipient *User, actorName string) string {
	switch n.Kind {
	case NotificationKindDMMessage:
		if actorName == "" {
			return n.Title
		}
		if recipient.Vietnamese() {
			return "Tin nhắn mới từ " + actorName
		}
		if recipient.Korean() {
			return actorName + "님의 새 메시지"
		}
		return "New message from " + actorName
	default:
		return n.Title
	}
}

// LocalizedBody builds the push body; DM bodies are truncated to 80 runes
func (n *Notification) LocalizedBody() string {
	switch n.Kind {
	case NotificationKindDMMessage:
		return truncateRunes(n.Body, 80)
	default:
		return n.Body
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
