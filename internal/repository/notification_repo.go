package repository

import (
	"time"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRepository handles database operations for Notification.
// Every terminal transition is guarded by `status = pending` so the
// status is write-once even when two dispatch attempts race.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a new pending notification
func (r *NotificationRepository) Create(n *model.Notification) error {
	n.Status = model.NotificationStatusPending
	return r.db.Create(n).Error
}

// FindByID finds a notification by ID
func (r *NotificationRepository) FindByID(id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	err := r.db.Where("id = ?", id).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkDelivered transitions pending → delivered
func (r *NotificationRepository) MarkDelivered(id uuid.UUID) error {
	return r.terminalUpdate(id, map[string]interface{}{
		"status":       model.NotificationStatusDelivered,
		"delivered_at": time.Now(),
	})
}

// MarkSkipped transitions pending → skipped with a reason code
func (r *NotificationRepository) MarkSkipped(id uuid.UUID, reason string) error {
	return r.terminalUpdate(id, map[string]interface{}{
		"status":         model.NotificationStatusSkipped,
		"failure_reason": reason,
	})
}

// MarkFailed transitions pending → failed with a summary reason
func (r *NotificationRepository) MarkFailed(id uuid.UUID, reason string) error {
	return r.terminalUpdate(id, map[string]interface{}{
		"status":         model.NotificationStatusFailed,
		"failure_reason": reason,
	})
}

func (r *NotificationRepository) terminalUpdate(id uuid.UUID, updates map[string]interface{}) error {
	return r.db.Model(&model.Notification{}).
		Where("id = ? AND status = ?", id, model.NotificationStatusPending).
		Updates(updates).Error
}
