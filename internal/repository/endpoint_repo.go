package repository

import (
	"time"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EndpointRepository handles database operations for PushEndpoint
type EndpointRepository struct {
	db *gorm.DB
}

func NewEndpointRepository(db *gorm.DB) *EndpointRepository {
	return &EndpointRepository{db: db}
}

// FindByDevice returns the user's endpoint registered under this device id
func (r *EndpointRepository) FindByDevice(userID uuid.UUID, platform model.Platform, deviceID string) (*model.PushEndpoint, error) {
	var ep model.PushEndpoint
	err := r.db.
		Where("user_id = ? AND platform = ? AND device_id = ?", userID, platform, deviceID).
		First(&ep).Error
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

// FindByBareToken returns the user's endpoint for this token among those
// registered without a device id
func (r *EndpointRepository) FindByBareToken(userID uuid.UUID, platform model.Platform, token string) (*model.PushEndpoint, error) {
	var ep model.PushEndpoint
	err := r.db.
		Where("user_id = ? AND platform = ? AND device_id IS NULL AND token = ?", userID, platform, token).
		First(&ep).Error
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

// Refresh overwrites the endpoint's mutable fields, reactivates it and
// bumps last_seen_at
func (r *EndpointRepository) Refresh(id uuid.UUID, ep *model.PushEndpoint) error {
	return r.db.Model(&model.PushEndpoint{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"token":        ep.Token,
			"endpoint_url": ep.EndpointURL,
			"key_auth":     ep.KeyAuth,
			"key_p256dh":   ep.KeyP256dh,
			"active":       true,
			"last_seen_at": time.Now(),
		}).Error
}

// Create inserts a new endpoint as active and just seen
func (r *EndpointRepository) Create(ep *model.PushEndpoint) error {
	ep.Active = true
	ep.LastSeenAt = time.Now()
	return r.db.Create(ep).Error
}

// ActiveForUser returns all active endpoints for a user across platforms
func (r *EndpointRepository) ActiveForUser(userID uuid.UUID) ([]model.PushEndpoint, error) {
	var endpoints []model.PushEndpoint
	err := r.db.
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at ASC").
		Find(&endpoints).Error
	return endpoints, err
}

// Deactivate marks an endpoint inactive; idempotent
func (r *EndpointRepository) Deactivate(id uuid.UUID) error {
	return r.db.Model(&model.PushEndpoint{}).
		Where("id = ?", id).
		Update("active", false).Error
}

// DeactivateByToken marks the endpoint for (user, platform, token) inactive.
// Returns gorm.ErrRecordNotFound when no such endpoint exists.
func (r *EndpointRepository) DeactivateByToken(userID uuid.UUID, platform model.Platform, token string) error {
	res := r.db.Model(&model.PushEndpoint{}).
		Where("user_id = ? AND platform = ? AND token = ?", userID, platform, token).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TouchLastSeen records endpoint activity after a successful delivery
func (r *EndpointRepository) TouchLastSeen(id uuid.UUID) error {
	return r.db.Model(&model.PushEndpoint{}).
		Where("id = ?", id).
		Update("last_seen_at", time.Now()).Error
}

// DeactivateUnseenSince batch-deactivates active endpoints whose last
// activity predates cutoff. Runs periodically, never on the request path.
func (r *EndpointRepository) DeactivateUnseenSince(cutoff time.Time) (int64, error) {
	res := r.db.Model(&model.PushEndpoint{}).
		Where("active = ? AND last_seen_at < ?", true, cutoff).
		Update("active", false)
	return res.RowsAffected, res.Error
}
