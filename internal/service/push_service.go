package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrEndpointNotFound = errors.New("endpoint not found")
)

// EndpointStore is the slice of the endpoint repository the registry needs
type EndpointStore interface {
	FindByDevice(userID uuid.UUID, platform model.Platform, deviceID string) (*model.PushEndpoint, error)
	FindByBareToken(userID uuid.UUID, platform model.Platform, token string) (*model.PushEndpoint, error)
	Refresh(id uuid.UUID, ep *model.PushEndpoint) error
	Create(ep *model.PushEndpoint) error
	DeactivateByToken(userID uuid.UUID, platform model.Platform, token string) error
	DeactivateUnseenSince(cutoff time.Time) (int64, error)
}

// PushService manages the endpoint registry
type PushService struct {
	endpoints EndpointStore
}

func NewPushService(endpoints EndpointStore) *PushService {
	return &PushService{endpoints: endpoints}
}

// RegisterEndpoint upserts a device endpoint for the user. Web endpoints
// must carry their subscription URL and encryption keys; without them
// the web push protocol cannot address the browser at all.
func (s *PushService) RegisterEndpoint(userID uuid.UUID, req model.RegisterEndpointRequest) (*model.PushEndpoint, error) {
	if !model.ValidPlatform(req.Platform) {
		return nil, fmt.Errorf("%w: unsupported platform %q", ErrValidation, req.Platform)
	}

	ep := &model.PushEndpoint{
		UserID:   userID,
		Platform: req.Platform,
		Token:    req.Token,
		DeviceID: req.DeviceID,
	}

	if req.Platform == model.PlatformWeb {
		if req.EndpointURL == "" {
			return nil, fmt.Errorf("%w: web endpoints require endpoint_url", ErrValidation)
		}
		if req.Keys == nil || req.Keys.Auth == "" || req.Keys.P256dh == "" {
			return nil, fmt.Errorf("%w: web endpoints require auth and p256dh keys", ErrValidation)
		}
		ep.EndpointURL = req.EndpointURL
		ep.KeyAuth = req.Keys.Auth
		ep.KeyP256dh = req.Keys.P256dh
	}

	existing, err := s.findExisting(userID, req)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if existing != nil {
		if err := s.endpoints.Refresh(existing.ID, ep); err != nil {
			return nil, err
		}
		ep.ID = existing.ID
		ep.Active = true
		ep.LastSeenAt = time.Now()
		return ep, nil
	}

	if err := s.endpoints.Create(ep); err != nil {
		return nil, err
	}
	return ep, nil
}

// findExisting resolves which endpoint a registration refreshes. A device
// id pins the physical device across token rotations, so it takes
// precedence; token matching applies only to endpoints registered
// without one.
func (s *PushService) findExisting(userID uuid.UUID, req model.RegisterEndpointRequest) (*model.PushEndpoint, error) {
	if req.DeviceID != nil {
		return s.endpoints.FindByDevice(userID, req.Platform, *req.DeviceID)
	}
	return s.endpoints.FindByBareToken(userID, req.Platform, req.Token)
}

// UnregisterEndpoint deactivates an endpoint, e.g. on logout
func (s *PushService) UnregisterEndpoint(userID uuid.UUID, req model.UnregisterEndpointRequest) error {
	err := s.endpoints.DeactivateByToken(userID, req.Platform, req.Token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEndpointNotFound
	}
	return err
}

// SweepStale deactivates endpoints unseen for longer than maxAge
func (s *PushService) SweepStale(maxAge time.Duration) error {
	swept, err := s.endpoints.DeactivateUnseenSince(time.Now().Add(-maxAge))
	if err != nil {
		return err
	}
	if swept > 0 {
		log.Printf("🧹 Deactivated %d stale push endpoints", swept)
	}
	return nil
}
