package service

import (
	"context"
	"errors"
	"time"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/choviet/choviet-api/internal/repository"
	"github.com/choviet/choviet-api/pkg/auth"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo   *repository.UserRepository
	jwtManager *auth.JWTManager
	rdb        *redis.Client
}

func NewAuthService(userRepo *repository.UserRepository, jwtManager *auth.JWTManager, rdb *redis.Client) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		rdb:        rdb,
	}
}

// Register creates a new user account and returns a session token
func (s *AuthService) Register(req model.RegisterRequest) (*model.LoginResponse, error) {
	if _, err := s.userRepo.FindByEmail(req.Email); err == nil {
		return nil, errors.New("email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	locale := req.Locale
	if locale == "" {
		locale = "vi"
	}

	user := &model.User{
		Name:        req.Name,
		Email:       req.Email,
		Password:    string(hashedPassword),
		Locale:      locale,
		PushEnabled: true,
		DMEnabled:   true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, errors.New("failed to create user")
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &model.LoginResponse{
		Token: token,
		User:  user.ToResponse(),
	}, nil
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(req model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invalid email or password")
		}
		return nil, errors.New("failed to find user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &model.LoginResponse{
		Token: token,
		User:  user.ToResponse(),
	}, nil
}

// Logout blacklists the token for its remaining lifetime
func (s *AuthService) Logout(tokenString string) error {
	claims, err := s.jwtManager.ValidateToken(tokenString)
	if err != nil {
		return err
	}

	expiresIn := time.Until(claims.ExpiresAt.Time)
	if expiresIn <= 0 {
		return nil
	}
	return s.rdb.Set(context.Background(), "blacklist:"+tokenString, "revoked", expiresIn).Err()
}

// GetProfile returns the current user's profile
func (s *AuthService) GetProfile(userID uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, errors.New("user not found")
	}
	resp := user.ToResponse()
	return &resp, nil
}

// UpdateSettings updates locale and notification preferences
func (s *AuthService) UpdateSettings(userID uuid.UUID, req model.UpdateSettingsRequest) (*model.UserResponse, error) {
	if err := s.userRepo.UpdateSettings(userID, req.Locale, req.PushEnabled, req.DMEnabled); err != nil {
		return nil, err
	}
	return s.GetProfile(userID)
}
