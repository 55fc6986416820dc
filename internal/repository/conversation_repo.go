package repository

import (
	"errors"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationRepository handles database operations for Conversation
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindByID finds a conversation by ID with both participants
func (r *ConversationRepository) FindByID(id uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.
		Preload("UserA").
		Preload("UserB").
		Where("id = ?", id).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindOrCreateDirect finds the direct conversation between two users or creates it
func (r *ConversationRepository) FindOrCreateDirect(user1, user2 uuid.UUID) (*model.Conversation, error) {
	a, b := model.NormalizePair(user1, user2)

	var conv model.Conversation
	err := r.db.
		Preload("UserA").
		Preload("UserB").
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = model.Conversation{UserAID: a, UserBID: b}
	if err := r.db.Create(&conv).Error; err != nil {
		return nil, err
	}
	return r.FindByID(conv.ID)
}

// GetUserConversations returns all conversations for a user, latest activity first
func (r *ConversationRepository) GetUserConversations(userID uuid.UUID) ([]model.Conversation, error) {
	var conversations []model.Conversation
	err := r.db.
		Preload("UserA").
		Preload("UserB").
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&conversations).Error
	return conversations, err
}

// ActiveConversationIDsFor returns ids of all live conversations involving a user
func (r *ConversationRepository) ActiveConversationIDsFor(userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&model.Conversation{}).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Pluck("id", &ids).Error
	return ids, err
}

// TouchUpdatedAt bumps a conversation for activity-based sorting
func (r *ConversationRepository) TouchUpdatedAt(id uuid.UUID) error {
	return r.db.Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", gorm.Expr("NOW()")).Error
}
