package repository

import (
	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository handles database operations for Message
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message
func (r *MessageRepository) Create(msg *model.Message) error {
	return r.db.Create(msg).Error
}

// FindByID finds a message by ID with its sender
func (r *MessageRepository) FindByID(id uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := r.db.
		Preload("Sender").
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetConversationMessages returns paginated messages for a conversation (cursor-based)
func (r *MessageRepository) GetConversationMessages(conversationID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error) {
	messages := []model.Message{}
	query := r.db.
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Where("status = ?", model.MessageStatusVisible).
		Order("created_at DESC").
		Limit(limit)

	// Cursor-based pagination: get messages before a specific message
	if before != nil {
		var beforeMsg model.Message
		if err := r.db.Select("created_at").Where("id = ?", before).First(&beforeMsg).Error; err != nil {
			return nil, err
		}
		query = query.Where("created_at < ?", beforeMsg.CreatedAt)
	}

	err := query.Find(&messages).Error
	return messages, err
}

// CreateSystemMessage appends a system-authored message to a conversation
func (r *MessageRepository) CreateSystemMessage(conversationID uuid.UUID, body string) error {
	msg := model.Message{
		ConversationID: conversationID,
		SenderID:       nil,
		Body:           body,
		System:         true,
		Status:         model.MessageStatusVisible,
	}
	return r.db.Create(&msg).Error
}

// HasSystemMessageContaining checks whether a conversation already holds
// a system message with the given marker in its body
func (r *MessageRepository) HasSystemMessageContaining(conversationID uuid.UUID, marker string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Message{}).
		Where("conversation_id = ? AND system = ?", conversationID, true).
		Where("body LIKE ?", "%"+marker+"%").
		Count(&count).Error
	return count > 0, err
}
