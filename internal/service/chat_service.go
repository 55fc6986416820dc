package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/choviet/choviet-api/internal/model"
	"github.com/choviet/choviet-api/internal/ratelimit"
	"github.com/choviet/choviet-api/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotParticipant   = errors.New("you are not a participant of this conversation")
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")
	ErrBlockedPair      = errors.New("messaging is unavailable between these users")
)

// Enqueuer hands pending notifications to the delivery worker
type Enqueuer interface {
	Enqueue(id uuid.UUID)
}

// ChatService handles direct conversations and the push trigger that
// follows each message
type ChatService struct {
	convRepo   *repository.ConversationRepository
	msgRepo    *repository.MessageRepository
	userRepo   *repository.UserRepository
	blockRepo  *repository.BlockRepository
	notifRepo  *repository.NotificationRepository
	limiter    *ratelimit.Limiter
	dispatcher Enqueuer
	dmRateTTL  time.Duration
}

func NewChatService(
	convRepo *repository.ConversationRepository,
	msgRepo *repository.MessageRepository,
	userRepo *repository.UserRepository,
	blockRepo *repository.BlockRepository,
	notifRepo *repository.NotificationRepository,
	limiter *ratelimit.Limiter,
	dispatcher Enqueuer,
	dmRateTTL time.Duration,
) *ChatService {
	return &ChatService{
		convRepo:   convRepo,
		msgRepo:    msgRepo,
		userRepo:   userRepo,
		blockRepo:  blockRepo,
		notifRepo:  notifRepo,
		limiter:    limiter,
		dispatcher: dispatcher,
		dmRateTTL:  dmRateTTL,
	}
}

// GetOrCreateDirect finds or creates the direct conversation with a partner
func (s *ChatService) GetOrCreateDirect(myID, partnerID uuid.UUID) (*model.Conversation, error) {
	if myID == partnerID {
		return nil, ErrSelfConversation
	}
	if _, err := s.userRepo.FindByID(partnerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}

	blocked, err := s.blockRepo.Blocked(myID, partnerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlockedPair
	}

	return s.convRepo.FindOrCreateDirect(myID, partnerID)
}

// ConversationPeer resolves the other participant of a conversation the
// user belongs to
func (s *ChatService) ConversationPeer(convID, userID uuid.UUID) (uuid.UUID, error) {
	conv, err := s.convRepo.FindByID(convID)
	if err != nil {
		return uuid.Nil, err
	}
	if !conv.Includes(userID) {
		return uuid.Nil, ErrNotParticipant
	}
	return conv.OtherParticipant(userID), nil
}

// GetConversations returns all conversations for a user, latest first
func (s *ChatService) GetConversations(userID uuid.UUID) ([]model.Conversation, error) {
	return s.convRepo.GetUserConversations(userID)
}

// GetMessages returns paginated messages for a conversation
func (s *ChatService) GetMessages(convID, userID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error) {
	conv, err := s.convRepo.FindByID(convID)
	if err != nil {
		return nil, err
	}
	if !conv.Includes(userID) {
		return nil, ErrNotParticipant
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.msgRepo.GetConversationMessages(convID, before, limit)
}

// SendMessage stores a message and triggers the push pipeline for the
// recipient. Returns the stored message and the recipient's id for
// real-time fan-out. The message itself succeeds even when the push
// trigger cannot run.
func (s *ChatService) SendMessage(ctx context.Context, senderID, convID uuid.UUID, req model.SendMessageRequest) (*model.Message, uuid.UUID, error) {
	conv, err := s.convRepo.FindByID(convID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if !conv.Includes(senderID) {
		return nil, uuid.Nil, ErrNotParticipant
	}

	recipientID := conv.OtherParticipant(senderID)
	blocked, err := s.blockRepo.Blocked(senderID, recipientID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if blocked {
		return nil, uuid.Nil, ErrBlockedPair
	}

	msg := &model.Message{
		ConversationID: convID,
		SenderID:       &senderID,
		Body:           req.Body,
		Status:         model.MessageStatusVisible,
	}
	if err := s.msgRepo.Create(msg); err != nil {
		return nil, uuid.Nil, errors.New("failed to send message")
	}
	_ = s.convRepo.TouchUpdatedAt(convID)

	s.triggerPush(ctx, conv, msg, senderID, recipientID)

	stored, err := s.msgRepo.FindByID(msg.ID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return stored, recipientID, nil
}

// triggerPush applies the per-conversation rate gate and, when it
// passes, records a pending notification and enqueues it. At most one
// push per conversation per recipient inside the gate window; the gate
// fails open so a cache outage degrades to extra pushes, not silence.
func (s *ChatService) triggerPush(ctx context.Context, conv *model.Conversation, msg *model.Message, senderID, recipientID uuid.UUID) {
	key := ratelimit.DMKey(conv.ID, recipientID)
	acquired, err := s.limiter.TryAcquire(ctx, key, s.dmRateTTL)
	if err != nil {
		log.Printf("⚠️  Rate gate unavailable, sending anyway: %v", err)
		acquired = true
	}
	if !acquired {
		return
	}

	n := &model.Notification{
		RecipientID:    recipientID,
		ActorID:        &senderID,
		Kind:           model.NotificationKindDMMessage,
		NotifiableType: "message",
		NotifiableID:   &msg.ID,
		Body:           msg.Body,
		Payload: datatypes.JSONMap{
			"conversation_id": conv.ID.String(),
			"message_id":      msg.ID.String(),
		},
	}
	if err := s.notifRepo.Create(n); err != nil {
		log.Printf("❌ Failed to record notification for message %s: %v", msg.ID, err)
		return
	}
	s.dispatcher.Enqueue(n.ID)
}
