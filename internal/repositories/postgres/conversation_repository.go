package postgres

import (
	"context"
	"fmt"

	"social-service/internal/models"

	"gorm.io/gorm"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db}
}

func (r *ConversationRepository) Create(ctx context.Context, conversation *models.Conversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

func (r *ConversationRepository) AddMember(ctx context.Context, conversationID, userID uint) error {
	return r.db.WithContext(ctx).Create(&models.ConversationMember{
		ConversationID: conversationID,
		UserID:         userID,
	}).Error
}

// MemberIDs returns the user ids of every member of the conversation.
func (r *ConversationRepository) MemberIDs(ctx context.Context, conversationID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.ConversationMember{}).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load members of conversation %d: %w", conversationID, err)
	}
	return ids, nil
}
