package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	convdomain "taskmind-backend/internal/conversation/domain"
)

type gormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GORM-based ConversationRepository
func NewGormConversationRepository(db *gorm.DB) ConversationRepository {
	return &gormConversationRepository{db: db}
}

func (r *gormConversationRepository) CreateConversation(conversation *convdomain.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	return r.db.Create(conversation).Error
}

func (r *gormConversationRepository) UpdateConversation(conversation *convdomain.Conversation) error {
	conversation.UpdatedAt = time.Now().UTC()
	return r.db.Save(conversation).Error
}

func (r *gormConversationRepository) FindConversationByID(id string) (*convdomain.Conversation, error) {
	var conversation convdomain.Conversation
	err := r.db.Where("id = ?", id).First(&conversation).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &conversation, nil
}

func (r *gormConversationRepository) FindConversationBySource(userID, source, sourceID string) (*convdomain.Conversation, error) {
	var conversation convdomain.Conversation
	err := r.db.Where("user_id = ? AND source = ? AND source_id = ?", userID, source, sourceID).
		First(&conversation).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &conversation, nil
}

// DeleteConversation removes the conversation and its messages in one transaction
func (r *gormConversationRepository) DeleteConversation(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&convdomain.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&convdomain.Conversation{}).Error
	})
}

func (r *gormConversationRepository) CreateMessage(message *convdomain.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = time.Now().UTC()
	return r.db.Create(message).Error
}

func (r *gormConversationRepository) MessageExists(source, sourceID string) (bool, error) {
	var count int64
	err := r.db.Model(&convdomain.Message{}).
		Where("source = ? AND source_id = ?", source, sourceID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormConversationRepository) FindMessages(conversationID string) ([]*convdomain.Message, error) {
	var messages []*convdomain.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("sent_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *gormConversationRepository) CountUserMessagesAfter(conversationID string, after time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&convdomain.Message{}).
		Where("conversation_id = ? AND is_from_user = ? AND sent_at > ?", conversationID, true, after).
		Count(&count).Error
	return count, err
}
