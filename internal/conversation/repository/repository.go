package repository

import (
	"time"

	convdomain "taskmind-backend/internal/conversation/domain"
)

// ConversationRepository defines the interface for conversation/message data access
type ConversationRepository interface {
	// CreateConversation inserts a new conversation
	CreateConversation(conversation *convdomain.Conversation) error

	// UpdateConversation saves changes to an existing conversation
	UpdateConversation(conversation *convdomain.Conversation) error

	// FindConversationByID finds a conversation by primary key
	FindConversationByID(id string) (*convdomain.Conversation, error)

	// FindConversationBySource finds a conversation by its natural key
	FindConversationBySource(userID, source, sourceID string) (*convdomain.Conversation, error)

	// DeleteConversation removes a conversation and all its messages
	DeleteConversation(id string) error

	// CreateMessage inserts a new message
	CreateMessage(message *convdomain.Message) error

	// MessageExists reports whether a message with this source identity is stored
	MessageExists(source, sourceID string) (bool, error)

	// FindMessages returns all messages of a conversation ordered by sent_at ascending
	FindMessages(conversationID string) ([]*convdomain.Message, error)

	// CountUserMessagesAfter counts messages from the user sent after the given instant
	CountUserMessagesAfter(conversationID string, after time.Time) (int64, error)
}
