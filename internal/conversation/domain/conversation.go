package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Conversation is a thread of messages from one source (an email thread, a
// calendar event). Snippet and LastMessageAt track the newest message.
type Conversation struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	UserID        string     `json:"user_id" gorm:"size:36;index;not null;uniqueIndex:uq_conversations_user_source"`
	Source        string     `json:"source" gorm:"size:50;not null;uniqueIndex:uq_conversations_user_source"`
	SourceID      string     `json:"source_id" gorm:"size:255;not null;uniqueIndex:uq_conversations_user_source"`
	Subject       string     `json:"subject,omitempty"`
	Snippet       string     `json:"snippet,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Message is one immutable message within a conversation, deduplicated by
// (source, source_id).
type Message struct {
	ID             string         `json:"id" gorm:"primaryKey;size:36"`
	ConversationID string         `json:"conversation_id" gorm:"size:36;index;not null"`
	UserID         string         `json:"user_id" gorm:"size:36;index;not null"`
	Source         string         `json:"source" gorm:"size:50;not null;uniqueIndex:uq_messages_source_source_id"`
	SourceID       string         `json:"source_id" gorm:"size:255;not null;uniqueIndex:uq_messages_source_source_id"`
	SenderName     string         `json:"sender_name,omitempty" gorm:"size:255"`
	SenderHandle   string         `json:"sender_handle,omitempty" gorm:"size:255"`
	BodyText       string         `json:"body_text,omitempty"`
	BodyHTML       string         `json:"-"`
	SentAt         time.Time      `json:"sent_at" gorm:"not null"`
	IsFromUser     bool           `json:"is_from_user" gorm:"not null;default:false"`
	RawMetadata    datatypes.JSON `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
}
