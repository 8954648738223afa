package dto

import "time"

// IngestMessage is one message in an ingest payload
type IngestMessage struct {
	SourceID     string                 `json:"source_id" binding:"required"`
	SenderName   string                 `json:"sender_name"`
	SenderHandle string                 `json:"sender_handle"`
	BodyText     string                 `json:"body_text"`
	BodyHTML     string                 `json:"body_html"`
	SentAt       time.Time              `json:"sent_at" binding:"required"`
	IsFromUser   bool                   `json:"is_from_user"`
	RawMetadata  map[string]interface{} `json:"raw_metadata"`
}

// IngestRequest upserts a conversation and its messages from any source
type IngestRequest struct {
	Source               string          `json:"source" binding:"required"`
	UserID               string          `json:"user_id" binding:"required"`
	ConversationSourceID string          `json:"conversation_source_id" binding:"required"`
	Subject              string          `json:"subject"`
	Messages             []IngestMessage `json:"messages"`
}
