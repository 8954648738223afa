package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	authrepo "taskmind-backend/internal/auth/repository"
	convdomain "taskmind-backend/internal/conversation/domain"
	"taskmind-backend/internal/conversation/dto"
	"taskmind-backend/internal/conversation/repository"
)

const snippetLength = 200

// ErrUserNotFound is returned when an ingest payload references an unknown user
var ErrUserNotFound = errors.New("user not found")

// IngestUsecase upserts conversations and their messages from any source
type IngestUsecase interface {
	// Ingest stores the payload idempotently and returns the conversation.
	// Messages are deduplicated by (source, source_id); re-ingesting the
	// same payload stores nothing new.
	Ingest(payload *dto.IngestRequest) (*convdomain.Conversation, error)
}

type ingestUsecase struct {
	convRepo repository.ConversationRepository
	userRepo authrepo.UserRepository
}

// NewIngestUsecase creates a new instance of ingestUsecase
func NewIngestUsecase(convRepo repository.ConversationRepository, userRepo authrepo.UserRepository) IngestUsecase {
	return &ingestUsecase{
		convRepo: convRepo,
		userRepo: userRepo,
	}
}

func (u *ingestUsecase) Ingest(payload *dto.IngestRequest) (*convdomain.Conversation, error) {
	user, err := u.userRepo.FindByID(payload.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, payload.UserID)
	}

	conversation, err := u.convRepo.FindConversationBySource(payload.UserID, payload.Source, payload.ConversationSourceID)
	if err != nil {
		return nil, err
	}

	if conversation == nil {
		conversation = &convdomain.Conversation{
			UserID:   payload.UserID,
			Source:   payload.Source,
			SourceID: payload.ConversationSourceID,
			Subject:  payload.Subject,
		}
		if err := u.convRepo.CreateConversation(conversation); err != nil {
			return nil, err
		}
	}

	// Refresh snippet and last_message_at from the newest message
	if len(payload.Messages) > 0 {
		latest := payload.Messages[0]
		for _, msg := range payload.Messages[1:] {
			if msg.SentAt.After(latest.SentAt) {
				latest = msg
			}
		}
		conversation.Snippet = truncate(latest.BodyText, snippetLength)
		sentAt := latest.SentAt
		conversation.LastMessageAt = &sentAt
	}

	stored := 0
	for _, msgPayload := range payload.Messages {
		exists, err := u.convRepo.MessageExists(payload.Source, msgPayload.SourceID)
		if err != nil {
			return nil, err
		}
		if exists {
			continue // idempotent, skip duplicates
		}

		message := &convdomain.Message{
			ConversationID: conversation.ID,
			UserID:         payload.UserID,
			Source:         payload.Source,
			SourceID:       msgPayload.SourceID,
			SenderName:     msgPayload.SenderName,
			SenderHandle:   msgPayload.SenderHandle,
			BodyText:       msgPayload.BodyText,
			BodyHTML:       msgPayload.BodyHTML,
			SentAt:         msgPayload.SentAt.UTC(),
			IsFromUser:     msgPayload.IsFromUser,
		}
		if msgPayload.RawMetadata != nil {
			if raw, err := json.Marshal(msgPayload.RawMetadata); err == nil {
				message.RawMetadata = raw
			}
		}
		if err := u.convRepo.CreateMessage(message); err != nil {
			return nil, err
		}
		stored++
	}

	conversation.UpdatedAt = time.Now().UTC()
	if err := u.convRepo.UpdateConversation(conversation); err != nil {
		return nil, err
	}

	log.Printf("[Ingest] conversation=%s source=%s stored %d new messages",
		conversation.ID, payload.Source, stored)
	return conversation, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
