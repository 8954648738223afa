package sync

import (
	"context"
	"fmt"

	authdomain "taskmind-backend/internal/auth/domain"
	authusecase "taskmind-backend/internal/auth/usecase"
	convdomain "taskmind-backend/internal/conversation/domain"
	convusecase "taskmind-backend/internal/conversation/usecase"
	sourcedomain "taskmind-backend/internal/source/domain"
	"taskmind-backend/pkg/gmail"
)

// ConversationRefresher re-fetches a single conversation from its source so
// the completion checker judges against fresh messages. Only Gmail supports
// targeted re-fetch; other sources rely on their regular sync cadence.
type ConversationRefresher struct {
	gmail  *gmail.Service
	ingest convusecase.IngestUsecase
	cipher *authusecase.TokenCipher
}

func NewConversationRefresher(gmailService *gmail.Service, ingest convusecase.IngestUsecase, cipher *authusecase.TokenCipher) *ConversationRefresher {
	return &ConversationRefresher{
		gmail:  gmailService,
		ingest: ingest,
		cipher: cipher,
	}
}

func (r *ConversationRefresher) Refresh(ctx context.Context, conversation *convdomain.Conversation, user *authdomain.User) error {
	if conversation.Source != sourcedomain.SourceGmail {
		return nil
	}

	if user.EncryptedRefreshToken == "" {
		return fmt.Errorf("user %s has no stored refresh token", user.ID)
	}
	refreshToken, err := r.cipher.Decrypt(user.EncryptedRefreshToken)
	if err != nil {
		return fmt.Errorf("could not decrypt refresh token for user %s: %w", user.ID, err)
	}
	connector, err := r.gmail.Connector(ctx, refreshToken)
	if err != nil {
		return err
	}

	thread, err := connector.GetThread(ctx, conversation.SourceID)
	if err != nil {
		return err
	}

	payload := threadToIngest(user, thread)
	if payload == nil {
		return nil
	}
	_, err = r.ingest.Ingest(payload)
	return err
}
