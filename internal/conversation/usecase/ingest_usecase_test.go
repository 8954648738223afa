package usecase

import (
	"errors"
	"fmt"
	"testing"
	"time"

	authdomain "taskmind-backend/internal/auth/domain"
	convdomain "taskmind-backend/internal/conversation/domain"
	"taskmind-backend/internal/conversation/dto"
)

type fakeConvRepo struct {
	conversations map[string]*convdomain.Conversation // keyed by source ID
	messages      map[string]*convdomain.Message      // keyed by source ID
	nextID        int
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{
		conversations: make(map[string]*convdomain.Conversation),
		messages:      make(map[string]*convdomain.Message),
	}
}

func (f *fakeConvRepo) CreateConversation(conversation *convdomain.Conversation) error {
	f.nextID++
	conversation.ID = fmt.Sprintf("conv-%d", f.nextID)
	f.conversations[conversation.SourceID] = conversation
	return nil
}

func (f *fakeConvRepo) UpdateConversation(conversation *convdomain.Conversation) error { return nil }

func (f *fakeConvRepo) FindConversationByID(id string) (*convdomain.Conversation, error) {
	for _, conv := range f.conversations {
		if conv.ID == id {
			return conv, nil
		}
	}
	return nil, nil
}

func (f *fakeConvRepo) FindConversationBySource(userID, source, sourceID string) (*convdomain.Conversation, error) {
	return f.conversations[sourceID], nil
}

func (f *fakeConvRepo) DeleteConversation(id string) error { return nil }

func (f *fakeConvRepo) CreateMessage(message *convdomain.Message) error {
	f.messages[message.SourceID] = message
	return nil
}

func (f *fakeConvRepo) MessageExists(source, sourceID string) (bool, error) {
	_, ok := f.messages[sourceID]
	return ok, nil
}

func (f *fakeConvRepo) FindMessages(conversationID string) ([]*convdomain.Message, error) {
	return nil, nil
}

func (f *fakeConvRepo) CountUserMessagesAfter(conversationID string, after time.Time) (int64, error) {
	return 0, nil
}

type fakeUserRepo struct {
	users map[string]*authdomain.User
}

func (f *fakeUserRepo) Create(user *authdomain.User) error { return nil }

func (f *fakeUserRepo) FindByID(id string) (*authdomain.User, error) { return f.users[id], nil }

func (f *fakeUserRepo) FindByEmail(email string) (*authdomain.User, error) { return nil, nil }

func (f *fakeUserRepo) FindByGoogleID(googleID string) (*authdomain.User, error) { return nil, nil }

func (f *fakeUserRepo) FindAll() ([]*authdomain.User, error) { return nil, nil }

func (f *fakeUserRepo) Update(user *authdomain.User) error { return nil }

func testPayload() *dto.IngestRequest {
	return &dto.IngestRequest{
		Source:               "gmail",
		UserID:               "u1",
		ConversationSourceID: "thread-1",
		Subject:              "Project update",
		Messages: []dto.IngestMessage{
			{
				SourceID:     "msg-1",
				SenderHandle: "anna@example.com",
				BodyText:     "Can you review the doc by Friday?",
				SentAt:       time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
			},
			{
				SourceID:     "msg-2",
				SenderHandle: "me@example.com",
				BodyText:     "Will do.",
				SentAt:       time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
				IsFromUser:   true,
			},
		},
	}
}

func TestIngestUnknownUserFails(t *testing.T) {
	uc := NewIngestUsecase(newFakeConvRepo(), &fakeUserRepo{users: map[string]*authdomain.User{}})

	_, err := uc.Ingest(testPayload())
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIngestCreatesConversationAndMessages(t *testing.T) {
	convRepo := newFakeConvRepo()
	uc := NewIngestUsecase(convRepo, &fakeUserRepo{users: map[string]*authdomain.User{
		"u1": {ID: "u1"},
	}})

	conversation, err := uc.Ingest(testPayload())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if len(convRepo.messages) != 2 {
		t.Errorf("expected 2 stored messages, got %d", len(convRepo.messages))
	}
	if conversation.Snippet != "Will do." {
		t.Errorf("snippet should come from the newest message, got %q", conversation.Snippet)
	}
	if conversation.LastMessageAt == nil || !conversation.LastMessageAt.Equal(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("last_message_at wrong: %v", conversation.LastMessageAt)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	convRepo := newFakeConvRepo()
	uc := NewIngestUsecase(convRepo, &fakeUserRepo{users: map[string]*authdomain.User{
		"u1": {ID: "u1"},
	}})

	first, err := uc.Ingest(testPayload())
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := uc.Ingest(testPayload())
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("re-ingest must reuse the conversation: %s vs %s", first.ID, second.ID)
	}
	if len(convRepo.messages) != 2 {
		t.Errorf("re-ingest must not duplicate messages, got %d", len(convRepo.messages))
	}
	if len(convRepo.conversations) != 1 {
		t.Errorf("re-ingest must not duplicate conversations, got %d", len(convRepo.conversations))
	}
}

func TestIngestAppendsNewMessagesOnly(t *testing.T) {
	convRepo := newFakeConvRepo()
	uc := NewIngestUsecase(convRepo, &fakeUserRepo{users: map[string]*authdomain.User{
		"u1": {ID: "u1"},
	}})

	if _, err := uc.Ingest(testPayload()); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	grown := testPayload()
	grown.Messages = append(grown.Messages, dto.IngestMessage{
		SourceID:     "msg-3",
		SenderHandle: "anna@example.com",
		BodyText:     "Thanks!",
		SentAt:       time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
	})
	conversation, err := uc.Ingest(grown)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if len(convRepo.messages) != 3 {
		t.Errorf("expected 3 messages after growth, got %d", len(convRepo.messages))
	}
	if conversation.Snippet != "Thanks!" {
		t.Errorf("snippet should track the newest message, got %q", conversation.Snippet)
	}
}
