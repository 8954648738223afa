package completion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	authdomain "taskmind-backend/internal/auth/domain"
	convdomain "taskmind-backend/internal/conversation/domain"
	taskdomain "taskmind-backend/internal/task/domain"
)

type fakeConversationStore struct {
	conversation *convdomain.Conversation
	messages     []*convdomain.Message
	userMsgCount int64
	countErr     error
}

func (f *fakeConversationStore) FindConversationByID(id string) (*convdomain.Conversation, error) {
	return f.conversation, nil
}

func (f *fakeConversationStore) FindMessages(conversationID string) ([]*convdomain.Message, error) {
	return f.messages, nil
}

func (f *fakeConversationStore) CountUserMessagesAfter(conversationID string, after time.Time) (int64, error) {
	return f.userMsgCount, f.countErr
}

type fakeRefresher struct {
	err    error
	called bool
}

func (f *fakeRefresher) Refresh(ctx context.Context, conversation *convdomain.Conversation, user *authdomain.User) error {
	f.called = true
	return f.err
}

type fakeJudge struct {
	resolved bool
	err      error
	called   bool
}

func (f *fakeJudge) JudgeResolved(ctx context.Context, prompt string) (bool, error) {
	f.called = true
	return f.resolved, f.err
}

type fakeTaskStore struct {
	updated   *taskdomain.Task
	updateErr error
}

func (f *fakeTaskStore) Update(task *taskdomain.Task) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = task
	return nil
}

func testFixture(conv *fakeConversationStore, refresher *fakeRefresher, judge *fakeJudge, tasks *fakeTaskStore) *Checker {
	c := NewChecker(conv, refresher, judge, tasks)
	c.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return c
}

func testTask() *taskdomain.Task {
	return &taskdomain.Task{
		ID:             "task-1",
		UserID:         "user-1",
		ConversationID: "conv-1",
		Title:          "Reply to Anna",
		Category:       taskdomain.CategoryReply,
		Status:         taskdomain.StatusPending,
		CreatedAt:      time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC),
	}
}

func testMessages() []*convdomain.Message {
	return []*convdomain.Message{{
		ConversationID: "conv-1",
		SenderHandle:   "me@example.com",
		BodyText:       "Done, sent it over!",
		SentAt:         time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		IsFromUser:     true,
	}}
}

func TestMissingConversationReturnsFalseWithoutJudge(t *testing.T) {
	conv := &fakeConversationStore{conversation: nil}
	judge := &fakeJudge{resolved: true}
	c := testFixture(conv, &fakeRefresher{}, judge, &fakeTaskStore{})

	if c.CheckAndSyncCompletion(context.Background(), testTask(), &authdomain.User{ID: "user-1"}) {
		t.Error("missing conversation must be not-resolved")
	}
	if judge.called {
		t.Error("judge must not run without a conversation")
	}
}

func TestNoUserMessagesSkipsJudge(t *testing.T) {
	conv := &fakeConversationStore{
		conversation: &convdomain.Conversation{ID: "conv-1"},
		messages:     testMessages(),
		userMsgCount: 0,
	}
	judge := &fakeJudge{resolved: true}
	c := testFixture(conv, &fakeRefresher{}, judge, &fakeTaskStore{})

	if c.CheckAndSyncCompletion(context.Background(), testTask(), &authdomain.User{ID: "user-1"}) {
		t.Error("no user activity means nothing can be resolved")
	}
	if judge.called {
		t.Error("judge must be skipped when the user wrote nothing new")
	}
}

func TestRefreshFailureStillJudgesStoredMessages(t *testing.T) {
	conv := &fakeConversationStore{
		conversation: &convdomain.Conversation{ID: "conv-1"},
		messages:     testMessages(),
		userMsgCount: 1,
	}
	refresher := &fakeRefresher{err: errors.New("gmail 503")}
	judge := &fakeJudge{resolved: true}
	tasks := &fakeTaskStore{}
	c := testFixture(conv, refresher, judge, tasks)

	if !c.CheckAndSyncCompletion(context.Background(), testTask(), &authdomain.User{ID: "user-1"}) {
		t.Error("stale-but-safe: a refresh failure must not block judging")
	}
	if !refresher.called || !judge.called {
		t.Error("both refresh and judge should have run")
	}
}

func TestJudgeErrorIsConservativeFalse(t *testing.T) {
	conv := &fakeConversationStore{
		conversation: &convdomain.Conversation{ID: "conv-1"},
		messages:     testMessages(),
		userMsgCount: 1,
	}
	tasks := &fakeTaskStore{}
	c := testFixture(conv, &fakeRefresher{}, &fakeJudge{err: errors.New("timeout")}, tasks)

	task := testTask()
	if c.CheckAndSyncCompletion(context.Background(), task, &authdomain.User{ID: "user-1"}) {
		t.Error("judge error must degrade to not-resolved")
	}
	if task.Status != taskdomain.StatusPending {
		t.Errorf("status must be unchanged, got %s", task.Status)
	}
	if tasks.updated != nil {
		t.Error("no update should be persisted")
	}
}

func TestResolvedMarksDone(t *testing.T) {
	conv := &fakeConversationStore{
		conversation: &convdomain.Conversation{ID: "conv-1"},
		messages:     testMessages(),
		userMsgCount: 1,
	}
	tasks := &fakeTaskStore{}
	c := testFixture(conv, &fakeRefresher{}, &fakeJudge{resolved: true}, tasks)

	task := testTask()
	if !c.CheckAndSyncCompletion(context.Background(), task, &authdomain.User{ID: "user-1"}) {
		t.Fatal("expected resolved")
	}
	if task.Status != taskdomain.StatusDone {
		t.Errorf("expected done, got %s", task.Status)
	}
	if tasks.updated != task {
		t.Error("completion must be persisted")
	}
}

func TestPersistFailureReturnsFalse(t *testing.T) {
	conv := &fakeConversationStore{
		conversation: &convdomain.Conversation{ID: "conv-1"},
		messages:     testMessages(),
		userMsgCount: 1,
	}
	tasks := &fakeTaskStore{updateErr: errors.New("db down")}
	c := testFixture(conv, &fakeRefresher{}, &fakeJudge{resolved: true}, tasks)

	if c.CheckAndSyncCompletion(context.Background(), testTask(), &authdomain.User{ID: "user-1"}) {
		t.Error("an unpersisted completion must not count as resolved")
	}
}

func TestBuildJudgePromptLabelsDirections(t *testing.T) {
	task := testTask()
	messages := []*convdomain.Message{
		{SenderHandle: "anna@example.com", BodyText: "Can you send it?", SentAt: time.Now(), IsFromUser: false},
		{SenderHandle: "me@example.com", BodyText: "Sent!", SentAt: time.Now(), IsFromUser: true},
	}

	prompt := BuildJudgePrompt(task, messages)
	if !strings.Contains(prompt, "[SENDER] From: anna@example.com") {
		t.Error("sender message not labeled")
	}
	if !strings.Contains(prompt, "[USER] From: me@example.com") {
		t.Error("user message not labeled")
	}
	if !strings.Contains(prompt, "TASK: Reply to Anna") {
		t.Error("task header missing")
	}
}
