package completion

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	authdomain "taskmind-backend/internal/auth/domain"
	convdomain "taskmind-backend/internal/conversation/domain"
	taskdomain "taskmind-backend/internal/task/domain"
)

const bodyTruncate = 2000

// ConversationStore is the slice of the conversation repository the checker needs
type ConversationStore interface {
	FindConversationByID(id string) (*convdomain.Conversation, error)
	FindMessages(conversationID string) ([]*convdomain.Message, error)
	CountUserMessagesAfter(conversationID string, after time.Time) (int64, error)
}

// SourceRefresher re-fetches a conversation from its origin and re-ingests
// any new messages. Auth/API failures must be returned, not panic.
type SourceRefresher interface {
	Refresh(ctx context.Context, conversation *convdomain.Conversation, user *authdomain.User) error
}

// Judge is the external LLM completion call
type Judge interface {
	JudgeResolved(ctx context.Context, prompt string) (bool, error)
}

// TaskStore persists the auto-completion transition
type TaskStore interface {
	Update(task *taskdomain.Task) error
}

// Checker decides whether a task's real-world action already happened
// before a reminder fires. The conservative default on every failure path
// is "not resolved": auto-closing an unfinished task is worse than an
// extra reminder.
type Checker struct {
	conversations ConversationStore
	refresher     SourceRefresher
	judge         Judge
	tasks         TaskStore
	now           func() time.Time
}

func NewChecker(conversations ConversationStore, refresher SourceRefresher, judge Judge, tasks TaskStore) *Checker {
	return &Checker{
		conversations: conversations,
		refresher:     refresher,
		judge:         judge,
		tasks:         tasks,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CheckAndSyncCompletion refreshes the task's conversation from its source,
// then asks the LLM judge whether the task is already resolved. If so it
// marks the task done and returns true. Never panics and never surfaces an
// error: every failure degrades to false.
func (c *Checker) CheckAndSyncCompletion(ctx context.Context, task *taskdomain.Task, user *authdomain.User) bool {
	conversation, err := c.conversations.FindConversationByID(task.ConversationID)
	if err != nil || conversation == nil {
		return false
	}

	if err := c.refresher.Refresh(ctx, conversation, user); err != nil {
		// Stale-but-safe: judge against whatever is already stored
		log.Printf("[CompletionCheck] source refresh failed for conversation %s: %v", conversation.ID, err)
	}

	// Pre-filter: if the user hasn't written anything since the task was
	// created, nothing can have been resolved. Skip the LLM spend.
	count, err := c.conversations.CountUserMessagesAfter(conversation.ID, task.CreatedAt)
	if err != nil || count == 0 {
		return false
	}

	messages, err := c.conversations.FindMessages(conversation.ID)
	if err != nil || len(messages) == 0 {
		return false
	}

	resolved, err := c.judge.JudgeResolved(ctx, BuildJudgePrompt(task, messages))
	if err != nil {
		log.Printf("[CompletionCheck] judge failed for task %s: %v", task.ID, err)
		return false
	}
	if !resolved {
		return false
	}

	task.Status = taskdomain.StatusDone
	task.UpdatedAt = c.now()
	if err := c.tasks.Update(task); err != nil {
		log.Printf("[CompletionCheck] could not persist completion of task %s: %v", task.ID, err)
		return false
	}

	log.Printf("[CompletionCheck] auto-closed task %s (resolved via source check)", task.ID)
	return true
}

// BuildJudgePrompt renders the task and the full conversation for the judge
func BuildJudgePrompt(task *taskdomain.Task, messages []*convdomain.Message) string {
	var lines []string
	lines = append(lines, "TASK: "+task.Title)
	lines = append(lines, "CATEGORY: "+string(task.Category))
	if task.Summary != "" {
		lines = append(lines, "SUMMARY: "+task.Summary)
	}
	if task.DueAt != nil {
		lines = append(lines, "DUE_AT: "+task.DueAt.Format(time.RFC3339))
	}
	lines = append(lines, "", "CONVERSATION:")

	for _, msg := range messages {
		direction := "SENDER"
		if msg.IsFromUser {
			direction = "USER"
		}
		sender := msg.SenderHandle
		if sender == "" {
			sender = msg.SenderName
		}
		if sender == "" {
			sender = "unknown"
		}
		body := strings.TrimSpace(msg.BodyText)
		if len(body) > bodyTruncate {
			body = body[:bodyTruncate] + "...[truncated]"
		}
		lines = append(lines, fmt.Sprintf("[%s] From: %s | Sent: %s",
			direction, sender, msg.SentAt.Format(time.RFC3339)))
		lines = append(lines, body, "")
	}

	return strings.Join(lines, "\n")
}
