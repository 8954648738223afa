package notification

import (
	"context"
	"fmt"
	"log"

	authdomain "taskmind-backend/internal/auth/domain"
	taskdomain "taskmind-backend/internal/task/domain"
	"taskmind-backend/pkg/fcm"
)

// TokenStore resolves and prunes device tokens
type TokenStore interface {
	GetTokensByUserID(userID string) ([]authdomain.FCMToken, error)
	DeleteToken(token string) error
}

// PushClient sends one multicast push and reports which tokens failed
type PushClient interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// Dispatcher turns task reminders into FCM pushes.
type Dispatcher struct {
	tokens TokenStore
	push   PushClient
}

func NewDispatcher(tokens TokenStore, push PushClient) *Dispatcher {
	return &Dispatcher{tokens: tokens, push: push}
}

// NotifyTaskReminder sends a reminder push for one task to every device the
// user has registered. A user without device tokens is a successful no-op.
// Tokens FCM rejects are deleted so they are not retried next sweep.
func (d *Dispatcher) NotifyTaskReminder(ctx context.Context, user *authdomain.User, task *taskdomain.Task, minutesUntilDue *int) error {
	registered, err := d.tokens.GetTokensByUserID(user.ID)
	if err != nil {
		return fmt.Errorf("failed to load device tokens: %w", err)
	}
	if len(registered) == 0 {
		return nil
	}

	tokens := make([]string, len(registered))
	for i, t := range registered {
		tokens[i] = t.Token
	}

	title := "Task reminder"
	if task.Priority == taskdomain.PriorityHigh {
		title = "Urgent: Task reminder"
	}

	failed, err := d.push.SendToDevices(ctx, tokens, fcm.NotificationData{
		Title: title,
		Body:  reminderBody(task.Title, minutesUntilDue),
		Data: map[string]string{
			"task_id":  task.ID,
			"task_key": task.TaskKey,
			"category": string(task.Category),
			"priority": string(task.Priority),
		},
	})
	if err != nil {
		return err
	}

	for _, token := range failed {
		if err := d.tokens.DeleteToken(token); err != nil {
			log.Printf("[Notification] could not prune stale token: %v", err)
		}
	}
	return nil
}

// reminderBody buckets the remaining time into minutes, hours or days
func reminderBody(title string, minutesUntilDue *int) string {
	if minutesUntilDue == nil {
		return title
	}
	mins := *minutesUntilDue
	switch {
	case mins <= 60:
		return fmt.Sprintf("%s (due in %d min)", title, mins)
	case mins <= 1440:
		return fmt.Sprintf("%s (due in %dh)", title, mins/60)
	default:
		return fmt.Sprintf("%s (due in %dd)", title, mins/1440)
	}
}
