package notification

import (
	"context"
	"log"

	authdomain "taskmind-backend/internal/auth/domain"
	taskdomain "taskmind-backend/internal/task/domain"
)

// LogNotifier stands in for the FCM dispatcher when no Firebase credentials
// are configured. Reminders are logged and still recorded as sent so the
// sweep does not refire them forever.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyTaskReminder(_ context.Context, user *authdomain.User, task *taskdomain.Task, minutesUntilDue *int) error {
	if minutesUntilDue != nil {
		log.Printf("[Notification] (log only) user=%s task=%s %q due in %d min", user.ID, task.ID, task.Title, *minutesUntilDue)
	} else {
		log.Printf("[Notification] (log only) user=%s task=%s %q", user.ID, task.ID, task.Title)
	}
	return nil
}
