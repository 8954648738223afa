package repository

import (
	"time"

	"taskmind-backend/internal/task/domain"
)

// ListFilter narrows a task listing
type ListFilter struct {
	Status   string // a lifecycle status, or "all"
	Category string
	Priority string
	Source   string
	// EnabledSources restricts results to these sources when Source is
	// empty; an empty slice applies no restriction.
	EnabledSources []string
	Limit          int
	Offset         int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a new task
	Create(task *domain.Task) error

	// FindByID finds a task by its ID
	FindByID(id string) (*domain.Task, error)

	// FindByConversationID returns every task of a conversation
	FindByConversationID(conversationID string) ([]*domain.Task, error)

	// CountByConversationID counts the tasks of a conversation
	CountByConversationID(conversationID string) (int64, error)

	// Update saves changes to an existing task
	Update(task *domain.Task) error

	// SaveBatch inserts or updates all tasks in a single transaction
	SaveBatch(tasks []*domain.Task) error

	// List returns tasks for a user ordered by priority rank, then due date
	// (nulls last), then creation time. hasMore reports whether more rows
	// exist past limit.
	List(userID string, filter ListFilter) (tasks []*domain.Task, total int64, hasMore bool, err error)

	// FindSnoozedDue returns snoozed tasks whose snooze has expired
	FindSnoozedDue(now time.Time) ([]*domain.Task, error)

	// FindPendingWithReminders returns pending tasks with a non-empty notify_at
	FindPendingWithReminders() ([]*domain.Task, error)

	// FindOverduePending returns pending tasks whose due date has passed
	FindOverduePending(now time.Time) ([]*domain.Task, error)

	// FindOverduePendingAppointments returns a user's pending appointment
	// tasks whose due date has passed (for the missed auto-transition)
	FindOverduePendingAppointments(userID string, now time.Time) ([]*domain.Task, error)
}
