package usecase

import (
	"errors"

	"taskmind-backend/internal/task/domain"
	"taskmind-backend/internal/task/dto"
)

var (
	// ErrTaskNotFound covers both a missing task and one owned by another user
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidStatus means the requested lifecycle state is unknown
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrSnoozeRequiresTime means status "snoozed" came without snoozed_until
	ErrSnoozeRequiresTime = errors.New("snoozed status requires snoozed_until")
)

// TaskUsecase defines the task business logic interface
type TaskUsecase interface {
	// ListTasks returns a filtered, ordered page of the user's tasks.
	// Past-due pending appointment tasks are transitioned to "missed"
	// before listing.
	ListTasks(userID string, query dto.ListTasksQuery) (*dto.TaskListResponse, error)

	// GetTaskByID returns one task; ErrTaskNotFound for other users' tasks
	GetTaskByID(userID, taskID string) (*domain.Task, error)

	// UpdateTaskStatus applies a user-driven status change
	UpdateTaskStatus(userID, taskID string, req dto.UpdateStatusRequest) (*domain.Task, error)
}
