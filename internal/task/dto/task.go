package dto

import (
	"time"

	"taskmind-backend/internal/task/domain"
)

// ListTasksQuery filters and paginates a task listing
type ListTasksQuery struct {
	Status   string `form:"status"`
	Category string `form:"category"`
	Priority string `form:"priority"`
	Source   string `form:"source"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// TaskListResponse is one page of tasks
type TaskListResponse struct {
	Tasks   []*domain.Task `json:"tasks"`
	Total   int64          `json:"total"`
	HasMore bool           `json:"has_more"`
}

// UpdateStatusRequest changes a task's lifecycle state. SnoozedUntil is
// required when status is "snoozed" and rejected otherwise.
type UpdateStatusRequest struct {
	Status       string     `json:"status" binding:"required"`
	SnoozedUntil *time.Time `json:"snoozed_until"`
}
