package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Priority represents task priority level, totally ordered low < medium < high
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps a priority to its order. Unknown priorities rank below low so
// reconciliation never downgrades a valid stored priority.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Status represents the current lifecycle state of a task
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusSnoozed Status = "snoozed"
	StatusIgnored Status = "ignored"
	StatusExpired Status = "expired"
	StatusMissed  Status = "missed"
)

// ValidStatus reports whether s is a known lifecycle state
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusDone, StatusSnoozed, StatusIgnored, StatusExpired, StatusMissed:
		return true
	}
	return false
}

// Category classifies what kind of action a task requires
type Category string

const (
	CategoryReply       Category = "reply"
	CategoryAppointment Category = "appointment"
	CategoryAction      Category = "action"
	CategoryInfo        Category = "info"
	CategoryIgnored     Category = "ignored"
)

// Task is an actionable item extracted from a conversation. TaskKey is the
// LLM-assigned slug, unique per conversation, and is the reconciliation key.
//
// NotifyAt and NotificationsSent are JSON columns that must always be
// reassigned with a fresh slice on update, never appended in place, so the
// persistence layer observes a new value.
type Task struct {
	ID                string                      `json:"id" gorm:"primaryKey;size:36"`
	UserID            string                      `json:"user_id" gorm:"size:36;index;not null"`
	ConversationID    string                      `json:"conversation_id" gorm:"size:36;index;not null;uniqueIndex:uq_tasks_conversation_task_key"`
	TaskKey           string                      `json:"task_key" gorm:"size:255;not null;uniqueIndex:uq_tasks_conversation_task_key"`
	Source            string                      `json:"source" gorm:"size:50;index"`
	Title             string                      `json:"title" gorm:"not null"`
	Category          Category                    `json:"category" gorm:"size:50;not null"`
	Priority          Priority                    `json:"priority" gorm:"size:20;not null"`
	Summary           string                      `json:"summary,omitempty"`
	DueAt             *time.Time                  `json:"due_at,omitempty"`
	Status            Status                      `json:"status" gorm:"size:20;not null;default:pending"`
	SnoozedUntil      *time.Time                  `json:"snoozed_until,omitempty"`
	IgnoreReason      string                      `json:"ignore_reason,omitempty"`
	NotifyAt          datatypes.JSONSlice[string] `json:"notify_at"`
	NotificationsSent datatypes.JSONSlice[string] `json:"notifications_sent"`
	LLMModel          string                      `json:"-" gorm:"size:100"`
	RawLLMOutput      datatypes.JSON              `json:"-"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}
