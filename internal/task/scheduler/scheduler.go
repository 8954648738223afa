package scheduler

import (
	"context"
	"log"
	"time"

	"gorm.io/datatypes"

	authdomain "taskmind-backend/internal/auth/domain"
	"taskmind-backend/internal/task/domain"
)

// TaskStore is the slice of the task repository the sweep needs
type TaskStore interface {
	FindSnoozedDue(now time.Time) ([]*domain.Task, error)
	FindPendingWithReminders() ([]*domain.Task, error)
	FindOverduePending(now time.Time) ([]*domain.Task, error)
	Update(task *domain.Task) error
}

// UserStore resolves task owners for notification dispatch
type UserStore interface {
	FindByID(id string) (*authdomain.User, error)
}

// CompletionChecker re-verifies a task against its source before a reminder
// fires; true means the task was auto-completed.
type CompletionChecker interface {
	CheckAndSyncCompletion(ctx context.Context, task *domain.Task, user *authdomain.User) bool
}

// ReminderNotifier dispatches one task reminder. minutesUntilDue is nil for
// tasks without a due date.
type ReminderNotifier interface {
	NotifyTaskReminder(ctx context.Context, user *authdomain.User, task *domain.Task, minutesUntilDue *int) error
}

// Sweeper runs the periodic deadline sweep over the task store.
type Sweeper struct {
	tasks    TaskStore
	users    UserStore
	checker  CompletionChecker
	notifier ReminderNotifier
	interval time.Duration
	stopChan chan struct{}
	now      func() time.Time
}

func NewSweeper(tasks TaskStore, users UserStore, checker CompletionChecker, notifier ReminderNotifier, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Sweeper{
		tasks:    tasks,
		users:    users,
		checker:  checker,
		notifier: notifier,
		interval: interval,
		stopChan: make(chan struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the sweep loop
func (s *Sweeper) Start() {
	log.Printf("[DeadlineSweep] starting (interval: %s)", s.interval)

	go func() {
		// Run immediately on start
		s.ProcessTaskDeadlines(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.ProcessTaskDeadlines(context.Background())
			case <-s.stopChan:
				log.Println("[DeadlineSweep] stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweep loop
func (s *Sweeper) Stop() {
	close(s.stopChan)
}

// ProcessTaskDeadlines runs the three ordered passes:
//
//	Pass 1 - re-surface snoozed tasks whose snooze has expired
//	Pass 2 - fire notify_at instants that have passed but not been sent
//	Pass 3 - expire overdue pending tasks
//
// Pass order is a correctness requirement: Pass 1 before Pass 3 ensures a
// just-resurfaced-but-overdue task is expired in the same run. Every task
// mutation commits independently so one failure never aborts the sweep.
func (s *Sweeper) ProcessTaskDeadlines(ctx context.Context) {
	now := s.now()

	s.unsnoozeExpired(now)
	s.fireReminders(ctx, now)
	s.expireOverdue(now)
}

func (s *Sweeper) unsnoozeExpired(now time.Time) {
	snoozed, err := s.tasks.FindSnoozedDue(now)
	if err != nil {
		log.Printf("[DeadlineSweep] pass 1: could not list snoozed tasks: %v", err)
		return
	}

	for _, task := range snoozed {
		task.Status = domain.StatusPending
		task.SnoozedUntil = nil
		task.UpdatedAt = now
		if err := s.tasks.Update(task); err != nil {
			log.Printf("[DeadlineSweep] pass 1: could not un-snooze task %s: %v", task.ID, err)
		}
	}
}

func (s *Sweeper) fireReminders(ctx context.Context, now time.Time) {
	pending, err := s.tasks.FindPendingWithReminders()
	if err != nil {
		log.Printf("[DeadlineSweep] pass 2: could not list pending tasks: %v", err)
		return
	}

	for _, task := range pending {
		sent := make(map[string]bool, len(task.NotificationsSent))
		for _, instant := range task.NotificationsSent {
			sent[instant] = true
		}

		var newly []string
		for _, instantStr := range task.NotifyAt {
			if sent[instantStr] {
				continue
			}
			instant, err := time.Parse(time.RFC3339, instantStr)
			if err != nil {
				log.Printf("[DeadlineSweep] pass 2: bad notify_at %q on task %s", instantStr, task.ID)
				continue
			}
			if instant.After(now) {
				continue
			}

			user, err := s.users.FindByID(task.UserID)
			if err != nil || user == nil {
				continue
			}

			// Before notifying, refresh the source and check whether the
			// task already resolved itself
			if s.checker.CheckAndSyncCompletion(ctx, task, user) {
				log.Printf("[DeadlineSweep] task %s auto-completed via source check, skipping reminders", task.ID)
				break
			}

			var minutesUntilDue *int
			if task.DueAt != nil {
				mins := int(task.DueAt.Sub(now).Minutes())
				if mins < 0 {
					mins = 0
				}
				minutesUntilDue = &mins
			}

			if err := s.notifier.NotifyTaskReminder(ctx, user, task, minutesUntilDue); err != nil {
				log.Printf("[DeadlineSweep] pass 2: failed to notify task %s: %v", task.ID, err)
				continue
			}
			newly = append(newly, instantStr)
		}

		if len(newly) > 0 {
			// Reassign rather than mutate the JSON slice in place, the
			// persistence layer must observe a new value
			merged := make([]string, 0, len(task.NotificationsSent)+len(newly))
			merged = append(merged, task.NotificationsSent...)
			merged = append(merged, newly...)
			task.NotificationsSent = datatypes.NewJSONSlice(merged)
			task.UpdatedAt = now
			if err := s.tasks.Update(task); err != nil {
				log.Printf("[DeadlineSweep] pass 2: could not record sent reminders for task %s: %v", task.ID, err)
			}
		}
	}
}

func (s *Sweeper) expireOverdue(now time.Time) {
	overdue, err := s.tasks.FindOverduePending(now)
	if err != nil {
		log.Printf("[DeadlineSweep] pass 3: could not list overdue tasks: %v", err)
		return
	}

	for _, task := range overdue {
		task.Status = domain.StatusExpired
		task.UpdatedAt = now
		if err := s.tasks.Update(task); err != nil {
			log.Printf("[DeadlineSweep] pass 3: could not expire task %s: %v", task.ID, err)
		}
	}
}
