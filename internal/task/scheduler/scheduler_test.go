package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	authdomain "taskmind-backend/internal/auth/domain"
	"taskmind-backend/internal/task/domain"
)

var sweepNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeTaskStore struct {
	snoozedDue []*domain.Task
	pending    []*domain.Task
	overdue    []*domain.Task
	updates    []*domain.Task
}

func (f *fakeTaskStore) FindSnoozedDue(now time.Time) ([]*domain.Task, error) {
	return f.snoozedDue, nil
}

func (f *fakeTaskStore) FindPendingWithReminders() ([]*domain.Task, error) {
	return f.pending, nil
}

func (f *fakeTaskStore) FindOverduePending(now time.Time) ([]*domain.Task, error) {
	// Mirror the real query: pass 1 may have just un-snoozed a task with a
	// past due date
	var result []*domain.Task
	for _, task := range append(f.overdue, f.snoozedDue...) {
		if task.Status == domain.StatusPending && task.DueAt != nil && task.DueAt.Before(now) {
			result = append(result, task)
		}
	}
	return result, nil
}

func (f *fakeTaskStore) Update(task *domain.Task) error {
	f.updates = append(f.updates, task)
	return nil
}

type fakeUserStore struct{}

func (f *fakeUserStore) FindByID(id string) (*authdomain.User, error) {
	return &authdomain.User{ID: id, Email: "u@example.com"}, nil
}

type fakeChecker struct {
	resolved map[string]bool
	calls    int
}

func (f *fakeChecker) CheckAndSyncCompletion(ctx context.Context, task *domain.Task, user *authdomain.User) bool {
	f.calls++
	if f.resolved[task.ID] {
		task.Status = domain.StatusDone
		return true
	}
	return false
}

type fakeNotifier struct {
	sent    []string // task IDs
	minutes []*int
	err     error
}

func (f *fakeNotifier) NotifyTaskReminder(ctx context.Context, user *authdomain.User, task *domain.Task, minutesUntilDue *int) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, task.ID)
	f.minutes = append(f.minutes, minutesUntilDue)
	return nil
}

func newTestSweeper(store *fakeTaskStore, checker *fakeChecker, notifier *fakeNotifier) *Sweeper {
	if checker == nil {
		checker = &fakeChecker{}
	}
	if notifier == nil {
		notifier = &fakeNotifier{}
	}
	s := NewSweeper(store, &fakeUserStore{}, checker, notifier, time.Hour)
	s.now = func() time.Time { return sweepNow }
	return s
}

func TestSnoozedDueIsResurfaced(t *testing.T) {
	until := sweepNow.Add(-time.Hour)
	task := &domain.Task{ID: "t1", UserID: "u1", Status: domain.StatusSnoozed, SnoozedUntil: &until}
	store := &fakeTaskStore{snoozedDue: []*domain.Task{task}}

	newTestSweeper(store, nil, nil).ProcessTaskDeadlines(context.Background())

	if task.Status != domain.StatusPending && task.Status != domain.StatusExpired {
		t.Fatalf("snoozed task not resurfaced: %s", task.Status)
	}
	if task.SnoozedUntil != nil {
		t.Error("snoozed_until must be cleared")
	}
}

func TestPassOrderExpiresResurfacedOverdueTaskInSameSweep(t *testing.T) {
	until := sweepNow.Add(-time.Hour)
	due := sweepNow.Add(-2 * time.Hour)
	task := &domain.Task{ID: "t1", UserID: "u1", Status: domain.StatusSnoozed, SnoozedUntil: &until, DueAt: &due}
	store := &fakeTaskStore{snoozedDue: []*domain.Task{task}}

	newTestSweeper(store, nil, nil).ProcessTaskDeadlines(context.Background())

	if task.Status != domain.StatusExpired {
		t.Errorf("un-snoozed overdue task must expire in the same sweep, got %s", task.Status)
	}
}

func TestReminderFiresOnceAndIsRecorded(t *testing.T) {
	due := sweepNow.Add(30 * time.Minute)
	task := &domain.Task{
		ID: "t1", UserID: "u1", Status: domain.StatusPending, DueAt: &due,
		Priority:          domain.PriorityMedium,
		NotifyAt:          datatypes.NewJSONSlice([]string{sweepNow.Add(-5 * time.Minute).Format(time.RFC3339)}),
		NotificationsSent: datatypes.NewJSONSlice([]string{}),
	}
	store := &fakeTaskStore{pending: []*domain.Task{task}}
	notifier := &fakeNotifier{}

	sweeper := newTestSweeper(store, nil, notifier)
	sweeper.ProcessTaskDeadlines(context.Background())

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(notifier.sent))
	}
	if notifier.minutes[0] == nil || *notifier.minutes[0] != 30 {
		t.Errorf("expected 30 minutes until due, got %v", notifier.minutes[0])
	}
	if len(task.NotificationsSent) != 1 {
		t.Fatalf("fired instant must be recorded: %v", task.NotificationsSent)
	}

	// Second sweep must not refire
	sweeper.ProcessTaskDeadlines(context.Background())
	if len(notifier.sent) != 1 {
		t.Errorf("reminder refired: %d sends", len(notifier.sent))
	}
}

func TestFutureInstantDoesNotFire(t *testing.T) {
	task := &domain.Task{
		ID: "t1", UserID: "u1", Status: domain.StatusPending,
		NotifyAt:          datatypes.NewJSONSlice([]string{sweepNow.Add(time.Hour).Format(time.RFC3339)}),
		NotificationsSent: datatypes.NewJSONSlice([]string{}),
	}
	store := &fakeTaskStore{pending: []*domain.Task{task}}
	notifier := &fakeNotifier{}

	newTestSweeper(store, nil, notifier).ProcessTaskDeadlines(context.Background())

	if len(notifier.sent) != 0 {
		t.Errorf("future instant fired early")
	}
}

func TestCompletionShortCircuitsRemainingInstants(t *testing.T) {
	task := &domain.Task{
		ID: "t1", UserID: "u1", Status: domain.StatusPending,
		NotifyAt: datatypes.NewJSONSlice([]string{
			sweepNow.Add(-2 * time.Hour).Format(time.RFC3339),
			sweepNow.Add(-1 * time.Hour).Format(time.RFC3339),
		}),
		NotificationsSent: datatypes.NewJSONSlice([]string{}),
	}
	store := &fakeTaskStore{pending: []*domain.Task{task}}
	checker := &fakeChecker{resolved: map[string]bool{"t1": true}}
	notifier := &fakeNotifier{}

	newTestSweeper(store, checker, notifier).ProcessTaskDeadlines(context.Background())

	if len(notifier.sent) != 0 {
		t.Error("auto-completed task must not be notified")
	}
	if checker.calls != 1 {
		t.Errorf("completion check should run once then break, ran %d times", checker.calls)
	}
	if task.Status != domain.StatusDone {
		t.Errorf("expected done, got %s", task.Status)
	}
}

func TestDispatchFailureDoesNotRecordInstant(t *testing.T) {
	instant := sweepNow.Add(-5 * time.Minute).Format(time.RFC3339)
	task := &domain.Task{
		ID: "t1", UserID: "u1", Status: domain.StatusPending,
		NotifyAt:          datatypes.NewJSONSlice([]string{instant}),
		NotificationsSent: datatypes.NewJSONSlice([]string{}),
	}
	other := &domain.Task{
		ID: "t2", UserID: "u1", Status: domain.StatusPending,
		NotifyAt:          datatypes.NewJSONSlice([]string{instant}),
		NotificationsSent: datatypes.NewJSONSlice([]string{}),
	}
	store := &fakeTaskStore{pending: []*domain.Task{task, other}}
	notifier := &fakeNotifier{err: errors.New("fcm down")}

	newTestSweeper(store, nil, notifier).ProcessTaskDeadlines(context.Background())

	if len(task.NotificationsSent) != 0 || len(other.NotificationsSent) != 0 {
		t.Error("failed dispatch must not be recorded as sent")
	}
}

func TestOverdueMinutesClampToZero(t *testing.T) {
	due := sweepNow.Add(-90 * time.Minute)
	task := &domain.Task{
		ID: "t1", UserID: "u1", Status: domain.StatusPending, DueAt: &due,
		NotifyAt:          datatypes.NewJSONSlice([]string{sweepNow.Add(-time.Hour).Format(time.RFC3339)}),
		NotificationsSent: datatypes.NewJSONSlice([]string{}),
	}
	store := &fakeTaskStore{pending: []*domain.Task{task}}
	notifier := &fakeNotifier{}

	newTestSweeper(store, nil, notifier).ProcessTaskDeadlines(context.Background())

	if len(notifier.minutes) != 1 || notifier.minutes[0] == nil || *notifier.minutes[0] != 0 {
		t.Errorf("overdue reminder should report 0 minutes, got %v", notifier.minutes)
	}
}

func TestOverduePendingExpires(t *testing.T) {
	due := sweepNow.Add(-time.Hour)
	task := &domain.Task{ID: "t1", UserID: "u1", Status: domain.StatusPending, DueAt: &due}
	store := &fakeTaskStore{overdue: []*domain.Task{task}}

	newTestSweeper(store, nil, nil).ProcessTaskDeadlines(context.Background())

	if task.Status != domain.StatusExpired {
		t.Errorf("expected expired, got %s", task.Status)
	}
}
