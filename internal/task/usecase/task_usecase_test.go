package usecase

import (
	"errors"
	"testing"
	"time"

	sourcedomain "taskmind-backend/internal/source/domain"
	"taskmind-backend/internal/task/domain"
	"taskmind-backend/internal/task/dto"
	"taskmind-backend/internal/task/repository"
)

var listNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeTaskRepo struct {
	tasks      map[string]*domain.Task
	overdue    []*domain.Task
	lastFilter repository.ListFilter
	updates    []*domain.Task
}

func newFakeTaskRepo(tasks ...*domain.Task) *fakeTaskRepo {
	byID := make(map[string]*domain.Task)
	for _, task := range tasks {
		byID[task.ID] = task
	}
	return &fakeTaskRepo{tasks: byID}
}

func (f *fakeTaskRepo) Create(task *domain.Task) error { f.tasks[task.ID] = task; return nil }

func (f *fakeTaskRepo) FindByID(id string) (*domain.Task, error) { return f.tasks[id], nil }

func (f *fakeTaskRepo) FindByConversationID(conversationID string) ([]*domain.Task, error) {
	return nil, nil
}

func (f *fakeTaskRepo) CountByConversationID(conversationID string) (int64, error) { return 0, nil }

func (f *fakeTaskRepo) Update(task *domain.Task) error {
	f.updates = append(f.updates, task)
	return nil
}

func (f *fakeTaskRepo) SaveBatch(tasks []*domain.Task) error { return nil }

func (f *fakeTaskRepo) List(userID string, filter repository.ListFilter) ([]*domain.Task, int64, bool, error) {
	f.lastFilter = filter
	var result []*domain.Task
	for _, task := range f.tasks {
		if task.UserID == userID {
			result = append(result, task)
		}
	}
	return result, int64(len(result)), false, nil
}

func (f *fakeTaskRepo) FindSnoozedDue(now time.Time) ([]*domain.Task, error) { return nil, nil }

func (f *fakeTaskRepo) FindPendingWithReminders() ([]*domain.Task, error) { return nil, nil }

func (f *fakeTaskRepo) FindOverduePending(now time.Time) ([]*domain.Task, error) { return nil, nil }

func (f *fakeTaskRepo) FindOverduePendingAppointments(userID string, now time.Time) ([]*domain.Task, error) {
	return f.overdue, nil
}

type fakeSourceRepo struct {
	enabled []string
}

func (f *fakeSourceRepo) FindByUserAndSource(userID, source string) (*sourcedomain.SourceSetting, error) {
	return nil, nil
}

func (f *fakeSourceRepo) FindByUser(userID string) ([]*sourcedomain.SourceSetting, error) {
	return nil, nil
}

func (f *fakeSourceRepo) EnabledSources(userID string) ([]string, error) { return f.enabled, nil }

func (f *fakeSourceRepo) FindEnabledBySource(source string) ([]*sourcedomain.SourceSetting, error) {
	return nil, nil
}

func (f *fakeSourceRepo) Upsert(setting *sourcedomain.SourceSetting) error { return nil }

func newTestUsecase(taskRepo *fakeTaskRepo, sourceRepo *fakeSourceRepo) TaskUsecase {
	if sourceRepo == nil {
		sourceRepo = &fakeSourceRepo{}
	}
	uc := NewTaskUsecase(taskRepo, sourceRepo).(*taskUsecase)
	uc.now = func() time.Time { return listNow }
	return uc
}

func TestListTransitionsOverdueAppointmentsToMissed(t *testing.T) {
	due := listNow.Add(-time.Hour)
	appointment := &domain.Task{
		ID: "t1", UserID: "u1",
		Category: domain.CategoryAppointment,
		Status:   domain.StatusPending,
		DueAt:    &due,
	}
	repo := newFakeTaskRepo(appointment)
	repo.overdue = []*domain.Task{appointment}

	uc := newTestUsecase(repo, nil)
	if _, err := uc.ListTasks("u1", dto.ListTasksQuery{}); err != nil {
		t.Fatalf("ListTasks: %v", err)
	}

	if appointment.Status != domain.StatusMissed {
		t.Errorf("expected missed, got %s", appointment.Status)
	}
	if len(repo.updates) != 1 {
		t.Errorf("missed transition not persisted")
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	uc := newTestUsecase(newFakeTaskRepo(), nil)

	if _, err := uc.ListTasks("u1", dto.ListTasksQuery{Status: "sleeping"}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestListAppliesEnabledSourceFilterWhenNoExplicitSource(t *testing.T) {
	repo := newFakeTaskRepo()
	sourceRepo := &fakeSourceRepo{enabled: []string{"gmail"}}

	uc := newTestUsecase(repo, sourceRepo)
	if _, err := uc.ListTasks("u1", dto.ListTasksQuery{}); err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(repo.lastFilter.EnabledSources) != 1 || repo.lastFilter.EnabledSources[0] != "gmail" {
		t.Errorf("enabled-sources filter not applied: %v", repo.lastFilter.EnabledSources)
	}

	// Explicit source bypasses the enabled filter
	if _, err := uc.ListTasks("u1", dto.ListTasksQuery{Source: "imap"}); err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if repo.lastFilter.EnabledSources != nil {
		t.Errorf("explicit source must bypass enabled filter")
	}
}

func TestGetTaskEnforcesOwnership(t *testing.T) {
	repo := newFakeTaskRepo(&domain.Task{ID: "t1", UserID: "someone-else"})
	uc := newTestUsecase(repo, nil)

	if _, err := uc.GetTaskByID("u1", "t1"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("foreign task must read as not found, got %v", err)
	}
}

func TestUpdateStatusSnoozeRequiresTime(t *testing.T) {
	repo := newFakeTaskRepo(&domain.Task{ID: "t1", UserID: "u1", Status: domain.StatusPending})
	uc := newTestUsecase(repo, nil)

	_, err := uc.UpdateTaskStatus("u1", "t1", dto.UpdateStatusRequest{Status: "snoozed"})
	if !errors.Is(err, ErrSnoozeRequiresTime) {
		t.Errorf("expected ErrSnoozeRequiresTime, got %v", err)
	}
}

func TestUpdateStatusSetsAndClearsSnoozedUntil(t *testing.T) {
	task := &domain.Task{ID: "t1", UserID: "u1", Status: domain.StatusPending}
	repo := newFakeTaskRepo(task)
	uc := newTestUsecase(repo, nil)

	until := listNow.Add(24 * time.Hour)
	updated, err := uc.UpdateTaskStatus("u1", "t1", dto.UpdateStatusRequest{Status: "snoozed", SnoozedUntil: &until})
	if err != nil {
		t.Fatalf("snooze: %v", err)
	}
	if updated.SnoozedUntil == nil || !updated.SnoozedUntil.Equal(until) {
		t.Errorf("snoozed_until not set: %v", updated.SnoozedUntil)
	}

	updated, err = uc.UpdateTaskStatus("u1", "t1", dto.UpdateStatusRequest{Status: "done"})
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	if updated.SnoozedUntil != nil {
		t.Error("leaving snoozed must clear snoozed_until")
	}
	if updated.Status != domain.StatusDone {
		t.Errorf("expected done, got %s", updated.Status)
	}
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	repo := newFakeTaskRepo(&domain.Task{ID: "t1", UserID: "u1"})
	uc := newTestUsecase(repo, nil)

	if _, err := uc.UpdateTaskStatus("u1", "t1", dto.UpdateStatusRequest{Status: "archived"}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}
