package usecase

import (
	"log"
	"time"

	sourcerepo "taskmind-backend/internal/source/repository"
	"taskmind-backend/internal/task/domain"
	"taskmind-backend/internal/task/dto"
	"taskmind-backend/internal/task/repository"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

type taskUsecase struct {
	taskRepo   repository.TaskRepository
	sourceRepo sourcerepo.SourceSettingRepository
	now        func() time.Time
}

// NewTaskUsecase creates a new instance of taskUsecase
func NewTaskUsecase(taskRepo repository.TaskRepository, sourceRepo sourcerepo.SourceSettingRepository) TaskUsecase {
	return &taskUsecase{
		taskRepo:   taskRepo,
		sourceRepo: sourceRepo,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (u *taskUsecase) ListTasks(userID string, query dto.ListTasksQuery) (*dto.TaskListResponse, error) {
	if query.Status != "" && query.Status != "all" && !domain.ValidStatus(domain.Status(query.Status)) {
		return nil, ErrInvalidStatus
	}

	// An appointment whose time has passed cannot be "done later", it was
	// either attended or missed. Transition before reading so the listing
	// never shows a stale pending appointment.
	u.markMissedAppointments(userID)

	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	filter := repository.ListFilter{
		Status:   query.Status,
		Category: query.Category,
		Priority: query.Priority,
		Source:   query.Source,
		Limit:    limit,
		Offset:   offset,
	}

	// Without an explicit source filter, hide tasks from sources the user
	// has since disabled
	if filter.Source == "" {
		enabled, err := u.sourceRepo.EnabledSources(userID)
		if err != nil {
			return nil, err
		}
		filter.EnabledSources = enabled
	}

	tasks, total, hasMore, err := u.taskRepo.List(userID, filter)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	return &dto.TaskListResponse{
		Tasks:   tasks,
		Total:   total,
		HasMore: hasMore,
	}, nil
}

func (u *taskUsecase) GetTaskByID(userID, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil || task.UserID != userID {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (u *taskUsecase) UpdateTaskStatus(userID, taskID string, req dto.UpdateStatusRequest) (*domain.Task, error) {
	task, err := u.GetTaskByID(userID, taskID)
	if err != nil {
		return nil, err
	}

	status := domain.Status(req.Status)
	if !domain.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	if status == domain.StatusSnoozed {
		if req.SnoozedUntil == nil {
			return nil, ErrSnoozeRequiresTime
		}
		until := req.SnoozedUntil.UTC()
		task.SnoozedUntil = &until
	} else {
		task.SnoozedUntil = nil
	}

	task.Status = status
	task.UpdatedAt = u.now()
	if err := u.taskRepo.Update(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (u *taskUsecase) markMissedAppointments(userID string) {
	overdue, err := u.taskRepo.FindOverduePendingAppointments(userID, u.now())
	if err != nil {
		log.Printf("[Tasks] could not check overdue appointments for user %s: %v", userID, err)
		return
	}

	for _, task := range overdue {
		task.Status = domain.StatusMissed
		task.UpdatedAt = u.now()
		if err := u.taskRepo.Update(task); err != nil {
			log.Printf("[Tasks] could not mark task %s missed: %v", task.ID, err)
		}
	}
}
