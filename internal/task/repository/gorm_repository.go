package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmind-backend/internal/task/domain"
)

type gormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM-based TaskRepository
func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) Create(task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	return r.db.Create(task).Error
}

func (r *gormTaskRepository) FindByID(id string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.Where("id = ?", id).First(&task).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskRepository) FindByConversationID(conversationID string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.Where("conversation_id = ?", conversationID).Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) CountByConversationID(conversationID string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Task{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	return count, err
}

func (r *gormTaskRepository) Update(task *domain.Task) error {
	return r.db.Save(task).Error
}

// SaveBatch commits the whole reconciliation batch atomically
func (r *gormTaskRepository) SaveBatch(tasks []*domain.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, task := range tasks {
			if task.ID == "" {
				task.ID = uuid.New().String()
			}
			if err := tx.Save(task).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *gormTaskRepository) List(userID string, filter ListFilter) ([]*domain.Task, int64, bool, error) {
	query := r.db.Model(&domain.Task{}).Where("user_id = ?", userID)

	if filter.Status != "" && filter.Status != "all" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	} else if len(filter.EnabledSources) > 0 {
		query = query.Where("source IN ?", filter.EnabledSources)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, false, err
	}

	ordered := query.Order(
		"CASE priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, " +
			"CASE WHEN due_at IS NULL THEN 1 ELSE 0 END, due_at ASC, created_at ASC")

	// Fetch one extra row to detect whether more pages exist
	var tasks []*domain.Task
	err := ordered.Offset(filter.Offset).Limit(filter.Limit + 1).Find(&tasks).Error
	if err != nil {
		return nil, 0, false, err
	}

	hasMore := len(tasks) > filter.Limit
	if hasMore {
		tasks = tasks[:filter.Limit]
	}
	return tasks, total, hasMore, nil
}

func (r *gormTaskRepository) FindSnoozedDue(now time.Time) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.Where("status = ? AND snoozed_until IS NOT NULL AND snoozed_until <= ?",
		domain.StatusSnoozed, now).Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) FindPendingWithReminders() ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.Where("status = ? AND notify_at IS NOT NULL AND notify_at != '[]'",
		domain.StatusPending).Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) FindOverduePending(now time.Time) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.Where("status = ? AND due_at IS NOT NULL AND due_at < ?",
		domain.StatusPending, now).Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) FindOverduePendingAppointments(userID string, now time.Time) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.Where("user_id = ? AND status = ? AND category = ? AND due_at IS NOT NULL AND due_at < ?",
		userID, domain.StatusPending, domain.CategoryAppointment, now).Find(&tasks).Error
	return tasks, err
}
