package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	sourcedomain "taskmind-backend/internal/source/domain"
)

// SourceSettingRepository defines the interface for source-setting data access
type SourceSettingRepository interface {
	// FindByUserAndSource returns the setting row, or nil when absent
	FindByUserAndSource(userID, source string) (*sourcedomain.SourceSetting, error)

	// FindByUser returns all settings for a user
	FindByUser(userID string) ([]*sourcedomain.SourceSetting, error)

	// EnabledSources returns the enabled source names for a user
	EnabledSources(userID string) ([]string, error)

	// FindEnabledBySource returns all enabled settings for one source across users
	FindEnabledBySource(source string) ([]*sourcedomain.SourceSetting, error)

	// Upsert creates or updates a setting keyed by (user_id, source)
	Upsert(setting *sourcedomain.SourceSetting) error
}

type gormSourceSettingRepository struct {
	db *gorm.DB
}

// NewGormSourceSettingRepository creates a new GORM-based SourceSettingRepository
func NewGormSourceSettingRepository(db *gorm.DB) SourceSettingRepository {
	return &gormSourceSettingRepository{db: db}
}

func (r *gormSourceSettingRepository) FindByUserAndSource(userID, source string) (*sourcedomain.SourceSetting, error) {
	var setting sourcedomain.SourceSetting
	err := r.db.Where("user_id = ? AND source = ?", userID, source).First(&setting).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

func (r *gormSourceSettingRepository) FindByUser(userID string) ([]*sourcedomain.SourceSetting, error) {
	var settings []*sourcedomain.SourceSetting
	err := r.db.Where("user_id = ?", userID).Order("source ASC").Find(&settings).Error
	return settings, err
}

func (r *gormSourceSettingRepository) EnabledSources(userID string) ([]string, error) {
	var sources []string
	err := r.db.Model(&sourcedomain.SourceSetting{}).
		Where("user_id = ? AND enabled = ?", userID, true).
		Pluck("source", &sources).Error
	return sources, err
}

func (r *gormSourceSettingRepository) FindEnabledBySource(source string) ([]*sourcedomain.SourceSetting, error) {
	var settings []*sourcedomain.SourceSetting
	err := r.db.Where("source = ? AND enabled = ?", source, true).Find(&settings).Error
	return settings, err
}

func (r *gormSourceSettingRepository) Upsert(setting *sourcedomain.SourceSetting) error {
	existing, err := r.FindByUserAndSource(setting.UserID, setting.Source)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if existing == nil {
		if setting.ID == "" {
			setting.ID = uuid.New().String()
		}
		setting.CreatedAt = now
		setting.UpdatedAt = now
		return r.db.Create(setting).Error
	}

	setting.ID = existing.ID
	setting.CreatedAt = existing.CreatedAt
	setting.UpdatedAt = now
	return r.db.Save(setting).Error
}
