package usecase

import (
	"errors"

	"taskmind-backend/internal/source/domain"
	"taskmind-backend/internal/source/dto"
	"taskmind-backend/internal/source/repository"
)

// ErrUnknownSource means the source name is not in the capability table
var ErrUnknownSource = errors.New("unknown source")

// SourceUsecase manages per-user source settings
type SourceUsecase interface {
	// ListSources returns every known source with the user's current setting
	ListSources(userID string) ([]dto.SourceStatus, error)

	// SetSourceEnabled flips a source on or off. encryptedConfig, when
	// non-empty, replaces the stored credential blob (IMAP).
	SetSourceEnabled(userID, source string, enabled bool, encryptedConfig string) (*domain.SourceSetting, error)
}

type sourceUsecase struct {
	settings     repository.SourceSettingRepository
	capabilities domain.Capabilities
}

// NewSourceUsecase creates a new instance of sourceUsecase
func NewSourceUsecase(settings repository.SourceSettingRepository, capabilities domain.Capabilities) SourceUsecase {
	return &sourceUsecase{settings: settings, capabilities: capabilities}
}

func (u *sourceUsecase) ListSources(userID string) ([]dto.SourceStatus, error) {
	stored, err := u.settings.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	bySource := make(map[string]*domain.SourceSetting, len(stored))
	for _, setting := range stored {
		bySource[setting.Source] = setting
	}

	// Stable order: gmail, calendar, imap
	order := []string{domain.SourceGmail, domain.SourceCalendar, domain.SourceIMAP}

	var result []dto.SourceStatus
	for _, source := range order {
		capability := u.capabilities[source]
		status := dto.SourceStatus{
			Source:        source,
			SupportsWatch: capability.SupportsWatch,
			// Gmail is implicitly enabled by signing in; others opt in
			Enabled: source == domain.SourceGmail,
		}
		if setting, ok := bySource[source]; ok {
			status.Enabled = setting.Enabled
			status.WatchExpiry = setting.WatchExpiry
		}
		result = append(result, status)
	}
	return result, nil
}

func (u *sourceUsecase) SetSourceEnabled(userID, source string, enabled bool, encryptedConfig string) (*domain.SourceSetting, error) {
	if _, ok := u.capabilities[source]; !ok {
		return nil, ErrUnknownSource
	}

	setting, err := u.settings.FindByUserAndSource(userID, source)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		setting = &domain.SourceSetting{
			UserID: userID,
			Source: source,
		}
	}

	setting.Enabled = enabled
	if encryptedConfig != "" {
		setting.ConfigEncrypted = encryptedConfig
	}
	if !enabled {
		// A disabled source keeps its cursor so re-enabling resumes, but
		// the watch registration is dead state
		setting.WatchExpiry = nil
		setting.WatchResourceID = ""
	}

	if err := u.settings.Upsert(setting); err != nil {
		return nil, err
	}
	return setting, nil
}
