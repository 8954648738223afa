package usecase

import (
	"errors"
	"testing"
	"time"

	"taskmind-backend/internal/source/domain"
)

type fakeSettingRepo struct {
	settings map[string]*domain.SourceSetting // keyed by source
	upserts  []*domain.SourceSetting
}

func newFakeSettingRepo() *fakeSettingRepo {
	return &fakeSettingRepo{settings: make(map[string]*domain.SourceSetting)}
}

func (f *fakeSettingRepo) FindByUserAndSource(userID, source string) (*domain.SourceSetting, error) {
	return f.settings[source], nil
}

func (f *fakeSettingRepo) FindByUser(userID string) ([]*domain.SourceSetting, error) {
	var result []*domain.SourceSetting
	for _, setting := range f.settings {
		result = append(result, setting)
	}
	return result, nil
}

func (f *fakeSettingRepo) EnabledSources(userID string) ([]string, error) { return nil, nil }

func (f *fakeSettingRepo) FindEnabledBySource(source string) ([]*domain.SourceSetting, error) {
	return nil, nil
}

func (f *fakeSettingRepo) Upsert(setting *domain.SourceSetting) error {
	f.settings[setting.Source] = setting
	f.upserts = append(f.upserts, setting)
	return nil
}

func TestListSourcesDefaults(t *testing.T) {
	uc := NewSourceUsecase(newFakeSettingRepo(), domain.DefaultCapabilities())

	sources, err := uc.ListSources("u1")
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(sources))
	}

	byName := make(map[string]bool)
	for _, s := range sources {
		byName[s.Source] = s.Enabled
	}
	if !byName[domain.SourceGmail] {
		t.Error("gmail should default to enabled")
	}
	if byName[domain.SourceCalendar] || byName[domain.SourceIMAP] {
		t.Error("calendar and imap should default to disabled")
	}
}

func TestListSourcesReflectsStoredSettings(t *testing.T) {
	repo := newFakeSettingRepo()
	repo.settings[domain.SourceGmail] = &domain.SourceSetting{
		UserID: "u1", Source: domain.SourceGmail, Enabled: false,
	}
	uc := NewSourceUsecase(repo, domain.DefaultCapabilities())

	sources, err := uc.ListSources("u1")
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	for _, s := range sources {
		if s.Source == domain.SourceGmail && s.Enabled {
			t.Error("stored disabled setting must override the default")
		}
	}
}

func TestSetSourceEnabledRejectsUnknown(t *testing.T) {
	uc := NewSourceUsecase(newFakeSettingRepo(), domain.DefaultCapabilities())

	if _, err := uc.SetSourceEnabled("u1", "carrier-pigeon", true, ""); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}

func TestDisableClearsWatchState(t *testing.T) {
	repo := newFakeSettingRepo()
	expiry := time.Now().UTC()
	repo.settings[domain.SourceCalendar] = &domain.SourceSetting{
		UserID:          "u1",
		Source:          domain.SourceCalendar,
		Enabled:         true,
		WatchExpiry:     &expiry,
		WatchResourceID: "resource-1",
		SyncCursor:      `{"channel_id":"c1"}`,
	}
	uc := NewSourceUsecase(repo, domain.DefaultCapabilities())

	setting, err := uc.SetSourceEnabled("u1", domain.SourceCalendar, false, "")
	if err != nil {
		t.Fatalf("SetSourceEnabled: %v", err)
	}
	if setting.WatchExpiry != nil || setting.WatchResourceID != "" {
		t.Error("disabling must clear watch registration state")
	}
	if setting.SyncCursor == "" {
		t.Error("cursor should survive disable so re-enable resumes")
	}
}

func TestEnableIMAPStoresConfig(t *testing.T) {
	repo := newFakeSettingRepo()
	uc := NewSourceUsecase(repo, domain.DefaultCapabilities())

	setting, err := uc.SetSourceEnabled("u1", domain.SourceIMAP, true, "sealed-credentials")
	if err != nil {
		t.Fatalf("SetSourceEnabled: %v", err)
	}
	if !setting.Enabled || setting.ConfigEncrypted != "sealed-credentials" {
		t.Errorf("config not stored: %+v", setting)
	}
	if len(repo.upserts) != 1 {
		t.Errorf("setting not persisted")
	}
}
