package domain

import "time"

// Source identifiers
const (
	SourceGmail    = "gmail"
	SourceCalendar = "google_calendar"
	SourceIMAP     = "imap"
)

// Capability describes what operations a source supports. Constructed once
// at startup and passed explicitly to whichever component needs it.
type Capability struct {
	SupportsWatch   bool // push notifications via watch registration
	SupportsHistory bool // incremental change listing from a cursor
}

// Capabilities is the immutable source-capability table.
type Capabilities map[string]Capability

// DefaultCapabilities returns the capability table for the built-in sources.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		SourceGmail:    {SupportsWatch: true, SupportsHistory: true},
		SourceCalendar: {SupportsWatch: true, SupportsHistory: false},
		SourceIMAP:     {SupportsWatch: false, SupportsHistory: false},
	}
}

// SourceSetting is per-user, per-source sync state: enabled flag, the sync
// cursor, and the push watch registration.
type SourceSetting struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	UserID          string     `json:"user_id" gorm:"size:36;index;not null;uniqueIndex:uq_user_source_settings_user_source"`
	Source          string     `json:"source" gorm:"size:50;not null;uniqueIndex:uq_user_source_settings_user_source"`
	Enabled         bool       `json:"enabled" gorm:"not null;default:true"`
	SyncCursor      string     `json:"-"` // JSON blob, e.g. {"history_id":"12345"}
	ConfigEncrypted string     `json:"-"` // encrypted JSON for sources that need credentials (IMAP)
	WatchExpiry     *time.Time `json:"watch_expiry,omitempty"`
	WatchResourceID string     `json:"-" gorm:"size:255"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
