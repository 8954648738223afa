package domain

import "time"

// User is an account connected through Google Sign-In. The Google refresh
// token is stored encrypted and never serialized.
type User struct {
	ID                    string     `json:"id" gorm:"primaryKey;size:36"`
	Email                 string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Name                  string     `json:"name,omitempty" gorm:"size:255"`
	GoogleID              string     `json:"-" gorm:"size:255;index"`
	EncryptedRefreshToken string     `json:"-"`
	GmailHistoryID        string     `json:"-" gorm:"size:50"` // legacy cursor; superseded by source settings
	GmailWatchExpiry      *time.Time `json:"-"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
