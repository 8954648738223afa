package dto

import "time"

// SourceStatus is one source's configuration as shown to the user
type SourceStatus struct {
	Source        string     `json:"source"`
	Enabled       bool       `json:"enabled"`
	SupportsWatch bool       `json:"supports_watch"`
	WatchExpiry   *time.Time `json:"watch_expiry,omitempty"`
}

// IMAPCredentials is the connection config supplied when enabling IMAP
type IMAPCredentials struct {
	Host     string `json:"host" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateSourceRequest enables or disables one source. IMAP additionally
// carries credentials on enable.
type UpdateSourceRequest struct {
	Enabled bool             `json:"enabled"`
	IMAP    *IMAPCredentials `json:"imap,omitempty"`
}
