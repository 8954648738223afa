package usecase

import (
	"context"

	authdomain "taskmind-backend/internal/auth/domain"
)

// TokenResponse is returned after a successful sign-in
type TokenResponse struct {
	AccessToken string           `json:"access_token"`
	User        *authdomain.User `json:"user"`
	NewUser     bool             `json:"new_user"`
}

// AuthUsecase defines the interface for authentication business logic
type AuthUsecase interface {
	// GoogleSignIn exchanges an OAuth authorization code, upserts the user
	// and issues an access token. NewUser is true on first sign-in so the
	// caller can kick off the initial backfill.
	GoogleSignIn(ctx context.Context, code string) (*TokenResponse, error)

	// ValidateToken verifies a JWT access token and returns its user
	ValidateToken(token string) (*authdomain.User, error)

	// RefreshTokenForUser decrypts the stored Google refresh token
	RefreshTokenForUser(user *authdomain.User) (string, error)

	// RegisterFCMToken stores a device push token for the user
	RegisterFCMToken(userID, token, deviceInfo string) error

	// UnregisterFCMToken removes a device push token
	UnregisterFCMToken(token string) error
}
