package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	authdomain "taskmind-backend/internal/auth/domain"
	"taskmind-backend/internal/auth/repository"
	"taskmind-backend/pkg/config"
)

type authUsecase struct {
	userRepo repository.UserRepository
	fcmRepo  repository.FCMTokenRepository
	cipher   *TokenCipher
	oauth    *oauth2.Config
	config   *config.Config
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(userRepo repository.UserRepository, fcmRepo repository.FCMTokenRepository, cipher *TokenCipher, cfg *config.Config) AuthUsecase {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/gmail.readonly",
			"https://www.googleapis.com/auth/calendar.readonly",
		},
	}
	return &authUsecase{
		userRepo: userRepo,
		fcmRepo:  fcmRepo,
		cipher:   cipher,
		oauth:    oauthConfig,
		config:   cfg,
	}
}

// googleTokenInfo is the response from Google's tokeninfo endpoint
type googleTokenInfo struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified string `json:"email_verified"` // Google returns this as string "true" or "false"
	Sub           string `json:"sub"`
}

func (u *authUsecase) GoogleSignIn(ctx context.Context, code string) (*TokenResponse, error) {
	token, err := u.oauth.Exchange(ctx, code, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, errors.New("google response contained no id_token")
	}

	info, err := verifyIDToken(idToken)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.FindByGoogleID(info.Sub)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = u.userRepo.FindByEmail(info.Email)
		if err != nil {
			return nil, err
		}
	}

	newUser := user == nil
	if newUser {
		user = &authdomain.User{
			Email:    info.Email,
			Name:     info.Name,
			GoogleID: info.Sub,
		}
		if err := u.userRepo.Create(user); err != nil {
			return nil, err
		}
	} else {
		user.Name = info.Name
		user.GoogleID = info.Sub
	}

	// Google only returns a refresh token on first consent; keep the old one otherwise
	if token.RefreshToken != "" {
		encrypted, err := u.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		user.EncryptedRefreshToken = encrypted
	}

	if err := u.userRepo.Update(user); err != nil {
		return nil, err
	}

	accessToken, err := u.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{AccessToken: accessToken, User: user, NewUser: newUser}, nil
}

func verifyIDToken(idToken string) (*googleTokenInfo, error) {
	url := "https://oauth2.googleapis.com/tokeninfo?id_token=" + idToken

	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to verify Google token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to verify Google token: status %d, body: %s", resp.StatusCode, string(body))
	}

	var info googleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode Google token info: %w", err)
	}
	if info.EmailVerified != "true" {
		return nil, errors.New("google email is not verified")
	}
	return &info, nil
}

func (u *authUsecase) generateAccessToken(user *authdomain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"exp":   time.Now().Add(u.config.JWTAccessExpiry).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(u.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return nil, errors.New("token missing subject")
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (u *authUsecase) RefreshTokenForUser(user *authdomain.User) (string, error) {
	if user.EncryptedRefreshToken == "" {
		return "", errors.New("user has no stored refresh token")
	}
	return u.cipher.Decrypt(user.EncryptedRefreshToken)
}

func (u *authUsecase) RegisterFCMToken(userID, token, deviceInfo string) error {
	return u.fcmRepo.SaveToken(userID, token, deviceInfo)
}

func (u *authUsecase) UnregisterFCMToken(token string) error {
	return u.fcmRepo.DeleteToken(token)
}
