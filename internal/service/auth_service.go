package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"contentgate/api/internal/config"
	"contentgate/api/internal/ids"
	"contentgate/api/internal/models"
	"contentgate/api/internal/repository"
	"contentgate/api/internal/security"
)

type AuthService struct {
	accounts repository.AccountStore
	sessions repository.SessionStore
	cfg      config.SecurityConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	accounts repository.AccountStore,
	sessions repository.SessionStore,
	cfg config.SecurityConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type DeviceInfo struct {
	DeviceID   string
	DeviceName string
	IPAddress  string
	UserAgent  string
}

type AuthResult struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	Account          models.Account
	DeviceID         string
}

type LoginInput struct {
	Email    string
	Password string
	Device   DeviceInfo
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	account, err := s.accounts.FindByEmail(ctx, normaliseEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			security.BurnPasswordCheck(input.Password)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, account.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}
	if !account.EmailVerified {
		return AuthResult{}, ErrNotVerified
	}
	if account.Banned {
		return AuthResult{}, ErrAccountBanned
	}

	return s.IssueSession(ctx, account, input.Device)
}

// IssueSession creates or replaces the session for the account's device and returns fresh tokens.
func (s *AuthService) IssueSession(ctx context.Context, account models.Account, device DeviceInfo) (AuthResult, error) {
	if device.DeviceID == "" {
		device.DeviceID = ids.New()
	}
	if device.DeviceName == "" {
		device.DeviceName = "Unknown Device"
	}

	refreshToken, refreshHash, err := security.GenerateOpaqueToken(64)
	if err != nil {
		return AuthResult{}, err
	}

	now := s.now()
	session := models.Session{
		ID:               ids.New(),
		AccountID:        account.ID,
		DeviceID:         device.DeviceID,
		DeviceName:       device.DeviceName,
		RefreshTokenHash: refreshHash,
		IPAddress:        device.IPAddress,
		UserAgent:        device.UserAgent,
		ExpiresAt:        now.Add(s.cfg.JWTRefreshTTL),
	}

	accessToken, err := s.accessToken(account, session)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	if err := s.enforceSessionLimit(ctx, account.ID); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("enforce session limit failed")
	}

	return AuthResult{
		AccessToken:      accessToken,
		AccessExpiresAt:  now.Add(s.cfg.JWTAccessTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: session.ExpiresAt,
		Account:          account,
		DeviceID:         device.DeviceID,
	}, nil
}

func (s *AuthService) accessToken(account models.Account, session models.Session) (string, error) {
	return security.GenerateAccessToken(s.cfg.JWTAccessSecret, security.AccessTokenInput{
		AccountID: account.ID,
		SessionID: session.ID,
		DeviceID:  session.DeviceID,
		Role:      string(account.Role),
		TTL:       s.cfg.JWTAccessTTL,
	})
}

func (s *AuthService) enforceSessionLimit(ctx context.Context, accountID string) error {
	if s.cfg.MaxSessions <= 0 {
		return nil
	}
	count, err := s.sessions.CountByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if count <= s.cfg.MaxSessions {
		return nil
	}

	return s.sessions.DeleteOldestSessions(ctx, accountID, s.cfg.MaxSessions)
}

type RefreshInput struct {
	AccountID    string
	RefreshToken string
	DeviceID     string
}

// Refresh rotates the refresh token. The presented token stops working immediately.
func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (AuthResult, error) {
	account, err := s.accounts.GetByID(ctx, input.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, ErrInvalidSession
		}
		return AuthResult{}, err
	}
	if account.Banned {
		return AuthResult{}, ErrAccountBanned
	}

	session, err := s.sessions.FindByRefreshHash(ctx, input.AccountID, security.HashToken(input.RefreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, ErrInvalidSession
		}
		return AuthResult{}, err
	}
	if session.DeviceID != input.DeviceID {
		return AuthResult{}, ErrInvalidSession
	}

	now := s.now()
	if session.ExpiresAt.Before(now) {
		_ = s.sessions.DeleteByDevice(ctx, session.AccountID, session.DeviceID)
		return AuthResult{}, ErrInvalidSession
	}

	refreshToken, newHash, err := security.GenerateOpaqueToken(64)
	if err != nil {
		return AuthResult{}, err
	}
	session.RefreshTokenHash = newHash
	session.ExpiresAt = now.Add(s.cfg.JWTRefreshTTL)

	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	accessToken, err := s.accessToken(account, session)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:      accessToken,
		AccessExpiresAt:  now.Add(s.cfg.JWTAccessTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: session.ExpiresAt,
		Account:          account,
		DeviceID:         session.DeviceID,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, principal *models.Principal, deviceID string) error {
	if principal == nil {
		return ErrInvalidSession
	}
	if err := s.sessions.DeleteByDevice(ctx, principal.AccountID, deviceID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Authenticate turns a bearer token into a principal. The session must still exist and the
// account must not be banned.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Principal, *security.AccessClaims, error) {
	claims, err := security.ParseAccessToken(token, s.cfg.JWTAccessSecret)
	if err != nil {
		return nil, nil, ErrInvalidSession
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidSession
		}
		return nil, nil, err
	}
	if session.AccountID != claims.AccountID || session.DeviceID != claims.DeviceID {
		return nil, nil, ErrInvalidSession
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidSession
		}
		return nil, nil, err
	}
	if account.Banned {
		return nil, nil, ErrAccountBanned
	}

	return &models.Principal{AccountID: account.ID, Role: account.Role}, claims, nil
}

func (s *AuthService) Me(ctx context.Context, principal *models.Principal) (models.Account, error) {
	if principal == nil {
		return models.Account{}, ErrInvalidSession
	}
	account, err := s.accounts.GetByID(ctx, principal.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, err
	}
	return account, nil
}
