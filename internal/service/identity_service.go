package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"contentgate/api/internal/apperr"
	"contentgate/api/internal/ids"
	"contentgate/api/internal/metrics"
	"contentgate/api/internal/models"
	"contentgate/api/internal/repository"
	"contentgate/api/internal/security"
	"contentgate/api/internal/vault"
)

// Limiter counts hits per key inside a window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// IdentityService owns account verification: signup, OTP checks, auto-login and bans.
type IdentityService struct {
	accounts repository.AccountStore
	sessions repository.SessionStore
	vault    *vault.Vault
	auth     *AuthService
	attempts Limiter
	resends  Limiter
	notifier Notifier
	validate *validator.Validate
	log      zerolog.Logger
}

type IdentityDeps struct {
	Accounts repository.AccountStore
	Sessions repository.SessionStore
	Vault    *vault.Vault
	Auth     *AuthService
	// Attempts limits wrong OTP submissions per pending code.
	Attempts Limiter
	// Resends limits how often a new code may be requested.
	Resends  Limiter
	Notifier Notifier
	Logger   zerolog.Logger
}

func NewIdentityService(deps IdentityDeps) *IdentityService {
	return &IdentityService{
		accounts: deps.Accounts,
		sessions: deps.Sessions,
		vault:    deps.Vault,
		auth:     deps.Auth,
		attempts: deps.Attempts,
		resends:  deps.Resends,
		notifier: deps.Notifier,
		validate: validator.New(),
		log:      deps.Logger,
	}
}

type SignupInput struct {
	Email       string `validate:"required,email,max=255"`
	Password    string `validate:"required,min=8,max=128"`
	DisplayName string `validate:"required,max=64"`
}

func (s *IdentityService) Signup(ctx context.Context, input SignupInput) (models.Account, error) {
	input.Email = normaliseEmail(input.Email)
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if err := s.validate.Struct(input); err != nil {
		return models.Account{}, signupValidationError(err)
	}

	if _, err := s.accounts.FindByEmail(ctx, input.Email); err == nil {
		return models.Account{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return models.Account{}, err
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.Account{}, err
	}

	account := models.Account{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: hash,
		DisplayName:  input.DisplayName,
		Role:         models.AccountRoleUser,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return models.Account{}, ErrEmailTaken
		}
		return models.Account{}, err
	}

	// The account exists from here on. A failed OTP issue is recovered through ResendOTP,
	// so it must not turn the signup into an error the client would retry into email_taken.
	if err := s.sendOTP(ctx, account); err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("issue signup otp failed")
	}

	s.log.Info().Str("account_id", account.ID).Msg("account created")
	return s.accounts.GetByID(ctx, account.ID)
}

func signupValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return validation("invalid_input", "invalid signup request")
	}
	switch field := verrs[0]; field.Field() {
	case "Email":
		return validation("invalid_email", "a valid email address is required")
	case "Password":
		if field.Tag() == "min" {
			return validation("weak_password", "password must be at least 8 characters")
		}
		return validation("invalid_password", "password is required")
	default:
		return validation("invalid_display_name", "display name is required")
	}
}

// sendOTP issues a fresh code and queues the e-mail. Delivery problems are logged only.
func (s *IdentityService) sendOTP(ctx context.Context, account models.Account) error {
	code, expiresAt, err := s.vault.IssueOTP(ctx, account.ID)
	if err != nil {
		return err
	}
	if s.attempts != nil {
		if err := s.attempts.Reset(ctx, account.ID); err != nil {
			s.log.Warn().Err(err).Str("account_id", account.ID).Msg("reset otp attempts failed")
		}
	}
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.SendOTP(ctx, account, code, expiresAt); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("enqueue otp email failed")
	}
	return nil
}

type VerificationResult struct {
	Token     string
	ExpiresAt time.Time
}

func (s *IdentityService) VerifyOTP(ctx context.Context, email, code string) (VerificationResult, error) {
	account, err := s.findUnverified(ctx, email)
	if err != nil {
		return VerificationResult{}, err
	}

	if s.attempts != nil {
		allowed, err := s.attempts.Allow(ctx, account.ID)
		if err != nil {
			return VerificationResult{}, err
		}
		if !allowed {
			if err := s.vault.Invalidate(ctx, account.ID, models.CredentialOTP); err != nil {
				return VerificationResult{}, err
			}
			metrics.OTPVerifications.WithLabelValues("attempts_exceeded").Inc()
			return VerificationResult{}, ErrOTPAttemptsExceeded
		}
	}

	if err := s.vault.ConsumeOTP(ctx, account.ID, strings.TrimSpace(code)); err != nil {
		return VerificationResult{}, s.otpError(err)
	}

	if err := s.accounts.MarkVerified(ctx, account.ID); err != nil {
		return VerificationResult{}, err
	}
	metrics.OTPVerifications.WithLabelValues("verified").Inc()
	if s.attempts != nil {
		_ = s.attempts.Reset(ctx, account.ID)
	}

	token, expiresAt, err := s.vault.IssueVerificationToken(ctx, account.ID)
	if err != nil {
		return VerificationResult{}, err
	}

	s.log.Info().Str("account_id", account.ID).Msg("email verified")
	return VerificationResult{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *IdentityService) otpError(err error) error {
	switch {
	case errors.Is(err, vault.ErrMismatch):
		metrics.OTPVerifications.WithLabelValues("mismatch").Inc()
		return ErrOTPInvalid
	case errors.Is(err, vault.ErrExpired):
		metrics.OTPVerifications.WithLabelValues("expired").Inc()
		return ErrOTPExpired
	case errors.Is(err, vault.ErrNotFound):
		metrics.OTPVerifications.WithLabelValues("not_found").Inc()
		return ErrOTPNotFound
	default:
		return err
	}
}

func (s *IdentityService) ResendOTP(ctx context.Context, email string) error {
	account, err := s.findUnverified(ctx, email)
	if err != nil {
		return err
	}

	if s.resends != nil {
		allowed, err := s.resends.Allow(ctx, account.ID)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrOTPResendLimited
		}
	}

	return s.sendOTP(ctx, account)
}

func (s *IdentityService) findUnverified(ctx context.Context, email string) (models.Account, error) {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		return models.Account{}, err
	}
	if account.EmailVerified {
		return models.Account{}, ErrAlreadyVerified
	}
	return account, nil
}

func (s *IdentityService) findByEmail(ctx context.Context, email string) (models.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, normaliseEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, err
	}
	return account, nil
}

type AutoLoginInput struct {
	Email  string
	Token  string
	Device DeviceInfo
}

// AutoLogin exchanges the single-use verification token for a session.
func (s *IdentityService) AutoLogin(ctx context.Context, input AutoLoginInput) (AuthResult, error) {
	account, err := s.findByEmail(ctx, input.Email)
	if err != nil {
		return AuthResult{}, err
	}
	if !account.EmailVerified {
		return AuthResult{}, ErrNotVerified
	}
	if account.Banned {
		return AuthResult{}, ErrAccountBanned
	}

	if err := s.vault.ConsumeVerificationToken(ctx, account.ID, input.Token); err != nil {
		switch {
		case errors.Is(err, vault.ErrMismatch):
			return AuthResult{}, ErrTokenInvalid
		case errors.Is(err, vault.ErrExpired):
			return AuthResult{}, ErrTokenExpired
		case errors.Is(err, vault.ErrNotFound):
			return AuthResult{}, ErrTokenNotFound
		default:
			return AuthResult{}, err
		}
	}

	return s.auth.IssueSession(ctx, account, input.Device)
}

func (s *IdentityService) SetBanned(ctx context.Context, principal *models.Principal, accountID string, banned bool) (models.Account, error) {
	if !principal.IsAdmin() {
		return models.Account{}, ErrForbidden
	}
	if principal.AccountID == accountID {
		return models.Account{}, apperr.New(apperr.KindValidation, "self_ban", "administrators cannot ban themselves")
	}

	account, err := s.accounts.SetBanned(ctx, accountID, banned)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, err
	}

	if banned {
		if err := s.sessions.DeleteByAccount(ctx, accountID); err != nil {
			s.log.Warn().Err(err).Str("account_id", accountID).Msg("revoke sessions after ban failed")
		}
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("admin_id", principal.AccountID).
		Bool("banned", banned).
		Msg("account ban state changed")
	return account, nil
}
