package models

import "time"

type AccountRole string

const (
	AccountRoleUser  AccountRole = "USER"
	AccountRoleAdmin AccountRole = "ADMIN"
)

type Account struct {
	ID            string
	Email         string
	PasswordHash  []byte
	DisplayName   string
	Role          AccountRole
	Banned        bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Session struct {
	ID               string
	AccountID        string
	DeviceID         string
	DeviceName       string
	RefreshTokenHash []byte
	IPAddress        string
	UserAgent        string
	CreatedAt        time.Time
	LastSeenAt       time.Time
	ExpiresAt        time.Time
}

// Principal is the authenticated caller of an operation. A nil *Principal means anonymous.
type Principal struct {
	AccountID string
	Role      AccountRole
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == AccountRoleAdmin
}

type CredentialKind string

const (
	CredentialOTP               CredentialKind = "otp"
	CredentialVerificationToken CredentialKind = "verification_token"
)

// Credential is an ephemeral secret owned by an account. Only the hash is ever stored.
type Credential struct {
	AccountID string
	Kind      CredentialKind
	Hash      []byte
	ExpiresAt time.Time
}

func (c Credential) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
