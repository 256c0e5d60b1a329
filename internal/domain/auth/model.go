// Package auth provides authentication: accounts, bearer tokens, one-time
// codes and password resets.
package auth

import (
	"context"
	"strings"
	"time"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/id"
	"glasserp/internal/core/security"
)

// User represents an account, staff or customer.
type User struct {
	entity.Base

	Email               string        `db:"email" json:"email"`
	Phone               *string       `db:"phone" json:"phone,omitempty"`
	PasswordHash        string        `db:"password_hash" json:"-"`
	Name                string        `db:"name" json:"name"`
	Role                security.Role `db:"role" json:"role"`
	IsActive            bool          `db:"is_active" json:"is_active"`
	EmailVerified       bool          `db:"email_verified" json:"email_verified"`
	PhoneVerified       bool          `db:"phone_verified" json:"phone_verified"`
	LastLoginAt         *time.Time    `db:"last_login_at" json:"last_login_at,omitempty"`
	FailedLoginAttempts int           `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time    `db:"locked_until" json:"-"`
}

// NewUser creates an active user.
func NewUser(email, name, passwordHash string, role security.Role) *User {
	return &User{
		Base:         entity.NewBase(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
	}
}

// Validate validates user data.
func (u *User) Validate(ctx context.Context) error {
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return apperror.NewFieldValidation("email", "a valid email is required")
	}
	if u.Name == "" {
		return apperror.NewFieldValidation("name", "name is required")
	}
	if !u.Role.IsValid() {
		return apperror.NewFieldValidation("role", "unknown role "+string(u.Role))
	}
	return nil
}

// IsLocked returns true if account is locked.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// CanLogin checks if user can login.
func (u *User) CanLogin(now time.Time) error {
	if !u.IsActive {
		return apperror.NewForbidden("account is disabled")
	}
	if u.IsLocked(now) {
		return apperror.NewForbidden("account is temporarily locked")
	}
	return nil
}

// RecordFailedLogin increments failed login counter.
func (u *User) RecordFailedLogin(now time.Time, maxAttempts int, lockDuration time.Duration) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		lockUntil := now.Add(lockDuration)
		u.LockedUntil = &lockUntil
	}
}

// RecordSuccessfulLogin resets failed login counter.
func (u *User) RecordSuccessfulLogin(now time.Time) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
}

// OTPMethod is how a code is delivered.
type OTPMethod string

const (
	OTPEmail    OTPMethod = "email"
	OTPSMS      OTPMethod = "sms"
	OTPWhatsApp OTPMethod = "whatsapp"
)

// OTPPurpose is what a verified code unlocks.
type OTPPurpose string

const (
	PurposeLogin         OTPPurpose = "login"
	PurposeVerify        OTPPurpose = "verify"
	PurposeResetPassword OTPPurpose = "reset_password"
)

// OTP is a stored one-time code. Only its bcrypt hash is kept.
type OTP struct {
	entity.Base

	Identifier string     `db:"identifier" json:"identifier"`
	Method     OTPMethod  `db:"method" json:"method"`
	Purpose    OTPPurpose `db:"purpose" json:"purpose"`
	CodeHash   string     `db:"code_hash" json:"-"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	Attempts   int        `db:"attempts" json:"attempts"`
	UsedAt     *time.Time `db:"used_at" json:"used_at,omitempty"`
}

// ResetToken is a single-use password reset token; only its SHA-256 is kept.
type ResetToken struct {
	ID        id.ID      `db:"id"`
	TokenHash string     `db:"token_hash"`
	UserID    id.ID      `db:"user_id"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// Valid reports whether the token can still be used.
func (t *ResetToken) Valid(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Credentials for login.
type Credentials struct {
	Email    string
	Password string
}

// RegisterRequest for self-service registration.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Phone    string
}
