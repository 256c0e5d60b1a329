package auth

import (
	"context"
	"time"

	"glasserp/internal/core/id"
)

// UserRepository defines user storage operations.
type UserRepository interface {
	Create(ctx context.Context, user *User) error

	// GetByID retrieves user by ID.
	GetByID(ctx context.Context, userID id.ID) (*User, error)

	// GetByEmail retrieves user by lowercased email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByPhone retrieves user by E.164 phone.
	GetByPhone(ctx context.Context, phone string) (*User, error)

	Update(ctx context.Context, user *User) error

	List(ctx context.Context, filter UserFilter) ([]User, int, error)

	// Exists checks if email or phone is already registered.
	Exists(ctx context.Context, email, phone string) (bool, error)
}

// OTPRepository stores one-time codes.
type OTPRepository interface {
	Save(ctx context.Context, otp *OTP) error

	// Latest returns the newest unused code for identifier and purpose.
	Latest(ctx context.Context, identifier string, purpose OTPPurpose) (*OTP, error)

	Update(ctx context.Context, otp *OTP) error

	// InvalidateOlder marks every unused code for identifier and purpose as used.
	InvalidateOlder(ctx context.Context, identifier string, purpose OTPPurpose, at time.Time) error
}

// ResetTokenRepository stores password reset tokens.
type ResetTokenRepository interface {
	Save(ctx context.Context, token *ResetToken) error
	GetByHash(ctx context.Context, tokenHash string) (*ResetToken, error)
	MarkUsed(ctx context.Context, tokenID id.ID, at time.Time) error

	// CleanupExpired removes expired codes and tokens.
	CleanupExpired(ctx context.Context, before time.Time) (int, error)
}

// UserFilter for listing users.
type UserFilter struct {
	Search   string
	Role     string
	IsActive *bool
	Limit    int
	Offset   int
}
