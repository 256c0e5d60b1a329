package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/id"
	"glasserp/internal/core/security"
	"glasserp/internal/core/tx"
	"glasserp/internal/domain/notification"
	"glasserp/pkg/logger"
	"glasserp/pkg/phone"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	MaxLoginAttempts  int
	LockDuration      time.Duration
	PasswordMinLength int
	OTPTTL            time.Duration
	OTPMaxAttempts    int
	ResetTokenTTL     time.Duration
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxLoginAttempts:  5,
		LockDuration:      15 * time.Minute,
		PasswordMinLength: 8,
		OTPTTL:            10 * time.Minute,
		OTPMaxAttempts:    5,
		ResetTokenTTL:     30 * time.Minute,
	}
}

// OTPSender delivers codes over an explicit channel.
type OTPSender interface {
	SendVia(ctx context.Context, to notification.Recipient, msg notification.Message, channels ...notification.Channel) notification.Result
}

// Service provides authentication logic.
type Service struct {
	users      UserRepository
	otps       OTPRepository
	resets     ResetTokenRepository
	txManager  tx.Manager
	jwtService *JWTService
	sender     OTPSender
	config     ServiceConfig
	now        func() time.Time
}

// NewService creates a new auth service.
func NewService(
	users UserRepository,
	otps OTPRepository,
	resets ResetTokenRepository,
	txManager tx.Manager,
	jwtService *JWTService,
	sender OTPSender,
	config ServiceConfig,
) *Service {
	return &Service{
		users:      users,
		otps:       otps,
		resets:     resets,
		txManager:  txManager,
		jwtService: jwtService,
		sender:     sender,
		config:     config,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a customer account and signs the caller in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	user, err := s.createUser(ctx, req, security.RoleCustomer)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "user registered", "user_id", user.ID, "email", user.Email)
	return s.issue(user)
}

// CreateUser creates an account with any role. Admins only.
func (s *Service) CreateUser(ctx context.Context, req RegisterRequest, role security.Role) (*User, error) {
	if err := security.Require(ctx, security.ModuleUsers); err != nil {
		return nil, err
	}
	if role == security.RoleSuperAdmin && appctx.GetRole(ctx) != string(security.RoleSuperAdmin) {
		return nil, apperror.NewForbidden("only a super admin can create a super admin")
	}
	user, err := s.createUser(ctx, req, role)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "user created", "user_id", user.ID, "role", role, "created_by", appctx.GetUserID(ctx))
	return user, nil
}

func (s *Service) createUser(ctx context.Context, req RegisterRequest, role security.Role) (*User, error) {
	if len(req.Password) < s.config.PasswordMinLength {
		return nil, apperror.NewFieldValidation("password",
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength))
	}

	var normalized string
	if strings.TrimSpace(req.Phone) != "" {
		p, err := phone.Normalize(req.Phone)
		if err != nil {
			return nil, apperror.NewFieldValidation("phone", "invalid phone number")
		}
		normalized = p
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := NewUser(req.Email, req.Name, string(passwordHash), role)
	if normalized != "" {
		user.Phone = &normalized
	}
	if err := user.Validate(ctx); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.users.Exists(ctx, user.Email, normalized)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}
		if exists {
			return apperror.NewConflict("email or phone already registered").WithDetail("email", user.Email)
		}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates by email and password.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Session, error) {
	now := s.now()
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(creds.Email)))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := user.CanLogin(now); err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		user.RecordFailedLogin(now, s.config.MaxLoginAttempts, s.config.LockDuration)
		if uerr := s.users.Update(ctx, user); uerr != nil {
			logger.Warn(ctx, "failed to record login attempt", "user_id", user.ID, "error", uerr)
		}
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	user.RecordSuccessfulLogin(now)
	if err := s.users.Update(ctx, user); err != nil {
		logger.Warn(ctx, "failed to record login", "user_id", user.ID, "error", err)
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return s.issue(user)
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context) (*User, error) {
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	uid, err := id.Parse(userID)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid token subject")
	}
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.NewForbidden("account is disabled")
	}
	return user, nil
}

// ListUsers lists accounts. Admins only.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]User, int, error) {
	if err := security.Require(ctx, security.ModuleUsers); err != nil {
		return nil, 0, err
	}
	return s.users.List(ctx, filter)
}

// ValidateToken resolves a bearer token to the caller.
func (s *Service) ValidateToken(token string) (*appctx.UserContext, error) {
	return s.jwtService.ValidateToken(token)
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if len(newPassword) < s.config.PasswordMinLength {
		return apperror.NewFieldValidation("new_password",
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength))
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		token, err := s.resets.GetByHash(ctx, hashToken(rawToken))
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewFieldValidation("token", "invalid or expired reset token")
			}
			return fmt.Errorf("get reset token: %w", err)
		}
		if !token.Valid(now) {
			return apperror.NewFieldValidation("token", "invalid or expired reset token")
		}
		user, err := s.users.GetByID(ctx, token.UserID)
		if err != nil {
			return err
		}
		user.PasswordHash = string(passwordHash)
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
		user.Touch()
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if err := s.resets.MarkUsed(ctx, token.ID, now); err != nil {
			return fmt.Errorf("consume reset token: %w", err)
		}
		logger.Info(ctx, "password reset", "user_id", user.ID)
		return nil
	})
}

// Cleanup removes expired codes and reset tokens.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	return s.resets.CleanupExpired(ctx, s.now())
}

func (s *Service) issue(user *User) (*Session, error) {
	token, expiresAt, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &Session{Token: token, TokenType: "Bearer", ExpiresAt: expiresAt, User: user}, nil
}

func (s *Service) newResetToken(ctx context.Context, userID id.ID) (string, error) {
	raw, err := generateRandomToken(32)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	now := s.now()
	token := &ResetToken{
		ID:        id.New(),
		TokenHash: hashToken(raw),
		UserID:    userID,
		ExpiresAt: now.Add(s.config.ResetTokenTTL),
		CreatedAt: now,
	}
	if err := s.resets.Save(ctx, token); err != nil {
		return "", fmt.Errorf("save reset token: %w", err)
	}
	return raw, nil
}

// hashToken creates SHA256 hash of token.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// generateRandomToken generates a random token string.
func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
