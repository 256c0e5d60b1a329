package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/entity"
	"glasserp/internal/domain/notification"
	"glasserp/pkg/logger"
	"glasserp/pkg/phone"
)

const otpDigits = 6

// SendOTPRequest asks for a code to be delivered.
type SendOTPRequest struct {
	Method     OTPMethod
	Identifier string
	Purpose    OTPPurpose
}

// VerifyOTPRequest presents a delivered code.
type VerifyOTPRequest struct {
	Method     OTPMethod
	Identifier string
	Purpose    OTPPurpose
	Code       string
}

// VerifyResult is what a verified code unlocks: a session for login, a
// reset token for reset_password, the updated user for verify.
type VerifyResult struct {
	Session    *Session `json:"session,omitempty"`
	ResetToken string   `json:"reset_token,omitempty"`
	User       *User    `json:"user,omitempty"`
}

func parseMethod(m OTPMethod) (notification.Channel, error) {
	switch m {
	case OTPEmail:
		return notification.ChannelEmail, nil
	case OTPSMS:
		return notification.ChannelSMS, nil
	case OTPWhatsApp:
		return notification.ChannelWhatsApp, nil
	}
	return "", apperror.NewFieldValidation("method", "method must be email, sms or whatsapp")
}

func validPurpose(p OTPPurpose) bool {
	return p == PurposeLogin || p == PurposeVerify || p == PurposeResetPassword
}

// normalizeIdentifier lowercases emails and converts phones to E.164.
func normalizeIdentifier(method OTPMethod, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperror.NewFieldValidation("identifier", "identifier is required")
	}
	if method == OTPEmail {
		if !strings.Contains(raw, "@") {
			return "", apperror.NewFieldValidation("identifier", "a valid email is required")
		}
		return strings.ToLower(raw), nil
	}
	p, err := phone.Normalize(raw)
	if err != nil {
		return "", apperror.NewFieldValidation("identifier", "invalid phone number")
	}
	return p, nil
}

func (s *Service) lookup(ctx context.Context, method OTPMethod, identifier string) (*User, error) {
	if method == OTPEmail {
		return s.users.GetByEmail(ctx, identifier)
	}
	return s.users.GetByPhone(ctx, identifier)
}

// SendOTP generates and delivers a code. Unknown accounts get a silent success
// so the endpoint cannot be used to enumerate users.
func (s *Service) SendOTP(ctx context.Context, req SendOTPRequest) error {
	channel, err := parseMethod(req.Method)
	if err != nil {
		return err
	}
	if !validPurpose(req.Purpose) {
		return apperror.NewFieldValidation("purpose", "purpose must be login, verify or reset_password")
	}
	identifier, err := normalizeIdentifier(req.Method, req.Identifier)
	if err != nil {
		return err
	}

	user, err := s.lookup(ctx, req.Method, identifier)
	if err != nil {
		if apperror.IsNotFound(err) {
			logger.Debug(ctx, "otp requested for unknown identifier", "method", req.Method)
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	code, err := generateCode(otpDigits)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}

	now := s.now()
	otp := &OTP{
		Base:       entity.NewBase(),
		Identifier: identifier,
		Method:     req.Method,
		Purpose:    req.Purpose,
		CodeHash:   string(codeHash),
		ExpiresAt:  now.Add(s.config.OTPTTL),
	}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.otps.InvalidateOlder(ctx, identifier, req.Purpose, now); err != nil {
			return fmt.Errorf("invalidate otps: %w", err)
		}
		return s.otps.Save(ctx, otp)
	})
	if err != nil {
		return err
	}

	to := notification.Recipient{Name: user.Name}
	if req.Method == OTPEmail {
		to.Email = identifier
	} else {
		to.Phone = identifier
	}
	msg := notification.Message{
		Subject: "Your verification code",
		Body: fmt.Sprintf("Your verification code is %s. It expires in %d minutes. Do not share it with anyone.",
			code, int(s.config.OTPTTL.Minutes())),
	}
	res := s.sender.SendVia(ctx, to, msg, channel)
	if !res.AnySuccess {
		return apperror.NewExternal(string(channel), res.Err())
	}
	logger.Info(ctx, "otp sent", "user_id", user.ID, "method", req.Method, "purpose", req.Purpose)
	return nil
}

// VerifyOTP checks a code and consumes it on success.
func (s *Service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*VerifyResult, error) {
	if _, err := parseMethod(req.Method); err != nil {
		return nil, err
	}
	if !validPurpose(req.Purpose) {
		return nil, apperror.NewFieldValidation("purpose", "purpose must be login, verify or reset_password")
	}
	identifier, err := normalizeIdentifier(req.Method, req.Identifier)
	if err != nil {
		return nil, err
	}

	invalid := apperror.NewFieldValidation("code", "invalid or expired code")
	now := s.now()

	otp, err := s.otps.Latest(ctx, identifier, req.Purpose)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, invalid
		}
		return nil, fmt.Errorf("get otp: %w", err)
	}
	if otp.UsedAt != nil || !now.Before(otp.ExpiresAt) {
		return nil, invalid
	}
	if otp.Attempts >= s.config.OTPMaxAttempts {
		return nil, apperror.NewForbidden("too many attempts, request a new code")
	}

	if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(strings.TrimSpace(req.Code))) != nil {
		otp.Attempts++
		otp.Touch()
		if err := s.otps.Update(ctx, otp); err != nil {
			return nil, fmt.Errorf("record otp attempt: %w", err)
		}
		return nil, invalid
	}

	// The versioned update makes a concurrent second use fail.
	var result *VerifyResult
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		otp.UsedAt = &now
		otp.Touch()
		if err := s.otps.Update(ctx, otp); err != nil {
			if apperror.IsConcurrentModification(err) {
				return invalid
			}
			return fmt.Errorf("consume otp: %w", err)
		}

		user, err := s.lookup(ctx, req.Method, identifier)
		if err != nil {
			return err
		}
		result, err = s.complete(ctx, user, req.Method, req.Purpose)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) complete(ctx context.Context, user *User, method OTPMethod, purpose OTPPurpose) (*VerifyResult, error) {
	switch purpose {
	case PurposeLogin:
		if err := user.CanLogin(s.now()); err != nil {
			return nil, err
		}
		user.RecordSuccessfulLogin(s.now())
		markVerified(user, method)
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		session, err := s.issue(user)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{Session: session}, nil
	case PurposeVerify:
		markVerified(user, method)
		user.Touch()
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return &VerifyResult{User: user}, nil
	default:
		raw, err := s.newResetToken(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{ResetToken: raw}, nil
	}
}

func markVerified(u *User, method OTPMethod) {
	if method == OTPEmail {
		u.EmailVerified = true
	} else {
		u.PhoneVerified = true
	}
}

func generateCode(digits int) (string, error) {
	limit := big.NewInt(1)
	for range digits {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
