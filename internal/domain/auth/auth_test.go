package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/id"
	"glasserp/internal/core/security"
	"glasserp/internal/core/tx"
	"glasserp/internal/domain/notification"
)

type memoryUsers struct {
	items map[id.ID]User
}

func (m *memoryUsers) Create(ctx context.Context, u *User) error {
	m.items[u.ID] = *u
	return nil
}

func (m *memoryUsers) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	u, ok := m.items[userID]
	if !ok {
		return nil, apperror.NewNotFound("user", userID)
	}
	return &u, nil
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range m.items {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperror.NewNotFound("user", email)
}

func (m *memoryUsers) GetByPhone(ctx context.Context, p string) (*User, error) {
	for _, u := range m.items {
		if u.Phone != nil && *u.Phone == p {
			return &u, nil
		}
	}
	return nil, apperror.NewNotFound("user", p)
}

func (m *memoryUsers) Update(ctx context.Context, u *User) error {
	m.items[u.ID] = *u
	return nil
}

func (m *memoryUsers) List(ctx context.Context, filter UserFilter) ([]User, int, error) {
	out := make([]User, 0, len(m.items))
	for _, u := range m.items {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memoryUsers) Exists(ctx context.Context, email, p string) (bool, error) {
	if _, err := m.GetByEmail(ctx, email); err == nil {
		return true, nil
	}
	if p != "" {
		if _, err := m.GetByPhone(ctx, p); err == nil {
			return true, nil
		}
	}
	return false, nil
}

type memoryOTPs struct {
	items []*OTP
}

func (m *memoryOTPs) Save(ctx context.Context, otp *OTP) error {
	c := *otp
	m.items = append(m.items, &c)
	return nil
}

func (m *memoryOTPs) Latest(ctx context.Context, identifier string, purpose OTPPurpose) (*OTP, error) {
	for i := len(m.items) - 1; i >= 0; i-- {
		o := m.items[i]
		if o.Identifier == identifier && o.Purpose == purpose && o.UsedAt == nil {
			c := *o
			return &c, nil
		}
	}
	return nil, apperror.NewNotFound("otp", identifier)
}

func (m *memoryOTPs) Update(ctx context.Context, otp *OTP) error {
	for _, o := range m.items {
		if o.ID == otp.ID {
			if o.Version != otp.Version {
				return apperror.NewConcurrentModification("otp", otp.ID)
			}
			otp.BumpVersion()
			*o = *otp
			return nil
		}
	}
	return apperror.NewNotFound("otp", otp.ID)
}

func (m *memoryOTPs) InvalidateOlder(ctx context.Context, identifier string, purpose OTPPurpose, at time.Time) error {
	for _, o := range m.items {
		if o.Identifier == identifier && o.Purpose == purpose && o.UsedAt == nil {
			o.UsedAt = &at
		}
	}
	return nil
}

type memoryResets struct {
	items map[string]*ResetToken
}

func (m *memoryResets) Save(ctx context.Context, t *ResetToken) error {
	m.items[t.TokenHash] = t
	return nil
}

func (m *memoryResets) GetByHash(ctx context.Context, hash string) (*ResetToken, error) {
	t, ok := m.items[hash]
	if !ok {
		return nil, apperror.NewNotFound("reset token", hash)
	}
	c := *t
	return &c, nil
}

func (m *memoryResets) MarkUsed(ctx context.Context, tokenID id.ID, at time.Time) error {
	for _, t := range m.items {
		if t.ID == tokenID {
			t.UsedAt = &at
		}
	}
	return nil
}

func (m *memoryResets) CleanupExpired(ctx context.Context, before time.Time) (int, error) {
	n := 0
	for k, t := range m.items {
		if !before.Before(t.ExpiresAt) {
			delete(m.items, k)
			n++
		}
	}
	return n, nil
}

type captureSender struct {
	sent []notification.Message
	to   []notification.Recipient
	fail bool
}

func (c *captureSender) SendVia(ctx context.Context, to notification.Recipient, msg notification.Message, channels ...notification.Channel) notification.Result {
	res := notification.Result{Channels: map[notification.Channel]notification.Attempt{}}
	for _, ch := range channels {
		res.Channels[ch] = notification.Attempt{Attempted: true, Success: !c.fail}
	}
	res.AnySuccess = !c.fail
	if !c.fail {
		c.sent = append(c.sent, msg)
		c.to = append(c.to, to)
	}
	return res
}

var codeRe = regexp.MustCompile(`\b(\d{6})\b`)

func (c *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, c.sent)
	m := codeRe.FindStringSubmatch(c.sent[len(c.sent)-1].Body)
	require.Len(t, m, 2)
	return m[1]
}

type harness struct {
	svc    *Service
	users  *memoryUsers
	otps   *memoryOTPs
	resets *memoryResets
	sender *captureSender
	clock  time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		users:  &memoryUsers{items: map[id.ID]User{}},
		otps:   &memoryOTPs{},
		resets: &memoryResets{items: map[string]*ResetToken{}},
		sender: &captureSender{},
		clock:  time.Date(2024, 9, 3, 6, 30, 0, 0, time.UTC),
	}
	jwtSvc := NewJWTService(DefaultJWTConfig("test-secret"))
	jwtSvc.now = func() time.Time { return h.clock }
	h.svc = NewService(h.users, h.otps, h.resets, tx.Passthrough{}, jwtSvc, h.sender, DefaultServiceConfig())
	h.svc.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) register(t *testing.T) *Session {
	t.Helper()
	s, err := h.svc.Register(context.Background(), RegisterRequest{
		Email: " Ravi@Example.com ", Password: "s3cret-pass", Name: "Ravi Kumar", Phone: "98765 43210",
	})
	require.NoError(t, err)
	return s
}

func TestRegister_IssuesCustomerToken(t *testing.T) {
	h := newHarness(t)
	s := h.register(t)

	assert.Equal(t, "ravi@example.com", s.User.Email)
	assert.Equal(t, security.RoleCustomer, s.User.Role)
	require.NotNil(t, s.User.Phone)
	assert.Equal(t, "+919876543210", *s.User.Phone)
	assert.Equal(t, h.clock.Add(7*24*time.Hour), s.ExpiresAt)

	uc, err := h.svc.ValidateToken(s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID.String(), uc.UserID)
	assert.Equal(t, "customer", uc.Role)
	assert.Equal(t, "ravi@example.com", uc.Email)

	_, err = h.svc.Register(context.Background(), RegisterRequest{
		Email: "ravi@example.com", Password: "another-pass", Name: "Other",
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   RegisterRequest
		field string
	}{
		{"short password", RegisterRequest{Email: "a@b.in", Password: "short", Name: "A"}, "password"},
		{"bad email", RegisterRequest{Email: "nope", Password: "long-enough", Name: "A"}, "email"},
		{"no name", RegisterRequest{Email: "a@b.in", Password: "long-enough"}, "name"},
		{"bad phone", RegisterRequest{Email: "a@b.in", Password: "long-enough", Name: "A", Phone: "12"}, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.Register(context.Background(), tt.req)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
			assert.Empty(t, h.users.items)
		})
	}
}

func TestValidateToken_Expiry(t *testing.T) {
	h := newHarness(t)
	s := h.register(t)

	jwtSvc := h.svc.jwtService
	jwtSvc.now = func() time.Time { return h.clock.Add(7*24*time.Hour + time.Minute) }
	_, err := h.svc.ValidateToken(s.Token)
	assert.Error(t, err)

	other := NewJWTService(DefaultJWTConfig("other-secret"))
	other.now = func() time.Time { return h.clock }
	_, err = other.ValidateToken(s.Token)
	assert.Error(t, err)
}

func TestLogin_Lockout(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	ctx := context.Background()

	for range 5 {
		_, err := h.svc.Login(ctx, Credentials{Email: "ravi@example.com", Password: "wrong"})
		assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
	}
	_, err := h.svc.Login(ctx, Credentials{Email: "ravi@example.com", Password: "s3cret-pass"})
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	h.clock = h.clock.Add(16 * time.Minute)
	s, err := h.svc.Login(ctx, Credentials{Email: "RAVI@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Zero(t, s.User.FailedLoginAttempts)
	require.NotNil(t, s.User.LastLoginAt)

	_, err = h.svc.Login(ctx, Credentials{Email: "nobody@example.com", Password: "x"})
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
}

func TestMe(t *testing.T) {
	h := newHarness(t)
	s := h.register(t)

	_, err := h.svc.Me(context.Background())
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: s.User.ID.String(), Role: "customer"})
	u, err := h.svc.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", u.Name)
}

func TestCreateUser_AdminsOnly(t *testing.T) {
	h := newHarness(t)
	req := RegisterRequest{Email: "ops@factory.in", Password: "operator-pass", Name: "Ops"}

	finance := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: id.New().String(), Role: "finance"})
	_, err := h.svc.CreateUser(finance, req, security.RoleOperator)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	admin := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: id.New().String(), Role: "admin"})
	_, err = h.svc.CreateUser(admin, req, security.RoleSuperAdmin)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	u, err := h.svc.CreateUser(admin, req, security.RoleOperator)
	require.NoError(t, err)
	assert.Equal(t, security.RoleOperator, u.Role)

	users, total, err := h.svc.ListUsers(admin, UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, users, 1)
}

func TestOTP_LoginSingleUse(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	ctx := context.Background()

	req := SendOTPRequest{Method: OTPSMS, Identifier: "+91 98765 43210", Purpose: PurposeLogin}
	require.NoError(t, h.svc.SendOTP(ctx, req))
	require.Len(t, h.otps.items, 1)
	assert.Equal(t, "+919876543210", h.sender.to[0].Phone)
	code := h.sender.lastCode(t)
	assert.NotEqual(t, code, h.otps.items[0].CodeHash)

	verify := VerifyOTPRequest{Method: OTPSMS, Identifier: "9876543210", Purpose: PurposeLogin, Code: code}
	res, err := h.svc.VerifyOTP(ctx, verify)
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.True(t, res.Session.User.PhoneVerified)

	_, err = h.svc.VerifyOTP(ctx, verify)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestOTP_ExpiryAndAttempts(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	ctx := context.Background()
	send := SendOTPRequest{Method: OTPEmail, Identifier: "ravi@example.com", Purpose: PurposeVerify}

	require.NoError(t, h.svc.SendOTP(ctx, send))
	code := h.sender.lastCode(t)
	h.clock = h.clock.Add(11 * time.Minute)
	_, err := h.svc.VerifyOTP(ctx, VerifyOTPRequest{Method: OTPEmail, Identifier: "ravi@example.com", Purpose: PurposeVerify, Code: code})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	require.NoError(t, h.svc.SendOTP(ctx, send))
	code = h.sender.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	bad := VerifyOTPRequest{Method: OTPEmail, Identifier: "ravi@example.com", Purpose: PurposeVerify, Code: wrong}
	for range 5 {
		_, err = h.svc.VerifyOTP(ctx, bad)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	}
	bad.Code = code
	_, err = h.svc.VerifyOTP(ctx, bad)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestOTP_UnknownIdentifierIsSilent(t *testing.T) {
	h := newHarness(t)
	err := h.svc.SendOTP(context.Background(), SendOTPRequest{Method: OTPEmail, Identifier: "ghost@example.com", Purpose: PurposeLogin})
	require.NoError(t, err)
	assert.Empty(t, h.sender.sent)

	err = h.svc.SendOTP(context.Background(), SendOTPRequest{Method: "fax", Identifier: "x", Purpose: PurposeLogin})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestOTP_DeliveryFailure(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.sender.fail = true

	err := h.svc.SendOTP(context.Background(), SendOTPRequest{Method: OTPWhatsApp, Identifier: "9876543210", Purpose: PurposeLogin})
	assert.True(t, apperror.IsCode(err, apperror.CodeExternal))
}

func TestResetPassword_Flow(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	ctx := context.Background()

	require.NoError(t, h.svc.SendOTP(ctx, SendOTPRequest{Method: OTPEmail, Identifier: "ravi@example.com", Purpose: PurposeResetPassword}))
	res, err := h.svc.VerifyOTP(ctx, VerifyOTPRequest{
		Method: OTPEmail, Identifier: "ravi@example.com", Purpose: PurposeResetPassword, Code: h.sender.lastCode(t),
	})
	require.NoError(t, err)
	require.Len(t, res.ResetToken, 64)
	_, stored := h.resets.items[res.ResetToken]
	assert.False(t, stored, "raw token must not be stored")

	assert.True(t, apperror.IsCode(h.svc.ResetPassword(ctx, res.ResetToken, "short"), apperror.CodeValidation))
	require.NoError(t, h.svc.ResetPassword(ctx, res.ResetToken, "brand-new-pass"))

	err = h.svc.ResetPassword(ctx, res.ResetToken, "another-pass")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = h.svc.Login(ctx, Credentials{Email: "ravi@example.com", Password: "brand-new-pass"})
	require.NoError(t, err)
}

func TestResetPassword_Expired(t *testing.T) {
	h := newHarness(t)
	s := h.register(t)
	ctx := context.Background()

	raw, err := h.svc.newResetToken(ctx, s.User.ID)
	require.NoError(t, err)
	h.clock = h.clock.Add(31 * time.Minute)

	err = h.svc.ResetPassword(ctx, raw, "brand-new-pass")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	n, err := h.svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
