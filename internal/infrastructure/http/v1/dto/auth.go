package dto

import (
	"glasserp/internal/domain/auth"
)

// RegisterRequest for customer self-registration.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"required,max=120"`
	Phone    string `json:"phone" binding:"omitempty,in_mobile"`
}

// ToAuthRequest converts to domain request.
func (r *RegisterRequest) ToAuthRequest() auth.RegisterRequest {
	return auth.RegisterRequest{
		Email:    r.Email,
		Password: r.Password,
		Name:     r.Name,
		Phone:    r.Phone,
	}
}

// CreateUserRequest lets an admin create a staff account.
type CreateUserRequest struct {
	RegisterRequest
	Role string `json:"role" binding:"required"`
}

// LoginRequest for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ToCredentials converts to domain credentials.
func (r *LoginRequest) ToCredentials() auth.Credentials {
	return auth.Credentials{
		Email:    r.Email,
		Password: r.Password,
	}
}

// SendOTPRequest asks for a one-time code.
type SendOTPRequest struct {
	Method     string `json:"method" binding:"required,oneof=email sms whatsapp"`
	Identifier string `json:"identifier" binding:"required,max=254"`
	Purpose    string `json:"purpose" binding:"omitempty,oneof=login verify reset_password"`
}

// ToDomain converts to the domain request; the purpose defaults to login.
func (r *SendOTPRequest) ToDomain() auth.SendOTPRequest {
	purpose := auth.OTPPurpose(r.Purpose)
	if purpose == "" {
		purpose = auth.PurposeLogin
	}
	return auth.SendOTPRequest{
		Method:     auth.OTPMethod(r.Method),
		Identifier: r.Identifier,
		Purpose:    purpose,
	}
}

// VerifyOTPRequest submits a received code.
type VerifyOTPRequest struct {
	SendOTPRequest
	Code string `json:"code" binding:"required,len=6,numeric"`
}

// ToDomain converts to the domain request.
func (r *VerifyOTPRequest) ToDomain() auth.VerifyOTPRequest {
	send := r.SendOTPRequest.ToDomain()
	return auth.VerifyOTPRequest{
		Method:     send.Method,
		Identifier: send.Identifier,
		Purpose:    send.Purpose,
		Code:       r.Code,
	}
}

// ResetPasswordRequest consumes a reset token issued by verify-otp.
type ResetPasswordRequest struct {
	ResetToken  string `json:"reset_token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// UserListQuery filters the staff user list.
type UserListQuery struct {
	Search   string `form:"search"`
	Role     string `form:"role"`
	IsActive *bool  `form:"is_active"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Skip     int    `form:"skip" binding:"omitempty,min=0"`
}

// ToFilter converts to the repository filter.
func (q *UserListQuery) ToFilter() auth.UserFilter {
	limit := q.Limit
	if limit == 0 {
		limit = 50
	}
	return auth.UserFilter{
		Search:   q.Search,
		Role:     q.Role,
		IsActive: q.IsActive,
		Limit:    limit,
		Offset:   q.Skip,
	}
}

// UserListResponse is a page of users.
type UserListResponse struct {
	Items      []auth.User `json:"items"`
	TotalCount int         `json:"total_count"`
	Limit      int         `json:"limit"`
	Skip       int         `json:"skip"`
}
