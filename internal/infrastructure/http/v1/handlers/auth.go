// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/security"
	"glasserp/internal/infrastructure/http/v1/dto"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service AuthService) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	session, err := h.service.Register(c.Request.Context(), req.ToAuthRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	session, err := h.service.Login(c.Request.Context(), req.ToCredentials())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SendOTP handles POST /auth/send-otp. The reply never reveals whether the
// identifier belongs to an account.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.service.SendOTP(c.Request.Context(), req.ToDomain()); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "If the account exists, a code has been sent")
}

// VerifyOTP handles POST /auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.service.VerifyOTP(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// ResetPassword handles POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), req.ResetToken, req.NewPassword); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "Password updated")
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, user)
}

// CreateUser handles POST /auth/users
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if !h.BindJSON(c, &req) {
		return
	}
	role := security.Role(req.Role)
	if !role.IsValid() {
		h.Error(c, apperror.NewFieldValidation("role", "unknown role "+req.Role))
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), req.ToAuthRequest(), role)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, user)
}

// ListUsers handles GET /auth/users
func (h *AuthHandler) ListUsers(c *gin.Context) {
	var q dto.UserListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	f := q.ToFilter()
	users, total, err := h.service.ListUsers(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.UserListResponse{Items: users, TotalCount: total, Limit: f.Limit, Skip: f.Offset})
}
