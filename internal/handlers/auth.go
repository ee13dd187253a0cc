package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carenest-server/internal/middleware"
	"carenest-server/internal/services"
	"carenest-server/internal/utils"
)

// AuthHandler handles registration, verification and login.
type AuthHandler struct {
	Auth *services.AuthService
	Log  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Log: log}
}

// RegisterResponse is the data of a successful registration.
type RegisterResponse struct {
	Email string `json:"email"`
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !utils.BindJSON(c, &req) {
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	utils.Created(c, "User registered. OTP sent to your email.", RegisterResponse{Email: user.Email})
}

// VerifyOTP confirms the email address of a pending account.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req services.VerifyOTPInput
	if !utils.BindJSON(c, &req) {
		return
	}

	if err := h.Auth.VerifyOTP(c.Request.Context(), req); err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	utils.Success(c, "Email verified successfully. You can now login.", nil)
}

func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req services.EmailInput
	if !utils.BindJSON(c, &req) {
		return
	}

	if err := h.Auth.ResendOTP(c.Request.Context(), req); err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	utils.Success(c, "OTP resent to your email", nil)
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginInput
	if !utils.BindJSON(c, &req) {
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), req)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	utils.Success(c, "Login successful", result)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.GetUserFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	utils.Success(c, "User retrieved successfully", user.Sanitize())
}
