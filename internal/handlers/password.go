package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carenest-server/internal/middleware"
	"carenest-server/internal/services"
	"carenest-server/internal/utils"
)

// PasswordHandler handles the forgot, reset and change password flows.
type PasswordHandler struct {
	Passwords *services.PasswordService
	Log       *zap.Logger
}

func NewPasswordHandler(passwords *services.PasswordService, log *zap.Logger) *PasswordHandler {
	return &PasswordHandler{Passwords: passwords, Log: log}
}

func (h *PasswordHandler) ForgotPassword(c *gin.Context) {
	var req services.EmailInput
	if !utils.BindJSON(c, &req) {
		return
	}

	if err := h.Passwords.ForgotPassword(c.Request.Context(), req); err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	utils.Success(c, "Password reset email sent successfully", nil)
}

func (h *PasswordHandler) ResetPassword(c *gin.Context) {
	var req services.ResetPasswordInput
	if !utils.BindJSON(c, &req) {
		return
	}

	email, err := h.Passwords.ResetPassword(c.Request.Context(), req)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	utils.Success(c, "Password reset successfully", gin.H{"email": email})
}

// ChangePassword requires authentication; the user comes from the token.
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req services.ChangePasswordInput
	if !utils.BindJSON(c, &req) {
		return
	}

	if err := h.Passwords.ChangePassword(c.Request.Context(), userID, req); err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	utils.Success(c, "Password changed successfully", nil)
}
