package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/config"
	"carenest-server/internal/mailer"
	"carenest-server/internal/models"
	"carenest-server/internal/throttle"
	"carenest-server/internal/utils"
)

type ResetPasswordInput struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// PasswordService covers forgot, reset and change password. Only the SHA-256
// of a reset token is stored; the raw token lives in the emailed link.
type PasswordService struct {
	db      *gorm.DB
	cfg     *config.Config
	mailer  mailer.Mailer
	limiter throttle.Limiter
	log     *zap.Logger
	now     Clock
}

func NewPasswordService(db *gorm.DB, cfg *config.Config, m mailer.Mailer, limiter throttle.Limiter, log *zap.Logger) *PasswordService {
	return &PasswordService{db: db, cfg: cfg, mailer: m, limiter: limiter, log: log, now: time.Now}
}

func (s *PasswordService) SetClock(now Clock) { s.now = now }

// ResetURL builds the link emailed to the user.
func (s *PasswordService) ResetURL(token string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset-password/" + token
}

// ForgotPassword stores a hashed token and emails the raw one. If the email
// cannot be sent the token is removed again.
func (s *PasswordService) ForgotPassword(ctx context.Context, in EmailInput) error {
	in.Email = normalizeEmail(in.Email)
	if err := utils.Validate(in); err != nil {
		return err
	}
	if err := allow(ctx, s.limiter, "reset:"+in.Email); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, "email = ?", in.Email).Error; err != nil {
		if isNotFound(err) {
			return utils.NotFoundError("User not found with this email")
		}
		return utils.InternalError("Failed to fetch user", err)
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return utils.InternalError("Failed to generate reset token", err)
	}
	expiry := s.now().Add(time.Duration(s.cfg.PasswordResetTokenExpiry) * time.Minute)
	err = db.Model(&user).Updates(map[string]any{
		"reset_token":        utils.HashResetToken(token),
		"reset_token_expiry": expiry,
	}).Error
	if err != nil {
		return utils.InternalError("Failed to save reset token", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, s.ResetURL(token)); err != nil {
		rollback := s.db.WithContext(context.WithoutCancel(ctx)).Model(&user).Updates(map[string]any{
			"reset_token":        "",
			"reset_token_expiry": nil,
		}).Error
		if rollback != nil {
			s.log.Error("failed to clear reset token", zap.String("user_id", user.ID), zap.Error(rollback))
		}
		return utils.InternalError("Failed to send reset email", err)
	}
	return nil
}

// ResetPassword consumes a reset token. It returns the email of the account.
func (s *PasswordService) ResetPassword(ctx context.Context, in ResetPasswordInput) (string, error) {
	if err := utils.Validate(in); err != nil {
		return "", err
	}
	if err := checkNewPassword(in.NewPassword, in.ConfirmPassword, "Passwords do not match"); err != nil {
		return "", err
	}

	db := s.db.WithContext(ctx)
	hash := utils.HashResetToken(in.Token)
	var user models.User
	err := db.Where("reset_token = ? AND reset_token_expiry > ?", hash, s.now()).
		First(&user).Error
	if err != nil {
		if isNotFound(err) {
			return "", utils.ValidationError("Invalid or expired reset token")
		}
		return "", utils.InternalError("Failed to fetch user", err)
	}

	if err := user.SetPassword(in.NewPassword); err != nil {
		return "", utils.InternalError("Failed to hash password", err)
	}
	// Only the first of two concurrent resets with the same token still
	// finds it stored.
	res := db.Model(&user).Where("reset_token = ?", hash).Updates(map[string]any{
		"password":           user.Password,
		"reset_token":        "",
		"reset_token_expiry": nil,
	})
	if res.Error != nil {
		return "", utils.InternalError("Failed to reset password", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", utils.ValidationError("Invalid or expired reset token")
	}

	s.log.Info("password reset", zap.String("user_id", user.ID))
	return user.Email, nil
}

// ChangePassword replaces the password of an authenticated user.
func (s *PasswordService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if err := utils.Validate(in); err != nil {
		return err
	}
	if err := checkNewPassword(in.NewPassword, in.ConfirmPassword, "New passwords do not match"); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	user, err := findUser(db, userID, "User not found")
	if err != nil {
		return err
	}
	if !user.CheckPassword(in.CurrentPassword) {
		return utils.ValidationError("Current password is incorrect")
	}
	if user.CheckPassword(in.NewPassword) {
		return utils.ValidationError("New password cannot be the same as current password")
	}

	if err := user.SetPassword(in.NewPassword); err != nil {
		return utils.InternalError("Failed to hash password", err)
	}
	if err := db.Model(user).Update("password", user.Password).Error; err != nil {
		return utils.InternalError("Failed to change password", err)
	}
	return nil
}
