package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/models"
)

// staleOTPAge is how long an expired OTP of an unverified account is kept.
const staleOTPAge = 24 * time.Hour

// Sweeper clears credentials that can no longer be used.
type Sweeper struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewSweeper(db *gorm.DB, log *zap.Logger) *Sweeper {
	return &Sweeper{db: db, log: log, now: time.Now}
}

// SweepResult counts the accounts touched by a sweep.
type SweepResult struct {
	ResetTokens int64
	OTPs        int64
}

func (s *Sweeper) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}

// Sweep drops expired reset tokens and OTPs that expired more than a day ago.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now()
	db := s.db.WithContext(ctx).Model(&models.User{})

	tokens := db.Where("reset_token_expiry IS NOT NULL AND reset_token_expiry <= ?", now).
		Updates(map[string]interface{}{"reset_token": "", "reset_token_expiry": nil})
	if tokens.Error != nil {
		return res, fmt.Errorf("failed to clear reset tokens: %w", tokens.Error)
	}
	res.ResetTokens = tokens.RowsAffected

	otps := s.db.WithContext(ctx).Model(&models.User{}).
		Where("is_verified = ? AND otp_expiry IS NOT NULL AND otp_expiry <= ?", false, now.Add(-staleOTPAge)).
		Updates(map[string]interface{}{"otp": "", "otp_expiry": nil})
	if otps.Error != nil {
		return res, fmt.Errorf("failed to clear OTPs: %w", otps.Error)
	}
	res.OTPs = otps.RowsAffected

	if res.ResetTokens > 0 || res.OTPs > 0 {
		s.log.Info("Swept stale credentials",
			zap.Int64("reset_tokens", res.ResetTokens),
			zap.Int64("otps", res.OTPs),
		)
	}
	return res, nil
}
