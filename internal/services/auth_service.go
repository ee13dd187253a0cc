package services

import (
	"context"
	"crypto/subtle"
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

// RegisterInput is the body of POST /auth/register. The doctor fields are
// only read when Role is "doctor".
type RegisterInput struct {
	Name            string   `json:"name" validate:"required"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" label:"Password" validate:"required,min=6"`
	Role            string   `json:"role" validate:"omitempty,oneof=patient doctor"`
	Specialization  string   `json:"specialization"`
	Experience      int      `json:"experience" label:"Experience" validate:"gte=0,lte=70"`
	ConsultationFee *float64 `json:"consultationFee" label:"Consultation fee" validate:"omitempty,gte=0"`
	Qualifications  []string `json:"qualifications"`
}

type VerifyOTPInput struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type EmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token string               `json:"token"`
	User  models.UserSanitized `json:"user"`
}

// AuthService implements registration, email verification and login.
type AuthService struct {
	db      *gorm.DB
	cfg     *config.Config
	mailer  mailer.Mailer
	limiter throttle.Limiter
	log     *zap.Logger
	now     Clock
}

func NewAuthService(db *gorm.DB, cfg *config.Config, m mailer.Mailer, limiter throttle.Limiter, log *zap.Logger) *AuthService {
	return &AuthService{db: db, cfg: cfg, mailer: m, limiter: limiter, log: log, now: time.Now}
}

// SetClock replaces the time source, used by tests.
func (s *AuthService) SetClock(now Clock) { s.now = now }

func (s *AuthService) otpExpiry() time.Time {
	return s.now().Add(time.Duration(s.cfg.OTPExpiryMinutes) * time.Minute)
}

// Register creates an unverified account and emails its OTP. A failed email
// does not undo the registration; the user can ask for a new code.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	role := models.RolePatient
	if in.Role != "" {
		role = models.Role(in.Role)
	}

	var doctor *models.Doctor
	if role == models.RoleDoctor {
		spec := models.Specialization(strings.TrimSpace(in.Specialization))
		if spec == "" {
			return nil, utils.ValidationError("Specialization is required for doctors")
		}
		if !spec.Valid() {
			return nil, utils.ValidationError("Invalid specialization")
		}
		fee := float64(models.DefaultConsultationFee)
		if in.ConsultationFee != nil {
			fee = *in.ConsultationFee
		}
		doctor = &models.Doctor{
			Name:            in.Name,
			Specialization:  spec,
			Experience:      in.Experience,
			ConsultationFee: fee,
			Qualifications:  in.Qualifications,
			Rating:          models.DefaultRating,
			AvailableSlots:  []models.AvailabilitySlot{},
			IsAvailable:     true,
		}
		if doctor.Qualifications == nil {
			doctor.Qualifications = []string{}
		}
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
		return nil, utils.InternalError("Failed to check email", err)
	}
	if existing > 0 {
		return nil, utils.ConflictError("Email already registered")
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return nil, utils.InternalError("Failed to generate OTP", err)
	}
	expiry := s.otpExpiry()

	user := &models.User{
		Name:      in.Name,
		Email:     in.Email,
		Role:      role,
		OTP:       otp,
		OTPExpiry: &expiry,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, utils.InternalError("Failed to hash password", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if doctor != nil {
			doctor.UserID = user.ID
			if err := tx.Create(doctor).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, utils.ConflictError("Email already registered")
		}
		return nil, utils.InternalError("Failed to register user", err)
	}

	if err := s.mailer.SendOTP(ctx, user.Email, otp); err != nil {
		s.log.Error("failed to send otp email", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// VerifyOTP marks the account verified when the code matches and is fresh.
func (s *AuthService) VerifyOTP(ctx context.Context, in VerifyOTPInput) error {
	in.Email = normalizeEmail(in.Email)
	in.OTP = strings.TrimSpace(in.OTP)
	if err := utils.Validate(in); err != nil {
		return err
	}

	user, err := s.findByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return utils.ValidationError("Email already verified")
	}
	if user.OTP == "" || subtle.ConstantTimeCompare([]byte(user.OTP), []byte(in.OTP)) != 1 {
		return utils.ValidationError("Invalid OTP")
	}
	if user.OTPExpiry == nil || s.now().After(*user.OTPExpiry) {
		return utils.ValidationError("OTP has expired")
	}

	err = s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"is_verified": true,
		"otp":         "",
		"otp_expiry":  nil,
	}).Error
	if err != nil {
		return utils.InternalError("Failed to verify email", err)
	}
	return nil
}

// ResendOTP issues a fresh code. Unlike Register, a delivery failure is an
// error here because delivery is the whole point of the call.
func (s *AuthService) ResendOTP(ctx context.Context, in EmailInput) error {
	in.Email = normalizeEmail(in.Email)
	if err := utils.Validate(in); err != nil {
		return err
	}
	if err := allow(ctx, s.limiter, "otp:"+in.Email); err != nil {
		return err
	}

	user, err := s.findByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return utils.ValidationError("Email already verified")
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return utils.InternalError("Failed to generate OTP", err)
	}
	expiry := s.otpExpiry()
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"otp":        otp,
		"otp_expiry": expiry,
	}).Error
	if err != nil {
		return utils.InternalError("Failed to update OTP", err)
	}

	if err := s.mailer.SendOTP(ctx, user.Email, otp); err != nil {
		return utils.InternalError("Failed to send OTP email", err)
	}
	return nil
}

// Login checks verification before the password so an unverified account
// always gets the same answer.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", in.Email).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.ValidationError("Invalid email or password")
		}
		return nil, utils.InternalError("Failed to fetch user", err)
	}
	if !user.IsVerified {
		return nil, utils.ValidationError("Please verify your email first")
	}
	if !user.CheckPassword(in.Password) {
		return nil, utils.ValidationError("Invalid email or password")
	}

	ttl := time.Duration(s.cfg.JWTExpirationDays) * 24 * time.Hour
	token, err := utils.GenerateToken(user.ID, s.cfg.JWTSecret, ttl, s.now())
	if err != nil {
		return nil, utils.InternalError("Failed to generate token", err)
	}

	return &LoginResult{Token: token, User: user.Sanitize()}, nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("User not found")
		}
		return nil, utils.InternalError("Failed to fetch user", err)
	}
	return &user, nil
}

// allow maps a throttle decision to a 429.
func allow(ctx context.Context, limiter throttle.Limiter, key string) error {
	ok, err := limiter.Allow(ctx, key)
	if err != nil {
		return utils.InternalError("Failed to check request rate", err)
	}
	if !ok {
		return utils.TooManyRequestsError("Too many requests. Please try again later.")
	}
	return nil
}
