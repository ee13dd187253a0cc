package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carenest-server/internal/models"
	"carenest-server/internal/testutil"
	"carenest-server/internal/utils"
)

func TestRegisterCreatesUnverifiedPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, RegisterInput{Name: " Alice ", Email: "Alice@X.com", Password: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.Equal(t, models.RolePatient, user.Role)
	assert.False(t, user.IsVerified)
	assert.NotEqual(t, "secret1", user.Password)
	assert.True(t, user.CheckPassword("secret1"))

	otp := f.mailer.LastOTP("alice@x.com")
	assert.Len(t, otp, utils.OTPLength)
	assert.Equal(t, otp, user.OTP)
	require.NotNil(t, user.OTPExpiry)
	assert.Equal(t, f.clock.Now().Add(10*time.Minute), *user.OTPExpiry)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"})
	assertAppError(t, err, utils.KindValidation, "Please provide all required fields")

	_, err = f.auth.Register(ctx, RegisterInput{Name: "A", Email: "not-an-email", Password: "secret1"})
	assertAppError(t, err, utils.KindValidation, "Please provide a valid email address")

	_, err = f.auth.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "12345"})
	assertAppError(t, err, utils.KindValidation, "Password must be at least 6 characters")

	_, err = f.auth.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1", Role: "admin"})
	assertAppError(t, err, utils.KindValidation, "Invalid role")

	_, err = f.auth.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1", Role: "doctor"})
	assertAppError(t, err, utils.KindValidation, "Specialization is required for doctors")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, RegisterInput{Name: "B", Email: "A@x.com", Password: "secret2"})
	assertAppError(t, err, utils.KindConflict, "Email already registered")
}

func TestRegisterDoctorCreatesDoctorRecord(t *testing.T) {
	f := newFixture(t)
	fee := 800.0

	user, err := f.auth.Register(context.Background(), RegisterInput{
		Name:            "Dr. Who",
		Email:           "who@x.com",
		Password:        "secret1",
		Role:            "doctor",
		Specialization:  "Neurology",
		Experience:      12,
		ConsultationFee: &fee,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, user.Role)

	doctor, err := f.doctors.GetByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SpecNeurology, doctor.Specialization)
	assert.Equal(t, 800.0, doctor.ConsultationFee)
	assert.Equal(t, 12, doctor.Experience)
	assert.True(t, doctor.IsAvailable)
}

func TestRegisterDoctorWithFreeConsultation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	free := 0.0

	user, err := f.auth.Register(ctx, RegisterInput{
		Name:            "Dr. Free",
		Email:           "free@x.com",
		Password:        "secret1",
		Role:            "doctor",
		Specialization:  "Pediatrics",
		ConsultationFee: &free,
	})
	require.NoError(t, err)

	doctor, err := f.doctors.GetByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, doctor.ConsultationFee)

	patient := testutil.CreateUser(t, f.db, "Pat", "pat@x.com", "secret1", models.RolePatient)
	appt, err := f.appointments.Book(ctx, patient.ID, BookAppointmentInput{
		DoctorID: doctor.ID, Date: "2025-01-10", Time: "09:00",
	})
	require.NoError(t, err)
	assert.Zero(t, appt.ConsultationFee)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	f := newFixture(t)
	f.mailer.Fail = true

	user, err := f.auth.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
}

func TestVerifyOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	otp := f.mailer.LastOTP("a@x.com")

	err = f.auth.VerifyOTP(ctx, VerifyOTPInput{Email: "missing@x.com", OTP: otp})
	assertAppError(t, err, utils.KindNotFound, "User not found")

	wrong := "000000"
	if otp == wrong {
		wrong = "111111"
	}
	err = f.auth.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: wrong})
	assertAppError(t, err, utils.KindValidation, "Invalid OTP")

	require.NoError(t, f.auth.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: otp}))

	var user models.User
	require.NoError(t, f.db.First(&user, "email = ?", "a@x.com").Error)
	assert.True(t, user.IsVerified)
	assert.Empty(t, user.OTP)
	assert.Nil(t, user.OTPExpiry)

	err = f.auth.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: otp})
	assertAppError(t, err, utils.KindValidation, "Email already verified")
}

func TestVerifyOTPExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	f.clock.Advance(11 * time.Minute)
	err = f.auth.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: f.mailer.LastOTP("a@x.com")})
	assertAppError(t, err, utils.KindValidation, "OTP has expired")
}

func TestResendOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	f.clock.Advance(11 * time.Minute)
	require.NoError(t, f.auth.ResendOTP(ctx, EmailInput{Email: "a@x.com"}))
	require.NoError(t, f.auth.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: f.mailer.LastOTP("a@x.com")}))

	err = f.auth.ResendOTP(ctx, EmailInput{Email: "a@x.com"})
	assertAppError(t, err, utils.KindValidation, "Email already verified")

	err = f.auth.ResendOTP(ctx, EmailInput{Email: "nobody@x.com"})
	assertAppError(t, err, utils.KindNotFound, "User not found")
}

func TestResendOTPDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	f.mailer.Fail = true
	err = f.auth.ResendOTP(ctx, EmailInput{Email: "a@x.com"})
	assert.Equal(t, utils.KindInternal, utils.KindOf(err))
	assert.ErrorIs(t, err, testutil.ErrDelivery)
}

func TestResendOTPThrottled(t *testing.T) {
	f := newFixture(t)
	f.limiter.Limit = 1
	ctx := context.Background()
	_, err := f.auth.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, f.auth.ResendOTP(ctx, EmailInput{Email: "a@x.com"}))
	err = f.auth.ResendOTP(ctx, EmailInput{Email: "a@x.com"})
	assertAppError(t, err, utils.KindTooManyRequests, "Too many requests. Please try again later.")
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	// Verification is checked before the password.
	_, err = f.auth.Login(ctx, LoginInput{Email: "a@x.com", Password: "wrong-password"})
	assertAppError(t, err, utils.KindValidation, "Please verify your email first")

	require.NoError(t, f.auth.VerifyOTP(ctx, VerifyOTPInput{Email: "a@x.com", OTP: f.mailer.LastOTP("a@x.com")}))

	_, err = f.auth.Login(ctx, LoginInput{Email: "a@x.com", Password: "wrong-password"})
	assertAppError(t, err, utils.KindValidation, "Invalid email or password")

	_, err = f.auth.Login(ctx, LoginInput{Email: "nobody@x.com", Password: "secret1"})
	assertAppError(t, err, utils.KindValidation, "Invalid email or password")

	res, err := f.auth.Login(ctx, LoginInput{Email: "A@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", res.User.Email)

	claims, err := utils.ValidateToken(res.Token, testutil.TestSecret)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, f.clock.Now().Add(30*24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}
