package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/config"
	"carenest-server/internal/testutil"
	"carenest-server/internal/utils"
)

type fixture struct {
	db        *gorm.DB
	cfg       *config.Config
	clock     *testutil.Clock
	mailer    *testutil.Mailer
	publisher *testutil.Publisher
	limiter   *testutil.Limiter

	auth         *AuthService
	passwords    *PasswordService
	doctors      *DoctorService
	appointments *AppointmentService
	profiles     *ProfileService
	admin        *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:        testutil.NewDB(t),
		cfg:       testutil.Config(),
		clock:     testutil.NewClock(time.Now().UTC().Truncate(time.Second)),
		mailer:    testutil.NewMailer(),
		publisher: &testutil.Publisher{},
		limiter:   &testutil.Limiter{},
	}
	log := zap.NewNop()

	f.auth = NewAuthService(f.db, f.cfg, f.mailer, f.limiter, log)
	f.auth.SetClock(f.clock.Now)
	f.passwords = NewPasswordService(f.db, f.cfg, f.mailer, f.limiter, log)
	f.passwords.SetClock(f.clock.Now)
	f.doctors = NewDoctorService(f.db, log)
	f.appointments = NewAppointmentService(f.db, f.publisher, log)
	f.appointments.SetClock(f.clock.Now)
	f.profiles = NewProfileService(f.db, log)
	f.profiles.SetClock(f.clock.Now)
	f.admin = NewAdminService(f.db, log)
	return f
}

// assertAppError checks both the kind and the user facing message.
func assertAppError(t *testing.T, err error, kind utils.ErrorKind, message string) {
	t.Helper()
	if !assert.Error(t, err) {
		return
	}
	assert.Equal(t, kind, utils.KindOf(err), "kind of %v", err)
	var appErr *utils.AppError
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, message, appErr.Message)
	}
}
