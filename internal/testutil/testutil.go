// Package testutil provides an in-memory database and fakes shared by the
// service, handler and client tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carenest-server/internal/config"
	"carenest-server/internal/events"
	"carenest-server/internal/models"
)

const TestSecret = "test-secret"

// NewDB opens a private in-memory SQLite database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := models.GormConfig(false)
	cfg.Logger = logger.Discard
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

// Config returns a configuration with the production defaults and a fixed secret.
func Config() *config.Config {
	return &config.Config{
		Port:                     "6402",
		FrontendURL:              "http://localhost:5173",
		Environment:              "test",
		JWTSecret:                TestSecret,
		JWTExpirationDays:        30,
		OTPExpiryMinutes:         10,
		PasswordResetTokenExpiry: 30,
		Kafka:                    config.KafkaConfig{Topic: "appointment_topic"},
	}
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ErrDelivery is returned by a Mailer with Fail set.
var ErrDelivery = errors.New("smtp unavailable")

// Mailer records what would have been sent.
type Mailer struct {
	mu     sync.Mutex
	Fail   bool
	OTPs   map[string]string
	Resets map[string]string
}

func NewMailer() *Mailer {
	return &Mailer{OTPs: map[string]string{}, Resets: map[string]string{}}
}

func (m *Mailer) SendOTP(_ context.Context, email, otp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrDelivery
	}
	m.OTPs[email] = otp
	return nil
}

func (m *Mailer) SendPasswordReset(_ context.Context, email, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrDelivery
	}
	m.Resets[email] = resetURL
	return nil
}

func (m *Mailer) LastOTP(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.OTPs[email]
}

func (m *Mailer) LastReset(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Resets[email]
}

// Publisher records published events and the number of Publish calls.
type Publisher struct {
	mu     sync.Mutex
	Events []events.AppointmentEvent
	Calls  int
}

func (p *Publisher) Publish(_ context.Context, evs ...events.AppointmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	p.Events = append(p.Events, evs...)
	return nil
}

func (p *Publisher) Close() error { return nil }

// Types returns the types of the recorded events in order.
func (p *Publisher) Types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]events.EventType, len(p.Events))
	for i, e := range p.Events {
		types[i] = e.Type
	}
	return types
}

// Limiter allows up to Limit calls per key; zero means unlimited.
type Limiter struct {
	mu     sync.Mutex
	Limit  int
	counts map[string]int
}

func (l *Limiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		l.counts = map[string]int{}
	}
	l.counts[key]++
	return l.Limit == 0 || l.counts[key] <= l.Limit, nil
}

func (l *Limiter) Close() error { return nil }

// CreateUser inserts a verified user with the given password.
func CreateUser(t *testing.T, db *gorm.DB, name, email, password string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: email, Role: role, IsVerified: true}
	require.NoError(t, user.SetPassword(password))
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateDoctor inserts a verified doctor account and its Doctor record.
func CreateDoctor(t *testing.T, db *gorm.DB, name string, spec models.Specialization, fee float64) (*models.User, *models.Doctor) {
	t.Helper()
	email := fmt.Sprintf("%s@carenest.test", uuid.NewString()[:8])
	user := CreateUser(t, db, name, email, "password123", models.RoleDoctor)
	doctor := &models.Doctor{
		UserID:          user.ID,
		Name:            name,
		Specialization:  spec,
		Experience:      10,
		ConsultationFee: fee,
		Qualifications:  []string{"MBBS"},
		Rating:          models.DefaultRating,
		IsAvailable:     true,
	}
	require.NoError(t, db.Create(doctor).Error)
	return user, doctor
}
