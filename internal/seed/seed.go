// Package seed loads the demo directory: ten doctors, one admin and one patient.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/models"
)

const (
	DoctorPassword  = "password123"
	AdminEmail      = "admin@carenest.com"
	AdminPassword   = "admin123"
	PatientEmail    = "patient@carenest.com"
	PatientPassword = "patient123"
)

type doctorSeed struct {
	Name           string
	Specialization models.Specialization
	Experience     int
	Fee            float64
}

var doctors = []doctorSeed{
	{"Dr. Rajesh Kumar", models.SpecCardiology, 12, 500},
	{"Dr. Priya Singh", models.SpecDermatology, 8, 400},
	{"Dr. Amit Patel", models.SpecOrthopedic, 15, 600},
	{"Dr. Neha Sharma", models.SpecPediatrics, 10, 350},
	{"Dr. Suresh Verma", models.SpecNeurology, 18, 700},
	{"Dr. Anjali Gupta", models.SpecGeneralPractitioner, 6, 300},
	{"Dr. Vikram Singh", models.SpecGastroenterology, 14, 550},
	{"Dr. Maya Reddy", models.SpecOphthalmology, 11, 450},
	{"Dr. Arjun Desai", models.SpecPsychiatry, 9, 420},
	{"Dr. Ravi Kumar", models.SpecDental, 7, 380},
}

var weeklySlots = []models.AvailabilitySlot{
	{Day: "Monday", StartTime: "09:00", EndTime: "17:00"},
	{Day: "Tuesday", StartTime: "09:00", EndTime: "17:00"},
	{Day: "Wednesday", StartTime: "09:00", EndTime: "17:00"},
	{Day: "Thursday", StartTime: "09:00", EndTime: "17:00"},
	{Day: "Friday", StartTime: "09:00", EndTime: "17:00"},
	{Day: "Saturday", StartTime: "10:00", EndTime: "14:00"},
}

// Options controls a seeding run.
type Options struct {
	// Reset wipes every table before seeding.
	Reset bool
	// Rand drives ratings and review counts; nil uses the global source.
	Rand *rand.Rand
}

// Result counts the rows created by a run.
type Result struct {
	Doctors int
	Users   int
}

// DoctorEmail derives the login of a seeded doctor from their name,
// e.g. "Dr. Maya Reddy" becomes dr..maya.reddy@carenest.com.
func DoctorEmail(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), ".") + "@carenest.com"
}

// Run seeds the database. Accounts that already exist are skipped so the
// command can be repeated without Reset.
func Run(ctx context.Context, db *gorm.DB, log *zap.Logger, opts Options) (Result, error) {
	var res Result
	db = db.WithContext(ctx)

	if opts.Reset {
		if err := reset(db); err != nil {
			return res, err
		}
		log.Info("Cleared existing data")
	}

	for _, d := range doctors {
		created, err := seedDoctor(db, d, opts.Rand)
		if err != nil {
			return res, fmt.Errorf("seed doctor %q: %w", d.Name, err)
		}
		if !created {
			log.Debug("Doctor already exists, skipping", zap.String("name", d.Name))
			continue
		}
		res.Doctors++
		res.Users++
	}

	for _, u := range []struct {
		name, email, password string
		role                  models.Role
	}{
		{"Admin", AdminEmail, AdminPassword, models.RoleAdmin},
		{"John Patient", PatientEmail, PatientPassword, models.RolePatient},
	} {
		_, created, err := ensureUser(db, u.name, u.email, u.password, u.role)
		if err != nil {
			return res, fmt.Errorf("seed user %q: %w", u.email, err)
		}
		if created {
			res.Users++
		}
	}

	log.Info("Database seeded successfully",
		zap.Int("doctors", res.Doctors),
		zap.Int("users", res.Users),
	)
	return res, nil
}

func reset(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.Prescription{},
			&models.Appointment{},
			&models.Profile{},
			&models.Doctor{},
			&models.User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear %T: %w", model, err)
			}
		}
		return nil
	})
}

func ensureUser(db *gorm.DB, name, email, password string, role models.Role) (*models.User, bool, error) {
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	user := &models.User{Name: name, Email: email, Role: role, IsVerified: true}
	if err := user.SetPassword(password); err != nil {
		return nil, false, err
	}
	if err := db.Create(user).Error; err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func seedDoctor(db *gorm.DB, d doctorSeed, r *rand.Rand) (bool, error) {
	created := false
	err := db.Transaction(func(tx *gorm.DB) error {
		user, isNew, err := ensureUser(tx, d.Name, DoctorEmail(d.Name), DoctorPassword, models.RoleDoctor)
		if err != nil {
			return err
		}
		if !isNew {
			return nil
		}

		doctor := &models.Doctor{
			UserID:          user.ID,
			Name:            d.Name,
			Specialization:  d.Specialization,
			Experience:      d.Experience,
			ConsultationFee: d.Fee,
			Rating:          rating(r),
			ReviewCount:     10 + intN(r, 200),
			Qualifications:  []string{"MBBS", "MD", "Board Certified"},
			Bio: fmt.Sprintf("Experienced %s specialist with %d years of practice.",
				d.Specialization, d.Experience),
			AvailableSlots: append([]models.AvailabilitySlot(nil), weeklySlots...),
			IsAvailable:    true,
		}
		if err := tx.Create(doctor).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// rating is uniform in [4.0, 5.0] with one decimal.
func rating(r *rand.Rand) float64 {
	return 4 + float64(intN(r, 11))/10
}

func intN(r *rand.Rand, n int) int {
	if r == nil {
		return rand.IntN(n)
	}
	return r.IntN(n)
}
