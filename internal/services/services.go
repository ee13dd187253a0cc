// Package services holds the CareNest business rules. Every method takes the
// request context, talks to gorm and returns *utils.AppError values for
// anything the caller did wrong.
package services

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"carenest-server/internal/models"
	"carenest-server/internal/utils"
)

// MinPasswordLength applies to every endpoint that accepts a new password.
const MinPasswordLength = 6

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkNewPassword runs the confirmation and length checks that must pass
// before any hashing happens.
func checkNewPassword(password, confirm, mismatch string) error {
	if password != confirm {
		return utils.ValidationError("%s", mismatch)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return utils.ValidationError("Password must be at least %d characters long", MinPasswordLength)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicateKey recognises unique index violations. TranslateError covers
// the mysql and postgres dialectors; the message checks cover drivers that
// return raw errors.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

// findUser loads a user by id, mapping a miss to NotFoundError(msg).
func findUser(db *gorm.DB, id, msg string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("%s", msg)
		}
		return nil, utils.InternalError("Failed to fetch user", err)
	}
	return &user, nil
}

// findDoctorByUser loads the Doctor row owned by a doctor account.
func findDoctorByUser(db *gorm.DB, userID string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := db.First(&doctor, "user_id = ?", userID).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Doctor profile not found")
		}
		return nil, utils.InternalError("Failed to fetch doctor profile", err)
	}
	return &doctor, nil
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(models.DateLayout, value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
