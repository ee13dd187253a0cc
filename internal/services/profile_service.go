package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/models"
	"carenest-server/internal/utils"
)

type MedicalHistoryInput struct {
	Condition string `json:"condition"`
	Date      string `json:"date"`
	Notes     string `json:"notes"`
}

// UpdateProfileInput is a partial update; nil fields are left untouched and
// an empty dateOfBirth clears it.
type UpdateProfileInput struct {
	DateOfBirth    *string                `json:"dateOfBirth"`
	Gender         *string                `json:"gender"`
	Phone          *string                `json:"phone"`
	Address        *string                `json:"address"`
	MedicalHistory *[]MedicalHistoryInput `json:"medicalHistory"`
}

type ProfileService struct {
	db  *gorm.DB
	log *zap.Logger
	now Clock
}

func NewProfileService(db *gorm.DB, log *zap.Logger) *ProfileService {
	return &ProfileService{db: db, log: log, now: time.Now}
}

func (s *ProfileService) SetClock(now Clock) { s.now = now }

// Get returns the profile of userID, creating an empty one on first access.
// Owners, doctors and admins may read it.
func (s *ProfileService) Get(ctx context.Context, requester *models.User, userID string) (*models.Profile, error) {
	if requester.ID != userID && requester.Role != models.RoleAdmin && requester.Role != models.RoleDoctor {
		return nil, utils.AuthorizationError("You can only view your own profile")
	}
	return s.load(ctx, userID)
}

// Update applies a partial update. Only the owner or an admin may write.
func (s *ProfileService) Update(ctx context.Context, requester *models.User, userID string, in UpdateProfileInput) (*models.Profile, error) {
	if err := canWriteProfile(requester, userID); err != nil {
		return nil, err
	}

	profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.DateOfBirth != nil {
		if strings.TrimSpace(*in.DateOfBirth) == "" {
			profile.DateOfBirth = nil
		} else {
			dob, ok := parseDate(*in.DateOfBirth)
			if !ok {
				return nil, utils.ValidationError("Invalid date of birth")
			}
			if dob.After(s.now()) {
				return nil, utils.ValidationError("Date of birth cannot be in the future")
			}
			profile.DateOfBirth = &dob
		}
	}
	if in.Gender != nil {
		gender := models.Gender(strings.ToLower(strings.TrimSpace(*in.Gender)))
		if !gender.Valid() {
			return nil, utils.ValidationError("Invalid gender")
		}
		profile.Gender = gender
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if phone != "" && !models.PhonePattern.MatchString(phone) {
			return nil, utils.ValidationError("Invalid phone number format")
		}
		profile.Phone = phone
	}
	if in.Address != nil {
		profile.Address = strings.TrimSpace(*in.Address)
	}
	if in.MedicalHistory != nil {
		history := make([]models.MedicalHistoryEntry, 0, len(*in.MedicalHistory))
		for _, h := range *in.MedicalHistory {
			entry, err := s.historyEntry(h)
			if err != nil {
				return nil, err
			}
			history = append(history, entry)
		}
		profile.MedicalHistory = history
	}

	if err := s.db.WithContext(ctx).Omit("User").Save(profile).Error; err != nil {
		return nil, utils.InternalError("Failed to update profile", err)
	}
	return profile, nil
}

// AddMedicalHistory appends one condition to the profile.
func (s *ProfileService) AddMedicalHistory(ctx context.Context, requester *models.User, userID string, in MedicalHistoryInput) (*models.Profile, error) {
	if strings.TrimSpace(in.Condition) == "" {
		return nil, utils.ValidationError("Medical condition is required")
	}
	if err := canWriteProfile(requester, userID); err != nil {
		return nil, err
	}

	entry, err := s.historyEntry(in)
	if err != nil {
		return nil, err
	}
	profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.MedicalHistory = append(profile.MedicalHistory, entry)

	if err := s.db.WithContext(ctx).Omit("User").Save(profile).Error; err != nil {
		return nil, utils.InternalError("Failed to add medical history", err)
	}
	return profile, nil
}

func (s *ProfileService) historyEntry(in MedicalHistoryInput) (models.MedicalHistoryEntry, error) {
	entry := models.MedicalHistoryEntry{
		Condition: strings.TrimSpace(in.Condition),
		Notes:     strings.TrimSpace(in.Notes),
		Date:      s.now(),
	}
	if entry.Condition == "" {
		return entry, utils.ValidationError("Medical condition is required")
	}
	if strings.TrimSpace(in.Date) != "" {
		date, ok := parseDate(in.Date)
		if !ok {
			return entry, utils.ValidationError("Invalid medical history date")
		}
		entry.Date = date
	}
	return entry, nil
}

func canWriteProfile(requester *models.User, userID string) error {
	if requester.ID != userID && requester.Role != models.RoleAdmin {
		return utils.AuthorizationError("You can only update your own profile")
	}
	return nil
}

// load fetches or lazily creates the profile. Two concurrent first reads
// race on the unique user_id index; the loser re-reads.
func (s *ProfileService) load(ctx context.Context, userID string) (*models.Profile, error) {
	db := s.db.WithContext(ctx)
	user, err := findUser(db, userID, "User not found")
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	err = db.First(&profile, "user_id = ?", userID).Error
	if isNotFound(err) {
		profile = models.Profile{UserID: userID, MedicalHistory: []models.MedicalHistoryEntry{}}
		err = db.Create(&profile).Error
		if isDuplicateKey(err) {
			err = db.First(&profile, "user_id = ?", userID).Error
		}
	}
	if err != nil {
		return nil, utils.InternalError("Failed to fetch profile", err)
	}
	if profile.MedicalHistory == nil {
		profile.MedicalHistory = []models.MedicalHistoryEntry{}
	}
	profile.User = user
	return &profile, nil
}
