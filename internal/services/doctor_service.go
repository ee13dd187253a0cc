package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/models"
	"carenest-server/internal/utils"
)

// DoctorFilter narrows the public directory listing.
type DoctorFilter struct {
	Specialization string
	Search         string
}

// UpdateDoctorInput is a partial update of the caller's own doctor profile.
type UpdateDoctorInput struct {
	Bio             *string                    `json:"bio"`
	Photo           *string                    `json:"photo"`
	Experience      *int                       `json:"experience" label:"Experience" validate:"omitempty,gte=0,lte=70"`
	ConsultationFee *float64                   `json:"consultationFee" label:"Consultation fee" validate:"omitempty,gte=0"`
	Qualifications  *[]string                  `json:"qualifications"`
	AvailableSlots  *[]models.AvailabilitySlot `json:"availableSlots"`
	IsAvailable     *bool                      `json:"isAvailable"`
}

var weekdays = map[string]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

type DoctorService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewDoctorService(db *gorm.DB, log *zap.Logger) *DoctorService {
	return &DoctorService{db: db, log: log}
}

// escapeLike escapes LIKE wildcards using '!' as the escape character.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// List returns accepting doctors, best rated first.
func (s *DoctorService) List(ctx context.Context, filter DoctorFilter) ([]models.Doctor, error) {
	query := s.db.WithContext(ctx).Where("is_available = ?", true)

	if spec := strings.TrimSpace(filter.Specialization); spec != "" {
		query = query.Where("specialization = ?", spec)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where("(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(specialization) LIKE ? ESCAPE '!')", pattern, pattern)
	}

	var doctors []models.Doctor
	if err := query.Order("rating DESC").Order("name ASC").Find(&doctors).Error; err != nil {
		return nil, utils.InternalError("Failed to fetch doctors", err)
	}
	return doctors, nil
}

func (s *DoctorService) Get(ctx context.Context, id string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := s.db.WithContext(ctx).First(&doctor, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Doctor not found")
		}
		return nil, utils.InternalError("Failed to fetch doctor", err)
	}
	return &doctor, nil
}

// Specializations returns the distinct specializations in use, sorted.
func (s *DoctorService) Specializations(ctx context.Context) ([]string, error) {
	var specs []string
	err := s.db.WithContext(ctx).Model(&models.Doctor{}).
		Distinct("specialization").
		Pluck("specialization", &specs).Error
	if err != nil {
		return nil, utils.InternalError("Failed to fetch specializations", err)
	}
	sort.Strings(specs)
	return specs, nil
}

// GetByUser returns the doctor record of a doctor account.
func (s *DoctorService) GetByUser(ctx context.Context, userID string) (*models.Doctor, error) {
	return findDoctorByUser(s.db.WithContext(ctx), userID)
}

// UpdateOwn applies a partial update to the caller's doctor record.
func (s *DoctorService) UpdateOwn(ctx context.Context, userID string, in UpdateDoctorInput) (*models.Doctor, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	if in.AvailableSlots != nil {
		if err := validateSlots(*in.AvailableSlots); err != nil {
			return nil, err
		}
	}

	db := s.db.WithContext(ctx)
	doctor, err := findDoctorByUser(db, userID)
	if err != nil {
		return nil, err
	}

	if in.Bio != nil {
		doctor.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.Photo != nil {
		doctor.Photo = strings.TrimSpace(*in.Photo)
	}
	if in.Experience != nil {
		doctor.Experience = *in.Experience
	}
	if in.ConsultationFee != nil {
		doctor.ConsultationFee = *in.ConsultationFee
	}
	if in.Qualifications != nil {
		doctor.Qualifications = *in.Qualifications
	}
	if in.AvailableSlots != nil {
		doctor.AvailableSlots = *in.AvailableSlots
	}
	if in.IsAvailable != nil {
		doctor.IsAvailable = *in.IsAvailable
	}

	if err := db.Save(doctor).Error; err != nil {
		return nil, utils.InternalError("Failed to update doctor profile", err)
	}
	return doctor, nil
}

func validateSlots(slots []models.AvailabilitySlot) error {
	for _, slot := range slots {
		if !weekdays[slot.Day] {
			return utils.ValidationError("Invalid day %q", slot.Day)
		}
		start, err := time.Parse("15:04", slot.StartTime)
		if err != nil {
			return utils.ValidationError("Invalid start time %q", slot.StartTime)
		}
		end, err := time.Parse("15:04", slot.EndTime)
		if err != nil {
			return utils.ValidationError("Invalid end time %q", slot.EndTime)
		}
		if !start.Before(end) {
			return utils.ValidationError("Start time must be before end time on %s", slot.Day)
		}
	}
	return nil
}
