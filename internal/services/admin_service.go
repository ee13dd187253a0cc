package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/models"
	"carenest-server/internal/utils"
)

// AdminService backs the /admin endpoints.
type AdminService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAdminService(db *gorm.DB, log *zap.Logger) *AdminService {
	return &AdminService{db: db, log: log}
}

// ListUsers returns every account, newest first.
func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.listUsers(ctx, "")
}

func (s *AdminService) ListPatients(ctx context.Context) ([]models.User, error) {
	return s.listUsers(ctx, models.RolePatient)
}

func (s *AdminService) listUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if role != "" {
		query = query.Where("role = ?", role)
	}
	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, utils.InternalError("Failed to fetch users", err)
	}
	return users, nil
}

// ListDoctors returns every doctor, including those not accepting bookings.
func (s *AdminService) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	var doctors []models.Doctor
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&doctors).Error; err != nil {
		return nil, utils.InternalError("Failed to fetch doctors", err)
	}
	return doctors, nil
}

func (s *AdminService) GetDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := s.db.WithContext(ctx).First(&doctor, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Doctor not found")
		}
		return nil, utils.InternalError("Failed to fetch doctor", err)
	}
	return &doctor, nil
}

// DeleteDoctor removes the doctor record together with its account.
// Past appointments are kept for the patients' history.
func (s *AdminService) DeleteDoctor(ctx context.Context, id string) error {
	doctor, err := s.GetDoctor(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Doctor{}, "id = ?", doctor.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Profile{}, "user_id = ?", doctor.UserID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", doctor.UserID).Error
	})
	if err != nil {
		return utils.InternalError("Failed to delete doctor", err)
	}

	s.log.Info("doctor deleted", zap.String("doctor_id", doctor.ID), zap.String("user_id", doctor.UserID))
	return nil
}

// DeleteUser removes an account and everything attached to it 1:1.
func (s *AdminService) DeleteUser(ctx context.Context, requesterID, userID string) error {
	if requesterID == userID {
		return utils.ValidationError("You cannot delete your own account")
	}

	db := s.db.WithContext(ctx)
	user, err := findUser(db, userID, "User not found")
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Doctor{}, "user_id = ?", user.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Profile{}, "user_id = ?", user.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", user.ID).Error
	})
	if err != nil {
		return utils.InternalError("Failed to delete user", err)
	}

	s.log.Info("user deleted", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return nil
}
