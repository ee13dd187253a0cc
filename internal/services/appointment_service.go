package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/events"
	"carenest-server/internal/models"
	"carenest-server/internal/utils"
)

const publishTimeout = 3 * time.Second

type BookAppointmentInput struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Reason   string `json:"reason"`
}

type CancelAppointmentInput struct {
	Reason string `json:"reason"`
}

type UpdateStatusInput struct {
	Status string `json:"status"`
}

type MedicineInput struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

type PrescriptionInput struct {
	Medicines    []MedicineInput `json:"medicines"`
	Diagnosis    string          `json:"diagnosis"`
	Instructions string          `json:"instructions"`
}

// AppointmentService owns the booking lifecycle. Slot exclusivity rests on
// the unique active_slot index; the pre-check only produces a nicer error.
type AppointmentService struct {
	db        *gorm.DB
	publisher events.Publisher
	log       *zap.Logger
	now       Clock
}

func NewAppointmentService(db *gorm.DB, publisher events.Publisher, log *zap.Logger) *AppointmentService {
	return &AppointmentService{db: db, publisher: publisher, log: log, now: time.Now}
}

func (s *AppointmentService) SetClock(now Clock) { s.now = now }

// Book reserves a slot with the doctor's current fee.
func (s *AppointmentService) Book(ctx context.Context, patientID string, in BookAppointmentInput) (*models.Appointment, error) {
	in.DoctorID = strings.TrimSpace(in.DoctorID)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	if in.DoctorID == "" || in.Date == "" || in.Time == "" {
		return nil, utils.ValidationError("Please provide all required fields")
	}
	date, ok := parseDate(in.Date)
	if !ok {
		return nil, utils.ValidationError("Invalid appointment date")
	}

	db := s.db.WithContext(ctx)
	var doctor models.Doctor
	if err := db.First(&doctor, "id = ?", in.DoctorID).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Doctor not found")
		}
		return nil, utils.InternalError("Failed to fetch doctor", err)
	}
	if !doctor.IsAvailable {
		return nil, utils.ValidationError("Doctor is not accepting appointments")
	}

	appt := &models.Appointment{
		PatientID:       patientID,
		DoctorID:        doctor.ID,
		Date:            date.Format(models.DateLayout),
		Time:            in.Time,
		Status:          models.StatusBooked,
		ConsultationFee: doctor.ConsultationFee,
		Reason:          strings.TrimSpace(in.Reason),
	}
	appt.HoldSlot()

	var taken int64
	if err := db.Model(&models.Appointment{}).Where("active_slot = ?", *appt.ActiveSlot).Count(&taken).Error; err != nil {
		return nil, utils.InternalError("Failed to check slot", err)
	}
	if taken > 0 {
		return nil, utils.ConflictError("This slot is already booked")
	}

	if err := db.Create(appt).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, utils.ConflictError("This slot is already booked")
		}
		return nil, utils.InternalError("Failed to book appointment", err)
	}

	s.publish(ctx, events.AppointmentBooked, appt)
	return appt, nil
}

// Cancel lets a patient cancel their own non-terminal appointment and frees
// the slot.
func (s *AppointmentService) Cancel(ctx context.Context, patientID, id string, in CancelAppointmentInput) (*models.Appointment, error) {
	db := s.db.WithContext(ctx)
	appt, err := s.find(db, id)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != patientID {
		return nil, utils.AuthorizationError("You can only cancel your own appointments")
	}
	switch appt.Status {
	case models.StatusCancelled:
		return nil, utils.ValidationError("Appointment is already cancelled")
	case models.StatusCompleted:
		return nil, utils.ValidationError("Cannot cancel completed appointment")
	}

	if err := s.transition(db, appt, models.StatusCancelled, strings.TrimSpace(in.Reason)); err != nil {
		return nil, err
	}
	s.publish(ctx, events.AppointmentCancelled, appt)
	return appt, nil
}

// UpdateStatus moves one of the calling doctor's appointments forward.
func (s *AppointmentService) UpdateStatus(ctx context.Context, doctorUserID, id string, in UpdateStatusInput) (*models.Appointment, error) {
	next := models.AppointmentStatus(strings.TrimSpace(in.Status))
	if !next.Valid() || next == models.StatusBooked {
		return nil, utils.ValidationError("Invalid status")
	}

	db := s.db.WithContext(ctx)
	doctor, err := findDoctorByUser(db, doctorUserID)
	if err != nil {
		return nil, err
	}
	appt, err := s.find(db, id)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctor.ID {
		return nil, utils.AuthorizationError("You can only update your own appointments")
	}
	if !appt.Status.CanTransitionTo(next) {
		if appt.Status == next {
			return nil, utils.ValidationError("Appointment is already %s", next)
		}
		return nil, utils.ValidationError("Cannot change appointment status from %s to %s", appt.Status, next)
	}

	if err := s.transition(db, appt, next, ""); err != nil {
		return nil, err
	}
	if next == models.StatusCancelled {
		s.publish(ctx, events.AppointmentCancelled, appt)
	} else {
		s.publish(ctx, events.AppointmentStatusChanged, appt)
	}
	return appt, nil
}

// transition writes the new status only if nobody changed it since it was
// read, so two concurrent updates cannot both succeed.
func (s *AppointmentService) transition(db *gorm.DB, appt *models.Appointment, next models.AppointmentStatus, reason string) error {
	updates := map[string]any{
		"status":     next,
		"updated_at": s.now(),
	}
	if next == models.StatusCancelled {
		updates["active_slot"] = nil
		updates["cancellation_reason"] = reason
	}

	res := db.Model(&models.Appointment{}).
		Where("id = ? AND status = ?", appt.ID, appt.Status).
		Updates(updates)
	if res.Error != nil {
		return utils.InternalError("Failed to update appointment", res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.ConflictError("Appointment was modified, please try again")
	}

	appt.Status = next
	appt.UpdatedAt = updates["updated_at"].(time.Time)
	if next == models.StatusCancelled {
		appt.ReleaseSlot()
		appt.CancellationReason = reason
	}
	return nil
}

// AddPrescription attaches the single prescription of an appointment.
func (s *AppointmentService) AddPrescription(ctx context.Context, doctorUserID, id string, in PrescriptionInput) (*models.Prescription, error) {
	db := s.db.WithContext(ctx)
	doctor, err := findDoctorByUser(db, doctorUserID)
	if err != nil {
		return nil, err
	}
	appt, err := s.find(db, id)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctor.ID {
		return nil, utils.AuthorizationError("You can only add prescriptions to your own appointments")
	}

	medicines, err := validateMedicines(in.Medicines)
	if err != nil {
		return nil, err
	}
	diagnosis := strings.TrimSpace(in.Diagnosis)
	if diagnosis == "" {
		return nil, utils.ValidationError("Diagnosis is required")
	}
	if appt.Status == models.StatusCancelled {
		return nil, utils.ValidationError("Cannot add prescription to a cancelled appointment")
	}
	if appt.PrescriptionID != nil {
		return nil, utils.ConflictError("Prescription already exists for this appointment")
	}

	prescription := &models.Prescription{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		Medicines:     medicines,
		Diagnosis:     diagnosis,
		Instructions:  strings.TrimSpace(in.Instructions),
		Date:          s.now(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(prescription).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Appointment{}).
			Where("id = ? AND prescription_id IS NULL", appt.ID).
			Update("prescription_id", prescription.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrDuplicatedKey
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, utils.ConflictError("Prescription already exists for this appointment")
		}
		return nil, utils.InternalError("Failed to add prescription", err)
	}

	appt.PrescriptionID = &prescription.ID
	s.publish(ctx, events.AppointmentPrescriptionAdded, appt)
	return prescription, nil
}

func validateMedicines(in []MedicineInput) ([]models.Medicine, error) {
	if len(in) == 0 {
		return nil, utils.ValidationError("Please add at least one medicine")
	}
	medicines := make([]models.Medicine, 0, len(in))
	for i, m := range in {
		med := models.Medicine{
			Name:      strings.TrimSpace(m.Name),
			Dosage:    strings.TrimSpace(m.Dosage),
			Frequency: models.Frequency(strings.TrimSpace(m.Frequency)),
			Duration:  strings.TrimSpace(m.Duration),
		}
		if med.Name == "" || med.Dosage == "" || med.Duration == "" {
			return nil, utils.ValidationError("Medicine %d is missing name, dosage or duration", i+1)
		}
		if !med.Frequency.Valid() {
			return nil, utils.ValidationError("Invalid frequency for %s", med.Name)
		}
		medicines = append(medicines, med)
	}
	return medicines, nil
}

// ListForPatient returns the patient's appointments, newest first.
func (s *AppointmentService) ListForPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Preload("Doctor").
		Where("patient_id = ?", patientID).
		Order("date DESC").Order("time DESC").
		Find(&appts).Error
	if err != nil {
		return nil, utils.InternalError("Failed to fetch appointments", err)
	}
	return appts, nil
}

// ListForDoctorUser returns the appointments of the calling doctor.
func (s *AppointmentService) ListForDoctorUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	doctor, err := findDoctorByUser(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return s.listForDoctor(ctx, doctor.ID)
}

// ListForDoctor returns a doctor's appointments to that doctor or an admin.
func (s *AppointmentService) ListForDoctor(ctx context.Context, requester *models.User, doctorID string) ([]models.Appointment, error) {
	if requester.Role != models.RoleAdmin {
		if requester.Role != models.RoleDoctor {
			return nil, utils.AuthorizationError("You can only view your own appointments")
		}
		doctor, err := findDoctorByUser(s.db.WithContext(ctx), requester.ID)
		if err != nil {
			return nil, err
		}
		if doctor.ID != doctorID {
			return nil, utils.AuthorizationError("You can only view your own appointments")
		}
	}
	return s.listForDoctor(ctx, doctorID)
}

func (s *AppointmentService) listForDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Preload("Patient").
		Where("doctor_id = ?", doctorID).
		Order("date DESC").Order("time DESC").
		Find(&appts).Error
	if err != nil {
		return nil, utils.InternalError("Failed to fetch appointments", err)
	}
	return appts, nil
}

// ListAll is the admin view of every appointment.
func (s *AppointmentService) ListAll(ctx context.Context) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Preload("Patient").Preload("Doctor").
		Order("date DESC").Order("time DESC").
		Find(&appts).Error
	if err != nil {
		return nil, utils.InternalError("Failed to fetch appointments", err)
	}
	return appts, nil
}

// Get returns one appointment to its patient, its doctor or an admin.
func (s *AppointmentService) Get(ctx context.Context, requester *models.User, id string) (*models.Appointment, error) {
	db := s.db.WithContext(ctx)
	var appt models.Appointment
	if err := db.Preload("Patient").Preload("Doctor").First(&appt, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Appointment not found")
		}
		return nil, utils.InternalError("Failed to fetch appointment", err)
	}
	if err := s.checkReadAccess(db, requester, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// checkReadAccess lets the booking patient in whatever their role, since
// doctors and admins can book for themselves too.
func (s *AppointmentService) checkReadAccess(db *gorm.DB, requester *models.User, appt *models.Appointment) error {
	if appt.PatientID == requester.ID {
		return nil
	}
	switch requester.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleDoctor:
		doctor, err := findDoctorByUser(db, requester.ID)
		if err == nil && doctor.ID == appt.DoctorID {
			return nil
		}
		if err != nil && utils.KindOf(err) != utils.KindNotFound {
			return err
		}
	}
	return utils.AuthorizationError("You are not authorized to view this appointment")
}

// GetPrescription returns the prescription of an appointment visible to the
// requester.
func (s *AppointmentService) GetPrescription(ctx context.Context, requester *models.User, appointmentID string) (*models.Prescription, error) {
	appt, err := s.Get(ctx, requester, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PrescriptionID == nil {
		return nil, utils.NotFoundError("Prescription not found")
	}

	var prescription models.Prescription
	if err := s.db.WithContext(ctx).First(&prescription, "id = ?", *appt.PrescriptionID).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Prescription not found")
		}
		return nil, utils.InternalError("Failed to fetch prescription", err)
	}
	return &prescription, nil
}

func (s *AppointmentService) find(db *gorm.DB, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := db.First(&appt, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Appointment not found")
		}
		return nil, utils.InternalError("Failed to fetch appointment", err)
	}
	return &appt, nil
}

// publish never fails the request; a broker outage is only logged.
func (s *AppointmentService) publish(ctx context.Context, typ events.EventType, appt *models.Appointment) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := s.publisher.Publish(ctx, EventFor(typ, appt, s.now()))
	if err != nil {
		s.log.Warn("failed to publish appointment event",
			zap.String("type", string(typ)),
			zap.String("appointment_id", appt.ID),
			zap.Error(err),
		)
	}
}

// EventFor builds the event payload for appt.
func EventFor(typ events.EventType, appt *models.Appointment, at time.Time) events.AppointmentEvent {
	return events.AppointmentEvent{
		Type:          typ,
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		Date:          appt.Date,
		Time:          appt.Time,
		Status:        string(appt.Status),
		OccurredAt:    at,
	}
}
