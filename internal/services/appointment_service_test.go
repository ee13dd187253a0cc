package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carenest-server/internal/events"
	"carenest-server/internal/models"
	"carenest-server/internal/testutil"
	"carenest-server/internal/utils"
)

type bookingFixture struct {
	*fixture
	patient    *models.User
	other      *models.User
	admin      *models.User
	doctorUser *models.User
	doctor     *models.Doctor
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	f := newFixture(t)
	b := &bookingFixture{fixture: f}
	b.patient = testutil.CreateUser(t, f.db, "Pat", "pat@x.com", "secret1", models.RolePatient)
	b.other = testutil.CreateUser(t, f.db, "Other", "other@x.com", "secret1", models.RolePatient)
	b.admin = testutil.CreateUser(t, f.db, "Admin", "admin@x.com", "secret1", models.RoleAdmin)
	b.doctorUser, b.doctor = testutil.CreateDoctor(t, f.db, "Dr. Sarah Johnson", models.SpecCardiology, 1500)
	return b
}

func (b *bookingFixture) book(t *testing.T, date, slot string) *models.Appointment {
	t.Helper()
	appt, err := b.appointments.Book(context.Background(), b.patient.ID, BookAppointmentInput{
		DoctorID: b.doctor.ID, Date: date, Time: slot, Reason: "checkup",
	})
	require.NoError(t, err)
	return appt
}

func TestBookAppointment(t *testing.T) {
	b := newBookingFixture(t)

	appt := b.book(t, "2025-01-10", "10:00 AM")
	assert.Equal(t, models.StatusBooked, appt.Status)
	assert.Equal(t, 1500.0, appt.ConsultationFee)
	assert.Equal(t, "2025-01-10", appt.Date)
	assert.Equal(t, b.patient.ID, appt.PatientID)
	assert.Equal(t, []events.EventType{events.AppointmentBooked}, b.publisher.Types())

	// Later fee changes do not touch existing bookings.
	require.NoError(t, b.db.Model(b.doctor).Update("consultation_fee", 2000).Error)
	var stored models.Appointment
	require.NoError(t, b.db.First(&stored, "id = ?", appt.ID).Error)
	assert.Equal(t, 1500.0, stored.ConsultationFee)
}

func TestBookAppointmentValidation(t *testing.T) {
	b := newBookingFixture(t)
	ctx := context.Background()

	_, err := b.appointments.Book(ctx, b.patient.ID, BookAppointmentInput{DoctorID: b.doctor.ID, Date: "2025-01-10"})
	assertAppError(t, err, utils.KindValidation, "Please provide all required fields")

	_, err = b.appointments.Book(ctx, b.patient.ID, BookAppointmentInput{DoctorID: b.doctor.ID, Date: "10/01/2025", Time: "10:00 AM"})
	assertAppError(t, err, utils.KindValidation, "Invalid appointment date")

	_, err = b.appointments.Book(ctx, b.patient.ID, BookAppointmentInput{DoctorID: "missing", Date: "2025-01-10", Time: "10:00 AM"})
	assertAppError(t, err, utils.KindNotFound, "Doctor not found")

	require.NoError(t, b.db.Model(b.doctor).Update("is_available", false).Error)
	_, err = b.appointments.Book(ctx, b.patient.ID, BookAppointmentInput{DoctorID: b.doctor.ID, Date: "2025-01-10", Time: "10:00 AM"})
	assertAppError(t, err, utils.KindValidation, "Doctor is not accepting appointments")
}

func TestBookAppointmentNormalizesTimestampDate(t *testing.T) {
	b := newBookingFixture(t)
	appt := b.book(t, "2025-01-10T00:00:00Z", "10:00 AM")
	assert.Equal(t, "2025-01-10", appt.Date)

	_, err := b.appointments.Book(context.Background(), b.other.ID, BookAppointmentInput{
		DoctorID: b.doctor.ID, Date: "2025-01-10", Time: "10:00 AM",
	})
	assertAppError(t, err, utils.KindConflict, "This slot is already booked")
}

func TestSlotIsExclusiveUnderConcurrency(t *testing.T) {
	b := newBookingFixture(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.appointments.Book(ctx, b.patient.ID, BookAppointmentInput{
				DoctorID: b.doctor.ID, Date: "2025-01-10", Time: "10:00 AM",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case utils.KindOf(err) == utils.KindConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	var active int64
	require.NoError(t, b.db.Model(&models.Appointment{}).
		Where("doctor_id = ? AND date = ? AND time = ? AND status <> ?", b.doctor.ID, "2025-01-10", "10:00 AM", models.StatusCancelled).
		Count(&active).Error)
	assert.EqualValues(t, 1, active)
}

func TestCancelAppointment(t *testing.T) {
	b := newBookingFixture(t)
	ctx := context.Background()
	appt := b.book(t, "2025-01-10", "10:00 AM")

	_, err := b.appointments.Cancel(ctx, b.other.ID, appt.ID, CancelAppointmentInput{})
	assertAppError(t, err, utils.KindAuthorization, "You can only cancel your own appointments")

	_, err = b.appointments.Cancel(ctx, b.patient.ID, "missing", CancelAppointmentInput{})
	assertAppError(t, err, utils.KindNotFound, "Appointment not found")

	cancelled, err := b.appointments.Cancel(ctx, b.patient.ID, appt.ID, CancelAppointmentInput{Reason: "travel"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, "travel", cancelled.CancellationReason)

	_, err = b.appointments.Cancel(ctx, b.patient.ID, appt.ID, CancelAppointmentInput{})
	assertAppError(t, err, utils.KindValidation, "Appointment is already cancelled")

	// The slot is free again.
	again, err := b.appointments.Book(ctx, b.other.ID, BookAppointmentInput{
		DoctorID: b.doctor.ID, Date: "2025-01-10", Time: "10:00 AM",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusBooked, again.Status)

	assert.Equal(t, []events.EventType{
		events.AppointmentBooked,
		events.AppointmentCancelled,
		events.AppointmentBooked,
	}, b.publisher.Types())
}

func TestCancelCompletedAppointment(t *testing.T) {
	b := newBookingFixture(t)
	ctx := context.Background()
	appt := b.book(t, "2025-01-10", "10:00 AM")

	_, err := b.appointments.UpdateStatus(ctx, b.doctorUser.ID, appt.ID, UpdateStatusInput{Status: "completed"})
	require.NoError(t, err)

	_, err = b.appointments.Cancel(ctx, b.patient.ID, appt.ID, CancelAppointmentInput{})
	assertAppError(t, err, utils.KindValidation, "Cannot cancel completed appointment")
}

func TestUpdateStatus(t *testing.T) {
	b := newBookingFixture(t)
	ctx := context.Background()
	appt := b.book(t, "2025-01-10", "10:00 AM")
	otherDoctorUser, _ := testutil.CreateDoctor(t, b.db, "Dr. Michael Chen", models.SpecOrthopedic, 1200)

	_, err := b.appointments.UpdateStatus(ctx, b.doctorUser.ID, appt.ID, UpdateStatusInput{Status: "no-show"})
	assertAppError(t, err, utils.KindValidation, "Invalid status")

	_, err = b.appointments.UpdateStatus(ctx, b.doctorUser.ID, appt.ID, UpdateStatusInput{Status: "booked"})
	assertAppError(t, err, utils.KindValidation, "Invalid status")

	_, err = b.appointments.UpdateStatus(ctx, otherDoctorUser.ID, appt.ID, UpdateStatusInput{Status: "confirmed"})
	assertAppError(t, err, utils.KindAuthorization, "You can only update your own appointments")

	updated, err := b.appointments.UpdateStatus(ctx, b.doctorUser.ID, appt.ID, UpdateStatusInput{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)

	_, err = b.appointments.UpdateStatus(ctx, b.doctorUser.ID, appt.ID, UpdateStatusInput{Status: "confirmed"})
	assertAppError(t, err, utils.KindValidation, "Appointment is already confirmed")

	_, err = b.appointments.UpdateStatus(ctx, b.doctorUser.ID, appt.ID, UpdateStatusInput{Status: "completed"})
	require.NoError(t, err)

	for _, next := range []string{"confirmed", "cancelled"} {
		_, err = b.appointments.UpdateStatus(ctx, b.doctorUser.ID, appt.ID, UpdateStatusInput{Status: next})
		assertAppError(t, err, utils.KindValidation, "Cannot change appointment status from completed to "+next)
	}
}

func TestDoctorCancellationReleasesSlot(t *testing.T) {
	b := newBookingFixture(t)
	ctx := context.Background()
	appt := b.book(t, "2025-01-10", "10:00 AM")

	_, err := b.appointments.UpdateStatus(ctx, b.doctorUser.ID, appt.ID, UpdateStatusInput{Status: "cancelled"})
	require.NoError(t, err)

	var stored models.Appointment
	require.NoError(t, b.db.First(&stored, "id = ?", appt.ID).Error)
	assert.Nil(t, stored.ActiveSlot)

	b.book(t, "2025-01-10", "10:00 AM")
}

func TestAddPrescription(t *testing.T) {
	b := newBookingFixture(t)
	ctx := context.Background()
	appt := b.book(t, "2025-01-10", "10:00 AM")
	otherDoctorUser, _ := testutil.CreateDoctor(t, b.db, "Dr. Michael Chen", models.SpecOrthopedic, 1200)

	input := PrescriptionInput{
		Medicines: []MedicineInput{{Name: "Aspirin", Dosage: "75mg", Frequency: "Once daily", Duration: "30 days"}},
		Diagnosis: "Hypertension",
	}

	_, err := b.appointments.AddPrescription(ctx, otherDoctorUser.ID, appt.ID, input)
	assertAppError(t, err, utils.KindAuthorization, "You can only add prescriptions to your own appointments")

	_, err = b.appointments.AddPrescription(ctx, b.doctorUser.ID, appt.ID, PrescriptionInput{Diagnosis: "Hypertension"})
	assertAppError(t, err, utils.KindValidation, "Please add at least one medicine")

	_, err = b.appointments.AddPrescription(ctx, b.doctorUser.ID, appt.ID, PrescriptionInput{
		Medicines: []MedicineInput{{Name: "Aspirin", Dosage: "75mg", Frequency: "Hourly", Duration: "30 days"}},
		Diagnosis: "Hypertension",
	})
	assertAppError(t, err, utils.KindValidation, "Invalid frequency for Aspirin")

	_, err = b.appointments.AddPrescription(ctx, b.doctorUser.ID, appt.ID, PrescriptionInput{Medicines: input.Medicines})
	assertAppError(t, err, utils.KindValidation, "Diagnosis is required")

	prescription, err := b.appointments.AddPrescription(ctx, b.doctorUser.ID, appt.ID, input)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, prescription.AppointmentID)
	assert.Equal(t, b.patient.ID, prescription.PatientID)

	var stored models.Appointment
	require.NoError(t, b.db.First(&stored, "id = ?", appt.ID).Error)
	require.NotNil(t, stored.PrescriptionID)
	assert.Equal(t, prescription.ID, *stored.PrescriptionID)

	_, err = b.appointments.AddPrescription(ctx, b.doctorUser.ID, appt.ID, input)
	assertAppError(t, err, utils.KindConflict, "Prescription already exists for this appointment")

	got, err := b.appointments.GetPrescription(ctx, b.patient, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hypertension", got.Diagnosis)
	assert.Equal(t, models.FrequencyOnceDaily, got.Medicines[0].Frequency)
}

func TestAddPrescriptionToCancelledAppointment(t *testing.T) {
	b := newBookingFixture(t)
	ctx := context.Background()
	appt := b.book(t, "2025-01-10", "10:00 AM")
	_, err := b.appointments.Cancel(ctx, b.patient.ID, appt.ID, CancelAppointmentInput{})
	require.NoError(t, err)

	_, err = b.appointments.AddPrescription(ctx, b.doctorUser.ID, appt.ID, PrescriptionInput{
		Medicines: []MedicineInput{{Name: "Aspirin", Dosage: "75mg", Frequency: "Once daily", Duration: "30 days"}},
		Diagnosis: "Hypertension",
	})
	assertAppError(t, err, utils.KindValidation, "Cannot add prescription to a cancelled appointment")
}

func TestAppointmentReads(t *testing.T) {
	b := newBookingFixture(t)
	ctx := context.Background()
	first := b.book(t, "2025-01-10", "10:00 AM")
	second := b.book(t, "2025-02-01", "09:00 AM")
	otherDoctorUser, otherDoctor := testutil.CreateDoctor(t, b.db, "Dr. Michael Chen", models.SpecOrthopedic, 1200)

	mine, err := b.appointments.ListForPatient(ctx, b.patient.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	require.NotNil(t, mine[0].Doctor)
	assert.Equal(t, "Dr. Sarah Johnson", mine[0].Doctor.Name)

	theirs, err := b.appointments.ListForPatient(ctx, b.other.ID)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	forDoctor, err := b.appointments.ListForDoctorUser(ctx, b.doctorUser.ID)
	require.NoError(t, err)
	require.Len(t, forDoctor, 2)
	require.NotNil(t, forDoctor[0].Patient)
	assert.Equal(t, "Pat", forDoctor[0].Patient.Name)

	_, err = b.appointments.ListForDoctor(ctx, otherDoctorUser, b.doctor.ID)
	assertAppError(t, err, utils.KindAuthorization, "You can only view your own appointments")
	_, err = b.appointments.ListForDoctor(ctx, b.patient, b.doctor.ID)
	assertAppError(t, err, utils.KindAuthorization, "You can only view your own appointments")
	byAdmin, err := b.appointments.ListForDoctor(ctx, b.admin, b.doctor.ID)
	require.NoError(t, err)
	assert.Len(t, byAdmin, 2)
	empty, err := b.appointments.ListForDoctor(ctx, otherDoctorUser, otherDoctor.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	all, err := b.appointments.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := b.appointments.Get(ctx, b.patient, first.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Doctor)
	assert.NotNil(t, got.Patient)
	_, err = b.appointments.Get(ctx, b.doctorUser, first.ID)
	assert.NoError(t, err)
	_, err = b.appointments.Get(ctx, b.admin, first.ID)
	assert.NoError(t, err)
	_, err = b.appointments.Get(ctx, b.other, first.ID)
	assertAppError(t, err, utils.KindAuthorization, "You are not authorized to view this appointment")
	_, err = b.appointments.Get(ctx, otherDoctorUser, first.ID)
	assertAppError(t, err, utils.KindAuthorization, "You are not authorized to view this appointment")

	_, err = b.appointments.GetPrescription(ctx, b.patient, first.ID)
	assertAppError(t, err, utils.KindNotFound, "Prescription not found")
}

func TestDoctorReadsOwnBookingAsPatient(t *testing.T) {
	b := newBookingFixture(t)
	ctx := context.Background()
	chenUser, _ := testutil.CreateDoctor(t, b.db, "Dr. Michael Chen", models.SpecOrthopedic, 1200)

	appt, err := b.appointments.Book(ctx, chenUser.ID, BookAppointmentInput{
		DoctorID: b.doctor.ID, Date: "2025-01-10", Time: "10:00 AM", Reason: "checkup",
	})
	require.NoError(t, err)

	got, err := b.appointments.Get(ctx, chenUser, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, chenUser.ID, got.PatientID)

	_, err = b.appointments.AddPrescription(ctx, b.doctorUser.ID, appt.ID, PrescriptionInput{
		Medicines: []MedicineInput{{Name: "Ibuprofen", Dosage: "200mg", Frequency: "Twice daily", Duration: "5 days"}},
		Diagnosis: "Back pain",
	})
	require.NoError(t, err)

	rx, err := b.appointments.GetPrescription(ctx, chenUser, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Back pain", rx.Diagnosis)

	_, err = b.appointments.Get(ctx, b.other, appt.ID)
	assertAppError(t, err, utils.KindAuthorization, "You are not authorized to view this appointment")
}
