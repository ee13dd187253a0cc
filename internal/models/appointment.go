package models

import (
	"fmt"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s belongs to the closed status set.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusBooked, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case StatusBooked:
		return next == StatusConfirmed || next == StatusCompleted || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

// DateLayout is the storage format of Appointment.Date.
const DateLayout = "2006-01-02"

// Appointment represents a booked consultation slot.
type Appointment struct {
	BaseModel
	PatientID          string            `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID           string            `gorm:"size:36;index;not null" json:"doctorId"`
	Date               string            `gorm:"size:10;index;not null" json:"date"`
	Time               string            `gorm:"size:20;not null" json:"time"`
	Status             AppointmentStatus `gorm:"size:20;default:'booked';index" json:"status"`
	ConsultationFee    float64           `gorm:"not null" json:"consultationFee"`
	IsPaid             bool              `gorm:"default:false" json:"isPaid"`
	Reason             string            `gorm:"type:text" json:"reason"`
	Notes              string            `gorm:"type:text" json:"notes"`
	CancellationReason string            `gorm:"type:text" json:"cancellationReason"`
	PrescriptionID     *string           `gorm:"size:36" json:"prescriptionId,omitempty"`

	// ActiveSlot is set while the booking holds its slot and NULL once
	// cancelled; the unique index makes the slot exclusive.
	ActiveSlot *string `gorm:"size:100;uniqueIndex" json:"-"`

	// Relations
	Patient *User   `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *Doctor `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

// SlotKey identifies a (doctor, date, time) slot.
func SlotKey(doctorID, date, slotTime string) string {
	return fmt.Sprintf("%s|%s|%s", doctorID, date, slotTime)
}

// HoldSlot marks the appointment as occupying its slot.
func (a *Appointment) HoldSlot() {
	key := SlotKey(a.DoctorID, a.Date, a.Time)
	a.ActiveSlot = &key
}

// ReleaseSlot frees the slot for other bookings.
func (a *Appointment) ReleaseSlot() {
	a.ActiveSlot = nil
}
