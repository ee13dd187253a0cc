package models

import (
	"time"
)

// Frequency is how often a medicine is taken.
type Frequency string

const (
	FrequencyOnceDaily   Frequency = "Once daily"
	FrequencyTwiceDaily  Frequency = "Twice daily"
	FrequencyThriceDaily Frequency = "Thrice daily"
	FrequencyAsNeeded    Frequency = "As needed"
)

// Valid reports whether f is one of the accepted frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnceDaily, FrequencyTwiceDaily, FrequencyThriceDaily, FrequencyAsNeeded:
		return true
	}
	return false
}

// Medicine is a single line of a prescription.
type Medicine struct {
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage"`
	Frequency Frequency `json:"frequency"`
	Duration  string    `json:"duration"`
}

// Prescription is written once by the treating doctor for one appointment.
type Prescription struct {
	BaseModel
	AppointmentID string     `gorm:"size:36;uniqueIndex;not null" json:"appointmentId"`
	PatientID     string     `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID      string     `gorm:"size:36;index;not null" json:"doctorId"`
	Medicines     []Medicine `gorm:"type:text;serializer:json" json:"medicines"`
	Diagnosis     string     `gorm:"type:text;not null" json:"diagnosis"`
	Instructions  string     `gorm:"type:text" json:"instructions"`
	Date          time.Time  `json:"date"`
}
