package models

import (
	"regexp"
	"time"
)

// Gender values accepted on a profile; empty means not provided.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
	GenderUnset  Gender = ""
)

// Valid reports whether g is an accepted gender value.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnset:
		return true
	}
	return false
}

// PhonePattern is the accepted phone number shape, e.g. +(555) 123-4567.
var PhonePattern = regexp.MustCompile(`^[\+]?[(]?[0-9]{3}[)]?[-\s\.]?[0-9]{3}[-\s\.]?[0-9]{4,6}$`)

// MedicalHistoryEntry is one condition recorded on a patient profile.
type MedicalHistoryEntry struct {
	Condition string    `json:"condition"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes"`
}

// Profile holds patient demographics. One per user, created on first access.
type Profile struct {
	BaseModel
	UserID         string                `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	DateOfBirth    *time.Time            `json:"dateOfBirth"`
	Gender         Gender                `gorm:"size:10" json:"gender"`
	Phone          string                `gorm:"size:30" json:"phone"`
	Address        string                `gorm:"type:text" json:"address"`
	MedicalHistory []MedicalHistoryEntry `gorm:"type:text;serializer:json" json:"medicalHistory"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
