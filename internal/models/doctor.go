package models

// Specialization is the fixed set of practice areas a doctor can list under.
type Specialization string

const (
	SpecCardiology          Specialization = "Cardiology"
	SpecOrthopedic          Specialization = "Orthopedic"
	SpecDermatology         Specialization = "Dermatology"
	SpecPediatrics          Specialization = "Pediatrics"
	SpecPsychiatry          Specialization = "Psychiatry"
	SpecNeurology           Specialization = "Neurology"
	SpecGastroenterology    Specialization = "Gastroenterology"
	SpecOphthalmology       Specialization = "Ophthalmology"
	SpecGeneralPractitioner Specialization = "General Practitioner"
	SpecDental              Specialization = "Dental"
)

// Specializations lists every accepted specialization.
var Specializations = []Specialization{
	SpecCardiology,
	SpecOrthopedic,
	SpecDermatology,
	SpecPediatrics,
	SpecPsychiatry,
	SpecNeurology,
	SpecGastroenterology,
	SpecOphthalmology,
	SpecGeneralPractitioner,
	SpecDental,
}

// Valid reports whether s is a known specialization.
func (s Specialization) Valid() bool {
	for _, known := range Specializations {
		if s == known {
			return true
		}
	}
	return false
}

const (
	DefaultConsultationFee = 500
	DefaultRating          = 4.5
)

// AvailabilitySlot is a weekly working window, e.g. Monday 09:00-17:00.
type AvailabilitySlot struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Doctor is the professional profile attached 1:1 to a User with the doctor role.
type Doctor struct {
	BaseModel
	UserID          string             `gorm:"size:36;uniqueIndex;not null" json:"-"`
	Name            string             `gorm:"size:100;not null;index" json:"name"`
	Specialization  Specialization     `gorm:"size:50;not null;index" json:"specialization"`
	Experience      int                `gorm:"not null;default:0" json:"experience"`
	ConsultationFee float64            `gorm:"not null" json:"consultationFee"`
	Qualifications  []string           `gorm:"type:text;serializer:json" json:"qualifications"`
	Bio             string             `gorm:"type:text" json:"bio"`
	Photo           string             `gorm:"size:255" json:"photo,omitempty"`
	Rating          float64            `gorm:"default:4.5;index" json:"rating"`
	ReviewCount     int                `gorm:"default:0" json:"reviewCount"`
	AvailableSlots  []AvailabilitySlot `gorm:"type:text;serializer:json" json:"availableSlots"`
	IsAvailable     bool               `gorm:"default:true;index" json:"isAvailable"`
}
