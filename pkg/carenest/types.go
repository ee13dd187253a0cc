package carenest

import "time"

// These types mirror the JSON the server sends and accepts. They are kept
// separate from the server's storage models so the client can be imported
// from outside this module.

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// MinPasswordLength is enforced locally before a register call is sent.
const MinPasswordLength = 6

type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Avatar     string    `json:"avatar,omitempty"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type AvailabilitySlot struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type Doctor struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Specialization  string             `json:"specialization"`
	Experience      int                `json:"experience"`
	ConsultationFee float64            `json:"consultationFee"`
	Qualifications  []string           `json:"qualifications"`
	Bio             string             `json:"bio"`
	Photo           string             `json:"photo,omitempty"`
	Rating          float64            `json:"rating"`
	ReviewCount     int                `json:"reviewCount"`
	AvailableSlots  []AvailabilitySlot `json:"availableSlots"`
	IsAvailable     bool               `json:"isAvailable"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

type Appointment struct {
	ID                 string            `json:"id"`
	PatientID          string            `json:"patientId"`
	DoctorID           string            `json:"doctorId"`
	Date               string            `json:"date"`
	Time               string            `json:"time"`
	Status             AppointmentStatus `json:"status"`
	ConsultationFee    float64           `json:"consultationFee"`
	IsPaid             bool              `json:"isPaid"`
	Reason             string            `json:"reason"`
	Notes              string            `json:"notes"`
	CancellationReason string            `json:"cancellationReason"`
	PrescriptionID     *string           `json:"prescriptionId,omitempty"`
	Patient            *User             `json:"patient,omitempty"`
	Doctor             *Doctor           `json:"doctor,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// Medicine frequency is one of "Once daily", "Twice daily", "Thrice daily"
// or "As needed".
type Medicine struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

type Prescription struct {
	ID            string     `json:"id"`
	AppointmentID string     `json:"appointmentId"`
	PatientID     string     `json:"patientId"`
	DoctorID      string     `json:"doctorId"`
	Medicines     []Medicine `json:"medicines"`
	Diagnosis     string     `json:"diagnosis"`
	Instructions  string     `json:"instructions"`
	Date          time.Time  `json:"date"`
}

type MedicalHistoryEntry struct {
	Condition string    `json:"condition"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes"`
}

type Profile struct {
	ID             string                `json:"id"`
	UserID         string                `json:"userId"`
	DateOfBirth    *time.Time            `json:"dateOfBirth"`
	Gender         string                `json:"gender"`
	Phone          string                `json:"phone"`
	Address        string                `json:"address"`
	MedicalHistory []MedicalHistoryEntry `json:"medicalHistory"`
	User           *User                 `json:"user,omitempty"`
}

type RegisterRequest struct {
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	Role            Role     `json:"role,omitempty"`
	Specialization  string   `json:"specialization,omitempty"`
	Experience      int      `json:"experience,omitempty"`
	ConsultationFee *float64 `json:"consultationFee,omitempty"`
	Qualifications  []string `json:"qualifications,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type PrescriptionRequest struct {
	Medicines    []Medicine `json:"medicines"`
	Diagnosis    string     `json:"diagnosis"`
	Instructions string     `json:"instructions,omitempty"`
}

// UpdateDoctorRequest is a partial update; nil fields are left untouched.
type UpdateDoctorRequest struct {
	Bio             *string             `json:"bio,omitempty"`
	Photo           *string             `json:"photo,omitempty"`
	Experience      *int                `json:"experience,omitempty"`
	ConsultationFee *float64            `json:"consultationFee,omitempty"`
	Qualifications  *[]string           `json:"qualifications,omitempty"`
	AvailableSlots  *[]AvailabilitySlot `json:"availableSlots,omitempty"`
	IsAvailable     *bool               `json:"isAvailable,omitempty"`
}

// MedicalHistoryRequest takes its date as YYYY-MM-DD.
type MedicalHistoryRequest struct {
	Condition string `json:"condition"`
	Date      string `json:"date,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// UpdateProfileRequest is a partial update; an empty DateOfBirth clears it.
type UpdateProfileRequest struct {
	DateOfBirth    *string                  `json:"dateOfBirth,omitempty"`
	Gender         *string                  `json:"gender,omitempty"`
	Phone          *string                  `json:"phone,omitempty"`
	Address        *string                  `json:"address,omitempty"`
	MedicalHistory *[]MedicalHistoryRequest `json:"medicalHistory,omitempty"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	OTP      string `json:"otp,omitempty"`
}

type loginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
