package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carenest-server/internal/middleware"
	"carenest-server/internal/models"
	"carenest-server/internal/services"
	"carenest-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Appointments *services.AppointmentService
	Log          *zap.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(appointments *services.AppointmentService, log *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{Appointments: appointments, Log: log}
}

// BookAppointment books a slot for the authenticated patient.
func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req services.BookAppointmentInput
	if !utils.BindJSON(c, &req) {
		return
	}

	appt, err := h.Appointments.Book(c.Request.Context(), userID, req)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Created(c, "Appointment booked successfully", appt)
}

func (h *AppointmentHandler) GetPatientAppointments(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	appts, err := h.Appointments.ListForPatient(c.Request.Context(), userID)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.SuccessList(c, "Patient appointments retrieved", appts, len(appts))
}

// GetDoctorAppointments lists the caller's own bookings, or those of the
// doctor named in the path when the caller is that doctor or an admin.
func (h *AppointmentHandler) GetDoctorAppointments(c *gin.Context) {
	user, _ := middleware.GetUserFromContext(c)
	ctx := c.Request.Context()

	var (
		appts []models.Appointment
		err   error
	)
	if doctorID := c.Param("doctorId"); doctorID != "" {
		appts, err = h.Appointments.ListForDoctor(ctx, user, doctorID)
	} else {
		appts, err = h.Appointments.ListForDoctorUser(ctx, user.ID)
	}
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.SuccessList(c, "Doctor appointments retrieved", appts, len(appts))
}

// GetAllAppointments is the admin listing.
func (h *AppointmentHandler) GetAllAppointments(c *gin.Context) {
	appts, err := h.Appointments.ListAll(c.Request.Context())
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.SuccessList(c, "Appointments retrieved successfully", appts, len(appts))
}

func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	user, _ := middleware.GetUserFromContext(c)

	appt, err := h.Appointments.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment retrieved successfully", appt)
}

func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req services.CancelAppointmentInput
	if !utils.BindOptionalJSON(c, &req) {
		return
	}

	appt, err := h.Appointments.Cancel(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", appt)
}

// UpdateAppointmentStatus is doctor only; ownership is checked by the service.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req services.UpdateStatusInput
	if !utils.BindJSON(c, &req) {
		return
	}

	appt, err := h.Appointments.UpdateStatus(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment status updated successfully", appt)
}

func (h *AppointmentHandler) AddPrescription(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req services.PrescriptionInput
	if !utils.BindJSON(c, &req) {
		return
	}

	prescription, err := h.Appointments.AddPrescription(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Created(c, "Prescription added successfully", prescription)
}

func (h *AppointmentHandler) GetPrescription(c *gin.Context) {
	user, _ := middleware.GetUserFromContext(c)

	prescription, err := h.Appointments.GetPrescription(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Prescription retrieved successfully", prescription)
}
