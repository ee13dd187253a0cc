package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carenest-server/internal/middleware"
	"carenest-server/internal/services"
	"carenest-server/internal/utils"
)

// DoctorHandler serves the public directory and the doctor's own profile.
type DoctorHandler struct {
	Doctors *services.DoctorService
	Log     *zap.Logger
}

func NewDoctorHandler(doctors *services.DoctorService, log *zap.Logger) *DoctorHandler {
	return &DoctorHandler{Doctors: doctors, Log: log}
}

// GetDoctors lists doctors accepting bookings.
// Query: ?specialization=Cardiology&search=john
func (h *DoctorHandler) GetDoctors(c *gin.Context) {
	doctors, err := h.Doctors.List(c.Request.Context(), services.DoctorFilter{
		Specialization: c.Query("specialization"),
		Search:         c.Query("search"),
	})
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.SuccessList(c, "Doctors retrieved successfully", doctors, len(doctors))
}

func (h *DoctorHandler) GetDoctorByID(c *gin.Context) {
	doctor, err := h.Doctors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Doctor retrieved successfully", doctor)
}

func (h *DoctorHandler) GetSpecializations(c *gin.Context) {
	specs, err := h.Doctors.Specializations(c.Request.Context())
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Specializations retrieved successfully", specs)
}

// GetMyProfile returns the doctor record of the caller.
func (h *DoctorHandler) GetMyProfile(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	doctor, err := h.Doctors.GetByUser(c.Request.Context(), userID)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Doctor profile retrieved successfully", doctor)
}

func (h *DoctorHandler) UpdateMyProfile(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req services.UpdateDoctorInput
	if !utils.BindJSON(c, &req) {
		return
	}

	doctor, err := h.Doctors.UpdateOwn(c.Request.Context(), userID, req)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Doctor profile updated successfully", doctor)
}
