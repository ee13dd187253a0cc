package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carenest-server/internal/middleware"
	"carenest-server/internal/models"
	"carenest-server/internal/services"
	"carenest-server/internal/utils"
)

// AdminHandler serves the admin-only listings and deletions.
// Every route is behind RequireRole(admin).
type AdminHandler struct {
	Admin *services.AdminService
	Log   *zap.Logger
}

func NewAdminHandler(admin *services.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{Admin: admin, Log: log}
}

// GetUsers handles fetching all users, newest first.
func (h *AdminHandler) GetUsers(c *gin.Context) {
	users, err := h.Admin.ListUsers(c.Request.Context())
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.SuccessList(c, "Users retrieved successfully", models.SanitizeUsers(users), len(users))
}

func (h *AdminHandler) GetPatients(c *gin.Context) {
	patients, err := h.Admin.ListPatients(c.Request.Context())
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.SuccessList(c, "Patients retrieved successfully", models.SanitizeUsers(patients), len(patients))
}

func (h *AdminHandler) GetDoctors(c *gin.Context) {
	doctors, err := h.Admin.ListDoctors(c.Request.Context())
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.SuccessList(c, "Doctors retrieved successfully", doctors, len(doctors))
}

func (h *AdminHandler) GetDoctorByID(c *gin.Context) {
	doctor, err := h.Admin.GetDoctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Doctor retrieved successfully", doctor)
}

// DeleteDoctor removes a doctor and the account behind it.
func (h *AdminHandler) DeleteDoctor(c *gin.Context) {
	if err := h.Admin.DeleteDoctor(c.Request.Context(), c.Param("id")); err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Doctor deleted successfully", nil)
}

// DeleteUser handles deleting a user. Admins cannot delete themselves.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	adminID, _ := middleware.GetUserIDFromContext(c)

	if err := h.Admin.DeleteUser(c.Request.Context(), adminID, c.Param("id")); err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "User deleted successfully", nil)
}
