package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carenest-server/internal/middleware"
	"carenest-server/internal/services"
	"carenest-server/internal/utils"
)

// ProfileHandler handles patient profiles and their medical history.
type ProfileHandler struct {
	Profiles *services.ProfileService
	Log      *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles *services.ProfileService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles, Log: log}
}

// GetProfile returns the profile of :userId, creating it on first access.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	user, _ := middleware.GetUserFromContext(c)

	profile, err := h.Profiles.Get(c.Request.Context(), user, c.Param("userId"))
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Profile retrieved successfully", profile)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	user, _ := middleware.GetUserFromContext(c)

	var req services.UpdateProfileInput
	if !utils.BindJSON(c, &req) {
		return
	}

	profile, err := h.Profiles.Update(c.Request.Context(), user, c.Param("userId"), req)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Profile updated successfully", profile)
}

// AddMedicalHistory appends a condition to the profile's history.
func (h *ProfileHandler) AddMedicalHistory(c *gin.Context) {
	user, _ := middleware.GetUserFromContext(c)

	var req services.MedicalHistoryInput
	if !utils.BindJSON(c, &req) {
		return
	}

	profile, err := h.Profiles.AddMedicalHistory(c.Request.Context(), user, c.Param("userId"), req)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Created(c, "Medical history added successfully", profile)
}
