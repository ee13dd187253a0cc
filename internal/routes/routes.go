package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/config"
	"carenest-server/internal/events"
	"carenest-server/internal/handlers"
	"carenest-server/internal/mailer"
	"carenest-server/internal/middleware"
	"carenest-server/internal/models"
	"carenest-server/internal/services"
	"carenest-server/internal/throttle"
)

// Deps are the shared clients the routes are built from.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Log       *zap.Logger
	Mailer    mailer.Mailer
	Limiter   throttle.Limiter
	Publisher events.Publisher

	// Clock overrides time.Now in the services when set.
	Clock services.Clock
}

// NewRouter builds the gin engine with the global middleware and all routes.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Log))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{deps.Config.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	SetupRoutes(router, deps)
	return router
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Deps) {
	db, cfg, log := deps.DB, deps.Config, deps.Log

	// Initialize services
	authService := services.NewAuthService(db, cfg, deps.Mailer, deps.Limiter, log)
	passwordService := services.NewPasswordService(db, cfg, deps.Mailer, deps.Limiter, log)
	doctorService := services.NewDoctorService(db, log)
	appointmentService := services.NewAppointmentService(db, deps.Publisher, log)
	profileService := services.NewProfileService(db, log)
	adminService := services.NewAdminService(db, log)
	if deps.Clock != nil {
		authService.SetClock(deps.Clock)
		passwordService.SetClock(deps.Clock)
		appointmentService.SetClock(deps.Clock)
		profileService.SetClock(deps.Clock)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, log)
	passwordHandler := handlers.NewPasswordHandler(passwordService, log)
	doctorHandler := handlers.NewDoctorHandler(doctorService, log)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService, log)
	profileHandler := handlers.NewProfileHandler(profileService, log)
	adminHandler := handlers.NewAdminHandler(adminService, log)

	auth := middleware.AuthMiddleware(db, cfg, log)
	doctorOnly := middleware.RequireRole(models.RoleDoctor)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	api := router.Group("/api")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/verify-otp", authHandler.VerifyOTP)
		authRoutes.POST("/otp-verification", authHandler.VerifyOTP)
		authRoutes.POST("/resend-otp", authHandler.ResendOTP)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", auth, authHandler.Me)
	}

	passwordRoutes := api.Group("/password")
	{
		passwordRoutes.POST("/forgot-password", passwordHandler.ForgotPassword)
		passwordRoutes.POST("/reset-password", passwordHandler.ResetPassword)
		passwordRoutes.POST("/change-password", auth, passwordHandler.ChangePassword)
	}

	// Public directory; /me must be registered before /:id wins the match.
	doctorRoutes := api.Group("/doctors")
	{
		doctorRoutes.GET("", doctorHandler.GetDoctors)
		doctorRoutes.GET("/specializations", doctorHandler.GetSpecializations)
		doctorRoutes.GET("/me", auth, doctorOnly, doctorHandler.GetMyProfile)
		doctorRoutes.PUT("/me", auth, doctorOnly, doctorHandler.UpdateMyProfile)
		doctorRoutes.GET("/:id", doctorHandler.GetDoctorByID)
	}

	appointmentRoutes := api.Group("/appointments")
	appointmentRoutes.Use(auth)
	{
		appointmentRoutes.POST("", appointmentHandler.BookAppointment)
		appointmentRoutes.GET("", adminOnly, appointmentHandler.GetAllAppointments)
		appointmentRoutes.GET("/patient", appointmentHandler.GetPatientAppointments)
		appointmentRoutes.GET("/doctor", doctorOnly, appointmentHandler.GetDoctorAppointments)
		appointmentRoutes.GET("/doctor/:doctorId", appointmentHandler.GetDoctorAppointments)
		appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
		appointmentRoutes.GET("/:id/prescription", appointmentHandler.GetPrescription)
		appointmentRoutes.POST("/:id/prescription", doctorOnly, appointmentHandler.AddPrescription)
		appointmentRoutes.PUT("/:id/status", doctorOnly, appointmentHandler.UpdateAppointmentStatus)
		appointmentRoutes.PUT("/:id/cancel", appointmentHandler.CancelAppointment)
	}

	profileRoutes := api.Group("/profile")
	profileRoutes.Use(auth)
	{
		profileRoutes.GET("/:userId", profileHandler.GetProfile)
		profileRoutes.PUT("/:userId", profileHandler.UpdateProfile)
		profileRoutes.POST("/:userId/medical-history", profileHandler.AddMedicalHistory)
	}

	adminRoutes := api.Group("/admin")
	adminRoutes.Use(auth, adminOnly)
	{
		adminRoutes.GET("/users", adminHandler.GetUsers)
		adminRoutes.DELETE("/users/:id", adminHandler.DeleteUser)
		adminRoutes.GET("/patients", adminHandler.GetPatients)
		adminRoutes.GET("/doctors", adminHandler.GetDoctors)
		adminRoutes.GET("/doctors/:id", adminHandler.GetDoctorByID)
		adminRoutes.DELETE("/doctors/:id", adminHandler.DeleteDoctor)
	}

	// Simple health check endpoint
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "CareNest API is running"})
	})
}
