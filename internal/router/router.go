package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harentsoaR/clinic-api/internal/handlers"
	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

type Config struct {
	Handler     *handlers.Handler
	Tokens      *utils.TokenService
	Revocations middleware.RevocationChecker
	Logger      zerolog.Logger
	CORSOrigins []string
}

// New builds the gin engine with every route of the API.
func New(cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	h := cfg.Handler
	requireAuth := middleware.AuthMiddleware(cfg.Tokens, cfg.Revocations)
	patientOnly := middleware.RequireRole(models.RolePatient)
	doctorOnly := middleware.RequireRole(models.RoleDoctor)
	financeOnly := middleware.RequireRole(models.RoleFinance)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/logout", requireAuth, h.Logout)
	}

	v1 := api.Group("/v1")
	v1.Use(requireAuth)

	doctors := v1.Group("/doctors")
	{
		doctors.GET("", h.ListDoctors)
		doctors.GET("/schedule", doctorOnly, h.DoctorSchedule)
		doctors.GET("/current-visit", doctorOnly, h.CurrentVisit)
	}

	patients := v1.Group("/patients")
	{
		patients.GET("/doctors", patientOnly, h.DoctorsForPatients)
	}

	visits := v1.Group("/visits")
	{
		visits.GET("", h.GetVisits)
		visits.POST("", patientOnly, h.CreateVisit)
		visits.GET("/:id", h.GetVisit)
		visits.PUT("/:id", doctorOnly, h.UpdateVisit)
	}

	finance := v1.Group("/finance", financeOnly)
	{
		finance.GET("/search", h.FinanceSearch)
		finance.GET("/visits", h.FinanceVisits)
		finance.GET("/stats", h.FinanceStats)
		finance.GET("/visit/:id", h.FinanceVisit)
		finance.PATCH("/:id/payment", h.UpdatePaymentStatus)
	}

	return r
}
