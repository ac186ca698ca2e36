package handler

import (
	"errors"
	"grievance/backend/internal/api/middleware"
	"grievance/backend/internal/escalation"
	"grievance/backend/internal/grievance"
	"grievance/backend/internal/livefeed"
	"grievance/backend/internal/models"
	"grievance/backend/internal/otp"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/users"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler містить посилання на сервіси, які обслуговують HTTP API
type Handler struct {
	Grievances *grievance.Service
	Users      *users.Service
	Sweeper    *escalation.Sweeper
	Hub        *livefeed.Hub
	Directory  middleware.UserLoader

	JWTSecret string
	JWTTTL    time.Duration
	// MaxEvidenceBytes caps the size of an uploaded attachment.
	MaxEvidenceBytes int64
}

func NewHandler(g *grievance.Service, u *users.Service, sw *escalation.Sweeper, hub *livefeed.Hub, dir middleware.UserLoader, secret string, ttl time.Duration) *Handler {
	return &Handler{
		Grievances:       g,
		Users:            u,
		Sweeper:          sw,
		Hub:              hub,
		Directory:        dir,
		JWTSecret:        secret,
		JWTTTL:           ttl,
		MaxEvidenceBytes: 10 << 20,
	}
}

// RegisterRoutes mounts the whole API on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	protect := middleware.Protect(h.JWTSecret, h.Directory)
	admin := middleware.Authorize(string(models.RoleAdmin))

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/verify-otp", h.VerifyOTP)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
	}

	g := r.Group("/api/grievances", protect)
	{
		g.POST("", middleware.Authorize(string(models.RoleStudent), string(models.RoleStaff)), h.Submit)
		g.GET("/history", middleware.Authorize(string(models.RoleStudent), string(models.RoleStaff), string(models.RoleAdmin)), h.History)
		g.GET("/assigned", middleware.Authorize(string(models.CapCommitteeMember), string(models.RoleAdmin)), h.Assigned)
		g.GET("/:id/available-members", admin, h.AvailableMembers)
		g.PUT("/assign/:id", admin, h.Assign)
		g.PUT("/resolve/:id", middleware.Authorize(string(models.CapCommitteeMember), string(models.RoleAdmin)), h.Resolve)
		g.GET("/:id", h.Track)
	}

	a := r.Group("/api/admin", protect, admin)
	{
		a.GET("/users", h.ListUsers)
		a.PUT("/users/:id", h.UpdateUser)
		a.GET("/complaints", h.ListComplaints)
		a.POST("/complaints/:id/escalate", h.Escalate)
		a.DELETE("/complaints/:id", h.DeleteComplaint)
		a.POST("/escalations/sweep", h.Sweep)
	}

	r.GET("/ws", protect, h.ServeWebSocket)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, grievance.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, grievance.ErrForbidden), errors.Is(err, users.ErrNoCapability):
		return http.StatusForbidden
	case errors.Is(err, grievance.ErrInvalidOperation), errors.Is(err, users.ErrInvalidInput), errors.Is(err, otp.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, grievance.ErrConflict), errors.Is(err, users.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, users.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
