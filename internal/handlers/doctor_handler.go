package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/services"
)

// ListDoctors is the paginated doctor directory.
// GET /api/v1/doctors?name=&email=&specialization=&phone=&address=&page=1&limit=10
func (h *Handler) ListDoctors(c *gin.Context) {
	page, _ := strconv.ParseInt(c.Query("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)

	result, err := h.Credentials.FindByRole(c.Request.Context(), models.RoleDoctor, services.DirectoryFilter{
		Name:           c.Query("name"),
		Email:          c.Query("email"),
		Specialization: c.Query("specialization"),
		Phone:          c.Query("phone"),
		Address:        c.Query("address"),
		Page:           page,
		Limit:          limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"total":      result.Total,
		"page":       result.Page,
		"totalPages": result.TotalPages,
		"doctors":    result.Users,
	})
}

// DoctorSchedule lists the doctor's visits on one local calendar day.
// GET /api/v1/doctors/schedule?date=2025-01-31
func (h *Handler) DoctorSchedule(c *gin.Context) {
	who, ok := h.requester(c)
	if !ok {
		return
	}
	day, ok := parseDay(c.Query("date"))
	if !ok {
		badRequest(c, "A valid date is required")
		return
	}

	visits, err := h.Ledger.DaySchedule(c.Request.Context(), who.ID, day)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visits)
}

// CurrentVisit returns the doctor's in-progress visit, or null.
func (h *Handler) CurrentVisit(c *gin.Context) {
	who, ok := h.requester(c)
	if !ok {
		return
	}

	visit, err := h.Ledger.CurrentVisit(c.Request.Context(), who.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visit)
}
