package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/services"
)

type CreateVisitRequest struct {
	DoctorID      string `json:"doctorId"`
	ScheduledDate string `json:"scheduledDate"`
	Symptoms      string `json:"symptoms"`
}

// UpdateVisitRequest holds the fields a doctor may change. Absent fields are kept.
type UpdateVisitRequest struct {
	Symptoms   *string             `json:"symptoms,omitempty"`
	Diagnosis  *string             `json:"diagnosis,omitempty"`
	Notes      *string             `json:"notes,omitempty"`
	Treatments *[]models.Treatment `json:"treatments,omitempty"`
	Status     *models.VisitStatus `json:"status,omitempty"`
}

// --- GET VISITS (role-filtered) ---
func (h *Handler) GetVisits(c *gin.Context) {
	who, ok := h.requester(c)
	if !ok {
		return
	}

	visits, err := h.Ledger.ListForRequester(c.Request.Context(), who)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visits)
}

// --- CREATE VISIT (patients only) ---
func (h *Handler) CreateVisit(c *gin.Context) {
	who, ok := h.requester(c)
	if !ok {
		return
	}

	var req CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.DoctorID == "" || req.ScheduledDate == "" {
		badRequest(c, "doctorId and scheduledDate are required")
		return
	}
	doctorID, err := primitive.ObjectIDFromHex(req.DoctorID)
	if err != nil {
		badRequest(c, "Invalid doctorId")
		return
	}
	scheduledAt, ok := parseTimestamp(req.ScheduledDate)
	if !ok {
		badRequest(c, "Invalid scheduledDate, use RFC3339")
		return
	}

	visit, err := h.Ledger.Schedule(c.Request.Context(), who.ID, services.ScheduleRequest{
		DoctorID:      doctorID,
		ScheduledDate: scheduledAt,
		Symptoms:      strings.TrimSpace(req.Symptoms),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, visit)
}

// --- GET ONE VISIT (parties, finance and admin) ---
func (h *Handler) GetVisit(c *gin.Context) {
	who, ok := h.requester(c)
	if !ok {
		return
	}

	visit, err := h.Ledger.Get(c.Request.Context(), c.Param("id"), who)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visit)
}

// --- UPDATE VISIT (assigned doctor only) ---
func (h *Handler) UpdateVisit(c *gin.Context) {
	who, ok := h.requester(c)
	if !ok {
		return
	}

	var req UpdateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	visit, err := h.Ledger.Update(c.Request.Context(), c.Param("id"), who.ID, services.VisitPatch{
		Symptoms:   req.Symptoms,
		Diagnosis:  req.Diagnosis,
		Notes:      req.Notes,
		Treatments: req.Treatments,
		Status:     req.Status,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visit)
}
