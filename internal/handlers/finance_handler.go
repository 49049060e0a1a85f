package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/clinic-api/internal/services"
)

type PaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus"`
}

// FinanceSearch filters visits by patient name, doctor name, payment status and id.
// GET /api/v1/finance/search?patientName=&doctorName=&paymentStatus=&visitId=
func (h *Handler) FinanceSearch(c *gin.Context) {
	filter := services.SearchFilter{
		PatientName:   c.Query("patientName"),
		DoctorName:    c.Query("doctorName"),
		PaymentStatus: c.Query("paymentStatus"),
		VisitID:       c.Query("visitId"),
	}
	h.Logger.Debug().Interface("filter", filter).Msg("finance search")

	visits, err := h.Ledger.Search(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": visits})
}

// FinanceVisits lists every visit for the finance dashboard.
func (h *Handler) FinanceVisits(c *gin.Context) {
	visits, err := h.Ledger.All(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": visits})
}

// FinanceVisit returns any single visit.
func (h *Handler) FinanceVisit(c *gin.Context) {
	who, ok := h.requester(c)
	if !ok {
		return
	}

	visit, err := h.Ledger.Get(c.Request.Context(), c.Param("id"), who)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": visit})
}

// UpdatePaymentStatus sets a visit's payment status to paid, unpaid or pending.
func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	var req PaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	visit, err := h.Ledger.SetPaymentStatus(c.Request.Context(), c.Param("id"), req.PaymentStatus)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Logger.Info().Str("visit_id", visit.ID).Str("payment_status", visit.PaymentStatus).Msg("payment status updated")
	c.JSON(http.StatusOK, gin.H{"success": true, "data": visit})
}

// FinanceStats reports revenue per payment status, overall totals and recent visits.
func (h *Handler) FinanceStats(c *gin.Context) {
	stats, err := h.Ledger.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"paymentStats": stats.PaymentStats,
		"overallStats": stats.OverallStats,
		"recentVisits": stats.RecentVisits,
	})
}
