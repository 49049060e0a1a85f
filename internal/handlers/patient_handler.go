package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type doctorCard struct {
	ID             primitive.ObjectID `json:"_id"`
	Name           string             `json:"name"`
	Specialization string             `json:"specialization,omitempty"`
	Email          string             `json:"email"`
	Phone          string             `json:"phone,omitempty"`
}

// DoctorsForPatients lists every doctor a patient can book with.
func (h *Handler) DoctorsForPatients(c *gin.Context) {
	doctors, err := h.Credentials.ListDoctors(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	cards := make([]doctorCard, 0, len(doctors))
	for _, d := range doctors {
		cards = append(cards, doctorCard{
			ID:             d.ID,
			Name:           d.Name,
			Specialization: d.Specialization,
			Email:          d.Email,
			Phone:          d.Phone,
		})
	}
	c.JSON(http.StatusOK, cards)
}
