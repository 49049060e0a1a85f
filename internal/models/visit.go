package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VisitStatus string

const (
	StatusScheduled  VisitStatus = "scheduled"
	StatusInProgress VisitStatus = "in-progress"
	StatusCompleted  VisitStatus = "completed"
	StatusCancelled  VisitStatus = "cancelled"
)

// ActiveStatuses are the statuses that occupy a doctor's slot.
var ActiveStatuses = []VisitStatus{StatusScheduled, StatusInProgress}

// Valid reports whether s is a known visit status. Any known status may be
// written over any other.
func (s VisitStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentPartial = "partial"
	PaymentUnpaid  = "unpaid"
)

// Treatment is a billed line item. It only exists embedded in a Visit.
type Treatment struct {
	Name        string  `bson:"name" json:"name"`
	Description string  `bson:"description,omitempty" json:"description,omitempty"`
	Cost        float64 `bson:"cost" json:"cost"`
}

type Visit struct {
	ID            string             `bson:"_id" json:"_id"`
	Patient       primitive.ObjectID `bson:"patient" json:"patient"`
	Doctor        primitive.ObjectID `bson:"doctor" json:"doctor"`
	ScheduledDate time.Time          `bson:"scheduledDate" json:"scheduledDate"`
	Status        VisitStatus        `bson:"status" json:"status"`
	Symptoms      string             `bson:"symptoms,omitempty" json:"symptoms,omitempty"`
	Diagnosis     string             `bson:"diagnosis,omitempty" json:"diagnosis,omitempty"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Treatments    []Treatment        `bson:"treatments" json:"treatments"`
	TotalAmount   float64            `bson:"totalAmount" json:"totalAmount"`
	PaymentStatus string             `bson:"paymentStatus" json:"paymentStatus"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// VisitID formats the n-th visit identifier, e.g. VISIT000001.
func VisitID(n int64) string {
	return fmt.Sprintf("VISIT%06d", n)
}

// Recalculate sets TotalAmount to the sum of the treatment costs. It must run
// before every save.
func (v *Visit) Recalculate() {
	var total float64
	for _, t := range v.Treatments {
		total += t.Cost
	}
	v.TotalAmount = total
}

// VisitDetail is a Visit with its patient and doctor references expanded.
type VisitDetail struct {
	Visit
	Patient *Party `json:"patient"`
	Doctor  *Party `json:"doctor"`
}
