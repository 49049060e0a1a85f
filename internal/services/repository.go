package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/clinic-api/internal/models"
)

// UserQuery selects users. Empty fields do not filter.
type UserQuery struct {
	Role string
	// Match maps a document field to a case-insensitive substring; all must match.
	Match map[string]string
	// AnyTerm is a case-insensitive substring that must match at least one of AnyFields.
	AnyTerm   string
	AnyFields []string
	Skip      int64
	Limit     int64
}

type UserRepository interface {
	Insert(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	// Find returns one page of matches in insertion order plus the total match count.
	Find(ctx context.Context, q UserQuery) ([]models.User, int64, error)
}

const (
	SortByCreated   = "createdAt"
	SortByScheduled = "scheduledDate"
)

// VisitQuery selects visits. Empty fields do not filter.
type VisitQuery struct {
	ID       string
	Patients []primitive.ObjectID
	Doctors  []primitive.ObjectID
	Statuses []models.VisitStatus
	// ScheduledAt matches one exact timestamp.
	ScheduledAt *time.Time
	// ScheduledFrom and ScheduledTo bound scheduledDate inclusively.
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	// PaymentStatus matches case-insensitively but otherwise exactly.
	PaymentStatus string
	SortBy        string
	Descending    bool
	Limit         int64
}

type VisitRepository interface {
	// NextSequence atomically reserves the next visit number, starting at 1.
	NextSequence(ctx context.Context) (int64, error)
	// Insert stores a new visit. It fails with ErrSlotConflict when the doctor
	// already holds an active visit at the same timestamp.
	Insert(ctx context.Context, v *models.Visit) error
	FindOne(ctx context.Context, q VisitQuery) (*models.Visit, error)
	Find(ctx context.Context, q VisitQuery) ([]models.Visit, error)
	// Save replaces the stored visit with v.
	Save(ctx context.Context, v *models.Visit) error
	// SetPaymentStatus writes the payment status and returns the updated visit.
	SetPaymentStatus(ctx context.Context, id, status string) (*models.Visit, error)
}
