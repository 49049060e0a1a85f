package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/harentsoaR/clinic-api/internal/errors"
	"github.com/harentsoaR/clinic-api/internal/models"
)

// RecentVisitsLimit caps the recent visits returned with finance stats.
const RecentVisitsLimit = 10

var (
	patientSearchFields = []string{"name", "username", "firstName", "lastName", "email"}
	doctorSearchFields  = []string{"name", "username", "firstName", "lastName", "specialization", "email"}
)

// Requester is the authenticated caller of a ledger operation.
type Requester struct {
	ID   primitive.ObjectID
	Role string
}

// VisitNotifier is told about new bookings. Implementations must not block.
type VisitNotifier interface {
	VisitScheduled(patient, doctor *models.User, v *models.Visit)
}

type ScheduleRequest struct {
	DoctorID      primitive.ObjectID
	ScheduledDate time.Time
	Symptoms      string
}

// VisitPatch carries the fields a doctor may change. Nil fields are left alone.
type VisitPatch struct {
	Symptoms   *string
	Diagnosis  *string
	Notes      *string
	Treatments *[]models.Treatment
	Status     *models.VisitStatus
}

type SearchFilter struct {
	PatientName   string
	DoctorName    string
	PaymentStatus string
	VisitID       string
}

type PaymentStat struct {
	Status      string  `json:"_id"`
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}

type OverallStats struct {
	TotalVisits    int64   `json:"totalVisits"`
	TotalRevenue   float64 `json:"totalRevenue"`
	PaidRevenue    float64 `json:"paidRevenue"`
	PendingRevenue float64 `json:"pendingRevenue"`
	UnpaidRevenue  float64 `json:"unpaidRevenue"`
}

type FinanceStats struct {
	PaymentStats []PaymentStat        `json:"paymentStats"`
	OverallStats OverallStats         `json:"overallStats"`
	RecentVisits []models.VisitDetail `json:"recentVisits"`
}

// Ledger owns visits: booking, clinical updates, payment state and reporting.
type Ledger struct {
	visits   VisitRepository
	users    UserRepository
	notifier VisitNotifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewLedger(visits VisitRepository, users UserRepository, notifier VisitNotifier, logger zerolog.Logger) *Ledger {
	return &Ledger{
		visits:   visits,
		users:    users,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Schedule books a visit for patientID with the requested doctor.
func (l *Ledger) Schedule(ctx context.Context, patientID primitive.ObjectID, req ScheduleRequest) (*models.VisitDetail, error) {
	if req.DoctorID.IsZero() || req.ScheduledDate.IsZero() {
		return nil, fmt.Errorf("%w: doctorId and scheduledDate are required", apperrors.ErrValidation)
	}
	doctor, err := l.users.FindByID(ctx, req.DoctorID)
	if errors.Is(err, apperrors.ErrNotFound) || (err == nil && doctor.Role != models.RoleDoctor) {
		return nil, fmt.Errorf("%w: doctor not found", apperrors.ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	at := req.ScheduledDate.UTC()
	_, err = l.visits.FindOne(ctx, VisitQuery{
		Doctors:     []primitive.ObjectID{req.DoctorID},
		ScheduledAt: &at,
		Statuses:    models.ActiveStatuses,
	})
	if err == nil {
		return nil, apperrors.ErrSlotConflict
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	seq, err := l.visits.NextSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve visit id: %w", err)
	}
	now := l.now().UTC()
	visit := &models.Visit{
		ID:            models.VisitID(seq),
		Patient:       patientID,
		Doctor:        req.DoctorID,
		ScheduledDate: at,
		Status:        models.StatusScheduled,
		Symptoms:      req.Symptoms,
		Treatments:    []models.Treatment{},
		PaymentStatus: models.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	visit.Recalculate()
	if err := l.visits.Insert(ctx, visit); err != nil {
		return nil, err
	}
	l.logger.Info().Str("visit_id", visit.ID).Str("doctor", req.DoctorID.Hex()).Time("scheduled_at", at).Msg("visit scheduled")

	if l.notifier != nil {
		if patient, err := l.users.FindByID(ctx, patientID); err == nil {
			l.notifier.VisitScheduled(patient, doctor, visit)
		}
	}

	details, err := l.expand(ctx, []models.Visit{*visit})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// Update applies a doctor's patch to one of their own visits.
func (l *Ledger) Update(ctx context.Context, visitID string, doctorID primitive.ObjectID, patch VisitPatch) (*models.VisitDetail, error) {
	visit, err := l.visits.FindOne(ctx, VisitQuery{ID: visitID, Doctors: []primitive.ObjectID{doctorID}})
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("visit %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if patch.Status != nil {
		next := models.VisitStatus(strings.ToLower(string(*patch.Status)))
		if !next.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, *patch.Status)
		}
		visit.Status = next
	}
	if patch.Treatments != nil {
		treatments := *patch.Treatments
		for i, t := range treatments {
			if strings.TrimSpace(t.Name) == "" {
				return nil, fmt.Errorf("%w: treatment %d needs a name", apperrors.ErrValidation, i)
			}
			if t.Cost < 0 {
				return nil, fmt.Errorf("%w: treatment %q has a negative cost", apperrors.ErrValidation, t.Name)
			}
		}
		if treatments == nil {
			treatments = []models.Treatment{}
		}
		visit.Treatments = treatments
	}
	if patch.Symptoms != nil {
		visit.Symptoms = *patch.Symptoms
	}
	if patch.Diagnosis != nil {
		visit.Diagnosis = *patch.Diagnosis
	}
	if patch.Notes != nil {
		visit.Notes = *patch.Notes
	}

	visit.Recalculate()
	visit.UpdatedAt = l.now().UTC()
	if err := l.visits.Save(ctx, visit); err != nil {
		return nil, err
	}

	details, err := l.expand(ctx, []models.Visit{*visit})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// SetPaymentStatus records a finance decision on a visit.
func (l *Ledger) SetPaymentStatus(ctx context.Context, visitID, status string) (*models.VisitDetail, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case models.PaymentPaid, models.PaymentUnpaid, models.PaymentPending:
	default:
		return nil, apperrors.ErrInvalidPaymentStatus
	}

	visit, err := l.visits.SetPaymentStatus(ctx, visitID, status)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("visit %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	details, err := l.expand(ctx, []models.Visit{*visit})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// Get returns a visit the requester is party to. Finance and admin see any visit.
func (l *Ledger) Get(ctx context.Context, visitID string, who Requester) (*models.VisitDetail, error) {
	visit, err := l.visits.FindOne(ctx, VisitQuery{ID: visitID})
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("visit %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	switch who.Role {
	case models.RoleFinance, models.RoleAdmin:
	default:
		if visit.Patient != who.ID && visit.Doctor != who.ID {
			return nil, apperrors.ErrForbidden
		}
	}

	details, err := l.expand(ctx, []models.Visit{*visit})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// ListForRequester returns the caller's own visits, newest scheduled first.
// Roles other than patient and doctor get nothing here.
func (l *Ledger) ListForRequester(ctx context.Context, who Requester) ([]models.VisitDetail, error) {
	q := VisitQuery{SortBy: SortByScheduled, Descending: true}
	switch who.Role {
	case models.RolePatient:
		q.Patients = []primitive.ObjectID{who.ID}
	case models.RoleDoctor:
		q.Doctors = []primitive.ObjectID{who.ID}
	default:
		return []models.VisitDetail{}, nil
	}
	return l.find(ctx, q)
}

// Search runs the finance search. A name filter that resolves to nobody
// yields an empty result without touching visits.
func (l *Ledger) Search(ctx context.Context, f SearchFilter) ([]models.VisitDetail, error) {
	q := VisitQuery{
		ID:            strings.TrimSpace(f.VisitID),
		PaymentStatus: strings.TrimSpace(f.PaymentStatus),
		SortBy:        SortByCreated,
		Descending:    true,
	}

	if term := strings.TrimSpace(f.PatientName); term != "" {
		ids, err := l.resolve(ctx, models.RolePatient, term, patientSearchFields)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []models.VisitDetail{}, nil
		}
		q.Patients = ids
	}
	if term := strings.TrimSpace(f.DoctorName); term != "" {
		ids, err := l.resolve(ctx, models.RoleDoctor, term, doctorSearchFields)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []models.VisitDetail{}, nil
		}
		q.Doctors = ids
	}

	return l.find(ctx, q)
}

// All returns every visit, newest created first.
func (l *Ledger) All(ctx context.Context) ([]models.VisitDetail, error) {
	return l.find(ctx, VisitQuery{SortBy: SortByCreated, Descending: true})
}

// Stats reduces the whole visit collection into finance figures.
func (l *Ledger) Stats(ctx context.Context) (*FinanceStats, error) {
	visits, err := l.visits.Find(ctx, VisitQuery{})
	if err != nil {
		return nil, err
	}

	byStatus := map[string]*PaymentStat{}
	var overall OverallStats
	for _, v := range visits {
		st, ok := byStatus[v.PaymentStatus]
		if !ok {
			st = &PaymentStat{Status: v.PaymentStatus}
			byStatus[v.PaymentStatus] = st
		}
		st.Count++
		st.TotalAmount += v.TotalAmount

		overall.TotalVisits++
		overall.TotalRevenue += v.TotalAmount
		switch v.PaymentStatus {
		case models.PaymentPaid:
			overall.PaidRevenue += v.TotalAmount
		case models.PaymentPending:
			overall.PendingRevenue += v.TotalAmount
		case models.PaymentUnpaid:
			overall.UnpaidRevenue += v.TotalAmount
		}
	}

	paymentStats := make([]PaymentStat, 0, len(byStatus))
	for _, st := range byStatus {
		paymentStats = append(paymentStats, *st)
	}
	sort.Slice(paymentStats, func(i, j int) bool { return paymentStats[i].Status < paymentStats[j].Status })

	recentDetails, err := l.find(ctx, VisitQuery{SortBy: SortByCreated, Descending: true, Limit: RecentVisitsLimit})
	if err != nil {
		return nil, err
	}

	return &FinanceStats{
		PaymentStats: paymentStats,
		OverallStats: overall,
		RecentVisits: recentDetails,
	}, nil
}

// DaySchedule lists a doctor's visits on the calendar day of day, in day's
// location, earliest first.
func (l *Ledger) DaySchedule(ctx context.Context, doctorID primitive.ObjectID, day time.Time) ([]models.VisitDetail, error) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return l.find(ctx, VisitQuery{
		Doctors:       []primitive.ObjectID{doctorID},
		ScheduledFrom: &start,
		ScheduledTo:   &end,
		SortBy:        SortByScheduled,
	})
}

// CurrentVisit returns the doctor's in-progress visit, or nil.
func (l *Ledger) CurrentVisit(ctx context.Context, doctorID primitive.ObjectID) (*models.VisitDetail, error) {
	visit, err := l.visits.FindOne(ctx, VisitQuery{
		Doctors:  []primitive.ObjectID{doctorID},
		Statuses: []models.VisitStatus{models.StatusInProgress},
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	details, err := l.expand(ctx, []models.Visit{*visit})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (l *Ledger) find(ctx context.Context, q VisitQuery) ([]models.VisitDetail, error) {
	visits, err := l.visits.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	return l.expand(ctx, visits)
}

func (l *Ledger) resolve(ctx context.Context, role, term string, fields []string) ([]primitive.ObjectID, error) {
	users, _, err := l.users.Find(ctx, UserQuery{Role: role, AnyTerm: term, AnyFields: fields})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// expand loads the patient and doctor of every visit in one lookup.
func (l *Ledger) expand(ctx context.Context, visits []models.Visit) ([]models.VisitDetail, error) {
	out := make([]models.VisitDetail, 0, len(visits))
	if len(visits) == 0 {
		return out, nil
	}

	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, v := range visits {
		for _, id := range []primitive.ObjectID{v.Patient, v.Doctor} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	users, err := l.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	parties := make(map[primitive.ObjectID]*models.Party, len(users))
	for i := range users {
		parties[users[i].ID] = users[i].AsParty()
	}
	party := func(id primitive.ObjectID) *models.Party {
		if p, ok := parties[id]; ok {
			return p
		}
		return &models.Party{ID: id}
	}

	for _, v := range visits {
		if v.Treatments == nil {
			v.Treatments = []models.Treatment{}
		}
		out = append(out, models.VisitDetail{
			Visit:   v,
			Patient: party(v.Patient),
			Doctor:  party(v.Doctor),
		})
	}
	return out, nil
}
