// Package memstore keeps users and visits in process memory. It backs
// `serve --memory` and the service and handler tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/harentsoaR/clinic-api/internal/errors"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/services"
)

// Store holds users and visits. Unique constraints match the MongoDB indexes.
type Store struct {
	mu     sync.RWMutex
	users  []models.User
	visits map[string]models.Visit
	seq    int64
}

var (
	_ services.UserRepository  = userView{}
	_ services.VisitRepository = visitView{}
)

func New() *Store {
	return &Store{visits: map[string]models.Visit{}}
}

// Users exposes the store through the user repository contract. The two
// contracts share method names with different signatures, so each gets a view.
func (s *Store) Users() services.UserRepository { return userView{s} }

// Visits exposes the store through the visit repository contract.
func (s *Store) Visits() services.VisitRepository { return visitView{s} }

type userView struct{ *Store }

type visitView struct{ *Store }

// --- users ---

func (s userView) Insert(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperrors.ErrDuplicateEmail
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.users = append(s.users, *u)
	return nil
}

func (s userView) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			found := u
			return &found, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s userView) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s userView) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []models.User{}
	for _, u := range s.users {
		if want[u.ID] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s userView) Find(_ context.Context, q services.UserQuery) ([]models.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.User
	for _, u := range s.users {
		if matchUser(u, q) {
			matched = append(matched, u)
		}
	}
	total := int64(len(matched))

	start := q.Skip
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	page := append([]models.User{}, matched[start:end]...)
	return page, total, nil
}

func matchUser(u models.User, q services.UserQuery) bool {
	if q.Role != "" && u.Role != q.Role {
		return false
	}
	for field, val := range q.Match {
		if !containsFold(userField(u, field), val) {
			return false
		}
	}
	if q.AnyTerm != "" && len(q.AnyFields) > 0 {
		for _, field := range q.AnyFields {
			if containsFold(userField(u, field), q.AnyTerm) {
				return true
			}
		}
		return false
	}
	return true
}

// userField reads a document field by its stored name. Legacy fields the
// model does not carry read as empty.
func userField(u models.User, field string) string {
	switch field {
	case "name":
		return u.Name
	case "email":
		return u.Email
	case "specialization":
		return u.Specialization
	case "phone":
		return u.Phone
	case "address":
		return u.Address
	}
	return ""
}

func containsFold(s, sub string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// --- visits ---

func (s visitView) NextSequence(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

func (s visitView) Insert(_ context.Context, v *models.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.visits[v.ID]; exists {
		return apperrors.ErrSlotConflict
	}
	if s.slotTaken(*v) {
		return apperrors.ErrSlotConflict
	}
	s.visits[v.ID] = cloneVisit(*v)
	return nil
}

// slotTaken mirrors the doctor_active_slot partial unique index. Callers hold mu.
func (s visitView) slotTaken(v models.Visit) bool {
	if !isActive(v.Status) {
		return false
	}
	for id, other := range s.visits {
		if id == v.ID {
			continue
		}
		if other.Doctor == v.Doctor && other.ScheduledDate.Equal(v.ScheduledDate) && isActive(other.Status) {
			return true
		}
	}
	return false
}

func isActive(st models.VisitStatus) bool {
	for _, a := range models.ActiveStatuses {
		if st == a {
			return true
		}
	}
	return false
}

func (s visitView) FindOne(ctx context.Context, q services.VisitQuery) (*models.Visit, error) {
	visits, err := s.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(visits) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &visits[0], nil
}

func (s visitView) Find(_ context.Context, q services.VisitQuery) ([]models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Visit{}
	for _, v := range s.visits {
		if matchVisit(v, q) {
			out = append(out, cloneVisit(v))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		c := compareVisits(out[i], out[j], q.SortBy)
		if q.Descending {
			return c > 0
		}
		return c < 0
	})

	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// compareVisits orders by the sort field, then by id.
func compareVisits(a, b models.Visit, sortBy string) int {
	var x, y time.Time
	switch sortBy {
	case services.SortByCreated:
		x, y = a.CreatedAt, b.CreatedAt
	case services.SortByScheduled:
		x, y = a.ScheduledDate, b.ScheduledDate
	}
	if c := x.Compare(y); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func matchVisit(v models.Visit, q services.VisitQuery) bool {
	if q.ID != "" && v.ID != q.ID {
		return false
	}
	if len(q.Patients) > 0 && !hasID(q.Patients, v.Patient) {
		return false
	}
	if len(q.Doctors) > 0 && !hasID(q.Doctors, v.Doctor) {
		return false
	}
	if len(q.Statuses) > 0 {
		ok := false
		for _, st := range q.Statuses {
			if v.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if q.PaymentStatus != "" && !strings.EqualFold(v.PaymentStatus, q.PaymentStatus) {
		return false
	}
	if q.ScheduledAt != nil && !v.ScheduledDate.Equal(*q.ScheduledAt) {
		return false
	}
	if q.ScheduledFrom != nil && v.ScheduledDate.Before(*q.ScheduledFrom) {
		return false
	}
	if q.ScheduledTo != nil && v.ScheduledDate.After(*q.ScheduledTo) {
		return false
	}
	return true
}

func hasID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (s visitView) Save(_ context.Context, v *models.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visits[v.ID]; !ok {
		return apperrors.ErrNotFound
	}
	if s.slotTaken(*v) {
		return apperrors.ErrSlotConflict
	}
	s.visits[v.ID] = cloneVisit(*v)
	return nil
}

func (s visitView) SetPaymentStatus(_ context.Context, id, status string) (*models.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	v.PaymentStatus = status
	v.UpdatedAt = time.Now().UTC()
	s.visits[id] = v
	out := cloneVisit(v)
	return &out, nil
}

func cloneVisit(v models.Visit) models.Visit {
	if v.Treatments != nil {
		v.Treatments = append([]models.Treatment{}, v.Treatments...)
	}
	return v
}
