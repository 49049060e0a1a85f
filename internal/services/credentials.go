package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/harentsoaR/clinic-api/internal/errors"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type NewUser struct {
	Name           string
	Email          string
	Password       string
	Role           string
	Specialization string
	Phone          string
	Address        string
}

// DirectoryFilter narrows a role listing. Text fields are case-insensitive substrings.
type DirectoryFilter struct {
	Name           string
	Email          string
	Specialization string
	Phone          string
	Address        string
	Page           int64
	Limit          int64
}

type DirectoryPage struct {
	Users      []models.User
	Total      int64
	Page       int64
	TotalPages int64
}

// CredentialStore owns user identities and their password hashes.
type CredentialStore struct {
	users      UserRepository
	bcryptCost int
	now        func() time.Time
}

func NewCredentialStore(users UserRepository, bcryptCost int) *CredentialStore {
	return &CredentialStore{users: users, bcryptCost: bcryptCost, now: time.Now}
}

// NormalizeEmail is the stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *CredentialStore) Create(ctx context.Context, in NewUser) (*models.User, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", apperrors.ErrValidation)
	}
	if in.Role == "" {
		in.Role = models.RolePatient
	}
	in.Role = strings.ToLower(in.Role)
	if !models.ValidRole(in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, in.Role)
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrDuplicateEmail
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:             primitive.NewObjectID(),
		Name:           in.Name,
		Email:          in.Email,
		Password:       hash,
		Role:           in.Role,
		Specialization: strings.TrimSpace(in.Specialization),
		Phone:          strings.TrimSpace(in.Phone),
		Address:        strings.TrimSpace(in.Address),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// The unique index still guards the window between the lookup and the insert.
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Verify returns the user owning email iff password matches. Unknown email
// and wrong password yield the same error.
func (s *CredentialStore) Verify(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

func (s *CredentialStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

// FindByRole lists users of a role, filtered and paginated.
func (s *CredentialStore) FindByRole(ctx context.Context, role string, f DirectoryFilter) (*DirectoryPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	// Keep (Page-1)*Limit inside int64; such a page is past the end anyway.
	if maxPage := math.MaxInt64 / f.Limit; f.Page > maxPage {
		f.Page = maxPage
	}

	match := map[string]string{}
	for field, val := range map[string]string{
		"name":           f.Name,
		"email":          f.Email,
		"specialization": f.Specialization,
		"phone":          f.Phone,
		"address":        f.Address,
	} {
		if val = strings.TrimSpace(val); val != "" {
			match[field] = val
		}
	}

	users, total, err := s.users.Find(ctx, UserQuery{
		Role:  role,
		Match: match,
		Skip:  (f.Page - 1) * f.Limit,
		Limit: f.Limit,
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return &DirectoryPage{
		Users:      users,
		Total:      total,
		Page:       f.Page,
		TotalPages: (total + f.Limit - 1) / f.Limit,
	}, nil
}

// ListDoctors returns every doctor, for patients picking whom to book.
func (s *CredentialStore) ListDoctors(ctx context.Context) ([]models.User, error) {
	doctors, _, err := s.users.Find(ctx, UserQuery{Role: models.RoleDoctor})
	if err != nil {
		return nil, err
	}
	if doctors == nil {
		doctors = []models.User{}
	}
	return doctors, nil
}
