package services_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/harentsoaR/clinic-api/internal/errors"
	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/services"
	"github.com/harentsoaR/clinic-api/internal/store/memstore"
)

func newCredentials(t *testing.T) *services.CredentialStore {
	t.Helper()
	return services.NewCredentialStore(memstore.New().Users(), bcrypt.MinCost)
}

func TestCreate_DefaultsToPatientAndNormalizesEmail(t *testing.T) {
	creds := newCredentials(t)

	u, err := creds.Create(context.Background(), services.NewUser{
		Name:     "  Ana Rakoto ",
		Email:    " Ana@Example.COM ",
		Password: "pw-123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Rakoto", u.Name)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, models.RolePatient, u.Role)
	assert.NotEqual(t, "pw-123456", u.Password)
	assert.False(t, u.ID.IsZero())
	assert.False(t, u.CreatedAt.IsZero())
}

func TestCreate_Validation(t *testing.T) {
	creds := newCredentials(t)
	ctx := context.Background()

	_, err := creds.Create(ctx, services.NewUser{Email: "a@b.c", Password: "x"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = creds.Create(ctx, services.NewUser{Name: "A", Email: "a@b.c", Password: "x", Role: "nurse"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	creds := newCredentials(t)
	ctx := context.Background()

	_, err := creds.Create(ctx, services.NewUser{Name: "A", Email: "dup@example.com", Password: "x"})
	require.NoError(t, err)

	_, err = creds.Create(ctx, services.NewUser{Name: "B", Email: "DUP@example.com", Password: "y", Role: models.RoleDoctor})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEmail)
}

func TestVerify(t *testing.T) {
	creds := newCredentials(t)
	ctx := context.Background()

	created, err := creds.Create(ctx, services.NewUser{Name: "A", Email: "a@example.com", Password: "right"})
	require.NoError(t, err)

	u, err := creds.Verify(ctx, "A@example.com", "right")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, wrongPassword := creds.Verify(ctx, "a@example.com", "wrong")
	_, unknownEmail := creds.Verify(ctx, "nobody@example.com", "right")
	assert.ErrorIs(t, wrongPassword, apperrors.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, unknownEmail)
}

func TestFindByRole_Pagination(t *testing.T) {
	creds := newCredentials(t)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		_, err := creds.Create(ctx, services.NewUser{
			Name:     fmt.Sprintf("Doctor %02d", i),
			Email:    fmt.Sprintf("doc%02d@clinic.test", i),
			Password: "x",
			Role:     models.RoleDoctor,
		})
		require.NoError(t, err)
	}
	_, err := creds.Create(ctx, services.NewUser{Name: "Patient", Email: "p@clinic.test", Password: "x"})
	require.NoError(t, err)

	page, err := creds.FindByRole(ctx, models.RoleDoctor, services.DirectoryFilter{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.EqualValues(t, 12, page.Total)
	assert.EqualValues(t, 2, page.Page)
	assert.EqualValues(t, 3, page.TotalPages)
	require.Len(t, page.Users, 5)
	for i, u := range page.Users {
		assert.Equal(t, fmt.Sprintf("Doctor %02d", i+6), u.Name)
	}

	defaults, err := creds.FindByRole(ctx, models.RoleDoctor, services.DirectoryFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, defaults.Page)
	assert.Len(t, defaults.Users, services.DefaultPageSize)

	capped, err := creds.FindByRole(ctx, models.RoleDoctor, services.DirectoryFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, capped.Users, 12)
	assert.EqualValues(t, 1, capped.TotalPages)
}

func TestFindByRole_PageBeyondInt64Range(t *testing.T) {
	creds := newCredentials(t)
	ctx := context.Background()
	_, err := creds.Create(ctx, services.NewUser{Name: "Dr", Email: "dr@clinic.test", Password: "x", Role: models.RoleDoctor})
	require.NoError(t, err)

	page, err := creds.FindByRole(ctx, models.RoleDoctor, services.DirectoryFilter{Page: math.MaxInt64, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Users)
	assert.EqualValues(t, 1, page.Total)
	assert.EqualValues(t, 1, page.TotalPages)
}

func TestFindByRole_Filters(t *testing.T) {
	creds := newCredentials(t)
	ctx := context.Background()

	for _, d := range []services.NewUser{
		{Name: "Dr. Heart", Email: "heart@clinic.test", Specialization: "Cardiology"},
		{Name: "Dr. Skin", Email: "skin@clinic.test", Specialization: "Dermatology"},
		{Name: "Dr. Pulse", Email: "pulse@clinic.test", Specialization: "Pediatric Cardiology"},
	} {
		d.Password, d.Role = "x", models.RoleDoctor
		_, err := creds.Create(ctx, d)
		require.NoError(t, err)
	}

	cardio, err := creds.FindByRole(ctx, models.RoleDoctor, services.DirectoryFilter{Specialization: "cardio"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, cardio.Total)

	both, err := creds.FindByRole(ctx, models.RoleDoctor, services.DirectoryFilter{Specialization: "cardio", Name: "PULSE"})
	require.NoError(t, err)
	require.Len(t, both.Users, 1)
	assert.Equal(t, "Dr. Pulse", both.Users[0].Name)

	none, err := creds.FindByRole(ctx, models.RoleDoctor, services.DirectoryFilter{Specialization: "(.*"})
	require.NoError(t, err)
	assert.Empty(t, none.Users)
	assert.EqualValues(t, 0, none.TotalPages)
}

func TestListDoctors(t *testing.T) {
	creds := newCredentials(t)
	ctx := context.Background()

	doctors, err := creds.ListDoctors(ctx)
	require.NoError(t, err)
	assert.NotNil(t, doctors)
	assert.Empty(t, doctors)

	_, err = creds.Create(ctx, services.NewUser{Name: "Dr", Email: "dr@clinic.test", Password: "x", Role: models.RoleDoctor})
	require.NoError(t, err)
	_, err = creds.Create(ctx, services.NewUser{Name: "Pat", Email: "pat@clinic.test", Password: "x"})
	require.NoError(t, err)

	doctors, err = creds.ListDoctors(ctx)
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dr", doctors[0].Name)
}
