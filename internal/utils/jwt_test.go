package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/harentsoaR/clinic-api/internal/errors"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	_, err := NewTokenService("")
	assert.Error(t, err)
}

func TestGenerateAndValidateJWT(t *testing.T) {
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)

	token, err := s.GenerateJWT("64b7f0c2e4b0a1a2b3c4d5e6", "doctor")
	require.NoError(t, err)

	claims, err := s.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2e4b0a1a2b3c4d5e6", claims.UserID)
	assert.Equal(t, "doctor", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateJWT_UniqueTokenIDs(t *testing.T) {
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)

	a, err := s.GenerateJWT("u1", "patient")
	require.NoError(t, err)
	b, err := s.GenerateJWT("u1", "patient")
	require.NoError(t, err)

	ca, err := s.ValidateJWT(a)
	require.NoError(t, err)
	cb, err := s.ValidateJWT(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestValidateJWT_ExpiresAfterSevenDays(t *testing.T) {
	issued := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)
	s.now = fixedClock(issued)

	token, err := s.GenerateJWT("u1", "patient")
	require.NoError(t, err)

	claims, err := s.ValidateJWT(token)
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.Time.Equal(issued.Add(TokenTTL)))

	s.now = fixedClock(issued.Add(TokenTTL - time.Second))
	_, err = s.ValidateJWT(token)
	assert.NoError(t, err)

	s.now = fixedClock(issued.Add(TokenTTL + time.Second))
	_, err = s.ValidateJWT(token)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidToken))
}

func TestValidateJWT_RejectsForeignSignature(t *testing.T) {
	issuer, err := NewTokenService("another-secret-of-enough-length")
	require.NoError(t, err)
	token, err := issuer.GenerateJWT("u1", "admin")
	require.NoError(t, err)

	s, err := NewTokenService(testSecret)
	require.NoError(t, err)
	_, err = s.ValidateJWT(token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestValidateJWT_RejectsOtherAlgorithms(t *testing.T) {
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)

	claims := &Claims{
		UserID: "u1",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	hs384, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = s.ValidateJWT(hs384)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.ValidateJWT(unsigned)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestValidateJWT_RequiresExpiryAndSubject(t *testing.T) {
	s, err := NewTokenService(testSecret)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "u1", Role: "admin"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = s.ValidateJWT(noExp)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = s.ValidateJWT(noUser)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = s.ValidateJWT("not.a.token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
