package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/harentsoaR/clinic-api/internal/errors"
	"github.com/harentsoaR/clinic-api/internal/middleware"
	"github.com/harentsoaR/clinic-api/internal/services"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

// TokenRevoker invalidates a session token before its natural expiry.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

type Handler struct {
	Credentials *services.CredentialStore
	Ledger      *services.Ledger
	Tokens      *utils.TokenService
	Revoker     TokenRevoker
	Logger      zerolog.Logger
	// ExposeErrors adds the raw internal error text to 500 responses.
	ExposeErrors bool
}

func NewHandler(creds *services.CredentialStore, ledger *services.Ledger, tokens *utils.TokenService, revoker TokenRevoker, logger zerolog.Logger, exposeErrors bool) *Handler {
	return &Handler{
		Credentials:  creds,
		Ledger:       ledger,
		Tokens:       tokens,
		Revoker:      revoker,
		Logger:       logger,
		ExposeErrors: exposeErrors,
	}
}

// respondError writes err as {message, error?} with its mapped status.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperrors.Status(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error().Err(err).
			Str("request_id", c.GetString(middleware.KeyRequestID)).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	_ = c.Error(err)
	c.JSON(status, apperrors.Response(err, h.ExposeErrors))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, apperrors.ErrorResponse{Message: message})
}

// requester reads the identity AuthMiddleware attached to the request.
func (h *Handler) requester(c *gin.Context) (services.Requester, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString(middleware.KeyUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, apperrors.ErrorResponse{Message: "Token is not valid"})
		return services.Requester{}, false
	}
	return services.Requester{ID: id, Role: c.GetString(middleware.KeyUserRole)}, true
}

// acceptedTimeLayouts are tried in order when parsing client timestamps.
// Layouts without a zone are read in the server's local time.
var acceptedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range acceptedTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDay reads a calendar day, either YYYY-MM-DD or a full timestamp, as a
// local date.
func parseDay(s string) (time.Time, bool) {
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, true
	}
	if t, ok := parseTimestamp(s); ok {
		return t.In(time.Local), true
	}
	return time.Time{}, false
}
