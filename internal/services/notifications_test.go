package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/clinic-api/internal/models"
)

type textbeltStub struct {
	mu       sync.Mutex
	received []map[string]string
	reply    string
}

func (s *textbeltStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	s.received = append(s.received, body)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(s.reply))
}

func TestVisitScheduled_SendsSMS(t *testing.T) {
	stub := &textbeltStub{reply: `{"success":true,"textId":"1"}`}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	n := NewNotificationService("test-key", srv.URL, zerolog.Nop())
	patient := &models.User{Name: "Ana", Phone: "+261340000000"}
	doctor := &models.User{Name: "House"}
	visit := &models.Visit{ID: "VISIT000007", ScheduledDate: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}

	n.VisitScheduled(patient, doctor, visit)
	n.Wait()

	require.Len(t, stub.received, 1)
	msg := stub.received[0]
	assert.Equal(t, "+261340000000", msg["phone"])
	assert.Equal(t, "test-key", msg["key"])
	assert.Contains(t, msg["message"], "VISIT000007")
	assert.Contains(t, msg["message"], "Dr. House")
}

func TestVisitScheduled_SkipsWithoutKeyOrPhone(t *testing.T) {
	stub := &textbeltStub{reply: `{"success":true}`}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	visit := &models.Visit{ID: "VISIT000001"}
	doctor := &models.User{Name: "House"}

	disabled := NewNotificationService("", srv.URL, zerolog.Nop())
	assert.False(t, disabled.Enabled())
	disabled.VisitScheduled(&models.User{Phone: "+1"}, doctor, visit)
	disabled.Wait()

	enabled := NewNotificationService("key", srv.URL, zerolog.Nop())
	enabled.VisitScheduled(&models.User{}, doctor, visit)
	enabled.Wait()

	assert.Empty(t, stub.received)

	var nilService *NotificationService
	assert.False(t, nilService.Enabled())
	nilService.Wait()
}

func TestSend_ReportsProviderErrors(t *testing.T) {
	stub := &textbeltStub{reply: `{"success":false,"error":"Out of quota"}`}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	n := NewNotificationService("key", srv.URL, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := n.send(ctx, "+1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Out of quota")
}
