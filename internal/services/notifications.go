package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harentsoaR/clinic-api/internal/models"
)

// NotificationService texts patients through the Textbelt API.
type NotificationService struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

func NewNotificationService(apiKey, endpoint string, logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// Enabled reports whether an API key is configured.
func (s *NotificationService) Enabled() bool {
	return s != nil && s.apiKey != ""
}

// VisitScheduled confirms a booking to the patient by SMS. It returns at once.
func (s *NotificationService) VisitScheduled(patient, doctor *models.User, v *models.Visit) {
	if !s.Enabled() {
		return
	}
	if patient.Phone == "" {
		s.logger.Debug().Str("visit_id", v.ID).Msg("sms not sent: patient has no phone number")
		return
	}

	body := fmt.Sprintf(
		"Visit %s confirmed with Dr. %s on %s.",
		v.ID,
		doctor.Name,
		v.ScheduledDate.Local().Format("Jan 2 at 3:04 PM"),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.send(ctx, patient.Phone, body); err != nil {
			s.logger.Warn().Err(err).Str("visit_id", v.ID).Msg("sms delivery failed")
			return
		}
		s.logger.Info().Str("visit_id", v.ID).Msg("sms sent")
	}()
}

// Wait blocks until in-flight messages are done. Used on shutdown.
func (s *NotificationService) Wait() {
	if s != nil {
		s.wg.Wait()
	}
}

func (s *NotificationService) send(ctx context.Context, phone, message string) error {
	payload, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
		"key":     s.apiKey,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode textbelt response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("textbelt: %s", result.Error)
	}
	return nil
}
