// Package notify delivers human-readable care notifications to the
// configured sink. Delivery is best effort for event announcements; the
// reminder poller decides retry based on the returned error.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bagiro44/baby-tracker/internal"
)

type Sink interface {
	Deliver(ctx context.Context, subjectID int64, kind internal.ReminderKind, message string) error
	Announce(ctx context.Context, subjectID int64, message string) error
}

// LogSink writes notifications to the log; the development default.
type LogSink struct {
	logger internal.Logger
}

func NewLogSink(logger internal.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, subjectID int64, kind internal.ReminderKind, message string) error {
	s.logger.Infof("reminder [subject=%d kind=%s] %s", subjectID, kind, message)
	return nil
}

func (s *LogSink) Announce(ctx context.Context, subjectID int64, message string) error {
	s.logger.Infof("notify [subject=%d] %s", subjectID, message)
	return nil
}

// WebhookSink POSTs notifications as JSON to an external chat relay.
type WebhookSink struct {
	URL        string
	HTTPClient *http.Client
	logger     internal.Logger
}

func NewWebhookSink(url string, logger internal.Logger) *WebhookSink {
	return &WebhookSink{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

type webhookPayload struct {
	SubjectID int64  `json:"subject_id"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message"`
}

func (s *WebhookSink) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", s.URL, bytes.NewReader(body))
	if err != nil {
		s.logger.Errorf("failed to create webhook request: %v", err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		s.logger.Errorf("failed to call webhook: %v", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.logger.Errorf("webhook returned %d", resp.StatusCode)
		return errors.New("webhook returned non-200")
	}
	return nil
}

func (s *WebhookSink) Deliver(ctx context.Context, subjectID int64, kind internal.ReminderKind, message string) error {
	return s.post(ctx, webhookPayload{SubjectID: subjectID, Kind: string(kind), Message: message})
}

func (s *WebhookSink) Announce(ctx context.Context, subjectID int64, message string) error {
	return s.post(ctx, webhookPayload{SubjectID: subjectID, Message: message})
}

var _ Sink = (*LogSink)(nil)
var _ Sink = (*WebhookSink)(nil)
