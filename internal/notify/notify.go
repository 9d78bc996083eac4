// Package notify is the outbound notification boundary used for one-time-code
// delivery. Send failures are logged by callers and never surfaced to end
// users, so account existence cannot be probed through delivery errors.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"covoy.app/internal/obs"
)

// Message is one outbound notification.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// Sender delivers a message to a recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPSender posts messages to a transactional mail provider.
type HTTPSender struct {
	endpoint   string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewHTTPSender(endpoint, apiKey, from string) *HTTPSender {
	return &HTTPSender{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type mailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(mailRequest{
		From:    s.from,
		To:      []string{msg.Recipient},
		Subject: msg.Subject,
		HTML:    msg.Body,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("notify: provider status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// LogSender writes messages to the service log. Used when no mail provider is
// configured, e.g. in development.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	obs.Logger().Printf(`{"level":"info","msg":"notification (no provider configured)","recipient":%q,"subject":%q}`, msg.Recipient, msg.Subject)
	return nil
}
