// Package messaging holds the transport drivers behind notification.Sender:
// SMS and WhatsApp over HTTP provider APIs, e-mail over SMTP.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"glasserp/internal/domain/notification"
)

// HTTPConfig configures an HTTP messaging provider.
type HTTPConfig struct {
	URL   string
	Token string
}

// HTTPSender posts {to, message} JSON to a provider endpoint with a bearer
// token. SMS and WhatsApp gateways share this shape.
type HTTPSender struct {
	channel notification.Channel
	url     string
	token   string
	http    *http.Client
}

// NewSMS creates the SMS driver. It returns nil when url is empty so the
// dispatcher skips the channel.
func NewSMS(cfg HTTPConfig) notification.Sender {
	return newHTTPSender(notification.ChannelSMS, cfg)
}

// NewWhatsApp creates the WhatsApp driver, nil when unconfigured.
func NewWhatsApp(cfg HTTPConfig) notification.Sender {
	return newHTTPSender(notification.ChannelWhatsApp, cfg)
}

func newHTTPSender(ch notification.Channel, cfg HTTPConfig) notification.Sender {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil
	}
	return &HTTPSender{
		channel: ch,
		url:     cfg.URL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type sendResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// Channel implements notification.Sender.
func (s *HTTPSender) Channel() notification.Channel {
	return s.channel
}

// Send delivers the message body to the recipient's phone.
func (s *HTTPSender) Send(ctx context.Context, to notification.Recipient, msg notification.Message) error {
	body, err := json.Marshal(sendRequest{To: providerPhone(to.Phone), Message: msg.Body})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", s.channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", s.channel, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("send %s: %w", s.channel, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s provider error %d: %s", s.channel, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed sendResponse
	if json.Unmarshal(raw, &parsed) == nil && parsed.Success != nil && !*parsed.Success {
		return fmt.Errorf("%s provider rejected message: %s", s.channel, parsed.Message)
	}
	return nil
}

// providerPhone strips the leading plus of an E.164 number; providers take
// the bare country code form (919876543210).
func providerPhone(p string) string {
	return strings.TrimPrefix(strings.TrimSpace(p), "+")
}
