package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

// whatsappBodyLimit keeps free-text messages inside Meta's template-free
// message size limit.
const whatsappBodyLimit = 1000

// WhatsAppSender pushes messages through the Meta Graph API.
type WhatsAppSender struct {
	httpClient *http.Client
	baseURL    string
	token      string
	phoneID    string
	template   string
	logger     *logging.Logger
}

// WhatsAppConfig holds Meta Graph API credentials.
type WhatsAppConfig struct {
	Token         string
	PhoneNumberID string
	// TemplateName is the pre-approved template used as a fallback when a
	// free-text send is rejected (for example outside the 24-hour window).
	TemplateName string
	// BaseURL overrides the Graph API endpoint in tests.
	BaseURL string
}

// NewWhatsAppSender creates a sender, or nil when credentials are absent.
func NewWhatsAppSender(cfg WhatsAppConfig, logger *logging.Logger) *WhatsAppSender {
	if cfg.Token == "" || cfg.PhoneNumberID == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v22.0"
	}
	template := cfg.TemplateName
	if template == "" {
		template = "hello_world"
	}
	return &WhatsAppSender{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		token:      cfg.Token,
		phoneID:    cfg.PhoneNumberID,
		template:   template,
		logger:     logger,
	}
}

// Send delivers a free-text message, falling back to the configured template
// when the Graph API rejects the text send.
func (s *WhatsAppSender) Send(ctx context.Context, toPhone, body string) error {
	if len(body) > whatsappBodyLimit {
		body = body[:whatsappBodyLimit]
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                toPhone,
		"type":              "text",
		"text":              map[string]any{"body": body},
	}
	if err := s.post(ctx, payload); err == nil {
		s.logger.Info("whatsapp message sent", "to", toPhone)
		return nil
	} else {
		s.logger.Warn("whatsapp text send rejected, falling back to template", "to", toPhone, "error", err)
	}

	fallback := map[string]any{
		"messaging_product": "whatsapp",
		"to":                toPhone,
		"type":              "template",
		"template": map[string]any{
			"name":     s.template,
			"language": map[string]any{"code": "en_US"},
		},
	}
	if err := s.post(ctx, fallback); err != nil {
		return fmt.Errorf("notify: whatsapp template fallback failed: %w", err)
	}
	s.logger.Info("whatsapp template sent", "to", toPhone, "template", s.template)
	return nil
}

func (s *WhatsAppSender) post(ctx context.Context, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("notify: build whatsapp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: whatsapp request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: whatsapp returned status %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
