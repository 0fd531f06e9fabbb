package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"recharge-platform/internal/domain/ports/adapter"
)

var _ adapter.Messenger = (*HTTPMessenger)(nil)

// HTTPMessenger implements adapter.Messenger against a JSON message-gateway
// API (WhatsApp/SMS bridge). The gateway owns phone-number normalization.
type HTTPMessenger struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPMessenger(baseURL, apiKey string, timeout time.Duration) (*HTTPMessenger, error) {
	if baseURL == "" {
		return nil, errors.New("messaging gateway url is empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPMessenger{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (m *HTTPMessenger) Name() string { return "http-gateway" }

func (m *HTTPMessenger) Send(ctx context.Context, phoneNumber, message string) (adapter.SendResult, error) {
	payload := map[string]string{
		"phone":   phoneNumber,
		"message": message,
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/messages", bytes.NewReader(b))
	if err != nil {
		return adapter.SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return adapter.SendResult{}, fmt.Errorf("messaging gateway: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Success   bool   `json:"success"`
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.SendResult{}, fmt.Errorf("messaging gateway decode: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		if out.Error == "" {
			out.Error = fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		}
		return adapter.SendResult{}, fmt.Errorf("messaging gateway: %s", out.Error)
	}
	return adapter.SendResult{MessageID: out.MessageID}, nil
}
