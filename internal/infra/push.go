package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PushMessage is the payload posted to the push gateway for one device.
type PushMessage struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type pushRequest struct {
	Message struct {
		Token        string            `json:"token"`
		Notification struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"notification"`
		Data map[string]string `json:"data,omitempty"`
	} `json:"message"`
}

// PushClient delivers device notifications through an FCM-compatible HTTP
// endpoint (POST {"message": {...}} with a bearer token).
type PushClient struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
}

func NewPushClient(endpoint, accessToken string) *PushClient {
	return &PushClient{
		endpoint:    endpoint,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled is false when no endpoint is configured.
func (c *PushClient) Enabled() bool { return c.endpoint != "" }

// Send posts one message. Any non-2xx reply is an error.
func (c *PushClient) Send(ctx context.Context, msg PushMessage) error {
	var payload pushRequest
	payload.Message.Token = msg.Token
	payload.Message.Notification.Title = msg.Title
	payload.Message.Notification.Body = msg.Body
	payload.Message.Data = msg.Data

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("push: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("push: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push: gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push: gateway returned %d", resp.StatusCode)
	}
	return nil
}
