// Package push wraps the push-notification provider's REST API. Recipients
// are addressed by external user id (the member's email); one request
// delivers to the whole list, so fan-out stays O(1) external calls per
// message.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL             = "https://api.pushrelay.io/v1"
	responseBodyReadLimit      = 4096
	defaultRequestTimeout      = 10 * time.Second
	maxRecipientsPerDispatch   = 2000
	externalIDChannelIdentForm = "external_id"
)

var (
	errAppIDRequired  = errors.New("push app id is required")
	errAPIKeyRequired = errors.New("push rest api key is required")
)

// Client talks to the push provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the provider base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the push client given the application id and REST key.
func NewClient(appID, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(appID) == "" {
		return nil, errAppIDRequired
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		baseURL:    defaultBaseURL,
		appID:      strings.TrimSpace(appID),
		apiKey:     strings.TrimSpace(apiKey),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Notification is a single outbound push addressed to a recipient list.
type Notification struct {
	Recipients []string
	Title      string
	Body       string
	Data       map[string]string
}

type sendRequest struct {
	AppID              string            `json:"app_id"`
	IncludeExternalIDs []string          `json:"include_external_user_ids"`
	ChannelByID        string            `json:"channel_for_external_user_ids"`
	Headings           map[string]string `json:"headings"`
	Contents           map[string]string `json:"contents"`
	Data               map[string]string `json:"data,omitempty"`
}

// Send dispatches one notification to the full recipient list in a single
// provider call.
func (c *Client) Send(ctx context.Context, n Notification) error {
	if len(n.Recipients) == 0 {
		return errors.New("at least one recipient is required")
	}
	if len(n.Recipients) > maxRecipientsPerDispatch {
		return fmt.Errorf("recipient list of %d exceeds provider limit %d", len(n.Recipients), maxRecipientsPerDispatch)
	}
	payload := sendRequest{
		AppID:              c.appID,
		IncludeExternalIDs: n.Recipients,
		ChannelByID:        externalIDChannelIdentForm,
		Headings:           map[string]string{"en": n.Title},
		Contents:           map[string]string{"en": n.Body},
		Data:               n.Data,
	}
	return c.post(ctx, "/notifications", payload)
}

// Login binds an external user id to the caller's device registration.
func (c *Client) Login(ctx context.Context, externalID string) error {
	trimmed := strings.TrimSpace(externalID)
	if trimmed == "" {
		return errors.New("external id is required")
	}
	payload := map[string]string{
		"app_id":           c.appID,
		"external_user_id": trimmed,
	}
	return c.post(ctx, "/users/login", payload)
}

// Logout clears the external user id binding.
func (c *Client) Logout(ctx context.Context) error {
	payload := map[string]string{"app_id": c.appID}
	return c.post(ctx, "/users/logout", payload)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding push request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling push provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return fmt.Errorf("push provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
