// Package gcs is a minimal blob-store client for gear images, training
// videos and chat attachments. The rest of the core only ever consumes the
// final download URL string.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/crewdeck-app/crewdeck-backend/pkg/config"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
)

const (
	uploadEndpoint = "https://storage.googleapis.com/upload/storage/v1"
	objectBaseURL  = "https://storage.googleapis.com"
	metadataToken  = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"
	pingTimeout    = 5 * time.Second
)

type Client struct {
	httpClient    *http.Client
	defaultBucket string
	tokens        tokenSource
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds a blob-store client for the configured bucket, fetching
// access tokens from the instance metadata service.
func NewClient(ctx context.Context, cfg config.GCSConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	client := &Client{
		httpClient:    httpClient,
		defaultBucket: cfg.BucketName,
		tokens:        newMetadataTokenSource(httpClient),
	}
	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}
	return client, nil
}

// Upload streams an object into the bucket and returns its download URL.
func (c *Client) Upload(ctx context.Context, object string, body io.Reader, contentType string) (string, error) {
	trimmed := strings.TrimLeft(strings.TrimSpace(object), "/")
	if trimmed == "" {
		return "", errors.New("object name is required")
	}

	endpoint := fmt.Sprintf("%s/b/%s/o?uploadType=media&name=%s",
		uploadEndpoint, url.PathEscape(c.defaultBucket), url.QueryEscape(trimmed))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	token, err := c.tokens.token(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", trimmed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("upload of %s returned %d: %s", trimmed, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return c.DownloadURL(trimmed), nil
}

// DownloadURL returns the stable object URL for a previously uploaded blob.
func (c *Client) DownloadURL(object string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(object), "/")
	return fmt.Sprintf("%s/%s/%s", objectBaseURL, url.PathEscape(c.defaultBucket), trimmed)
}

// Ping verifies a token can be minted.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return errors.New("gcs client not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	_, err := c.tokens.token(pingCtx)
	return err
}

func (c *Client) Close() error {
	return nil
}

type tokenSource interface {
	token(ctx context.Context) (string, error)
}

type metadataTokenSource struct {
	httpClient *http.Client

	mu      sync.Mutex
	cached  string
	expires time.Time
}

func newMetadataTokenSource(httpClient *http.Client) *metadataTokenSource {
	return &metadataTokenSource{httpClient: httpClient}
}

func (s *metadataTokenSource) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != "" && time.Now().Before(s.expires) {
		return s.cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataToken, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Metadata-Flavor", "Google")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("querying metadata token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata token endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding metadata token: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("metadata token endpoint returned empty token")
	}
	s.cached = payload.AccessToken
	s.expires = time.Now().Add(time.Duration(payload.ExpiresIn-60) * time.Second)
	return s.cached, nil
}
