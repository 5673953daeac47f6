// Package upload pushes exercise catalogs to a remote SpineCare server.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/claude/spinecare/internal/models"
)

// Result mirrors content.Result without importing the content package
// (which would pull in storage and the database drivers).
type Result struct {
	ExercisesReceived int    `json:"exercises_received"`
	ExercisesUpserted int    `json:"exercises_upserted"`
	SetsReceived      int    `json:"sets_received"`
	SetsUpserted      int    `json:"sets_upserted"`
	Message           string `json:"message,omitempty"`
}

// Client sends catalogs to the SpineCare server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
	attempts   int
}

// NewClient creates a new HTTP client for the SpineCare server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff:  time.Second,
		attempts: 3,
	}
}

// SendCatalog POSTs the catalog as YAML to the server's content endpoint.
// Network errors and 5xx responses are retried with exponential backoff;
// other failures return immediately.
func (c *Client) SendCatalog(ctx context.Context, catalog *models.Catalog) (*Result, error) {
	data, err := yaml.Marshal(catalog)
	if err != nil {
		return nil, fmt.Errorf("marshaling catalog: %w", err)
	}

	var lastErr error
	for attempt := range c.attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		res, retry, err := c.post(ctx, data)
		if err == nil {
			return res, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.attempts, lastErr)
}

func (c *Client) post(ctx context.Context, data []byte) (*Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/content/", bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/yaml")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("content import failed (status %d): %s", resp.StatusCode, body)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("content import rejected (status %d): %s", resp.StatusCode, body)
	}

	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, false, fmt.Errorf("decoding import result: %w", err)
	}
	return &res, false, nil
}
