package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/spinecare/internal/models"
)

// HTTPClient implements DataSource by calling the SpineCare REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

var errNotFound = errors.New("not found")

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// get fetches path and decodes the JSON body into v. A 404 yields
// errNotFound.
func (c *HTTPClient) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	var out []models.Exercise
	if err := c.get(ctx, "/api/v1/exercises", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetExercise(ctx context.Context, id string) (models.Exercise, bool, error) {
	var e models.Exercise
	err := c.get(ctx, "/api/v1/exercises/"+url.PathEscape(id), &e)
	if errors.Is(err, errNotFound) {
		return models.Exercise{}, false, nil
	}
	if err != nil {
		return models.Exercise{}, false, err
	}
	return e, true, nil
}

func (c *HTTPClient) ListExerciseSets(ctx context.Context) ([]models.ExerciseSet, error) {
	var summaries []models.SetSummary
	if err := c.get(ctx, "/api/v1/sets", &summaries); err != nil {
		return nil, err
	}
	sets := make([]models.ExerciseSet, len(summaries))
	for i, s := range summaries {
		sets[i] = s.ExerciseSet
	}
	return sets, nil
}

func (c *HTTPClient) setDetail(ctx context.Context, id string) (*models.SetDetail, error) {
	var d models.SetDetail
	if err := c.get(ctx, "/api/v1/sets/"+url.PathEscape(id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) GetExerciseSet(ctx context.Context, id string) (models.ExerciseSet, bool, error) {
	d, err := c.setDetail(ctx, id)
	if errors.Is(err, errNotFound) {
		return models.ExerciseSet{}, false, nil
	}
	if err != nil {
		return models.ExerciseSet{}, false, err
	}
	return d.Set, true, nil
}

// ListExercisesForSet returns no exercises for an unknown set, matching
// the database behaviour.
func (c *HTTPClient) ListExercisesForSet(ctx context.Context, setID string) ([]models.Exercise, error) {
	d, err := c.setDetail(ctx, setID)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d.Exercises, nil
}
