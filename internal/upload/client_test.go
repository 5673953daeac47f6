package upload

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/spinecare/internal/models"
)

var testCatalog = &models.Catalog{
	Exercises: []models.Exercise{{ID: "plank_001", Title: "Plank", DurationSeconds: 30, Difficulty: models.DifficultyBeginner, IsCompleted: true}},
	Sets:      []models.ExerciseSet{{ID: "core", Name: "Core", ExerciseIDs: []string{"plank_001"}}},
}

func newTestClient(url string) *Client {
	c := NewClient(url+"/", "secret")
	c.backoff = time.Millisecond
	return c
}

// TestSendCatalog verifies the catalog is posted as YAML with the API key
// and without completion flags.
func TestSendCatalog(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/content/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("api key = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "id: plank_001") {
			t.Errorf("body missing exercise: %s", body)
		}
		if strings.Contains(string(body), "completed") {
			t.Errorf("body leaks completion flag: %s", body)
		}
		w.Write([]byte(`{"exercises_received":1,"exercises_upserted":1,"sets_received":1,"sets_upserted":1}`))
	}))
	defer ts.Close()

	res, err := newTestClient(ts.URL).SendCatalog(context.Background(), testCatalog)
	if err != nil {
		t.Fatalf("SendCatalog: %v", err)
	}
	if res.ExercisesUpserted != 1 || res.SetsUpserted != 1 {
		t.Errorf("result = %+v", res)
	}
}

// TestSendCatalogRetriesServerErrors verifies 5xx responses are retried.
func TestSendCatalogRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":"busy"}`, http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"exercises_upserted":1}`))
	}))
	defer ts.Close()

	if _, err := newTestClient(ts.URL).SendCatalog(context.Background(), testCatalog); err != nil {
		t.Fatalf("SendCatalog: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

// TestSendCatalogNoRetryOnRejection verifies 4xx responses fail at once.
func TestSendCatalogNoRetryOnRejection(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"invalid API key"}`, http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).SendCatalog(context.Background(), testCatalog)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("err = %v, want 403 rejection", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
