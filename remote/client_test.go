package remote

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "part.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return path
}

func newTestClient(url string) *Client {
	c := NewClient(url)
	c.backoff = time.Millisecond
	return c
}

func TestPredictParsesRegions(t *testing.T) {
	t.Parallel()

	var gotConfidence string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		gotConfidence = r.FormValue("confidence")
		if _, _, err := r.FormFile("image"); err != nil {
			t.Errorf("image part missing: %v", err)
		}
		json.NewEncoder(w).Encode(predictResponse{Predictions: []Region{
			{Points: []float64{1, 1, 5, 1, 5, 5}, Class: "scratch", Confidence: 0.92},
		}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	regions, err := client.Predict(context.Background(), writeTestImage(t), 0.8)
	if err != nil {
		t.Fatalf("Predict returned error: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	if regions[0].Class != "scratch" || len(regions[0].Points) != 6 {
		t.Fatalf("unexpected region: %+v", regions[0])
	}
	if gotConfidence != "0.8" {
		t.Fatalf("confidence field = %q, want 0.8", gotConfidence)
	}
}

func TestPredictRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(predictResponse{})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Predict(context.Background(), writeTestImage(t), 0.5); err != nil {
		t.Fatalf("Predict returned error after recoverable failures: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("server saw %d attempts, want 3", attempts)
	}
}

func TestPredictExhaustedRetriesAreRetryableError(t *testing.T) {
	t.Parallel()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Predict(context.Background(), writeTestImage(t), 0.5)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	var retryable *RetryableError
	if !errors.As(err, &retryable) {
		t.Fatalf("error %v is not a RetryableError", err)
	}
	if attempts != 4 {
		t.Fatalf("server saw %d attempts, want initial try plus 3 retries", attempts)
	}
}

func TestPredictClientErrorFailsFast(t *testing.T) {
	t.Parallel()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "bad image", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Predict(context.Background(), writeTestImage(t), 0.5)
	if err == nil {
		t.Fatal("expected error for rejected request")
	}
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		t.Fatalf("client error must not be retryable: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("server saw %d attempts, want 1", attempts)
	}
}

func TestPredictMissingImageFile(t *testing.T) {
	t.Parallel()

	client := newTestClient("http://localhost:1")
	if _, err := client.Predict(context.Background(), "no/such/image.png", 0.5); err == nil {
		t.Fatal("expected error for missing image file")
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := newTestClient(server.URL).HealthCheck(); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}
