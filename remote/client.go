// Package remote calls the hosted polygon-inference service. Returned regions
// feed the same rasterizer and compiler as locally annotated ground truth.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Region is one predicted polygon with its class name.
type Region struct {
	Points     []float64 `json:"points"` // flat alternating x,y
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
}

type predictResponse struct {
	Predictions []Region `json:"predictions"`
}

// RetryableError marks a transient service failure: the call failed after the
// configured retries but may succeed later.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("remote inference unavailable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Client communicates with the remote inference service.
type Client struct {
	serviceURL string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
}

// NewClient creates a client with a per-call timeout and bounded retries with
// exponential backoff; network calls are the only transient failure source in
// the pipeline.
func NewClient(serviceURL string) *Client {
	if serviceURL == "" {
		serviceURL = "http://localhost:9001"
	}

	return &Client{
		serviceURL: serviceURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
}

// HealthCheck verifies the inference service is running.
func (c *Client) HealthCheck() error {
	resp, err := c.client.Get(c.serviceURL + "/health")
	if err != nil {
		return fmt.Errorf("inference service not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// Predict uploads the image and returns the predicted polygon regions with at
// least the given confidence. Transient failures (network errors, 5xx) are
// retried with exponential backoff and surface as *RetryableError once the
// retries are exhausted; 4xx responses fail immediately.
func (c *Client) Predict(ctx context.Context, imagePath string, confidence float64) ([]Region, error) {
	payload, contentType, err := buildForm(imagePath, confidence)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		regions, retryable, err := c.predictOnce(ctx, payload, contentType)
		if err == nil {
			return regions, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, &RetryableError{Err: lastErr}
}

func (c *Client) predictOnce(ctx context.Context, payload []byte, contentType string) ([]Region, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, true, fmt.Errorf("inference service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("inference service rejected request with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}

	return parsed.Predictions, false, nil
}

func buildForm(imagePath string, confidence float64) ([]byte, string, error) {
	file, err := os.Open(filepath.Clean(imagePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to copy image data: %w", err)
	}

	if err := writer.WriteField("confidence", strconv.FormatFloat(confidence, 'f', -1, 64)); err != nil {
		return nil, "", fmt.Errorf("failed to write confidence field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return body.Bytes(), writer.FormDataContentType(), nil
}
