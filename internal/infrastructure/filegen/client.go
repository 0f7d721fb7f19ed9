// Package filegen calls the placement file-generation service, the one
// downstream dependency that can fail or slow down. Every call goes through
// the circuit breaker and the retry policy; the breaker is re-checked on
// each retry attempt because it sits inside the retried operation.
package filegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/nedlia/placement-api/internal/config"
	"github.com/nedlia/placement-api/internal/domain/entity"
	"github.com/nedlia/placement-api/pkg/resilience"
)

// BreakerName identifies this dependency in the breaker registry and on the
// readiness endpoint.
const BreakerName = "filegen"

// TransportError is a failed HTTP exchange with the render service.
type TransportError struct {
	StatusCode int // 0 when the request never completed
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("filegen request failed: %v", e.Err)
	}
	return fmt.Sprintf("filegen returned status %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable classifies errors for the retry policy. Network failures,
// timeouts, 429 and 5xx responses are transient; everything else, including
// an open circuit, propagates immediately.
func IsRetryable(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		if te.StatusCode == 0 {
			return true // connection-level failure
		}
		return te.StatusCode == http.StatusTooManyRequests || te.StatusCode >= 500
	}
	return false
}

type generateRequest struct {
	PlacementID uuid.UUID        `json:"placement_id"`
	VideoID     uuid.UUID        `json:"video_id"`
	ProductID   uuid.UUID        `json:"product_id"`
	StartTime   float64          `json:"start_time"`
	EndTime     float64          `json:"end_time"`
	Position    *entity.Position `json:"position,omitempty"`
}

type generateResponse struct {
	FileURL string `json:"file_url"`
}

// Client asks the render service to generate a placement overlay file.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
	retry      resilience.RetryPolicy
}

// NewClient creates a file-generation client guarded by the given breaker
// and retry policy.
func NewClient(cfg config.FileGenConfig, breaker *resilience.Breaker, retry resilience.RetryPolicy) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		retry:      retry,
	}
}

// Generate requests overlay generation for the placement and returns the
// resulting file URL. Only transient failures count against the breaker:
// a deterministic rejection of one placement's payload says nothing about
// the render service's health and must not open the circuit for others.
func (c *Client) Generate(ctx context.Context, placement *entity.Placement) (string, error) {
	var fileURL string
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var permanentErr error
		err := c.breaker.Execute(func() error {
			url, err := c.generateOnce(ctx, placement)
			if err != nil {
				if !IsRetryable(err) {
					permanentErr = err
					return nil
				}
				return err
			}
			fileURL = url
			return nil
		})
		if err != nil {
			return err
		}
		return permanentErr
	}, IsRetryable)
	return fileURL, err
}

func (c *Client) generateOnce(ctx context.Context, placement *entity.Placement) (string, error) {
	body, err := json.Marshal(generateRequest{
		PlacementID: placement.ID,
		VideoID:     placement.VideoID,
		ProductID:   placement.ProductID,
		StartTime:   placement.StartTime,
		EndTime:     placement.EndTime,
		Position:    placement.Position,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{StatusCode: resp.StatusCode}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.FileURL, nil
}
