// Package vision calls the image classification inference service.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/imagedex/internal/domain"
	"github.com/kailas-cloud/imagedex/internal/metrics"
)

const (
	classifyPath = "/v1/classify"
	healthPath   = "/healthz"

	// maxErrorBody bounds how much of an error response is read for logging.
	maxErrorBody = 4 << 10
)

// Classifier labels images through the inference service's JSON API.
type Classifier struct {
	baseURL string
	topK    int
	client  *http.Client
	logger  *zap.Logger
}

// Config holds the classifier client settings.
type Config struct {
	BaseURL string
	TopK    int
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClassifier creates an inference service client.
func NewClassifier(cfg *Config) *Classifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Classifier{
		baseURL: cfg.BaseURL,
		topK:    cfg.TopK,
		client:  &http.Client{Timeout: timeout},
		logger:  cfg.Logger,
	}
}

type classifyRequest struct {
	Image string `json:"image"`
	TopK  int    `json:"top_k,omitempty"`
}

type classifyResponse struct {
	Predictions [][]struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"predictions"`
}

// Classify implements domain.Classifier. The image travels base64-encoded;
// the response keeps the service's nested per-image shape.
func (c *Classifier) Classify(ctx context.Context, image []byte) ([][]domain.Prediction, error) {
	body, err := json.Marshal(classifyRequest{
		Image: base64.StdEncoding.EncodeToString(image),
		TopK:  c.topK,
	})
	if err != nil {
		return nil, fmt.Errorf("encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+classifyPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := c.client.Do(req)

	duration := time.Since(start)

	if err != nil {
		metrics.ClassifierRequestsTotal.WithLabelValues("error").Inc()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("classify request: %w", ctx.Err())
		}
		return nil, fmt.Errorf("classify request: %w: %w", domain.ErrClassifierUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.ClassifierRequestsTotal.WithLabelValues("error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("Classifier returned error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return nil, fmt.Errorf("classifier status %d: %w", resp.StatusCode, domain.ErrClassifierUnavailable)
	}

	var parsed classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.ClassifierRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode classify response: %w: %w", domain.ErrClassifierUnavailable, err)
	}

	metrics.ClassifierRequestsTotal.WithLabelValues("success").Inc()
	metrics.ClassifierRequestDuration.Observe(duration.Seconds())

	preds := make([][]domain.Prediction, len(parsed.Predictions))
	var total int
	for i, image := range parsed.Predictions {
		preds[i] = make([]domain.Prediction, len(image))
		for j, p := range image {
			preds[i][j] = domain.Prediction{Label: p.Label, Confidence: p.Confidence}
		}
		total += len(image)
	}
	metrics.ClassifierTagsPerImage.Observe(float64(total))

	return preds, nil
}

// HealthCheck verifies inference service availability.
func (c *Classifier) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("classifier health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier health status %d", resp.StatusCode)
	}
	return nil
}
