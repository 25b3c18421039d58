package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/focusguard/focusd/internal/log"
	"github.com/focusguard/focusd/pkg/record"
)

// HTTPConfig configures the model-server client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// HTTPClient calls a local model server exposing one /predict/<task>
// endpoint per model. It implements all three classifier interfaces.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewHTTPClient creates a model-server client.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.L()
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With("component", "classify.http"),
	}
}

type predictRequest struct {
	Input    string    `json:"input,omitempty"`
	Features []float64 `json:"features,omitempty"`
}

type predictResponse struct {
	Label string `json:"label"`
	Error string `json:"error,omitempty"`
}

// PredictProductivity implements ProductivityClassifier.
func (c *HTTPClient) PredictProductivity(ctx context.Context, f record.FocusRecord, cr record.ContextRecord) (string, error) {
	return c.predict(ctx, "productivity", predictRequest{Input: ProductivityPrompt(f, cr)})
}

// PredictService implements ServiceExtractor.
func (c *HTTPClient) PredictService(ctx context.Context, app, title, url string) (string, error) {
	return c.predict(ctx, "service", predictRequest{Input: ServicePrompt(app, title, url)})
}

// PredictEmotion implements EmotionClassifier.
func (c *HTTPClient) PredictEmotion(ctx context.Context, features []float64) (string, error) {
	return c.predict(ctx, "emotion", predictRequest{Features: features})
}

func (c *HTTPClient) predict(ctx context.Context, task string, payload predictRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s request: %w", task, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict/"+task, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", task, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s predict: %w", task, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%s predict: status %d: %s", task, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode %s response: %w", task, err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("%s predict: %s", task, result.Error)
	}
	if result.Label == "" {
		return "", fmt.Errorf("%s predict: empty label", task)
	}

	c.logger.Debug("predict", "task", task, "label", result.Label,
		"latency_ms", time.Since(start).Milliseconds())
	return result.Label, nil
}
