package backend

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
)

// HTTPBackend calls a completion service over HTTP. The bearer token, when
// set, is sent as an Authorization header on every request.
type HTTPBackend struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the HTTPBackend during construction.
type Option func(*httpConfig)

type httpConfig struct {
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *httpConfig) { cfg.httpClient = c }
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *httpConfig) { cfg.logger = l }
}

// WithTimeout sets a timeout on the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cfg *httpConfig) { cfg.timeout = d }
}

// NewHTTP creates an HTTPBackend for the given completion service.
func NewHTTP(baseURL, bearerToken string, opts ...Option) (*HTTPBackend, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("backend: baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	cfg := &httpConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &HTTPBackend{
		baseURL:    baseURL,
		token:      bearerToken,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (b *HTTPBackend) Name() string { return "http" }

type completionRS struct {
	Text string `json:"text"`
}

// Complete POSTs the request to /v1/complete and returns the raw model
// text. Latency is measured wall-clock around the call.
func (b *HTTPBackend) Complete(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("backend: marshal request: %w", err)
	}

	url := b.baseURL + "/v1/complete"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("backend: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.token)
	}

	b.logger.DebugContext(ctx, "completion request", "id", req.ID, "prompt_type", req.PromptType, "retry", req.Retry)

	start := time.Now()
	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("backend: complete %s: %w", req.ID, err)
	}
	defer resp.Body.Close()
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(respBody))
		if msg == "" {
			msg = resp.Status
		}
		return Response{}, fmt.Errorf("backend: complete %s: status %d: %s", req.ID, resp.StatusCode, msg)
	}

	var rs completionRS
	if err := json.NewDecoder(resp.Body).Decode(&rs); err != nil {
		return Response{}, fmt.Errorf("backend: decode response for %s: %w", req.ID, err)
	}
	return Response{Text: rs.Text, LatencyMS: elapsed}, nil
}
