// Package gateway wraps the remote prompt-generation backend behind a
// uniform contract: every call is a single attempt with a bounded
// timeout, and every transport, timeout, non-success, or parse problem
// is normalized into a *Failure so callers never see a raw transport
// error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Failure is the single recoverable error shape produced by the
// gateway. Callers are expected to fall back to deterministic local
// content when they see one.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return "gateway: " + f.Message
}

func failf(format string, args ...any) *Failure {
	return &Failure{Message: fmt.Sprintf(format, args...)}
}

// Attachment is an optional binary file forwarded to the backend.
type Attachment struct {
	Filename string
	Data     []byte
}

// GenerateRequest carries the product form fields for a batch
// generation call.
type GenerateRequest struct {
	ProductName     string
	SellingPoints   string // newline-separated
	TargetMarket    string
	TargetLanguage  string
	OutputCount     int
	AudioOption     string
	BGMStyle        string
	MotionIntensity string
	Image           *Attachment
	Video           *Attachment
}

// RegenerateRequest asks the backend for a targeted variant of an
// existing prompt.
type RegenerateRequest struct {
	ResultID       string `json:"result_id"`
	OriginalPrompt string `json:"original_prompt"`
	AdjustmentType string `json:"adjustment_type"`
	Note           string `json:"note"`
}

// RawResult is the backend's payload for one generated prompt. Missing
// fields are defaulted once, at the store boundary.
type RawResult struct {
	ID          string          `json:"id"`
	Audit       json.RawMessage `json:"audit,omitempty"`
	Tradeoff    string          `json:"tradeoff,omitempty"`
	AVPlan      string          `json:"av_plan,omitempty"`
	FinalPrompt string          `json:"final_prompt"`
	Tags        []string        `json:"tags,omitempty"`
	Note        string          `json:"note,omitempty"`
}

// Client abstracts the three remote operations.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) ([]RawResult, error)
	Regenerate(ctx context.Context, req RegenerateRequest) (*RawResult, error)
	Optimize(ctx context.Context, prompt string) (string, error)
}

const (
	defaultBaseURL         = "http://localhost:8000"
	defaultGenerateTimeout = 180 * time.Second
	defaultMutateTimeout   = 120 * time.Second
)

// HTTPClient talks to the generation backend over HTTP.
type HTTPClient struct {
	baseURL         string
	generateTimeout time.Duration
	mutateTimeout   time.Duration
	httpClient      *http.Client
}

var _ Client = (*HTTPClient)(nil)

// Option configures the HTTP client.
type Option func(*HTTPClient)

// WithBaseURL overrides the backend base URL (default http://localhost:8000).
func WithBaseURL(url string) Option {
	return func(c *HTTPClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithTimeouts overrides the per-call timeouts for generate and for the
// regenerate/optimize operations.
func WithTimeouts(generate, mutate time.Duration) Option {
	return func(c *HTTPClient) {
		c.generateTimeout = generate
		c.mutateTimeout = mutate
	}
}

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// New creates an HTTP gateway client.
func New(opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:         defaultBaseURL,
		generateTimeout: defaultGenerateTimeout,
		mutateTimeout:   defaultMutateTimeout,
		httpClient:      &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateResponse struct {
	Results []RawResult `json:"results"`
}

type regenerateResponse struct {
	Result RawResult `json:"result"`
}

type optimizeRequest struct {
	Prompt string `json:"prompt"`
}

type optimizeResponse struct {
	OptimizedPrompt string `json:"optimized_prompt"`
}

// Generate submits the product form as multipart/form-data and returns
// the batch of raw prompt payloads.
func (c *HTTPClient) Generate(ctx context.Context, req GenerateRequest) ([]RawResult, error) {
	body, contentType, err := encodeGenerateForm(req)
	if err != nil {
		return nil, failf("encode form: %v", err)
	}

	respBody, err := c.post(ctx, "/generate", contentType, body, c.generateTimeout)
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, failf("decode generate response: %v", err)
	}
	if len(resp.Results) == 0 {
		return nil, failf("generate response contains no results")
	}
	return resp.Results, nil
}

// Regenerate requests a targeted variant of one prompt.
func (c *HTTPClient) Regenerate(ctx context.Context, req RegenerateRequest) (*RawResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, failf("encode regenerate request: %v", err)
	}

	respBody, err := c.post(ctx, "/regenerate", "application/json", bytes.NewReader(body), c.mutateTimeout)
	if err != nil {
		return nil, err
	}

	var resp regenerateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, failf("decode regenerate response: %v", err)
	}
	if resp.Result.FinalPrompt == "" {
		return nil, failf("regenerate response carries no prompt")
	}
	return &resp.Result, nil
}

// Optimize asks the backend to validate and rewrite a prompt draft.
func (c *HTTPClient) Optimize(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(optimizeRequest{Prompt: prompt})
	if err != nil {
		return "", failf("encode optimize request: %v", err)
	}

	respBody, err := c.post(ctx, "/validate_and_optimize", "application/json", bytes.NewReader(body), c.mutateTimeout)
	if err != nil {
		return "", err
	}

	var resp optimizeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", failf("decode optimize response: %v", err)
	}
	if resp.OptimizedPrompt == "" {
		return "", failf("optimize response carries no prompt")
	}
	return resp.OptimizedPrompt, nil
}

// post performs a single attempt against the backend. No retries: the
// caller decides what to do with a Failure.
func (c *HTTPClient) post(ctx context.Context, path, contentType string, body io.Reader, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, failf("create request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, failf("%s: %v", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failf("read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, failf("%s: HTTP %d: %s", path, resp.StatusCode, truncate(string(respBody), 200))
	}
	return respBody, nil
}

func encodeGenerateForm(req GenerateRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"product_name":     req.ProductName,
		"selling_points":   req.SellingPoints,
		"target_market":    req.TargetMarket,
		"target_language":  req.TargetLanguage,
		"output_count":     strconv.Itoa(req.OutputCount),
		"audio_option":     req.AudioOption,
		"bgm_style":        req.BGMStyle,
		"motion_intensity": req.MotionIntensity,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	for _, file := range []struct {
		field string
		att   *Attachment
	}{
		{"image", req.Image},
		{"video", req.Video},
	} {
		if file.att == nil {
			continue
		}
		part, err := w.CreateFormFile(file.field, file.att.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.att.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
