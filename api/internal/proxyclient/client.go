// Package proxyclient talks to a running gwa-proxy through the POST /api/gemini
// action envelope and exposes it as an ocr.Engine.
package proxyclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"gwa-helper/api/internal/extraction"
	"gwa-helper/api/internal/ocr"
	"gwa-helper/api/internal/ocr/types"
	"gwa-helper/api/internal/util"
)

const (
	gatewayPath = "/api/gemini"
	userAgent   = "gwa-helper/0.1"

	rateLimitRequests = 2
	rateLimitDuration = time.Second
)

// APIError is a non-2xx reply from the proxy.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("proxy error (%d): %s", e.Status, e.Message)
}

// Client implements ocr.Engine against a remote proxy.
type Client struct {
	baseURL     string
	llmName     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

var _ ocr.Engine = (*Client)(nil)

// New creates a client for baseURL; llmName selects the engine on the proxy, empty means its default.
func New(baseURL, llmName string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		llmName:     strings.TrimSpace(llmName),
		httpClient:  &http.Client{},
		rateLimiter: rate.NewLimiter(rate.Every(rateLimitDuration/rateLimitRequests), rateLimitRequests),
	}
}

// WithHTTPClient swaps the underlying HTTP client (tests, custom transports).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) Name() string {
	if c.llmName == "" {
		return "proxy"
	}
	return c.llmName
}

// GetModel is unknown on the client side; the proxy picks the model.
func (c *Client) GetModel() string { return "" }

func (c *Client) ExtractCourses(ctx context.Context, in types.ExtractRequest) (extraction.Result, error) {
	if len(in.Image) == 0 {
		return extraction.Result{}, util.ErrEmptyImage
	}
	mime := util.PickMIME(in.Mime, "", in.Image)
	data := types.ExtractGradesData{
		ImageBase64: base64.StdEncoding.EncodeToString(in.Image),
		MimeType:    mime,
	}
	var out extraction.Result
	if err := c.do(ctx, types.ActionExtractGrades, data, &out); err != nil {
		return extraction.Result{}, err
	}
	return out.Coerce(), nil
}

func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	var out types.TextResult
	if err := c.do(ctx, types.ActionGenerateContent, types.GenerateData{Prompt: prompt}, &out); err != nil {
		return "", err
	}
	return out.Result, nil
}

// Analyze runs the analyzeGPA action; the prompt is built on the proxy.
func (c *Client) Analyze(ctx context.Context, data types.AnalyzeData) (string, error) {
	var out types.TextResult
	if err := c.do(ctx, types.ActionAnalyzeGPA, data, &out); err != nil {
		return "", err
	}
	return out.Result, nil
}

func (c *Client) do(ctx context.Context, action string, data, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	body, err := json.Marshal(types.ActionRequest{Action: action, Data: raw, LLMName: c.llmName})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+gatewayPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if dl, ok := ctx.Deadline(); ok {
		if secs := int(time.Until(dl).Seconds()); secs > 0 {
			req.Header.Set("X-Request-Timeout", fmt.Sprint(secs))
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e types.ErrorResponse
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: e.Error}
		}
		return &APIError{Status: resp.StatusCode, Message: util.Truncate(strings.TrimSpace(string(b)), 200)}
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: %v", ocr.ErrMalformedResponse, err)
	}
	return nil
}
