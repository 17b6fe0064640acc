package gpt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"gwa-helper/api/internal/extraction"
	"gwa-helper/api/internal/ocr"
	"gwa-helper/api/internal/ocr/types"
	"gwa-helper/api/internal/util"
)

const (
	DefaultModel   = "gpt-4.1-mini"
	DefaultBaseURL = "https://api.openai.com/v1"
)

type Engine struct {
	APIKey  string
	Model   string
	BaseURL string
	System  string // инструкция извлечения; пусто: встроенная
	httpc   *http.Client
}

func New(key, model string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		// первые заголовки vision-запроса приходят долго
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Engine{
		APIKey:  strings.TrimSpace(key),
		Model:   strings.TrimSpace(model),
		BaseURL: DefaultBaseURL,
		// Timeout=0: дедлайн задаёт контекст запроса
		httpc: &http.Client{Timeout: 0, Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) ExtractCourses(ctx context.Context, in types.ExtractRequest) (extraction.Result, error) {
	if len(in.Image) == 0 {
		return extraction.Result{}, util.ErrEmptyImage
	}
	mime := util.PickMIME(in.Mime, "", in.Image)
	if !isOpenAIImageMIME(mime) {
		return extraction.Result{}, fmt.Errorf("openai extract: unsupported image type %q", mime)
	}
	model := e.Model
	if in.ModelOverride != "" {
		model = in.ModelOverride
	}
	system := e.System
	if strings.TrimSpace(system) == "" {
		system = ocr.ExtractSystemPrompt
	}
	dataURL := util.MakeDataURL(mime, base64.StdEncoding.EncodeToString(in.Image))

	body := map[string]any{
		"model": model,
		"input": []any{
			map[string]any{
				"role": "system",
				"content": []any{
					map[string]any{"type": "input_text", "text": system},
				},
			},
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "input_text", "text": ocr.ExtractUserPrompt},
					map[string]any{"type": "input_image", "image_url": dataURL},
				},
			},
		},
		"temperature": 0,
		"text": map[string]any{
			"format": map[string]any{"type": "json_object"},
		},
	}
	out, err := e.respond(ctx, body)
	if err != nil {
		return extraction.Result{}, fmt.Errorf("openai extract: %w", err)
	}
	res, err := ocr.DecodeExtraction(util.StripCodeFences(out))
	if err != nil {
		return extraction.Result{}, fmt.Errorf("openai extract: %w", err)
	}
	return res, nil
}

func (e *Engine) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("openai generate: prompt is empty")
	}
	body := map[string]any{
		"model": e.Model,
		"input": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "input_text", "text": prompt},
				},
			},
		},
	}
	out, err := e.respond(ctx, body)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	return out, nil
}

// respond вызывает Responses API и возвращает текст ответа.
func (e *Engine) respond(ctx context.Context, body map[string]any) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("OPENAI_API_KEY is empty")
	}
	if m, _ := body["model"].(string); strings.Contains(m, "gpt-5") {
		body["temperature"] = 1
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(e.BaseURL, "/")+"/responses", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(truncateBytes(raw, 1024)))
	}
	out := strings.TrimSpace(extractResponsesText(raw))
	if out == "" {
		return "", fmt.Errorf("%w; body=%s", ocr.ErrEmptyResponse, truncateBytes(raw, 1024))
	}
	return out, nil
}

// extractResponsesText extracts model text from the Responses API envelope.
// It prefers `output_text`, and otherwise concatenates any text segments
// found in `output[i].content[j].text` where `type` is `output_text` or `text`.
func extractResponsesText(raw []byte) string {
	type content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	type output struct {
		Content []content `json:"content"`
		Role    string    `json:"role,omitempty"`
	}
	var env struct {
		Output     []output `json:"output"`
		OutputText string   `json:"output_text"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	if s := strings.TrimSpace(env.OutputText); s != "" {
		return s
	}

	var b strings.Builder
	for _, o := range env.Output {
		for _, c := range o.Content {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			if c.Type == "output_text" || c.Type == "text" || c.Type == "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(c.Text)
			}
		}
	}
	return b.String()
}

func truncateBytes(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

func isOpenAIImageMIME(m string) bool {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif":
		return true
	}
	return false
}
