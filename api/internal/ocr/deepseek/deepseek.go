package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gwa-helper/api/internal/extraction"
	"gwa-helper/api/internal/ocr"
	"gwa-helper/api/internal/ocr/types"
)

const (
	DefaultModel   = "deepseek-chat"
	DefaultBaseURL = "https://api.deepseek.com"
)

// Engine: только текст: DeepSeek Chat API не принимает изображения.
type Engine struct {
	APIKey  string
	Model   string
	BaseURL string
	httpc   *http.Client
}

func New(key, model string) *Engine {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Engine{
		APIKey:  strings.TrimSpace(key),
		Model:   strings.TrimSpace(model),
		BaseURL: DefaultBaseURL,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string { return "deepseek" }

func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) ExtractCourses(_ context.Context, _ types.ExtractRequest) (extraction.Result, error) {
	return extraction.Result{}, fmt.Errorf("deepseek: %w; use /engine gemini | gpt", ocr.ErrImagesUnsupported)
}

func (e *Engine) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("DEEPSEEK_API_KEY is empty")
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("deepseek generate: prompt is empty")
	}
	body := map[string]any{
		"model": e.Model,
		"messages": []any{
			map[string]any{"role": "user", "content": prompt},
		},
		"stream": false,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(e.BaseURL, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepseek generate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("deepseek generate %d: %s", resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("deepseek generate: %w: %v", ocr.ErrMalformedResponse, err)
	}
	if len(raw.Choices) == 0 || strings.TrimSpace(raw.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("deepseek generate: %w", ocr.ErrEmptyResponse)
	}
	return strings.TrimSpace(raw.Choices[0].Message.Content), nil
}
