package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gwa-helper/api/internal/extraction"
	"gwa-helper/api/internal/ocr"
	"gwa-helper/api/internal/ocr/types"
	"gwa-helper/api/internal/util"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.0-flash"

// generator: то, что нужно движку от *genai.GenerativeModel.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Engine владеет одним клиентом genai на всё время жизни; закрывается через Close.
type Engine struct {
	Model string

	client  *genai.Client
	extract generator
	text    generator
	retries int
	backoff time.Duration
}

// New создаёт клиент один раз. systemPrompt: инструкция извлечения
// (пусто означает встроенную ocr.ExtractSystemPrompt).
func New(ctx context.Context, apiKey, model, systemPrompt string) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = ocr.ExtractSystemPrompt
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}

	em := cl.GenerativeModel(model)
	// строго JSON
	em.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	em.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	tm := cl.GenerativeModel(model)

	return &Engine{
		Model:   model,
		client:  cl,
		extract: em,
		text:    tm,
		retries: 3,
		backoff: 300 * time.Millisecond,
	}, nil
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

// ExtractCourses отправляет изображение с инструкцией и разбирает JSON-ответ.
func (e *Engine) ExtractCourses(ctx context.Context, in types.ExtractRequest) (extraction.Result, error) {
	if len(in.Image) == 0 {
		return extraction.Result{}, util.ErrEmptyImage
	}
	mime := util.PickMIME(in.Mime, "", in.Image)
	parts := []genai.Part{
		genai.Text(ocr.ExtractUserPrompt),
		&genai.Blob{MIMEType: mime, Data: in.Image},
	}

	txt, err := e.generate(ctx, e.extract, parts)
	if err != nil {
		return extraction.Result{}, fmt.Errorf("gemini extract: %w", err)
	}
	res, err := ocr.DecodeExtraction(util.StripCodeFences(txt))
	if err != nil {
		return extraction.Result{}, fmt.Errorf("gemini extract: %w", err)
	}
	return res, nil
}

func (e *Engine) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("gemini generate: prompt is empty")
	}
	txt, err := e.generate(ctx, e.text, []genai.Part{genai.Text(prompt)})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return txt, nil
}

// generate повторяет вызов на транзиентных сбоях; пустой ответ не повторяется.
func (e *Engine) generate(ctx context.Context, g generator, parts []genai.Part) (string, error) {
	attempts := e.retries
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := g.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			if attempt == attempts {
				break
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * e.backoff):
			}
			continue
		}
		txt := strings.TrimSpace(firstText(resp))
		if txt == "" {
			return "", ocr.ErrEmptyResponse
		}
		return txt, nil
	}
	return "", lastErr
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
