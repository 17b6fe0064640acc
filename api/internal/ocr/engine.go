package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"gwa-helper/api/internal/extraction"
	"gwa-helper/api/internal/ocr/types"
)

var (
	ErrUnknownEngine       = errors.New("unknown llm_name; use 'gemini' | 'gpt' | 'deepseek'")
	ErrEngineNotConfigured = errors.New("engine is not configured")
	ErrImagesUnsupported   = errors.New("engine does not support image input")
	ErrMalformedResponse   = errors.New("malformed model response")
	ErrEmptyResponse       = errors.New("empty model response")
)

// Engine: граница с LLM: извлечение курсов с изображения и свободный текст.
type Engine interface {
	Name() string
	GetModel() string
	ExtractCourses(ctx context.Context, in types.ExtractRequest) (extraction.Result, error)
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Engines: набор сконфигурированных провайдеров; незаданные поля остаются nil.
type Engines struct {
	Gemini   Engine
	OpenAI   Engine
	DeepSeek Engine
	Default  string
}

func (e *Engines) GetEngine(llmName string) (Engine, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	if name == "" {
		name = e.Default
	}
	if name == "" {
		name = "gemini"
	}
	var eng Engine
	switch name {
	case "gemini":
		eng = e.Gemini
	case "gpt", "openai":
		eng = e.OpenAI
	case "deepseek":
		eng = e.DeepSeek
	default:
		return nil, ErrUnknownEngine
	}
	if eng == nil {
		return nil, fmt.Errorf("%w: %s", ErrEngineNotConfigured, name)
	}
	return eng, nil
}

// Available lists configured engine names in a stable order.
func (e *Engines) Available() []string {
	var out []string
	for _, p := range []struct {
		name string
		eng  Engine
	}{{"gemini", e.Gemini}, {"gpt", e.OpenAI}, {"deepseek", e.DeepSeek}} {
		if p.eng != nil {
			out = append(out, p.name)
		}
	}
	return out
}

// Close releases engines that hold long-lived clients.
func (e *Engines) Close() error {
	var errs []error
	for _, eng := range []Engine{e.Gemini, e.OpenAI, e.DeepSeek} {
		if c, ok := eng.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Manager хранит выбор движка по чату.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}
