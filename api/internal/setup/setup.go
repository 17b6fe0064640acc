// Package setup wires configuration into engines, limiters and loggers for
// the binaries.
package setup

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"gwa-helper/api/internal/config"
	"gwa-helper/api/internal/logger"
	"gwa-helper/api/internal/ocr"
	"gwa-helper/api/internal/ocr/deepseek"
	"gwa-helper/api/internal/ocr/gemini"
	"gwa-helper/api/internal/ocr/gpt"
)

// BuildEngines creates every engine that has a key. Prompt overrides come from
// cfg.Server.PromptDir.
func BuildEngines(ctx context.Context, cfg *config.Config, log *logger.Logger) (*ocr.Engines, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	engs := &ocr.Engines{Default: cfg.LLM.Default}

	if cfg.LLM.GeminiAPIKey != "" {
		prompt, err := ocr.LoadExtractPrompt(cfg.Server.PromptDir, "gemini")
		if err != nil {
			return nil, err
		}
		g, err := gemini.New(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel, prompt)
		if err != nil {
			return nil, err
		}
		engs.Gemini = g
	}
	if cfg.LLM.OpenAIAPIKey != "" {
		prompt, err := ocr.LoadExtractPrompt(cfg.Server.PromptDir, "gpt")
		if err != nil {
			_ = engs.Close()
			return nil, err
		}
		o := gpt.New(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIModel)
		o.System = prompt
		engs.OpenAI = o
	}
	if cfg.LLM.DeepSeekAPIKey != "" {
		engs.DeepSeek = deepseek.New(cfg.LLM.DeepSeekAPIKey, cfg.LLM.DeepSeekModel)
	}

	// без явного DEFAULT_LLM берём первый настроенный
	if engs.Default == "" {
		engs.Default = engs.Available()[0]
	}
	if _, err := engs.GetEngine(""); err != nil {
		_ = engs.Close()
		return nil, fmt.Errorf("DEFAULT_LLM=%q: %w", cfg.LLM.Default, err)
	}
	log.Info("engines ready", "available", engs.Available(), "default", engs.Default)
	return engs, nil
}

// NewLimiter returns nil (no limit) when rps is not positive.
func NewLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.Server.RateLimitRPS <= 0 {
		return nil
	}
	burst := cfg.Server.RateLimitBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.Server.RateLimitRPS), burst)
}
