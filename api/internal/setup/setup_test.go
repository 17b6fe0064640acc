package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gwa-helper/api/internal/config"
	"gwa-helper/api/internal/logger"
	"gwa-helper/api/internal/ocr"
	"gwa-helper/api/internal/ocr/gpt"
)

func TestBuildEngines(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "gpt"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "gpt", "extract.system.txt"), []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Server.PromptDir = dir
	cfg.LLM.OpenAIAPIKey = "sk-test"
	cfg.LLM.DeepSeekAPIKey = "ds-test"

	engs, err := BuildEngines(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer engs.Close()

	if engs.Gemini != nil || engs.OpenAI == nil || engs.DeepSeek == nil {
		t.Fatalf("unexpected engines %+v", engs)
	}
	if engs.Default != "gpt" {
		t.Errorf("default = %q, want first configured", engs.Default)
	}
	if sys := engs.OpenAI.(*gpt.Engine).System; sys != "custom" {
		t.Errorf("prompt override not applied: %q", sys)
	}
}

func TestBuildEngines_Errors(t *testing.T) {
	cfg := config.Default()
	if _, err := BuildEngines(context.Background(), cfg, logger.NewNop()); !errors.Is(err, config.ErrNoLLMKey) {
		t.Errorf("no keys err = %v", err)
	}

	cfg.LLM.DeepSeekAPIKey = "ds"
	cfg.LLM.Default = "gemini"
	if _, err := BuildEngines(context.Background(), cfg, logger.NewNop()); !errors.Is(err, ocr.ErrEngineNotConfigured) {
		t.Errorf("unconfigured default err = %v", err)
	}
}

func TestNewLimiter(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RateLimitRPS = 0
	if NewLimiter(cfg) != nil {
		t.Error("rps 0 should disable the limiter")
	}
	cfg.Server.RateLimitRPS = 3
	cfg.Server.RateLimitBurst = 0
	l := NewLimiter(cfg)
	if l == nil || l.Burst() != 1 || float64(l.Limit()) != 3 {
		t.Errorf("limiter = %+v", l)
	}
}
