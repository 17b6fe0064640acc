package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config собирается так: значения по умолчанию, затем TOML-файл из GWA_CONFIG,
// затем переменные окружения.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	LLM      LLMConfig      `toml:"llm"`
	Telegram TelegramConfig `toml:"telegram"`
	Client   ClientConfig   `toml:"client"`
}

type ServerConfig struct {
	Port            string   `toml:"port"`
	LogMode         string   `toml:"log_mode"`
	PromptDir       string   `toml:"prompt_dir"`
	RateLimitRPS    float64  `toml:"rate_limit_rps"`
	RateLimitBurst  int      `toml:"rate_limit_burst"`
	ExtractCacheTTL Duration `toml:"extract_cache_ttl"`
}

type LLMConfig struct {
	Default        string `toml:"default"`
	GeminiAPIKey   string `toml:"gemini_api_key"`
	GeminiModel    string `toml:"gemini_model"`
	OpenAIAPIKey   string `toml:"openai_api_key"`
	OpenAIModel    string `toml:"openai_model"`
	DeepSeekAPIKey string `toml:"deepseek_api_key"`
	DeepSeekModel  string `toml:"deepseek_model"`
}

type TelegramConfig struct {
	BotToken   string `toml:"bot_token"`
	WebhookURL string `toml:"webhook_url"`
}

type ClientConfig struct {
	ProxyURL    string `toml:"proxy_url"`
	CoursesFile string `toml:"courses_file"`
}

// Duration читается из TOML строкой вида "10m".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

var ErrNoLLMKey = errors.New("no LLM key configured: set GEMINI_API_KEY, OPENAI_API_KEY or DEEPSEEK_API_KEY")

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			LogMode:         "development",
			RateLimitRPS:    2,
			RateLimitBurst:  5,
			ExtractCacheTTL: Duration{10 * time.Minute},
		},
		LLM: LLMConfig{
			GeminiModel:   "gemini-2.0-flash",
			OpenAIModel:   "gpt-4.1-mini",
			DeepSeekModel: "deepseek-chat",
		},
		Client: ClientConfig{
			ProxyURL:    "http://localhost:8000",
			CoursesFile: defaultCoursesFile(),
		},
	}
}

// Load reads the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with an injectable environment lookup.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(getenv("GWA_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	env := func(k string, dst *string) {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			*dst = v
		}
	}
	env("PORT", &cfg.Server.Port)
	env("LOG_MODE", &cfg.Server.LogMode)
	env("PROMPT_DIR", &cfg.Server.PromptDir)
	env("DEFAULT_LLM", &cfg.LLM.Default)
	env("GEMINI_API_KEY", &cfg.LLM.GeminiAPIKey)
	env("GEMINI_MODEL", &cfg.LLM.GeminiModel)
	env("OPENAI_API_KEY", &cfg.LLM.OpenAIAPIKey)
	env("OPENAI_MODEL", &cfg.LLM.OpenAIModel)
	env("DEEPSEEK_API_KEY", &cfg.LLM.DeepSeekAPIKey)
	env("DEEPSEEK_MODEL", &cfg.LLM.DeepSeekModel)
	env("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	env("WEBHOOK_URL", &cfg.Telegram.WebhookURL)
	env("GWA_PROXY_URL", &cfg.Client.ProxyURL)
	env("GWA_COURSES_FILE", &cfg.Client.CoursesFile)

	if v := strings.TrimSpace(getenv("RATE_LIMIT_RPS")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.Server.RateLimitRPS = f
	}
	if v := strings.TrimSpace(getenv("RATE_LIMIT_BURST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		cfg.Server.RateLimitBurst = n
	}
	if v := strings.TrimSpace(getenv("EXTRACT_CACHE_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("EXTRACT_CACHE_TTL: %w", err)
		}
		cfg.Server.ExtractCacheTTL = Duration{d}
	}
	cfg.LLM.Default = strings.ToLower(cfg.LLM.Default)
	return cfg, nil
}

// RequireLLM fails when no provider key is set; the proxy and the bot need one.
func (c *Config) RequireLLM() error {
	if c.LLM.GeminiAPIKey == "" && c.LLM.OpenAIAPIKey == "" && c.LLM.DeepSeekAPIKey == "" {
		return ErrNoLLMKey
	}
	return nil
}

// RequireTelegram fails when the bot token is missing.
func (c *Config) RequireTelegram() error {
	if c.Telegram.BotToken == "" {
		return errors.New("missing required env TELEGRAM_BOT_TOKEN")
	}
	return nil
}

func defaultCoursesFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "courses.json"
	}
	return filepath.Join(dir, "gwa-helper", "courses.json")
}
