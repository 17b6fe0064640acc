package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"gwa-helper/api/internal/logger"
	"gwa-helper/api/internal/ocr"
	"gwa-helper/api/internal/store"
	"gwa-helper/api/internal/util"
)

const (
	defaultDeadline = 180 * time.Second
	maxBodyBytes    = 20 << 20 // base64 фото с телефона
)

type Handle struct {
	engs    *ocr.Engines
	cache   *store.ExtractCache
	limiter *rate.Limiter
	log     *logger.Logger
}

// Options: необязательные зависимости; nil отключает соответствующую функцию.
type Options struct {
	Cache   *store.ExtractCache
	Limiter *rate.Limiter
	Logger  *logger.Logger
}

func New(engs *ocr.Engines, opts Options) *Handle {
	l := opts.Logger
	if l == nil {
		l = logger.NewNop()
	}
	return &Handle{
		engs:    engs,
		cache:   opts.Cache,
		limiter: opts.Limiter,
		log:     l,
	}
}

// Routes регистрирует все маршруты прокси на mux.
func (h *Handle) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", Healthz)
	mux.HandleFunc("/api/gemini", h.limited(h.Gateway))
	mux.HandleFunc("/v1/llm/extract", h.limited(h.Extract))
	mux.HandleFunc("/v1/llm/generate", h.limited(h.Generate))
	mux.HandleFunc("/v1/llm/analyze", h.limited(h.Analyze))
	mux.HandleFunc("/v1/courses/merge", h.Merge)
	mux.HandleFunc("/v1/courses/gpa", h.GPA)
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// limited отвечает 429, когда лимитер исчерпан; вызовы LLM стоят денег.
func (h *Handle) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decodePOST проверяет метод и разбирает JSON-тело; false: ответ уже записан.
func decodePOST(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return false
	}
	return true
}

// requestDeadline: заголовок X-Request-Timeout, затем ?timeoutSec=, иначе 180 с.
func requestDeadline(r *http.Request) time.Duration {
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return defaultDeadline
}

func withDeadline(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestDeadline(r))
}

// statusFor сопоставляет ошибку движка с HTTP-кодом.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ocr.ErrUnknownEngine),
		errors.Is(err, ocr.ErrImagesUnsupported),
		errors.Is(err, util.ErrEmptyImage):
		return http.StatusBadRequest
	case errors.Is(err, ocr.ErrEngineNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
