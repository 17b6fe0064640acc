package telegram

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gwa-helper/api/internal/logger"
	"gwa-helper/api/internal/util"
)

// WebhookPath: секретный путь вебхука, производный от токена.
func WebhookPath(token string) string {
	return "/webhook/" + util.SHA256Hex([]byte(token))[:16]
}

// SetWebhook регистрирует publicBase+WebhookPath в Telegram.
func SetWebhook(bot *tgbotapi.BotAPI, publicBase string) (string, error) {
	path := WebhookPath(bot.Token)
	wh, err := tgbotapi.NewWebhook(strings.TrimRight(publicBase, "/") + path)
	if err != nil {
		return "", err
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return "", err
	}
	return path, nil
}

// WebhookHandler разбирает апдейт и сразу отвечает 200; обработка идёт в фоне.
func (r *Router) WebhookHandler(ctx context.Context, bot *tgbotapi.BotAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		upd, err := bot.HandleUpdate(req)
		if err != nil {
			r.Log.Warn("bad webhook update", "err", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		r.goBackground(func() { r.HandleUpdate(ctx, *upd) })
	}
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 от Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

// Updater: источник апдейтов для long polling.
type Updater interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// RunPolling крутит long polling с backoff до отмены ctx.
func RunPolling(ctx context.Context, bot Updater, log *logger.Logger, handle func(tgbotapi.Update)) {
	offset := 0
	const (
		baseDelay = 1 * time.Second
		maxDelay  = 15 * time.Second
	)
	for {
		if ctx.Err() != nil {
			log.Info("polling stopped")
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.Warn("polling error", "err", err, "retry_in", d.String())
			if !sleepCtx(ctx, d) {
				return
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}
		if len(updates) == 0 && !sleepCtx(ctx, 200*time.Millisecond) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
