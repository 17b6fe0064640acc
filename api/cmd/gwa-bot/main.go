package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"gwa-helper/api/internal/config"
	"gwa-helper/api/internal/handle"
	"gwa-helper/api/internal/httpserver"
	"gwa-helper/api/internal/logger"
	"gwa-helper/api/internal/setup"
	"gwa-helper/api/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gwa-bot:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}
	log, err := logger.New(cfg.Server.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()
	if err := tgbotapi.SetLogger(log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engines, err := setup.BuildEngines(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer engines.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	router, err := telegram.NewRouter(bot, engines, log)
	if err != nil {
		return err
	}
	defer router.Wait()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handle.Healthz)

	g, gctx := errgroup.WithContext(ctx)

	if webhookURL := strings.TrimSpace(cfg.Telegram.WebhookURL); webhookURL != "" {
		path, err := telegram.SetWebhook(bot, webhookURL)
		if err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		mux.Handle(path, router.WebhookHandler(gctx, bot))
		log.Info("webhook mode", "bot", bot.Self.UserName)
	} else {
		// вебхук мог остаться от прошлого запуска; с ним getUpdates не работает
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Warn("delete webhook failed", "err", err)
		}
		log.Info("polling mode", "bot", bot.Self.UserName)
		g.Go(func() error {
			telegram.RunPolling(gctx, bot, log, func(upd tgbotapi.Update) {
				router.HandleUpdate(gctx, upd)
			})
			return nil
		})
	}

	srv := httpserver.New("0.0.0.0:"+cfg.Server.Port, mux)
	g.Go(func() error { return httpserver.Run(gctx, srv, log) })
	return g.Wait()
}
