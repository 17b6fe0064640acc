package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gwa-helper/api/internal/logger"
	"gwa-helper/api/internal/ocr"
	"gwa-helper/api/internal/util"
)

const (
	maxMessageLen  = 3900
	defaultTimeout = 180 * time.Second
)

// Bot: часть tgbotapi.BotAPI, которой пользуется роутер.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot        Bot
	Engines    *ocr.Engines
	EngManager *ocr.Manager
	Log        *logger.Logger

	// Debounce склейки альбома; Timeout одного вызова LLM.
	Debounce time.Duration
	Timeout  time.Duration

	httpc   *http.Client
	chats   sync.Map // chatID -> *chatState
	batches sync.Map // key -> *photoBatch
	wg      sync.WaitGroup
}

func NewRouter(bot Bot, engs *ocr.Engines, log *logger.Logger) (*Router, error) {
	def, err := engs.GetEngine("")
	if err != nil {
		return nil, fmt.Errorf("default engine: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Router{
		Bot:        bot,
		Engines:    engs,
		EngManager: ocr.NewManager(def),
		Log:        log,
		Debounce:   debounce,
		Timeout:    defaultTimeout,
		httpc:      &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Wait blocks until background extractions started by the router finish.
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	switch {
	case msg.IsCommand():
		r.HandleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(ctx, *msg)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptDocument(ctx, *msg)
	case strings.TrimSpace(msg.Text) != "":
		r.send(msg.Chat.ID, "Send a photo of your grades, or /help for commands.")
	}
}

// goBackground запускает фоновую работу, которую дождётся Wait.
func (r *Router) goBackground(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *Router) send(chatID int64, text string) {
	r.sendWithKeyboard(chatID, text, nil)
}

func (r *Router) sendWithKeyboard(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, util.Truncate(text, maxMessageLen))
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn("telegram send failed", "chat_id", chatID, "err", err)
	}
}

// dropKeyboard убирает кнопки с уже отработанного сообщения.
func (r *Router) dropKeyboard(chatID int64, msgID int) {
	if msgID == 0 {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, _ = r.Bot.Send(edit)
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Error: %v", err))
}
