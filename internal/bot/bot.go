// Package bot is the Telegram front end: it routes menu buttons and turns
// currency selections into aggregated rate replies.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"ratebot/internal/metrics"
	"ratebot/internal/provider"
)

const defaultHandleTimeout = 30 * time.Second

// RateService produces the reply text for a currency.
type RateService interface {
	HandleCurrencyRequest(ctx context.Context, c provider.Currency) (string, error)
}

// Sender is the part of *tgbotapi.BotAPI the bot needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api     Sender
	rates   RateService
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

type Option func(*Bot)

func WithLogger(log *slog.Logger) Option { return func(b *Bot) { b.log = log } }

func WithMetrics(m *metrics.Metrics) Option { return func(b *Bot) { b.metrics = m } }

// WithHandleTimeout bounds the work done for one update.
func WithHandleTimeout(d time.Duration) Option {
	return func(b *Bot) {
		if d > 0 {
			b.timeout = d
		}
	}
}

func New(api Sender, rates RateService, opts ...Option) *Bot {
	b := &Bot{api: api, rates: rates, log: slog.Default(), timeout: defaultHandleTimeout}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Reply builds the answer to msg. ok is false when the text is not
// something the bot reacts to.
func (b *Bot) Reply(ctx context.Context, msg *tgbotapi.Message) (tgbotapi.MessageConfig, bool) {
	if msg == nil || msg.Chat == nil {
		return tgbotapi.MessageConfig{}, false
	}
	chatID := msg.Chat.ID

	switch {
	case isStart(msg), msg.Text == ButtonBack:
		out := tgbotapi.NewMessage(chatID, TextPrompt)
		out.ReplyMarkup = MainMenu()
		b.count("menu")
		return out, true

	case msg.Text == ButtonRates:
		out := tgbotapi.NewMessage(chatID, TextChooseCurrency)
		out.ReplyMarkup = CurrencyMenu()
		b.count("currency_menu")
		return out, true
	}

	c := provider.Currency(msg.Text)
	if !c.IsSupported() {
		return tgbotapi.MessageConfig{}, false
	}

	text, err := b.rates.HandleCurrencyRequest(ctx, c)
	if err != nil {
		b.log.ErrorContext(ctx, "rates unavailable", "currency", c, "err", err)
		text = TextUnavailable
		b.count("unavailable")
	} else {
		b.count("rates")
	}
	out := tgbotapi.NewMessage(chatID, text)
	out.ReplyMarkup = MainMenu()
	return out, true
}

// Handle answers one update. Errors are logged, never returned.
func (b *Bot) Handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	log := b.log.With("request_id", uuid.NewString(), "update_id", update.UpdateID)
	if msg.Chat != nil {
		log = log.With("chat_id", msg.Chat.ID)
	}
	log.Debug("update received", "text", msg.Text)

	out, ok := b.Reply(ctx, msg)
	if !ok {
		return
	}
	if _, err := b.api.Send(out); err != nil {
		log.Error("send failed", "err", err)
		return
	}
	log.Debug("reply sent")
}

// Run handles updates until ctx is done or the channel closes, one goroutine
// per update. It returns after in-flight updates finish.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Handle(ctx, update)
			}()
		}
	}
}

func (b *Bot) count(kind string) {
	if b.metrics != nil {
		b.metrics.BotRepliesTotal.WithLabelValues(kind).Inc()
	}
}

func isStart(msg *tgbotapi.Message) bool {
	if msg.IsCommand() {
		return msg.Command() == "start"
	}
	return msg.Text == "/start"
}

// PollingLogger routes the Telegram library's internal logging (polling
// errors, retries) into slog.
type PollingLogger struct {
	Log *slog.Logger
}

func (l PollingLogger) Println(v ...interface{}) {
	l.Log.Warn("Помилка: " + fmt.Sprint(v...))
}

func (l PollingLogger) Printf(format string, v ...interface{}) {
	l.Log.Warn("Помилка: " + fmt.Sprintf(format, v...))
}
