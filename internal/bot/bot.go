package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"fhunt_bot/internal/config"
	"fhunt_bot/internal/metrics"
	"fhunt_bot/internal/model"
	"fhunt_bot/internal/state"
	"fhunt_bot/internal/storage"
)

// longPollTimeout is the getUpdates wait in seconds.
const longPollTimeout = 25

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Marketplace is the part of the marketplace API used by chat commands.
type Marketplace interface {
	Projects(ctx context.Context, pageSize int, skills []int) ([]model.Project, error)
	Profile(ctx context.Context) (*model.Profile, error)
}

// Bot is the Telegram side of the relay: it delivers alerts and applies
// chat commands to the shared state.
type Bot struct {
	api     telegramAPI
	store   storage.Storage
	state   *state.State
	market  Marketplace
	cfg     *config.Config
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// New creates a Bot connected to the Telegram API.
func New(cfg *config.Config, store storage.Storage, st *state.State, market Marketplace, m *metrics.Metrics, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Info("authorized on telegram", "username", api.Self.UserName)

	return &Bot{
		api:     api,
		store:   store,
		state:   st,
		market:  market,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.SendInterval), 1),
		metrics: m,
		log:     log,
		now:     time.Now,
	}, nil
}

// Run starts the long-polling update loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = longPollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if cb := update.CallbackQuery; cb != nil {
		// Buttons on inline-mode messages carry no chat to reply to.
		if cb.Message == nil || cb.Message.Chat == nil {
			b.answer(cb.ID, "")
			return
		}
		if cb.From != nil && !b.cfg.IsUserAllowed(cb.From.ID) {
			b.answer(cb.ID, "Access denied.")
			return
		}
		b.handleCallback(ctx, cb)
		return
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	chatID := msg.Chat.ID
	if msg.From != nil && !b.cfg.IsUserAllowed(msg.From.ID) {
		b.replyText(ctx, chatID, "Access denied.")
		return
	}

	if msg.IsCommand() {
		b.ApplyCommand(ctx, chatID, msg.Command(), msg.CommandArguments())
		return
	}
	if cmd, arg, ok := ParseCommand(msg.Text); ok {
		b.ApplyCommand(ctx, chatID, cmd, arg)
		return
	}
	b.ApplyFreeText(ctx, chatID, msg.Text)
}

// Send delivers m to chatID as HTML, waiting for the outbound pacing slot.
func (b *Bot) Send(ctx context.Context, chatID int64, m Message) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, m.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if kb, ok := inlineKeyboard(m.Keyboard); ok {
		msg.ReplyMarkup = kb
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Announce sends the startup greeting and main menu to the alert chat.
func (b *Bot) Announce(ctx context.Context) {
	cfg := b.state.Config()
	b.reply(ctx, b.cfg.ChatID, Message{Text: fmt.Sprintf(
		"<b>Freelancehunt bot started</b>\n\nChecking every %s.\nUse /keywords to filter projects by words.",
		b.cfg.CheckInterval)})
	b.reply(ctx, b.cfg.ChatID, MainMenu(cfg))
}

func (b *Bot) reply(ctx context.Context, chatID int64, m Message) {
	if err := b.Send(ctx, chatID, m); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) replyText(ctx context.Context, chatID int64, text string) {
	b.reply(ctx, chatID, Message{Text: text})
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Error("answer callback", "error", err)
	}
}

func (b *Bot) countCommand(name string) {
	b.metrics.Commands.WithLabelValues(name).Inc()
}

func inlineKeyboard(kb [][]Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range kb {
		var row []tgbotapi.InlineKeyboardButton
		for _, btn := range r {
			switch {
			case btn.URL != "":
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			case btn.Data != "":
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
