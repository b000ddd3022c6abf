package channels

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tidewhale/tidewhale/internal/bus"
	"github.com/tidewhale/tidewhale/internal/config"
)

// telegramMaxMessageLen stays under Telegram's 4096-character limit with
// headroom for entity expansion.
const telegramMaxMessageLen = 4000

// botCommands is the command menu registered with Telegram on startup.
var botCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Restart the bot"},
	{Command: "chatgpt", Description: "Start LLM chat mode"},
	{Command: "stop", Description: "Leave LLM chat mode"},
	{Command: "convert", Description: "Convert currencies"},
	{Command: "profile", Description: "Your profile"},
	{Command: "premium", Description: "Premium info"},
	{Command: "help", Description: "List commands"},
}

// TelegramChannel implements the Telegram transport via long polling.
type TelegramChannel struct {
	Base
	cfg *config.TelegramConfig
	bot *tgbotapi.BotAPI
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(cfg *config.TelegramConfig, b bus.Bus) *TelegramChannel {
	return &TelegramChannel{
		Base: NewBase("telegram", b, cfg.AllowFrom),
		cfg:  cfg,
	}
}

func (t *TelegramChannel) Name() string { return "telegram" }

// Start connects, registers the command menu, and polls for updates until
// ctx is cancelled.
func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}
	bot, err := tgbotapi.NewBotAPI(t.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	t.bot = bot
	slog.Info("telegram: connected", "username", bot.Self.UserName)

	if _, err := bot.Request(tgbotapi.NewSetMyCommands(botCommands...)); err != nil {
		slog.Warn("telegram: set command menu failed", "err", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go t.handleUpdate(update)
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (t *TelegramChannel) handleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	content := msg.Text
	if content == "" {
		content = msg.Caption
	}

	t.HandleMessage(bus.InboundMessage{
		UserID:    msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Content:   content,
	})
}

// Send delivers one outbound message. Typing signals map to the Telegram
// "typing" chat action; text is chunked to fit the message size limit.
func (t *TelegramChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	if t.bot == nil {
		return fmt.Errorf("telegram: bot not running")
	}

	if msg.Typing {
		action := tgbotapi.NewChatAction(msg.ChatID, tgbotapi.ChatTyping)
		if _, err := t.bot.Request(action); err != nil {
			// Missing a typing indicator is cosmetic.
			slog.Debug("telegram: chat action failed", "chat", msg.ChatID, "err", err)
		}
		return nil
	}

	if msg.Content == "" {
		return nil
	}

	replyTo := 0
	if t.cfg.ReplyToMessage {
		replyTo = msg.ReplyTo
	}

	for i, chunk := range splitMessage(msg.Content, telegramMaxMessageLen) {
		m := tgbotapi.NewMessage(msg.ChatID, chunk)
		// Only the first chunk quotes the original message.
		if replyTo != 0 && i == 0 {
			m.ReplyToMessageID = replyTo
		}
		if _, err := t.bot.Send(m); err != nil {
			return fmt.Errorf("telegram: send to %d: %w", msg.ChatID, err)
		}
	}
	return nil
}
