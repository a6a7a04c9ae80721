package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"forsai/internal/commands"
	"forsai/internal/config"
	"forsai/internal/notes"
	"forsai/internal/util"
)

// Sender is the slice of the Bot API used to reply.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Run long-polls Telegram and answers every command through router.
// Updates are handled one at a time, in arrival order.
func Run(ctx context.Context, cfg config.Config, router *commands.Router, log *slog.Logger) error {
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return err
	}
	bot.Debug = false
	log = log.With("component", "telegram")

	if cfg.SetCommands {
		setBotMenuCommands(bot, router, log)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)
	defer bot.StopReceivingUpdates()

	log.Info("started", "username", bot.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return errors.New("telegram: updates channel closed")
			}
			if up.Message == nil {
				continue
			}
			chatID := up.Message.Chat.ID
			if !cfg.Allowed(chatID) {
				if cfg.LogUnknown {
					log.Info("ignored chat", "chat_id", chatID, "user", userLabel(up.Message), "text", up.Message.Text)
				}
				continue
			}
			handleMessage(ctx, bot, cfg, router, log, up.Message)
		}
	}
}

func setBotMenuCommands(bot *tgbotapi.BotAPI, router *commands.Router, log *slog.Logger) {
	// Best-effort: don't fail startup if Telegram rejects the request.
	menu := map[string]string{
		"ping":    "Check the bot is alive",
		"note":    "Remember something: /note <text>",
		"notes":   "List your notes",
		"delnote": "Delete a note: /delnote <number>",
		"ask":     "Ask a question: /ask <question>",
		"forget":  "Clear the conversation history",
		"help":    "Help and usage",
	}
	var cmds []tgbotapi.BotCommand
	for _, name := range router.Names() {
		cmds = append(cmds, tgbotapi.BotCommand{Command: name, Description: menu[name]})
	}
	if _, err := bot.Request(tgbotapi.NewSetMyCommands(cmds...)); err != nil {
		log.Warn("setMyCommands failed", "err", err)
	}
}

func userLabel(m *tgbotapi.Message) string {
	if m.From == nil {
		return ""
	}
	u := m.From
	if u.UserName != "" {
		return "@" + u.UserName
	}
	if u.FirstName != "" || u.LastName != "" {
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return fmt.Sprintf("%d", u.ID)
}

// requestFor maps a message to a router request. Notes and history follow the
// sender, so a user sees the same notes in every chat with the bot.
func requestFor(m *tgbotapi.Message) commands.Request {
	id := m.Chat.ID
	if m.From != nil {
		id = m.From.ID
	}
	return commands.Request{UserID: notes.UserKey(id), Text: m.Text}
}

func handleMessage(ctx context.Context, bot Sender, cfg config.Config, router *commands.Router, log *slog.Logger, msg *tgbotapi.Message) {
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	reply, err := router.Route(ctx, requestFor(msg))
	switch {
	case errors.Is(err, commands.ErrNotACommand), errors.Is(err, commands.ErrUnknownCommand):
		return
	case err != nil:
		// already logged by the router
		reply = commands.FailureReply
	}
	sendText(bot, cfg, msg.Chat.ID, reply, log)
}

func sendText(bot Sender, cfg config.Config, chatID int64, text string, log *slog.Logger) {
	if strings.TrimSpace(text) == "" {
		return
	}
	for _, chunk := range util.SplitToBytes(text, cfg.MaxChunkBytes) {
		m := tgbotapi.NewMessage(chatID, util.FormatTelegramHTML(chunk))
		m.ParseMode = tgbotapi.ModeHTML
		if _, err := bot.Send(m); err != nil {
			log.Warn("send failed", "chat_id", chatID, "err", err)
		}
	}
}
