package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"balanced-bowl/internal/app"
	"balanced-bowl/internal/auth"
	"balanced-bowl/internal/config"
	"balanced-bowl/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of the Telegram API the bot talks to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the Telegram view of the planner, grocery list, recipes and assistant.
type Bot struct {
	api      sender
	bot      *tgbotapi.BotAPI
	app      *app.App
	cfg      *config.Config
	history  *chatHistory
	timeout  time.Duration
	dataPath string
}

// NewBot connects to Telegram. When a webhook URL is configured it is
// registered; otherwise any old webhook is removed so Poll can be used.
func NewBot(cfg *config.Config, a *app.App) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	slog.Info("Authorized on Telegram", "account", api.Self.UserName)

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("failed to build webhook for %s: %w", cfg.TelegramWebhookURL, err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		slog.Info("Webhook set", "url", cfg.TelegramWebhookURL, "response", resp.Description)
	} else if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return nil, fmt.Errorf("failed to delete webhook: %w", err)
	}

	b := newBot(api, cfg, a)
	b.bot = api
	return b, nil
}

func newBot(api sender, cfg *config.Config, a *app.App) *Bot {
	return &Bot{
		api:      api,
		app:      a,
		cfg:      cfg,
		history:  newChatHistory(historyWindow),
		timeout:  2 * time.Minute,
		dataPath: cfg.DatabasePath,
	}
}

// WebhookHandler handles updates posted by Telegram.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		update, err := b.bot.HandleUpdate(r)
		if err != nil {
			slog.Warn("Error parsing update", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		go b.handleUpdate(*update)
	}
}

// Poll reads updates with long polling until ctx is done.
func (b *Bot) Poll(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)
	slog.Info("Polling Telegram for updates")

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	switch {
	case update.CallbackQuery != nil:
		if !b.isAllowed(update.CallbackQuery.From) {
			return
		}
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		if !b.isAllowed(update.Message.From) {
			return
		}
		b.processMessage(ctx, update.Message)
	}
}

// isAllowed checks the allow-list. An empty list lets everyone in.
func (b *Bot) isAllowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if len(b.cfg.TelegramAllowedUserIDs) == 0 || slices.Contains(b.cfg.TelegramAllowedUserIDs, from.ID) {
		return true
	}
	slog.Warn("Unauthorized access attempt", "telegram_id", from.ID, "username", from.UserName)
	return false
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	if !msg.IsCommand() {
		b.handleChat(ctx, msg)
		return
	}

	userID := auth.TelegramUserID(msg.From.ID)
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID
	slog.Debug("Telegram command", "command", msg.Command(), "user_id", userID)

	switch msg.Command() {
	case "start", "help":
		b.history.Reset(chatID)
		b.reply(chatID, helpText)
	case "plan":
		b.handlePlan(ctx, chatID, userID)
	case "assign":
		b.handleAssign(ctx, chatID, userID, args)
	case "remove":
		b.handleRemove(ctx, chatID, userID, args)
	case "groceries", "list":
		b.handleGroceries(ctx, chatID, userID)
	case "fromplan":
		b.handleFromPlan(ctx, chatID, userID)
	case "addrecipe":
		b.handleAddRecipe(ctx, chatID, userID, args)
	case "add":
		b.handleAddCustom(ctx, chatID, userID, args)
	case "toggle":
		b.handleToggle(ctx, chatID, userID, args)
	case "edit":
		b.handleEdit(ctx, chatID, userID, args)
	case "clear":
		b.handleClear(ctx, chatID, userID)
	case "search":
		b.handleSearch(ctx, chatID, userID, args)
	case "ingredients":
		b.handleIngredients(ctx, chatID, userID, args)
	case "random":
		b.handleRandom(ctx, chatID, userID)
	case "recipe":
		b.handleRecipe(ctx, chatID, userID, args)
	case "rate":
		b.handleRate(ctx, chatID, userID, args)
	case "cook":
		b.handleCook(ctx, chatID, args)
	case "products":
		b.handleProducts(ctx, chatID, args)
	case "metrics":
		b.handleMetricsRequest(ctx, msg)
	default:
		b.reply(chatID, "🤔 Unknown command. Send /help for the list.")
	}
}

func (b *Bot) handleChat(ctx context.Context, msg *tgbotapi.Message) {
	if b.app.Assistant() == nil {
		b.reply(msg.Chat.ID, "The cooking assistant is not available right now.")
		return
	}
	b.api.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping))

	history := b.history.Get(msg.Chat.ID)
	answer := b.app.Chat(ctx, history, msg.Text)
	b.history.Append(msg.Chat.ID, msg.Text, answer)

	// Model output is not guaranteed to be valid Markdown.
	if _, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, answer)); err != nil {
		slog.Error("Failed to send reply", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if b.cfg.AdminTelegramID == 0 || msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	b.handleMetricsCommand(ctx, msg.Chat.ID)
}

func (b *Bot) handleMetricsCommand(ctx context.Context, chatID int64) {
	var usage []metrics.DailyUsage
	if store := b.app.MetricsStore(); store != nil {
		var err error
		usage, err = store.GetDailyUsage(ctx, 7)
		if err != nil {
			slog.Error("Failed to fetch metrics", "error", err)
			b.reply(chatID, "❌ Error fetching metrics.")
			return
		}
	}
	health := metrics.GetSysHealth(b.dataPath)
	b.reply(chatID, formatMetrics(usage, health, b.app.Sessions().Len()))
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth, sessions int) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Assistant Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d calls)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Planner sessions: %d\n", sessions))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) replyError(chatID int64, what string, err error) {
	slog.Warn("Telegram command failed", "chat_id", chatID, "what", what, "error", err)
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	b.reply(chatID, fmt.Sprintf("❌ *%s*\n```\n%s\n```", what, safeErr))
}
