package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/lisa-bot/internal/assistant"
	"github.com/xaenox/lisa-bot/internal/models"
	"github.com/xaenox/lisa-bot/internal/session"
	"github.com/xaenox/lisa-bot/internal/storage"
	"github.com/xaenox/lisa-bot/internal/uploads"
)

const (
	maxMessageRunes = 4096
	maxDocumentSize = 20 << 20
	historyLimit    = 5
	ratePrefix      = "rate:"
)

// Assistant is the part of assistant.Assistant the bot talks to.
type Assistant interface {
	HandleMessage(ctx context.Context, req assistant.Request) (*models.Interaction, error)
	Rate(ctx context.Context, messageID int64, rating int) error
	StartSession(ctx context.Context, key string) error
	ClearSession(ctx context.Context, key string) error
	History(ctx context.Context, key string, limit int) ([]session.Entry, error)
}

type Config struct {
	Token     string
	Debug     bool
	RatingMin int
	RatingMax int
}

type Bot struct {
	api       *tgbotapi.BotAPI
	assistant Assistant
	http      *http.Client
	ratingMin int
	ratingMax int
	logger    *zap.Logger
}

func New(cfg Config, a Assistant, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = cfg.Debug

	return &Bot{
		api:       api,
		assistant: a,
		http:      &http.Client{Timeout: time.Minute},
		ratingMin: cfg.RatingMin,
		ratingMax: cfg.RatingMax,
		logger:    logger.Named("bot").With(zap.String("username", api.Self.UserName)),
	}, nil
}

// Start polls for updates until ctx is cancelled. Each update is handled in
// its own goroutine.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			switch {
			case update.CallbackQuery != nil:
				go b.handleCallback(ctx, update.CallbackQuery)
			case update.Message != nil:
				go b.handleMessage(ctx, update.Message)
			}
		}
	}
}

func sessionKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Handle commands
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	// Get content from message
	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}

	var attachments []uploads.File
	if message.Document != nil {
		file, err := b.download(ctx, message.Document)
		if err != nil {
			b.logger.Warn("Failed to download document",
				zap.Error(err),
				zap.String("file_name", message.Document.FileName),
				zap.Int64("chat_id", message.Chat.ID))
		} else {
			attachments = append(attachments, file)
		}
	}

	if content == "" && len(attachments) == 0 {
		return
	}

	interaction, err := b.assistant.HandleMessage(ctx, assistant.Request{
		SessionKey:  sessionKey(message.Chat.ID),
		Text:        content,
		Attachments: attachments,
	})
	if err != nil {
		b.logger.Error("Failed to handle message",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, something went wrong. Please try again.")
		return
	}

	b.sendReply(message.Chat.ID, message.MessageID, interaction)
}

func (b *Bot) download(ctx context.Context, doc *tgbotapi.Document) (uploads.File, error) {
	if doc.FileSize > maxDocumentSize {
		return uploads.File{}, fmt.Errorf("document too large: %d bytes", doc.FileSize)
	}

	link, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return uploads.File{}, fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return uploads.File{}, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return uploads.File{}, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return uploads.File{}, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return uploads.File{}, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxDocumentSize {
		return uploads.File{}, errors.New("document too large")
	}

	return uploads.File{Name: doc.FileName, Data: data}, nil
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	answer := "Thanks for the feedback!"

	messageID, rating, err := parseRatingCallback(query.Data, b.ratingMin, b.ratingMax)
	if err != nil {
		b.logger.Warn("Rejected rating", zap.Error(err), zap.String("data", query.Data))
		answer = "Invalid rating."
	} else if err := b.assistant.Rate(ctx, messageID, rating); err != nil {
		b.logger.Error("Failed to apply rating",
			zap.Error(err),
			zap.Int64("message_id", messageID),
			zap.Int("rating", rating))
		answer = "Sorry, I couldn't save your rating."
		if errors.Is(err, storage.ErrNotFound) {
			answer = "That message is no longer available."
		}
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, answer)); err != nil {
		b.logger.Error("Failed to answer callback", zap.Error(err))
	}
}

// parseRatingCallback decodes "rate:<messageID>:<rating>" and checks the
// rating against [min, max].
func parseRatingCallback(data string, min, max int) (int64, int, error) {
	rest, ok := strings.CutPrefix(data, ratePrefix)
	if !ok {
		return 0, 0, fmt.Errorf("unknown callback %q", data)
	}

	idPart, ratingPart, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, 0, fmt.Errorf("malformed rating callback %q", data)
	}

	messageID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || messageID <= 0 {
		return 0, 0, fmt.Errorf("invalid message id %q", idPart)
	}

	rating, err := strconv.Atoi(ratingPart)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid rating %q", ratingPart)
	}
	if rating < min || rating > max {
		return 0, 0, fmt.Errorf("rating %d out of range [%d, %d]", rating, min, max)
	}

	return messageID, rating, nil
}

func ratingKeyboard(messageID int64, min, max int) tgbotapi.InlineKeyboardMarkup {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, max-min+1)
	for r := min; r <= max; r++ {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
			strconv.Itoa(r),
			fmt.Sprintf("%s%d:%d", ratePrefix, messageID, r),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(buttons)
}

func (b *Bot) sendReply(chatID int64, replyToID int, interaction *models.Interaction) {
	msg := tgbotapi.NewMessage(chatID, truncate(interaction.SystemResponse, maxMessageRunes))
	msg.ReplyToMessageID = replyToID
	if b.ratingMax >= b.ratingMin {
		msg.ReplyMarkup = ratingKeyboard(interaction.ID, b.ratingMin, b.ratingMax)
	}

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int64("message_id", interaction.ID))
	}
}

// truncate cuts text to at most limit runes.
func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	const ellipsis = "..."
	runes := []rune(text)
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(ctx, message)
	case "help":
		b.handleHelp(message)
	case "clear":
		b.handleClear(ctx, message)
	case "history":
		b.handleHistory(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	if err := b.assistant.StartSession(ctx, sessionKey(message.Chat.ID)); err != nil {
		b.logger.Error("Failed to start session", zap.Error(err), zap.Int64("chat_id", message.Chat.ID))
	}

	welcome := `Welcome to Lisa! 🤖
I answer coding questions from examples I've learned, and I learn from every conversation.

Ask me to write, create or generate code, or send me a file.
Rate my answers with the buttons below each reply.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start a new conversation
/help - Show this help message
/clear - Forget this conversation
/history - Show your recent messages

You can send:
- Questions and code requests
- Documents (they are saved for later)`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleClear(ctx context.Context, message *tgbotapi.Message) {
	if err := b.assistant.ClearSession(ctx, sessionKey(message.Chat.ID)); err != nil {
		b.logger.Error("Failed to clear session", zap.Error(err), zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't clear the conversation.")
		return
	}
	b.sendMessage(message.Chat.ID, "Conversation cleared.")
}

func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message) {
	entries, err := b.assistant.History(ctx, sessionKey(message.Chat.ID), historyLimit)
	if err != nil {
		b.logger.Error("Failed to get history",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve your message history.")
		return
	}

	if len(entries) == 0 {
		b.sendMessage(message.Chat.ID, "You don't have any messages yet.")
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, truncate(formatHistory(entries), maxMessageRunes))
	msg.ParseMode = "MarkdownV2"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send history message",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func formatHistory(entries []session.Entry) string {
	var sb strings.Builder
	sb.WriteString("*Your recent messages:*\n\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("*\\#%d* _%s_\n", e.MessageID, escapeMarkdown(firstLine(e.User))))
		sb.WriteString(escapeMarkdown(firstLine(e.Reply)))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return truncate(line, 80)
}

// escapeMarkdown escapes special characters for MarkdownV2
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
