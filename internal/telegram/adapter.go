package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tenex-chat/web-client-sub005/internal/feed"
	"github.com/tenex-chat/web-client-sub005/internal/transcript"
	"github.com/tenex-chat/web-client-sub005/internal/types"
)

const (
	maxTelegramMessage = 4096
	listLimit          = 10
)

// Feed is what the bot needs from the projection layer.
type Feed interface {
	Render(ctx context.Context, id types.ConversationID) (string, error)
	Project(ctx context.Context, id types.ConversationID) (feed.Update, error)
}

// Adapter answers bot commands about conversations and delivers digests
// to chats.
type Adapter struct {
	bot           *tgbotapi.BotAPI
	conversations types.ConversationStore
	feed          Feed
}

// New creates a Telegram adapter.
func New(token string, conversations types.ConversationStore, f Feed) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{bot: bot, conversations: conversations, feed: f}, nil
}

// Start begins long-polling for Telegram updates and blocks until ctx is done.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)
	slog.Info("telegram bot started", "username", a.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			msg := update.Message
			reply := a.reply(ctx, msg.Command(), msg.CommandArguments(), msg.Chat.ID)
			a.sendResponse(msg.Chat.ID, reply)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

// SendTo is the delivery handler for "telegram:<chat id>" targets.
func (a *Adapter) SendTo(target, message string) error {
	chatID, err := ParseTarget(target)
	if err != nil {
		return err
	}
	return a.send(chatID, message)
}

// reply computes the answer to a bot command.
func (a *Adapter) reply(ctx context.Context, command, args string, chatID int64) string {
	args = strings.TrimSpace(args)
	switch command {
	case "start":
		return fmt.Sprintf("Hello! I follow project conversations.\nThis chat's delivery target is %s.\nCommands: /conversations, /digest <id>, /status <id>", Target(chatID))

	case "conversations":
		return a.listConversations(ctx)

	case "digest":
		if args == "" {
			return "Usage: /digest <conversation id>"
		}
		text, err := a.feed.Render(ctx, types.ConversationID(args))
		if err != nil {
			slog.Warn("render digest failed", "conversation", args, "error", err)
			return "Could not render that conversation."
		}
		return text

	case "status":
		if args == "" {
			return "Usage: /status <conversation id>"
		}
		u, err := a.feed.Project(ctx, types.ConversationID(args))
		if err != nil {
			slog.Warn("project conversation failed", "conversation", args, "error", err)
			return "Could not load that conversation."
		}
		return formatStatus(u)

	default:
		return "Unknown command. Available: /start, /conversations, /digest, /status"
	}
}

func (a *Adapter) listConversations(ctx context.Context) string {
	convs, err := a.conversations.List(ctx)
	if err != nil {
		slog.Error("list conversations failed", "error", err)
		return "Error listing conversations."
	}
	if len(convs) == 0 {
		return "No conversations yet."
	}
	var b strings.Builder
	for i, c := range convs {
		if i == listLimit {
			fmt.Fprintf(&b, "… and %d more", len(convs)-listLimit)
			break
		}
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "%s  %s\n", c.ID, title)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStatus(u feed.Update) string {
	if len(u.Status) == 0 {
		return fmt.Sprintf("%s: no status reported", u.ConversationID)
	}
	var b strings.Builder
	for _, s := range u.Status {
		workers := "idle"
		if s.Active() {
			short := make([]string, len(s.Workers))
			for i, w := range s.Workers {
				short[i] = transcript.ShortKey(w)
			}
			workers = strings.Join(short, ", ")
		}
		scope := s.ScopeID
		if scope == "" {
			scope = "-"
		}
		fmt.Fprintf(&b, "%s [%s]: %s\n", s.SubjectEventID, scope, workers)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *Adapter) sendResponse(chatID int64, text string) {
	if err := a.send(chatID, text); err != nil {
		slog.Error("send message failed", "chat_id", chatID, "error", err)
	}
}

func (a *Adapter) send(chatID int64, text string) error {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := a.bot.Send(msg); err != nil {
			// Transcripts are not guaranteed to be valid Telegram markdown.
			msg.ParseMode = ""
			if _, err := a.bot.Send(msg); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}
	return nil
}

// splitMessage cuts text into Telegram-sized parts, preferring line breaks
// and never splitting a UTF-8 sequence.
func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > maxTelegramMessage {
		end := maxTelegramMessage
		if nl := strings.LastIndexByte(text[:end], '\n'); nl > maxTelegramMessage/2 {
			end = nl + 1
		} else {
			for end > 0 && !utf8Start(text[end]) {
				end--
			}
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }

// Prefix is the delivery registry prefix for chat targets.
const Prefix = "telegram:"

// Target returns the delivery target for a chat.
func Target(chatID int64) string {
	return string(types.NewDeliveryKey("telegram", strconv.FormatInt(chatID, 10)))
}

// ParseTarget extracts the chat id from a "telegram:<chat id>" target.
func ParseTarget(target string) (int64, error) {
	rest, ok := strings.CutPrefix(target, Prefix)
	if !ok {
		return 0, fmt.Errorf("not a telegram target: %s", target)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id in target %s: %w", target, err)
	}
	return id, nil
}
