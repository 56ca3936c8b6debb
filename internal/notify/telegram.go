package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
)

// Min interval between any two Telegram messages to the same chat to avoid
// 429 Too Many Requests (~30/min limit).
const telegramSendInterval = 2 * time.Second

type queuedMessage struct {
	text string
}

// Telegram sends alerts to a chat through a bot. Sends are queued and paced
// by a background goroutine so a burst of alerts never trips the Bot API
// rate limit; Close drains the queue before returning.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	mu       sync.Mutex
	lastSend time.Time

	queue     chan queuedMessage
	queueDone chan struct{}
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewTelegram builds the channel and verifies the bot token against the API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		return nil, fmt.Errorf("failed to verify telegram bot: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Telegram{
		bot:       bot,
		chatID:    chatID,
		queue:     make(chan queuedMessage, 100),
		queueDone: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}

	t.wg.Add(1)
	go t.sender()

	slog.Info("telegram channel initialized", "chat_id", chatID)
	return t, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) LowNoise() bool { return true }

// SendAlert queues the alert; it is delivered asynchronously with pacing.
// A nil return means accepted for delivery, not delivered: a later Bot API
// failure is logged by the sender worker and does not reach the router.
func (t *Telegram) SendAlert(ctx context.Context, alert models.Alert) error {
	return t.enqueue(ctx, renderTelegramAlert(alert))
}

// Send queues a plain text notice.
func (t *Telegram) Send(ctx context.Context, text string, urgency models.Urgency) error {
	return t.enqueue(ctx, escapeMarkdown(text))
}

// QueueLen returns the current number of queued messages.
func (t *Telegram) QueueLen() int {
	return len(t.queue)
}

// Close stops the sender after draining queued messages.
func (t *Telegram) Close() error {
	t.cancel()
	<-t.queueDone
	t.wg.Wait()
	return nil
}

func (t *Telegram) enqueue(ctx context.Context, text string) error {
	select {
	case <-t.ctx.Done():
		return fmt.Errorf("telegram channel stopped")
	case <-ctx.Done():
		return ctx.Err()
	case t.queue <- queuedMessage{text: text}:
		return nil
	default:
		slog.Warn("telegram queue full, dropping message", "queue_len", len(t.queue))
		return fmt.Errorf("telegram queue is full")
	}
}

// sender delivers queued messages in order. On shutdown it drains whatever
// is left before signalling queueDone.
func (t *Telegram) sender() {
	defer t.wg.Done()

	for {
		select {
		case <-t.ctx.Done():
			for {
				select {
				case msg := <-t.queue:
					t.deliver(msg)
				default:
					close(t.queueDone)
					return
				}
			}
		case msg := <-t.queue:
			t.deliver(msg)
		}
	}
}

// deliver waits out the pacing interval, then sends. Pacing also applies
// while draining on shutdown: flushing the queue must not trade a clean
// exit for a 429.
func (t *Telegram) deliver(msg queuedMessage) {
	t.mu.Lock()
	if elapsed := time.Since(t.lastSend); elapsed < telegramSendInterval {
		wait := telegramSendInterval - elapsed
		t.mu.Unlock()
		time.Sleep(wait)
		t.mu.Lock()
	}
	t.lastSend = time.Now()
	t.mu.Unlock()

	tgMsg := tgbotapi.NewMessage(t.chatID, msg.text)
	tgMsg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := t.bot.Send(tgMsg); err != nil {
		slog.Error("telegram send failed", "error", err, "preview", truncate(msg.text, 50))
		return
	}
	slog.Debug("telegram message sent", "queue_len", len(t.queue))
}

func renderTelegramAlert(a models.Alert) string {
	if a.Type == models.LineupConfirmed {
		return escapeMarkdown(a.Message)
	}

	action := "BENCHED"
	note := "⚠️ You may want to update your lineup"
	if a.Type == models.UnexpectedStarting {
		action = "STARTING"
		note = "💡 Consider moving to starting XI"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* %s\\!\n\n", a.Emoji(), escapeMarkdown(a.Player.Name), action)
	fmt.Fprintf(&b, "Team: %s\n", escapeMarkdown(a.Player.Team.Name))
	fmt.Fprintf(&b, "Position: %s\n", escapeMarkdown(string(a.Player.Position)))
	fmt.Fprintf(&b, "Match: %s\n", escapeMarkdown(a.Match.Name()))
	fmt.Fprintf(&b, "Kickoff: %s UTC\n\n", a.Match.Kickoff.Format("15:04"))
	fmt.Fprintf(&b, "%s\\!", escapeMarkdown(note))
	return b.String()
}

// escapeMarkdown escapes everything MarkdownV2 treats as syntax.
func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)
	return replacer.Replace(text)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
