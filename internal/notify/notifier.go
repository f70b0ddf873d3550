package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"futures_bot/internal/models"
	"futures_bot/pkg/logger"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// PositionLister отдаёт позиции для команды /positions.
type PositionLister interface {
	Positions() []models.Position
}

// Attacher: нотифайер, которому нужен источник позиций.
type Attacher interface {
	Attach(p PositionLister)
}

// Telegram: пассивный нотифайер + обработка одной команды /positions.
type Telegram struct {
	bot       *tgbot.BotAPI
	chatID    int64
	positions PositionLister
}

// pollTimeout: long-polling getUpdates, секунды.
const pollTimeout = 30

// NewTelegram: каждый запрос к API ограничен timeout, getUpdates получает ещё pollTimeout сверху.
func NewTelegram(token string, chatID int64, timeout time.Duration) (*Telegram, error) {
	client := &http.Client{Timeout: timeout + pollTimeout*time.Second}
	b, err := tgbot.NewBotAPIWithClient(token, tgbot.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

// Attach подключает источник позиций после сборки трекера.
func (t *Telegram) Attach(p PositionLister) { t.positions = p }

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Warn("[NOTIFY] telegram send: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// /positions: открытые позиции трекера
func (t *Telegram) handlePositions() {
	if t.positions == nil {
		t.Send("❗️ Трекер позиций не подключён")
		return
	}
	t.Send(FormatPositions(t.positions.Positions()))
}

// FormatPositions: текст ответа на /positions.
func FormatPositions(positions []models.Position) string {
	if len(positions) == 0 {
		return "📭 Открытых позиций нет"
	}
	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "- %s [%s] qty=%.6f @ %.4f SL=%.4f TP=%.4f\n",
			p.Instrument, p.Side, p.Quantity, p.EntryPrice, p.StopPrice, p.TargetPrice)
	}
	return b.String()
}

// Start: long-polling для команд из нашего чата.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = pollTimeout
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if upd.Message != nil && upd.Message.Chat != nil &&
					upd.Message.Chat.ID == t.chatID && upd.Message.IsCommand() {

					switch upd.Message.Command() {
					case "positions":
						go t.handlePositions()
					}
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {
	if t == nil || t.bot == nil {
		return
	}
	t.bot.StopReceivingUpdates()
}

// Log: заглушка без телеграма, всё уходит в лог.
type Log struct{}

func NewLog() *Log                           { return &Log{} }
func (Log) Send(msg string)                  { logger.Info("[NOTIFY] %s", msg) }
func (Log) Sendf(format string, args ...any) { logger.Info("[NOTIFY] "+format, args...) }
