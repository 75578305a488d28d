package notify

import (
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/rustyeddy/tradebot/portfolio"
)

// Telegram sends events to a single chat.
type Telegram struct {
	bot  *tele.Bot
	chat *tele.Chat
	log  *slog.Logger
}

// NewTelegram builds the adapter and verifies the token against the
// Telegram API.
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	if log == nil {
		log = slog.Default()
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("notify: telegram: %w", err)
	}
	return &Telegram{
		bot:  bot,
		chat: &tele.Chat{ID: chatID},
		log:  log,
	}, nil
}

func (t *Telegram) send(text string) {
	if _, err := t.bot.Send(t.chat, text, tele.ModeMarkdown); err != nil {
		t.log.Warn("telegram send failed", "error", err)
	}
}

func (t *Telegram) TradeOpened(e TradeOpened) {
	t.send(fmt.Sprintf(
		"🟢 *Opened* %s\nqty %.6f @ %.2f (cost $%.2f)\nstop %.2f  target %.2f",
		e.Instrument, e.Quantity, e.Price, e.USDCost, e.StopLoss, e.TakeProfit,
	))
}

func (t *Telegram) TradeClosed(e TradeClosed) {
	emoji := "🔴"
	if e.PnL > 0 {
		emoji = "🟢"
	}
	t.send(fmt.Sprintf(
		"%s *Closed* %s (%s)\nentry %.2f → exit %.2f\nP&L $%.2f (%.2f%%)",
		emoji, e.Instrument, e.Reason, e.EntryPrice, e.ExitPrice, e.PnL, 100*e.PnLPct,
	))
}

func (t *Telegram) LossLimitHit(e LossLimitHit) {
	t.send(fmt.Sprintf(
		"⛔ *Daily loss limit hit* (%s)\nrealized $%.2f, limit $%.2f\nentries paused until tomorrow",
		e.Date, e.RealizedPnL, e.Limit,
	))
}

func (t *Telegram) DailySummary(date string, s portfolio.Summary) {
	t.send(fmt.Sprintf(
		"📊 *Daily summary* %s\nequity $%.2f (capital $%.2f)\nopen %d  trades %d (%dW/%dL, %.0f%%)\nrealized $%.2f  unrealized $%.2f",
		date, s.Equity, s.Capital, s.OpenPositions, s.TotalTrades,
		s.Wins, s.Losses, 100*s.WinRate, s.RealizedPnL, s.UnrealizedPnL,
	))
}

func (t *Telegram) Error(scope string, err error) {
	t.send(fmt.Sprintf("⚠️ *Error* in %s:\n`%v`", scope, err))
}
