// Package telegram posts completed projections to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Alias1177/Projector/models"
)

// Notifier sends a summary message when a projection completes
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// DefaultTimeout bounds each Bot API call when New is given none
const DefaultTimeout = 10 * time.Second

// New connects to the Telegram bot API. Every call made by the notifier
// gives up after timeout.
func New(token string, chatID int64, timeout time.Duration) (*Notifier, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewWithEndpoint(token, tgbotapi.APIEndpoint, chatID, &http.Client{Timeout: timeout})
}

// NewWithEndpoint connects through a custom API endpoint of the form
// "https://host/bot%s/%s"
func NewWithEndpoint(token, endpoint string, chatID int64, client *http.Client) (*Notifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}
	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// OnTransition sends a message for completed projections and ignores the rest.
// It returns when ctx is done even if the Bot API has not answered.
func (n *Notifier) OnTransition(ctx context.Context, t models.Transition) error {
	if t.To != models.StatusCompleted {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatCompletion(t.Record))
	sent := make(chan error, 1)
	go func() {
		_, err := n.bot.Send(msg)
		sent <- err
	}()

	select {
	case err := <-sent:
		if err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("send telegram message: %w", ctx.Err())
	}

	n.logger.Debug().
		Str("player", t.Record.Player).
		Str("game_date", models.FormatDate(t.Record.GameDate)).
		Msg("Completion notice sent")
	return nil
}

// FormatCompletion renders predicted against actual for every tracked stat
func FormatCompletion(r models.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s | %s\n", r.Player, r.Matchup, models.FormatDate(r.GameDate))

	if len(r.Actual) == 0 {
		b.WriteString("No box score line found for this player.")
		return b.String()
	}

	for _, stat := range models.TrackedStats {
		predicted, hasPred := r.Predicted[stat]
		actual, hasActual := r.Actual[stat]
		if !hasPred || !hasActual {
			continue
		}
		diff := decimal.NewFromFloat(actual).Sub(decimal.NewFromFloat(predicted)).Round(1)
		sign := ""
		if diff.IsPositive() {
			sign = "+"
		}
		fmt.Fprintf(&b, "%s: %s -> %s (%s%s)\n", stat,
			decimal.NewFromFloat(predicted).StringFixed(1),
			decimal.NewFromFloat(actual).StringFixed(1),
			sign, diff.StringFixed(1))
	}
	return strings.TrimRight(b.String(), "\n")
}
