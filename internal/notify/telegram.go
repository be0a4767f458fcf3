// Package notify pushes dispatch events to an operations Telegram chat.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"fleetops/internal/events"
	"fleetops/internal/model"
)

// Notifier sends conflict and synthesis notifications. Sends are rate
// limited so a big synthesis batch cannot trip Telegram's flood control.
type Notifier struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

// New creates a notifier for the given bot token and chat.
func New(token string, chatID int64, logger *zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Notifier{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(20), 30),
		logger:  logger,
	}, nil
}

// Attach subscribes the notifier to the event bus.
func (n *Notifier) Attach(ctx context.Context, bus *events.EventBus) {
	bus.Subscribe(events.TypeScheduleConflict, func(ev events.Event) error {
		var payload struct {
			Date       string `json:"date"`
			Resource   string `json:"resource"`
			ResourceID string `json:"resource_id"`
			BlockedBy  string `json:"blocked_by"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return err
		}
		return n.send(ctx, fmt.Sprintf("⚠️ Double-booking rejected on %s: %s %s is held by schedule %s",
			payload.Date, payload.Resource, payload.ResourceID, payload.BlockedBy))
	})

	bus.Subscribe(events.TypeTripSynthesized, func(ev events.Event) error {
		var trip model.Trip
		if err := json.Unmarshal(ev.Payload, &trip); err != nil {
			return err
		}
		return n.send(ctx, fmt.Sprintf("🚌 Trip %s: vehicle %s, driver %s, departs %s",
			trip.SequenceNumber, trip.VehicleID, trip.DriverID,
			trip.ScheduledDeparture.Format("2006-01-02 15:04")))
	})
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Msg("telegram send failed")
		return err
	}
	return nil
}
