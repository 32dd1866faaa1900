// Package notify announces booking changes to Telegram chats.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookathing/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramSender is the subset of *tgbotapi.BotAPI used for delivery.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// RetryConfig controls redelivery of a failed message.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  2,
		RetryDelays: []time.Duration{time.Second, 5 * time.Second},
	}
}

type TelegramNotifier struct {
	sender  TelegramSender
	chatIDs []int64
	retry   RetryConfig
	logger  *zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewTelegramNotifier connects to the Bot API with token.
func NewTelegramNotifier(token string, chatIDs []int64, logger *zerolog.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	logger.Info().Str("bot", api.Self.UserName).Msg("Telegram notifier connected")
	return NewNotifier(api, chatIDs, DefaultRetryConfig(), logger), nil
}

// NewNotifier delivers through sender. Retries without configured delays
// use the default ones.
func NewNotifier(sender TelegramSender, chatIDs []int64, retry RetryConfig, logger *zerolog.Logger) *TelegramNotifier {
	if retry.MaxRetries > 0 && len(retry.RetryDelays) == 0 {
		retry.RetryDelays = DefaultRetryConfig().RetryDelays
	}
	return &TelegramNotifier{
		sender:  sender,
		chatIDs: chatIDs,
		retry:   retry,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// HandleEvent is an events.EventHandler.
func (n *TelegramNotifier) HandleEvent(e events.Event) error {
	text := FormatMessage(e)
	if text == "" {
		return nil
	}

	var errs []error
	for _, chatID := range n.chatIDs {
		if err := n.send(context.Background(), chatID, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func (n *TelegramNotifier) send(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)

	var err error
	for attempt := 0; attempt <= n.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := n.retry.RetryDelays[min(attempt-1, len(n.retry.RetryDelays)-1)]
			if serr := n.sleep(ctx, delay); serr != nil {
				return serr
			}
		}
		if _, err = n.sender.Send(msg); err == nil {
			return nil
		}
		n.logger.Warn().Err(err).Int64("chat_id", chatID).Int("attempt", attempt+1).Msg("Telegram send failed")
	}
	return err
}

// FormatMessage renders the chat text for a booking event.
func FormatMessage(e events.Event) string {
	b := e.Booking
	var sb strings.Builder

	switch e.Type {
	case events.BookingCreated:
		sb.WriteString("New booking")
		if b.CalendarID != "" {
			fmt.Fprintf(&sb, " in %s", b.CalendarID)
		}
		fmt.Fprintf(&sb, "\n%s, %s-%s\n%s", b.Date, b.StartTime, b.EndTime, b.Name)
	case events.BookingDeleted:
		fmt.Fprintf(&sb, "Booking %s cancelled", b.ID)
		if b.CalendarID != "" {
			fmt.Fprintf(&sb, " in %s", b.CalendarID)
		}
	default:
		return ""
	}
	return sb.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
