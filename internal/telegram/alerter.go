// Package telegram pushes escalation alerts into the cell's admin chat and answers a
// couple of read-only commands there.
package telegram

import (
	"context"
	"fmt"
	"grievance/backend/internal/localization"
	"grievance/backend/internal/notify"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot is the part of *tgbotapi.BotAPI used for sending.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Alerter реалізує notify.Dispatcher: only escalations reach the admin chat.
type Alerter struct {
	Bot       Bot
	ChatID    int64
	Localizer *localization.Localizer
}

// NewBotAPI authorises the bot token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("INFO: Authorized on account %s", bot.Self.UserName)
	return bot, nil
}

func NewAlerter(bot Bot, chatID int64, loc *localization.Localizer) *Alerter {
	return &Alerter{Bot: bot, ChatID: chatID, Localizer: loc}
}

func (a *Alerter) Notify(ctx context.Context, msg notify.Message) error {
	if msg.Kind != notify.KindEscalated || a.ChatID == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := a.Localizer.Render(localization.DefaultLanguage, "escalated_alert", msg)
	if err != nil {
		return err
	}
	if _, err := a.Bot.Send(tgbotapi.NewMessage(a.ChatID, text)); err != nil {
		return fmt.Errorf("telegram alert for complaint %d: %w", msg.ComplaintID, err)
	}
	return nil
}
