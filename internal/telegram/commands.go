package telegram

import (
	"context"
	"fmt"
	"grievance/backend/internal/deadline"
	"grievance/backend/internal/models"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// OverdueLister defines the storage method required by the /overdue command.
type OverdueLister interface {
	FindOverdueComplaints(ctx context.Context, now time.Time) ([]models.Complaint, error)
}

// HandleCommand answers /overdue in the admin chat. Messages from any other chat are ignored.
func HandleCommand(ctx context.Context, update *tgbotapi.Update, s OverdueLister, bot Bot, adminChatID int64) {
	if update.Message == nil || update.Message.Chat.ID != adminChatID {
		return
	}

	var responseText string
	switch update.Message.Command() {
	case "overdue":
		complaints, err := s.FindOverdueComplaints(ctx, time.Now())
		if err != nil {
			log.Printf("ERROR: Failed to list overdue complaints for telegram: %v", err)
			responseText = "An error occurred while processing your request."
		} else {
			responseText = formatOverdue(complaints)
		}
	default:
		return
	}

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, responseText)
	if _, err := bot.Send(msg); err != nil {
		log.Printf("ERROR: Failed to send /overdue reply: %v", err)
	}
}

func formatOverdue(complaints []models.Complaint) string {
	if len(complaints) == 0 {
		return "No overdue complaints."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d overdue complaint(s):", len(complaints))
	for _, c := range complaints {
		fmt.Fprintf(&b, "\n#%d [%s] %s (due %s)", c.ID, c.Urgency, c.Title,
			c.Deadline.In(deadline.Location).Format("02 Jan 15:04"))
	}
	return b.String()
}

// Listen polls the bot for updates until ctx is cancelled.
func Listen(ctx context.Context, bot *tgbotapi.BotAPI, s OverdueLister, adminChatID int64) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			HandleCommand(ctx, &update, s, bot, adminChatID)
		}
	}
}
