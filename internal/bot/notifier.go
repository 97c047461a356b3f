package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tartampluch/go-birthday-bot/internal/config"
	tele "gopkg.in/telebot.v4"
)

// Sender is the part of *tele.Bot used to deliver messages.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier delivers reminders to a Telegram chat. The destination is the
// chat id in decimal.
type Notifier struct {
	sender Sender
}

// NewNotifier returns a notifier sending through s.
func NewNotifier(s Sender) *Notifier {
	return &Notifier{sender: s}
}

// Notify sends text to the chat named by destination.
func (n *Notifier) Notify(ctx context.Context, destination, text string) error {
	chatID, err := strconv.ParseInt(destination, 10, 64)
	if err != nil {
		return fmt.Errorf("%s %q: %w", config.ErrDestination, destination, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.sender.Send(tele.ChatID(chatID), text); err != nil {
		return err
	}
	return nil
}
