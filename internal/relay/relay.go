// Package relay delivers outbound content to the messaging channels and the
// mailer through the store's hosted functions. Delivery is the last,
// best-effort leg of a reply: the message row is already stored when a relay
// call runs, so callers surface relay failures as warnings, not rollbacks.
package relay

import (
	"context"
	"fmt"
)

// Function names on the hosted side.
const (
	fnChannelWebhook  = "send-to-n8n"
	fnTelegramMessage = "send-telegram-message"
)

// Delivery is one outbound channel message.
type Delivery struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	Channel        string `json:"channel"`
	SenderID       string `json:"senderId"`
	ChatID         string `json:"chatId,omitempty"`
}

// Caller invokes hosted functions. *store.Client satisfies it.
type Caller interface {
	CallFunction(ctx context.Context, name string, body any, result any) error
}

// Client routes outbound deliveries to the right hosted function.
type Client struct {
	caller Caller
}

// New creates a relay client on top of a function caller.
func New(caller Caller) *Client {
	return &Client{caller: caller}
}

// Deliver sends a message out on its channel. Telegram goes straight to the
// bot API function and needs the chat id; every other channel goes through
// the webhook automation.
func (c *Client) Deliver(ctx context.Context, d Delivery) error {
	if d.Message == "" {
		return fmt.Errorf("relay: empty message")
	}

	fn := fnChannelWebhook
	if d.Channel == "telegram" {
		if d.ChatID == "" {
			return fmt.Errorf("relay: telegram delivery for %s has no chat id", d.ConversationID)
		}
		fn = fnTelegramMessage
	}

	if err := c.caller.CallFunction(ctx, fn, d, nil); err != nil {
		return fmt.Errorf("relay %s via %s: %w", d.ConversationID, fn, err)
	}
	return nil
}
