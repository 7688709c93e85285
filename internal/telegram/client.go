package telegram

import (
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ledass/Auto-accepting-repo/internal/audit"
	"github.com/ledass/Auto-accepting-repo/internal/domain"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	CopyMessage(config tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error)
}

// Client adapts the Bot API to broadcast.Sender, relay.Approver and
// audit.Poster.
type Client struct{ api API }

// NewClient creates a new Client.
func NewClient(api API) *Client { return &Client{api: api} }

// SendText sends a plain text message, verbatim.
func (c *Client) SendText(chatID int64, text string) error {
	_, err := c.api.Send(tgbotapi.NewMessage(chatID, text))
	return classify(err)
}

// CopyMessage replicates an existing message into chatID without a
// forward header.
func (c *Client) CopyMessage(chatID, fromChatID int64, messageID int) error {
	_, err := c.api.CopyMessage(tgbotapi.NewCopyMessage(chatID, fromChatID, messageID))
	return classify(err)
}

func (c *Client) ApproveJoinRequest(chatID, userID int64) error {
	_, err := c.api.Request(tgbotapi.ApproveChatJoinRequestConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	})
	return classify(err)
}

func (c *Client) Post(dest audit.Destination, text string) error {
	msg := tgbotapi.NewMessage(dest.ChatID, text)
	if dest.Username != "" {
		msg = tgbotapi.NewMessageToChannel(dest.Username, text)
	}
	_, err := c.api.Send(msg)
	return classify(err)
}

// classify marks errors that no recipient could avoid (the token is revoked
// or wrong) as configuration errors. Everything else stays a per-recipient
// failure: blocked bot, unknown chat, network.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusNotFound:
			return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
	}
	return err
}
