package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"git.skobk.in/skobkin/telegram-relay-bot/relay"
)

var ErrInvalidChatID = errors.New("invalid chat id")

// Transport delivers relayed messages through the Bot API
type Transport struct {
	api *telego.Bot
}

func NewTransport(api *telego.Bot) *Transport {
	return &Transport{api: api}
}

func (t *Transport) Forward(_ context.Context, ev *relay.Event, dest relay.Destination) error {
	chatID, err := parseChatID(dest.ChatID)
	if err != nil {
		return err
	}

	_, err = t.api.ForwardMessage(&telego.ForwardMessageParams{
		ChatID:          chatID,
		MessageThreadID: dest.ThreadID,
		FromChatID:      tu.ID(ev.ChatID),
		MessageID:       ev.MessageID,
	})
	if err != nil {
		return fmt.Errorf("forward message %d from %d: %w", ev.MessageID, ev.ChatID, err)
	}

	return nil
}

func (t *Transport) Copy(_ context.Context, ev *relay.Event, dest relay.Destination) error {
	chatID, err := parseChatID(dest.ChatID)
	if err != nil {
		return err
	}

	_, err = t.api.CopyMessage(&telego.CopyMessageParams{
		ChatID:          chatID,
		MessageThreadID: dest.ThreadID,
		FromChatID:      tu.ID(ev.ChatID),
		MessageID:       ev.MessageID,
	})
	if err != nil {
		return fmt.Errorf("copy message %d from %d: %w", ev.MessageID, ev.ChatID, err)
	}

	return nil
}

// parseChatID accepts a numeric chat id or an @username
func parseChatID(raw string) (telego.ChatID, error) {
	raw = strings.TrimSpace(raw)

	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return tu.ID(id), nil
	}

	if strings.HasPrefix(raw, "@") && len(raw) > 1 {
		return telego.ChatID{Username: raw}, nil
	}

	return telego.ChatID{}, fmt.Errorf("%w: %q", ErrInvalidChatID, raw)
}
