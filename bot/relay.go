package bot

import (
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"

	"git.skobk.in/skobkin/telegram-relay-bot/relay"
)

func (b *Bot) relayHandler(bot *telego.Bot, update telego.Update) {
	msg, kind := relayMessage(update)
	if msg == nil {
		return
	}

	slog.Debug("bot: Received message", "chat_id", msg.Chat.ID, "chat_type", msg.Chat.Type, "kind", kind)

	_, err := b.dispatcher.Dispatch(update.Context(), eventFromMessage(msg, kind))
	if err != nil {
		slog.Error("bot: Failed to relay message", "error", err, "chat_id", msg.Chat.ID, "message_id", msg.MessageID)
	}
}

// relayMessage picks the message carried by one of the relayed update types
func relayMessage(update telego.Update) (*telego.Message, relay.Kind) {
	switch {
	case update.Message != nil:
		return update.Message, relay.KindMessage
	case update.ChannelPost != nil:
		return update.ChannelPost, relay.KindChannelPost
	case update.EditedMessage != nil:
		return update.EditedMessage, relay.KindEditedMessage
	}
	return nil, ""
}

// isRelayable matches group, supergroup and channel messages that are not commands or service messages
func isRelayable(update telego.Update) bool {
	msg, _ := relayMessage(update)
	if msg == nil {
		return false
	}

	if msg.Chat.Type == telego.ChatTypePrivate {
		return false
	}

	return !isCommand(msg.Text) && !isServiceMessage(msg)
}

func eventFromMessage(msg *telego.Message, kind relay.Kind) *relay.Event {
	ev := &relay.Event{
		Kind:                kind,
		ChatID:              msg.Chat.ID,
		MessageID:           msg.MessageID,
		SenderID:            senderID(msg),
		ForwardedFromChatID: forwardedFromChatID(msg),
		Text:                msg.Text,
	}

	// Plain supergroups also fill the thread id for reply chains; only forum topics count
	if msg.IsTopicMessage {
		ev.ThreadID = msg.MessageThreadID
	}

	return ev
}

func forwardedFromChatID(msg *telego.Message) int64 {
	switch origin := msg.ForwardOrigin.(type) {
	case *telego.MessageOriginChannel:
		return origin.Chat.ID
	case *telego.MessageOriginChat:
		return origin.SenderChat.ID
	}
	return 0
}

func isCommand(text string) bool {
	return strings.HasPrefix(text, "/")
}

func isServiceMessage(msg *telego.Message) bool {
	return len(msg.NewChatMembers) > 0 ||
		msg.LeftChatMember != nil ||
		msg.NewChatTitle != "" ||
		len(msg.NewChatPhoto) > 0 ||
		msg.DeleteChatPhoto ||
		msg.GroupChatCreated ||
		msg.SupergroupChatCreated ||
		msg.ChannelChatCreated ||
		msg.MigrateToChatID != 0 ||
		msg.MigrateFromChatID != 0 ||
		msg.PinnedMessage != nil ||
		msg.ForumTopicCreated != nil ||
		msg.ForumTopicClosed != nil ||
		msg.ForumTopicReopened != nil
}
