package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"git.skobk.in/skobkin/telegram-relay-bot/dialog"
	"git.skobk.in/skobkin/telegram-relay-bot/storage"
)

const (
	helpText = "The bot relays messages from a source chat to destination chats.\n" +
		"It must be an admin in both the source and the destination group or channel.\n\n" +
		"Commands:\n" +
		"/start - show this help\n" +
		"/add - add a new relay\n" +
		"/list - show your subscriptions (/list all - every subscription)\n" +
		"/remove <id> - delete your subscription\n" +
		"/cancel - cancel the current action"

	chatIDHint = "Forward any message from that chat or send its ID (example: -1002719997220).\n" +
		"Append #<topic id> to target a forum topic (example: -1002719997220#5).\n\n" +
		"The ID can be taken from the address bar of Telegram Web: for https://web.telegram.org/k/#-2844913382 " +
		"add 100 after the '-' sign, which gives -1002844913382."

	sourcePrompt      = "Step 1/2. Source chat (where messages come from).\n" + chatIDHint
	destinationPrompt = "Step 2/2. Destination chat (where messages go to).\n" + chatIDHint
	invalidChatInput  = "This is neither a forwarded message from a chat nor a chat ID. " +
		"Please forward a message or send an ID like -100XXXXXXXXX."
)

var errRemoveUsage = errors.New("usage: /remove <id>")

func (b *Bot) startHandler(bot *telego.Bot, update telego.Update) {
	slog.Info("bot: /start", "user_id", senderID(update.Message))

	b.sendMessage(update.Message.Chat.ID, escapeMarkdownV2(helpText))
}

func (b *Bot) addHandler(bot *telego.Bot, update telego.Update) {
	msg := update.Message
	userID := senderID(msg)
	slog.Info("bot: /add", "user_id", userID)

	if err := b.dialog.Start(update.Context(), userID); err != nil {
		b.sendMessage(msg.Chat.ID, escapeMarkdownV2("Cannot start the setup. Try again later."))
		return
	}

	b.sendMessage(msg.Chat.ID, escapeMarkdownV2(sourcePrompt))
}

func (b *Bot) listHandler(bot *telego.Bot, update telego.Update) {
	msg := update.Message
	userID := senderID(msg)
	slog.Info("bot: /list", "user_id", userID)

	var (
		subs []storage.Subscription
		err  error
	)
	if listAllRequested(msg.Text) {
		subs, err = b.storage.ListSubscriptions(update.Context())
	} else {
		subs, err = b.storage.ListSubscriptionsByOwner(update.Context(), strconv.FormatInt(userID, 10))
	}
	if err != nil {
		slog.Error("bot: Failed to list subscriptions", "error", err, "user_id", userID)
		b.sendMessage(msg.Chat.ID, escapeMarkdownV2("Failed to get subscriptions. Try again later."))
		return
	}

	if len(subs) == 0 {
		b.sendMessage(msg.Chat.ID, escapeMarkdownV2("There are no active subscriptions."))
		return
	}

	b.sendMessage(msg.Chat.ID, escapeMarkdownV2(formatSubscriptions(subs)))
}

func (b *Bot) removeHandler(bot *telego.Bot, update telego.Update) {
	msg := update.Message
	userID := senderID(msg)
	slog.Info("bot: /remove", "user_id", userID)

	id, err := parseRemoveArgs(msg.Text)
	if err != nil {
		b.sendMessage(msg.Chat.ID, escapeMarkdownV2("Please specify the subscription ID. Example: /remove 5"))
		return
	}

	deleted, err := b.storage.DeleteSubscription(update.Context(), id, strconv.FormatInt(userID, 10))
	if err != nil {
		b.sendMessage(msg.Chat.ID, escapeMarkdownV2("Failed to delete the subscription. Try again later."))
		return
	}

	if !deleted {
		b.sendMessage(msg.Chat.ID, escapeMarkdownV2(fmt.Sprintf(
			"Subscription %d not found or you are not its owner.", id)))
		return
	}

	slog.Info("bot: Subscription deleted", "id", id, "user_id", userID)
	b.sendMessage(msg.Chat.ID, escapeMarkdownV2(fmt.Sprintf("Subscription %d deleted.", id)))
}

func (b *Bot) cancelHandler(bot *telego.Bot, update telego.Update) {
	msg := update.Message
	userID := senderID(msg)
	slog.Info("bot: /cancel", "user_id", userID)

	if _, err := b.dialog.Cancel(update.Context(), userID); err != nil {
		slog.Error("bot: Failed to cancel dialog", "error", err, "user_id", userID)
	}

	b.sendMessage(msg.Chat.ID, escapeMarkdownV2("Action cancelled."))
}

// dialogHandler feeds private messages into the setup dialog
func (b *Bot) dialogHandler(bot *telego.Bot, update telego.Update) {
	msg := update.Message
	userID := senderID(msg)
	ev := eventFromMessage(msg, "")

	result, err := b.dialog.Handle(update.Context(), userID, dialog.Input{
		ForwardedFromChatID: ev.ForwardedFromChatID,
		Text:                ev.Text,
	})

	var vErr *dialog.ValidationError
	switch {
	case errors.Is(err, dialog.ErrNoDialog):
		slog.Debug("bot: Private message outside of a dialog ignored", "user_id", userID)
	case errors.As(err, &vErr):
		slog.Debug("bot: Invalid dialog input", "user_id", userID, "state", vErr.State)
		b.sendMessage(msg.Chat.ID, escapeMarkdownV2(invalidChatInput))
	case err != nil:
		slog.Error("bot: Dialog step failed", "error", err, "user_id", userID)
		b.sendMessage(msg.Chat.ID, escapeMarkdownV2("Failed to add the subscription. Try again later."))
	case result.Step == dialog.StepSourceAccepted:
		b.sendMessage(msg.Chat.ID, escapeMarkdownV2(destinationPrompt))
	case result.Step == dialog.StepCompleted:
		b.sendMessage(msg.Chat.ID, escapeMarkdownV2(fmt.Sprintf(
			"Subscription added!\n\nID: %d\nSource: %s\nDestination: %s",
			result.Subscription.ID, result.Subscription.SourceID, result.Subscription.DestinationID,
		)))
	}
}

func senderID(msg *telego.Message) int64 {
	if msg == nil || msg.From == nil {
		return 0
	}
	return msg.From.ID
}

func listAllRequested(text string) bool {
	args := strings.Fields(text)
	return len(args) > 1 && strings.EqualFold(args[1], "all")
}

func parseRemoveArgs(text string) (uint, error) {
	args := strings.Fields(text)
	if len(args) < 2 {
		return 0, errRemoveUsage
	}

	id, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil || id == 0 {
		return 0, errRemoveUsage
	}

	return uint(id), nil
}

func formatSubscriptions(subs []storage.Subscription) string {
	var sb strings.Builder
	sb.WriteString("Subscriptions:\n")
	for _, sub := range subs {
		fmt.Fprintf(&sb, "\nID: %d\nSource: %s\nDestination: %s\nCreated: %s\n",
			sub.ID,
			sub.SourceID,
			sub.DestinationID,
			sub.CreatedDate.UTC().Format("2006-01-02 15:04:05"),
		)
	}
	return sb.String()
}
