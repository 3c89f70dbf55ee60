package bot

import (
	"log/slog"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
)

// authMiddleware drops private messages and commands from users outside the whitelist
// before any handler touches the storage. Relay traffic from groups and channels passes through.
func (b *Bot) authMiddleware(bot *telego.Bot, update telego.Update, next th.Handler) {
	if msg := update.Message; msg != nil && requiresAuthorization(msg) {
		if msg.From == nil || !b.auth.IsWhitelisted(msg.From.ID) {
			var userID int64
			if msg.From != nil {
				userID = msg.From.ID
			}
			slog.Debug("bot: Ignoring message from unauthorized user", "user_id", userID, "chat_id", msg.Chat.ID)

			return
		}
	}

	next(bot, update)
}

func requiresAuthorization(msg *telego.Message) bool {
	return msg.Chat.Type == telego.ChatTypePrivate || isCommand(msg.Text)
}
