package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tu "github.com/mymmrac/telego/telegoutil"
)

func escapeMarkdownV2(text string) string {
	specialChars := []string{
		"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!",
	}

	for _, char := range specialChars {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

// retryAfter extracts the wait time from a "Too Many Requests" error.
// Format: "telego: sendMessage: api: 429 \"Too Many Requests: retry after 5\", migrate to chat ID: 0, retry after: 5"
func retryAfter(err error) (int, bool) {
	if err == nil || !strings.Contains(err.Error(), "Too Many Requests") {
		return 0, false
	}

	parts := strings.Split(err.Error(), "retry after: ")
	if len(parts) != 2 {
		return 0, false
	}

	var seconds int
	if _, scanErr := fmt.Sscanf(parts[1], "%d", &seconds); scanErr != nil || seconds <= 0 {
		return 0, false
	}

	return seconds, true
}

func (b *Bot) sendMessage(chatID int64, text string) {
	message := tu.Message(tu.ID(chatID), text)
	message.ParseMode = "MarkdownV2"

	_, err := b.api.SendMessage(message)
	if seconds, ok := retryAfter(err); ok {
		slog.Debug("bot: API error", "error", err.Error())
		slog.Info("bot: Rate limit hit, waiting", "seconds", seconds)
		time.Sleep(time.Duration(seconds) * time.Second)

		_, err = b.api.SendMessage(message)
		if err == nil {
			slog.Info("bot: Message sent successfully after rate limit wait")
		}
	}

	if err != nil {
		slog.Error("bot: Failed to send message", "error", err, "chat_id", chatID, "text_length", len(text))
		return
	}

	slog.Debug("bot: Message sent successfully", "chat_id", chatID)
}
