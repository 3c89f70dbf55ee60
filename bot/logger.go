package bot

import (
	"fmt"
	"log/slog"
	"strings"
)

// Logger routes telego's internal logging into slog with the bot token masked
type Logger struct {
	replacer *strings.Replacer
}

func NewLogger(token string) Logger {
	return Logger{replacer: strings.NewReplacer(token, "BOT_TOKEN")}
}

func (l Logger) Debugf(format string, args ...any) {
	slog.Debug("telego: " + l.mask(fmt.Sprintf(format, args...)))
}

func (l Logger) Errorf(format string, args ...any) {
	slog.Error("telego: " + l.mask(fmt.Sprintf(format, args...)))
}

func (l Logger) mask(text string) string {
	if l.replacer == nil {
		return text
	}
	return l.replacer.Replace(text)
}
