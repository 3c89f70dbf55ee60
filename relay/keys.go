package relay

import (
	"strconv"
	"strings"
)

const (
	// CanonicalPrefix is the supergroup/channel id prefix used by the Bot API
	CanonicalPrefix = "-100"

	topicSeparator = "#"
)

// NormalizeChatID rewrites a chat id into the -100 form used as routing identity.
// The sign is dropped together with the first digit and replaced by the prefix,
// so "-2844913382" becomes "-100844913382". Already canonical ids are returned as is.
func NormalizeChatID(chatID string) string {
	if strings.HasPrefix(chatID, CanonicalPrefix) {
		return chatID
	}

	digits := strings.TrimPrefix(chatID, "-")
	if digits == "" {
		return chatID
	}

	return CanonicalPrefix + digits[1:]
}

// SourceKey builds the lookup key for a chat and an optional thread (0 means none)
func SourceKey(chatID int64, threadID int) string {
	key := NormalizeChatID(strconv.FormatInt(chatID, 10))
	if threadID != 0 {
		key += topicSeparator + strconv.Itoa(threadID)
	}
	return key
}

// ParseDestinationKey splits "chat#topic" on the first separator.
// A missing or non-numeric topic yields ThreadID 0.
func ParseDestinationKey(key string) Destination {
	chat, topic, found := strings.Cut(key, topicSeparator)
	if !found {
		return Destination{ChatID: key}
	}

	threadID, err := strconv.Atoi(topic)
	if err != nil {
		return Destination{ChatID: chat}
	}

	return Destination{ChatID: chat, ThreadID: threadID}
}
