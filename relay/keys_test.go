package relay

import "testing"

func TestNormalizeChatID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"-1002844913382", "-1002844913382"},
		{"-2844913382", "-100844913382"},
		{"2844913382", "-100844913382"},
		{"-100", "-100"},
		{"-", "-"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeChatID(tt.in); got != tt.want {
			t.Errorf("NormalizeChatID(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeChatIDIsIdempotent(t *testing.T) {
	for _, in := range []string{"-1001234567890", "-4012345678", "777", "-5"} {
		once := NormalizeChatID(in)
		twice := NormalizeChatID(once)
		if once != twice {
			t.Errorf("normalizing %q twice: got %q then %q", in, once, twice)
		}
	}
}

func TestSourceKey(t *testing.T) {
	tests := []struct {
		chatID   int64
		threadID int
		want     string
	}{
		{-1001234, 0, "-1001234"},
		{-1001234, 7, "-1001234#7"},
		{-51234, 3, "-1001234#3"},
	}

	for _, tt := range tests {
		if got := SourceKey(tt.chatID, tt.threadID); got != tt.want {
			t.Errorf("SourceKey(%d, %d): got %q, want %q", tt.chatID, tt.threadID, got, tt.want)
		}
	}
}

func TestParseDestinationKey(t *testing.T) {
	tests := []struct {
		key  string
		want Destination
	}{
		{"-100123#7", Destination{ChatID: "-100123", ThreadID: 7}},
		{"-100123", Destination{ChatID: "-100123"}},
		{"-100123#", Destination{ChatID: "-100123"}},
		{"-100123#abc", Destination{ChatID: "-100123"}},
		{"@channel", Destination{ChatID: "@channel"}},
	}

	for _, tt := range tests {
		if got := ParseDestinationKey(tt.key); got != tt.want {
			t.Errorf("ParseDestinationKey(%q): got %+v, want %+v", tt.key, got, tt.want)
		}
	}
}
