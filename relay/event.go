package relay

// Kind is the type of the inbound update that carried the message
type Kind string

const (
	KindMessage       Kind = "message"
	KindChannelPost   Kind = "channel_post"
	KindEditedMessage Kind = "edited_message"
)

// Event is an inbound message reduced to the fields routing needs.
// Zero values mean "absent" for ThreadID, SenderID and ForwardedFromChatID.
type Event struct {
	Kind                Kind
	ChatID              int64
	ThreadID            int
	MessageID           int
	SenderID            int64
	ForwardedFromChatID int64
	Text                string
}

// Destination is a parsed destination key
type Destination struct {
	ChatID   string
	ThreadID int
}
