package bus

import "time"

type InboundMessage struct {
	Channel   string
	SenderID  string
	ChatID    string
	Content   string
	Timestamp time.Time
	Metadata  map[string]any
}

func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

// OutboundMessage is one companion utterance headed to a channel. Kind
// distinguishes replies from spontaneous pushes (surfaced thoughts, reunion
// greetings, skill notices).
type OutboundMessage struct {
	Channel  string
	ChatID   string
	Content  string
	Kind     string // "reply", "greeting", "thought", "notice"
	Metadata map[string]any
}

const (
	KindReply    = "reply"
	KindGreeting = "greeting"
	KindThought  = "thought"
	KindNotice   = "notice"
)
