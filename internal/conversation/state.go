// Package conversation tracks the per-session conversational context: the
// open topic, the question awaiting an answer, and every question already
// posed. The context is ephemeral working memory and is never persisted.
package conversation

import (
	"regexp"
	"strings"
)

// Phase is the conversation state machine position.
type Phase int

const (
	// PhaseIdle has no open topic.
	PhaseIdle Phase = iota
	// PhaseTopicOpen has a current topic and no pending question.
	PhaseTopicOpen
	// PhaseAwaiting has a pending question awaiting a short response.
	PhaseAwaiting
)

func (p Phase) String() string {
	switch p {
	case PhaseTopicOpen:
		return "topic_open"
	case PhaseAwaiting:
		return "awaiting_response"
	default:
		return "idle"
	}
}

const maxRememberedReplies = 3

// Context is one session's conversational working memory.
type Context struct {
	phase           Phase
	currentTopic    string
	pendingQuestion string
	pendingTopic    string
	stagedQuestion  string

	askedQuestions []string
	askedIndex     map[string]bool

	topicsDiscussed []string
	lastReplies     []string
}

func NewContext() *Context {
	return &Context{askedIndex: make(map[string]bool)}
}

func (c *Context) Phase() Phase             { return c.phase }
func (c *Context) CurrentTopic() string     { return c.currentTopic }
func (c *Context) PendingQuestion() string  { return c.pendingQuestion }
func (c *Context) PendingTopic() string     { return c.pendingTopic }
func (c *Context) TopicsDiscussed() []string { return c.topicsDiscussed }

// AwaitingShortResponse reports whether the next short reply should be read
// as an answer to the pending question.
func (c *Context) AwaitingShortResponse() bool { return c.phase == PhaseAwaiting }

// OpenTopic makes name the current topic and discards any pending question.
// The previous topic, if different, moves to the discussed list.
func (c *Context) OpenTopic(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if c.currentTopic != "" && !strings.EqualFold(c.currentTopic, name) {
		c.rememberTopic(c.currentTopic)
	}
	c.currentTopic = name
	c.pendingQuestion = ""
	c.pendingTopic = ""
	c.stagedQuestion = ""
	c.phase = PhaseTopicOpen
}

// ClearTopic abandons the current topic and returns to idle.
func (c *Context) ClearTopic() {
	if c.currentTopic != "" {
		c.rememberTopic(c.currentTopic)
	}
	c.currentTopic = ""
	c.pendingQuestion = ""
	c.pendingTopic = ""
	c.stagedQuestion = ""
	c.phase = PhaseIdle
}

func (c *Context) rememberTopic(name string) {
	for _, t := range c.topicsDiscussed {
		if strings.EqualFold(t, name) {
			return
		}
	}
	c.topicsDiscussed = append(c.topicsDiscussed, name)
}

// StageQuestion holds a question the companion is about to ask. It is not
// marked asked until CommitStaged confirms the reply carrying it was actually
// delivered; an aborted generation calls RollbackStaged instead.
func (c *Context) StageQuestion(q string) {
	c.stagedQuestion = strings.TrimSpace(q)
}

// CommitStaged marks the staged question as asked and transitions to
// AWAITING_RESPONSE. Returns the committed question, or "" if none staged.
func (c *Context) CommitStaged() string {
	q := c.stagedQuestion
	c.stagedQuestion = ""
	if q == "" {
		return ""
	}
	c.markAsked(q)
	c.pendingQuestion = q
	c.pendingTopic = c.currentTopic
	c.phase = PhaseAwaiting
	return q
}

// RollbackStaged discards the staged question without state change.
func (c *Context) RollbackStaged() {
	c.stagedQuestion = ""
}

// ResolveShort consumes the pending question in response to a short
// confirm/deny. It returns the question and its topic so the caller can
// confirm or correct the underlying fact. The short response is interpreted
// only against the pending question; in any other phase the call reports
// nothing to resolve.
func (c *Context) ResolveShort() (question, topic string, ok bool) {
	if c.phase != PhaseAwaiting || c.pendingQuestion == "" {
		return "", "", false
	}
	question = c.pendingQuestion
	topic = c.pendingTopic
	c.pendingQuestion = ""
	c.pendingTopic = ""
	if c.currentTopic != "" {
		c.phase = PhaseTopicOpen
	} else {
		c.phase = PhaseIdle
	}
	return question, topic, true
}

func (c *Context) markAsked(q string) {
	norm := normalizeQuestion(q)
	if c.askedIndex[norm] {
		return
	}
	c.askedIndex[norm] = true
	c.askedQuestions = append(c.askedQuestions, q)
}

// HasAsked reports whether the question was already posed this session.
func (c *Context) HasAsked(q string) bool {
	return c.askedIndex[normalizeQuestion(q)]
}

// AskedQuestions lists every question posed this session, in order.
func (c *Context) AskedQuestions() []string {
	out := make([]string, len(c.askedQuestions))
	copy(out, c.askedQuestions)
	return out
}

// NoteReply remembers the reply's key phrase so generation constraints can
// forbid repeats. Only the last few are kept.
func (c *Context) NoteReply(reply string) {
	phrase := reply
	if idx := strings.IndexAny(phrase, ".?!"); idx >= 0 {
		phrase = phrase[:idx]
	}
	phrase = strings.TrimSpace(phrase)
	if phrase == "" || len(phrase) >= 100 {
		return
	}
	c.lastReplies = append(c.lastReplies, phrase)
	if len(c.lastReplies) > maxRememberedReplies {
		c.lastReplies = c.lastReplies[len(c.lastReplies)-maxRememberedReplies:]
	}
}

func (c *Context) LastReplies() []string {
	out := make([]string, len(c.lastReplies))
	copy(out, c.lastReplies)
	return out
}

// Reset clears all session-scoped state and returns the dropped pending
// question, if any, so the caller may convert it into a queued thought.
// Topics discussed survive as long-term memory.
func (c *Context) Reset() (droppedQuestion string) {
	droppedQuestion = c.pendingQuestion
	if c.currentTopic != "" {
		c.rememberTopic(c.currentTopic)
	}
	c.currentTopic = ""
	c.pendingQuestion = ""
	c.pendingTopic = ""
	c.stagedQuestion = ""
	c.askedQuestions = nil
	c.askedIndex = make(map[string]bool)
	c.lastReplies = nil
	c.phase = PhaseIdle
	return droppedQuestion
}

func normalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

var sentenceSplit = regexp.MustCompile(`(?:[.!?])\s+`)

// ExtractQuestion returns the first question sentence in a reply, or "".
func ExtractQuestion(reply string) string {
	for _, sentence := range sentenceSplit.Split(reply, -1) {
		sentence = strings.TrimSpace(sentence)
		if strings.HasSuffix(sentence, "?") {
			return sentence
		}
	}
	return ""
}
