// Package brain is the generation collaborator: everything that requires a
// language model lives behind the Client interface so the growth engine and
// gateway stay deterministic and testable.
package brain

import "context"

// Fact is one extracted memory candidate from an owner message.
type Fact struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Digest is what the companion took away from studying a piece of content:
// a childlike summary, facts worth keeping, the topic it belongs to, and the
// questions it could not answer.
type Digest struct {
	Summary   string   `json:"summary"`
	Facts     []string `json:"facts"`
	Topic     string   `json:"topic"`
	Questions []string `json:"questions"`
}

// Request carries everything the model needs for one companion reply.
// The reply text comes back raw, mood marker included; the caller owns
// marker parsing.
type Request struct {
	Message   string
	OwnerName string
	Memories  []string
	Skills    []string

	// AskedQuestions and RecentReplies constrain generation so the
	// companion does not loop: questions already posed this session and
	// the key phrases of its own last few replies.
	AskedQuestions []string
	RecentReplies  []string
}

// Client generates companion output. Implementations must be safe for
// concurrent use.
type Client interface {
	// Reply generates the companion's response to an owner message.
	Reply(ctx context.Context, req Request) (string, error)

	// ReplyStream is Reply with incremental delivery. onChunk receives raw
	// text deltas as they arrive; the full raw text is returned at the end.
	ReplyStream(ctx context.Context, req Request, onChunk func(string)) (string, error)

	// Dream synthesizes a short idle reflection from recent memories.
	Dream(ctx context.Context, memories []string) (string, error)

	// ExtractFacts pulls storable facts about the owner out of a message.
	// An empty slice means nothing worth remembering.
	ExtractFacts(ctx context.Context, message, ownerName string) ([]Fact, error)

	// DetectTopic names the topic of an exchange as a short phrase. It
	// returns currentTopic unchanged when nothing better can be determined.
	DetectTopic(ctx context.Context, userMessage, reply, currentTopic string) (string, error)

	// Study digests a piece of content the owner gave the companion to read.
	// source says where it came from, e.g. a URL or "something you told me".
	Study(ctx context.Context, content, source string) (Digest, error)
}
