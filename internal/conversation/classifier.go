package conversation

import "strings"

// Intent is the coarse classification of an owner message relative to the
// current conversation state.
type Intent int

const (
	// IntentStatement opens or continues a topic.
	IntentStatement Intent = iota
	// IntentConfirm is a short affirmative ("yes", "yeah", ...).
	IntentConfirm
	// IntentDeny is a short negative or correction ("no", "not quite", ...).
	IntentDeny
	// IntentTopicChange is an explicit request to move on.
	IntentTopicChange
)

func (i Intent) String() string {
	switch i {
	case IntentConfirm:
		return "confirm"
	case IntentDeny:
		return "deny"
	case IntentTopicChange:
		return "topic_change"
	default:
		return "statement"
	}
}

// Classifier decides the intent of a raw owner message. Implementations are
// expected to be fuzzy; the state machine only trusts the returned Intent.
type Classifier interface {
	Classify(text string) Intent
}

// PhraseClassifier is the default heuristic classifier built on fixed phrase
// lists. The lists are not assumed complete; swap the Classifier to improve
// detection without touching the state machine.
type PhraseClassifier struct{}

var confirmationPhrases = []string{
	"yes", "yeah", "yep", "correct", "right", "exactly", "mhm", "uh huh",
	"that's right", "you got it", "bingo", "yup", "ya", "sure", "ok", "okay",
}

var denialPhrases = []string{
	"no", "nope", "nah", "not really", "wrong", "that's not right",
	"not quite", "actually", "that's wrong", "incorrect",
}

var topicChangePhrases = []string{
	"let's move on", "anyway", "something else", "different question",
	"change the subject", "new topic", "forget that", "never mind",
}

func (PhraseClassifier) Classify(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))

	for _, p := range topicChangePhrases {
		if strings.Contains(lower, p) {
			return IntentTopicChange
		}
	}
	if matchesPhrase(lower, confirmationPhrases) {
		return IntentConfirm
	}
	if matchesPhrase(lower, denialPhrases) {
		return IntentDeny
	}
	return IntentStatement
}

// matchesPhrase accepts an exact match or a message starting with the phrase
// followed by a space or comma ("yes, exactly").
func matchesPhrase(lower string, phrases []string) bool {
	for _, p := range phrases {
		if lower == p || strings.HasPrefix(lower, p+" ") || strings.HasPrefix(lower, p+",") {
			return true
		}
	}
	return false
}
