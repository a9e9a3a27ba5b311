// Package stats tracks interaction counters for the companion.
package stats

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventKind identifies the interaction type a single Record call counts.
type EventKind string

const (
	EventMessage           EventKind = "message"
	EventMemoryStored      EventKind = "memory_stored"
	EventEmotionalShare    EventKind = "emotional_share"
	EventQuestionAsked     EventKind = "question_asked"
	EventQuestionAnswered  EventKind = "question_answered"
	EventCorrection        EventKind = "correction"
	EventReminderRequested EventKind = "reminder_requested"
	EventReminderDelivered EventKind = "reminder_delivered"
	EventThoughtDump       EventKind = "thought_dump"
	EventCheckIn           EventKind = "check_in"
	EventTaskGiven         EventKind = "task_given"
	EventTaskCompleted     EventKind = "task_completed"
)

var ErrInvalidEventKind = errors.New("invalid event kind")

const dayFormat = "2006-01-02"

// Stats is the flat counter record for one owner. Counters only ever go up.
type Stats struct {
	Messages           int `json:"messages_exchanged"`
	MemoriesStored     int `json:"memories_stored"`
	EmotionalShares    int `json:"emotional_shares"`
	QuestionsAsked     int `json:"questions_asked"`
	QuestionsAnswered  int `json:"questions_answered"`
	Corrections        int `json:"corrections"`
	RemindersRequested int `json:"reminders_requested"`
	RemindersDelivered int `json:"reminders_delivered"`
	ThoughtDumps       int `json:"thought_dumps"`
	CheckIns           int `json:"check_ins"`
	TasksGiven         int `json:"tasks_given"`
	TasksCompleted     int `json:"tasks_completed"`

	FirstMet        time.Time `json:"first_met"`
	LastInteraction time.Time `json:"last_interaction"`
	UniqueDays      []string  `json:"unique_days"`
}

func New(now time.Time) *Stats {
	return &Stats{FirstMet: now}
}

// Record increments exactly one counter and stamps the interaction time.
// The event's calendar date is appended to UniqueDays if not yet present.
func (s *Stats) Record(kind EventKind, at time.Time) error {
	switch kind {
	case EventMessage:
		s.Messages++
	case EventMemoryStored:
		s.MemoriesStored++
	case EventEmotionalShare:
		s.EmotionalShares++
	case EventQuestionAsked:
		s.QuestionsAsked++
	case EventQuestionAnswered:
		s.QuestionsAnswered++
	case EventCorrection:
		s.Corrections++
	case EventReminderRequested:
		s.RemindersRequested++
	case EventReminderDelivered:
		s.RemindersDelivered++
	case EventThoughtDump:
		s.ThoughtDumps++
	case EventCheckIn:
		s.CheckIns++
	case EventTaskGiven:
		s.TasksGiven++
	case EventTaskCompleted:
		s.TasksCompleted++
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEventKind, kind)
	}

	if s.FirstMet.IsZero() {
		s.FirstMet = at
	}
	s.LastInteraction = at

	day := at.Format(dayFormat)
	for _, d := range s.UniqueDays {
		if d == day {
			return nil
		}
	}
	s.UniqueDays = append(s.UniqueDays, day)
	return nil
}

func (s *Stats) UniqueDayCount() int {
	return len(s.UniqueDays)
}

// Phrase lists for classifying what an owner message contains. Matching is
// substring-based and deliberately loose; Record still only counts what the
// caller asks for.
var (
	correctionPhrases = []string{
		"no,", "no ", "actually", "that's wrong", "that's not right",
		"not quite", "incorrect", "you're wrong", "thats wrong",
	}
	emotionalPhrases = []string{
		"i feel", "i'm feeling", "i felt", "feeling", "sad", "happy",
		"angry", "frustrated", "anxious", "worried", "scared", "excited",
		"depressed", "stressed", "overwhelmed", "lonely", "hurt",
	}
	reminderPhrases = []string{
		"remind me", "remember to", "don't let me forget", "make sure i",
	}
	thoughtDumpPhrases = []string{
		"i've been thinking", "on my mind", "i need to vent", "just thinking",
		"random thought", "brain dump", "let me just",
	}
	taskPhrases = []string{
		"can you", "could you", "please", "i need you to", "help me",
	}
)

// DetectKinds reports which countable interaction types a message contains.
// At most one kind per category is returned.
func DetectKinds(message string) []EventKind {
	lower := strings.ToLower(message)
	var kinds []EventKind

	if containsAny(lower, correctionPhrases) {
		kinds = append(kinds, EventCorrection)
	}
	if containsAny(lower, emotionalPhrases) {
		kinds = append(kinds, EventEmotionalShare)
	}
	if containsAny(lower, reminderPhrases) {
		kinds = append(kinds, EventReminderRequested)
	}
	if containsAny(lower, thoughtDumpPhrases) {
		kinds = append(kinds, EventThoughtDump)
	}
	if containsAny(lower, taskPhrases) {
		kinds = append(kinds, EventTaskGiven)
	}
	return kinds
}

// LooksLikeAnswer reports whether a message reads as a short direct answer
// rather than a new prompt.
func LooksLikeAnswer(message string) bool {
	trimmed := strings.TrimSpace(message)
	return len(strings.Fields(trimmed)) <= 10 && !strings.HasSuffix(trimmed, "?")
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
