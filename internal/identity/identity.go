// Package identity owns the persisted aggregate state for one owner: who the
// companion is, its mood, and the stats/skills/topics/inner-life records that
// grow with every exchange.
package identity

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/palproject/pal/internal/innerlife"
	"github.com/palproject/pal/internal/skills"
	"github.com/palproject/pal/internal/stats"
	"github.com/palproject/pal/internal/topics"
)

// Mood is the companion's displayed emotional state. The set is closed;
// anything else parsed from generated text falls back to curious.
type Mood string

const (
	MoodCurious  Mood = "curious"
	MoodConfused Mood = "confused"
	MoodHappy    Mood = "happy"
	MoodSad      Mood = "sad"
	MoodWorried  Mood = "worried"
	MoodExcited  Mood = "excited"
	MoodThinking Mood = "thinking"
	MoodSleepy   Mood = "sleepy"
)

var validMoods = map[Mood]bool{
	MoodCurious: true, MoodConfused: true, MoodHappy: true, MoodSad: true,
	MoodWorried: true, MoodExcited: true, MoodThinking: true, MoodSleepy: true,
}

func (m Mood) Valid() bool { return validMoods[m] }

var moodMarker = regexp.MustCompile(`\s*\[mood:(\w+)\]\s*`)

// ParseMoodMarker extracts the [mood:xxx] marker from generated text,
// validates it against the closed mood set, and strips it. A missing or
// unrecognized marker yields MoodCurious. The marker is the only embedded
// token treated as a control signal.
func ParseMoodMarker(text string) (clean string, mood Mood) {
	mood = MoodCurious
	if m := moodMarker.FindStringSubmatch(text); m != nil {
		if candidate := Mood(strings.ToLower(m[1])); candidate.Valid() {
			mood = candidate
		}
	}
	clean = strings.TrimSpace(moodMarker.ReplaceAllString(text, " "))
	return clean, mood
}

// Identity is the full aggregate persisted per owner. Conversation context is
// deliberately absent: it is ephemeral working memory.
type Identity struct {
	Name      string    `json:"name"`
	OwnerName string    `json:"owner_name,omitempty"`
	Born      time.Time `json:"born,omitempty"`
	FirstBoot bool      `json:"first_boot"`
	Mood      Mood      `json:"mood"`

	Stats     *stats.Stats     `json:"stats"`
	Skills    skills.Set       `json:"skills"`
	Topics    *topics.Registry `json:"topics"`
	InnerLife *innerlife.State `json:"inner_life"`
}

func New(name string, now time.Time) *Identity {
	return &Identity{
		Name:      name,
		FirstBoot: true,
		Mood:      MoodCurious,
		Stats:     stats.New(now),
		Skills:    skills.NewSet(),
		Topics:    topics.NewRegistry(),
		InnerLife: innerlife.NewState(),
	}
}

// normalize fills in anything missing from an older persisted identity.
func (id *Identity) normalize(now time.Time) {
	if id.Name == "" {
		id.Name = "Pal"
	}
	if !id.Mood.Valid() {
		id.Mood = MoodCurious
	}
	if id.Stats == nil {
		id.Stats = stats.New(now)
	}
	if id.Skills == nil {
		id.Skills = skills.NewSet()
	} else {
		id.Skills.Fill()
	}
	if id.Topics == nil {
		id.Topics = topics.NewRegistry()
	}
	if id.InnerLife == nil {
		id.InnerLife = innerlife.NewState()
	}
}

// CompleteBirth marks the first boot as done.
func (id *Identity) CompleteBirth(now time.Time) {
	id.FirstBoot = false
	id.Born = now
}

// Age renders how long the companion has existed, human-readable.
func (id *Identity) Age(now time.Time) string {
	if id.Born.IsZero() {
		return "not yet born"
	}
	delta := now.Sub(id.Born)
	switch {
	case delta >= 24*time.Hour:
		return fmt.Sprintf("%d days old", int(delta.Hours()/24))
	case delta >= time.Hour:
		return fmt.Sprintf("%d hours old", int(delta.Hours()))
	case delta >= time.Minute:
		return fmt.Sprintf("%d minutes old", int(delta.Minutes()))
	default:
		return "just born"
	}
}
