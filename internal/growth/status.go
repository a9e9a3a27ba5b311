package growth

import (
	"strings"
	"time"

	"github.com/palproject/pal/internal/identity"
	"github.com/palproject/pal/internal/stats"
	"github.com/palproject/pal/internal/topics"
)

var thoughtQueryPhrases = []string{
	"what have you been thinking",
	"what are you thinking",
	"did you dream",
	"any dreams",
	"what's on your mind",
	"been thinking about",
	"thinking about anything",
	"have any thoughts",
}

func askingPattern(message string) bool {
	lower := strings.ToLower(message)
	for _, p := range thoughtQueryPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Status is a read-only snapshot of the companion for dashboards and the
// status command.
type Status struct {
	Name            string                 `json:"name"`
	OwnerName       string                 `json:"owner_name,omitempty"`
	Age             string                 `json:"age"`
	Mood            identity.Mood          `json:"mood"`
	Stats           stats.Stats            `json:"stats"`
	UnlockedSkills  []string               `json:"unlocked_skills"`
	Topics          map[string]topics.Card `json:"topics"`
	PendingThoughts []string               `json:"pending_thoughts"`
	UnsharedDreams  int                    `json:"unshared_dreams"`
	CurrentTopic    string                 `json:"current_topic,omitempty"`
}

func (e *Engine) Status(now time.Time) Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		Name:            e.id.Name,
		OwnerName:       e.id.OwnerName,
		Age:             e.id.Age(now),
		Mood:            e.id.Mood,
		Stats:           *e.id.Stats,
		Topics:          make(map[string]topics.Card),
		PendingThoughts: e.id.InnerLife.PendingThoughts(5),
		CurrentTopic:    e.conv.CurrentTopic(),
	}
	for _, name := range e.id.Skills.Unlocked() {
		st.UnlockedSkills = append(st.UnlockedSkills, string(name))
	}
	for name, card := range e.id.Topics.Cards() {
		st.Topics[name] = *card
	}
	for _, d := range e.id.InnerLife.DreamJournal {
		if !d.Shared {
			st.UnsharedDreams++
		}
	}
	return st
}
