// Package topics maintains per-subject topic cards: how often a subject came
// up, which memories it links to, how well the companion understands it, and
// which questions about it are still open.
package topics

import (
	"encoding/json"
	"strings"
	"time"
)

// Understanding is the companion's grasp of a topic. It only ever advances.
type Understanding string

const (
	Surface       Understanding = "surface"
	Basic         Understanding = "basic"
	Familiar      Understanding = "familiar"
	Knowledgeable Understanding = "knowledgeable"
)

var levelOrder = []Understanding{Surface, Basic, Familiar, Knowledgeable}

func (u Understanding) index() int {
	for i, l := range levelOrder {
		if l == u {
			return i
		}
	}
	return 0
}

// Thresholds control when a card's understanding advances. Each step must be
// at least as demanding as the previous one.
type Thresholds struct {
	BasicDiscussions         int `json:"basicDiscussions"`
	BasicMemories            int `json:"basicMemories"`
	FamiliarDiscussions      int `json:"familiarDiscussions"`
	FamiliarMemories         int `json:"familiarMemories"`
	KnowledgeableDiscussions int `json:"knowledgeableDiscussions"`
	KnowledgeableMemories    int `json:"knowledgeableMemories"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		BasicDiscussions:         3,
		BasicMemories:            2,
		FamiliarDiscussions:      10,
		FamiliarMemories:         5,
		KnowledgeableDiscussions: 25,
		KnowledgeableMemories:    10,
	}
}

// Card tracks one discussion subject.
type Card struct {
	DisplayName    string        `json:"display_name"`
	FirstMentioned time.Time     `json:"first_mentioned"`
	LastDiscussed  time.Time     `json:"last_discussed"`
	TimesDiscussed int           `json:"times_discussed"`
	Memories       []string      `json:"memories"`
	Understanding  Understanding `json:"understanding"`
	Unresolved     []string      `json:"unresolved"`
}

// Registry is the set of topic cards keyed by normalized name. It marshals as
// a plain name->card map.
type Registry struct {
	cards map[string]*Card
}

func NewRegistry() *Registry {
	return &Registry{cards: make(map[string]*Card)}
}

func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.cards)
}

func (r *Registry) UnmarshalJSON(data []byte) error {
	cards := make(map[string]*Card)
	if err := json.Unmarshal(data, &cards); err != nil {
		return err
	}
	r.cards = cards
	return nil
}

func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Touch records a discussion of the topic, creating the card on first
// mention. A non-empty memoryRef is linked to the card (deduplicated).
func (r *Registry) Touch(name, memoryRef string, at time.Time) *Card {
	key := Normalize(name)
	if key == "" {
		return nil
	}
	if r.cards == nil {
		r.cards = make(map[string]*Card)
	}

	card, ok := r.cards[key]
	if !ok {
		card = &Card{
			DisplayName:    strings.TrimSpace(name),
			FirstMentioned: at,
			LastDiscussed:  at,
			TimesDiscussed: 1,
			Understanding:  Surface,
		}
		r.cards[key] = card
	} else {
		card.TimesDiscussed++
		card.LastDiscussed = at
	}

	if memoryRef != "" {
		card.linkMemory(memoryRef)
	}
	return card
}

func (c *Card) linkMemory(id string) {
	for _, m := range c.Memories {
		if m == id {
			return
		}
	}
	c.Memories = append(c.Memories, id)
}

// Link attaches a stored memory to the topic without counting a discussion.
// Linking a topic with no card is a no-op.
func (r *Registry) Link(name, memoryRef string) {
	card := r.Get(name)
	if card == nil || memoryRef == "" {
		return
	}
	card.linkMemory(memoryRef)
}

func (r *Registry) Get(name string) *Card {
	if r.cards == nil {
		return nil
	}
	return r.cards[Normalize(name)]
}

// AddUnresolved appends an open question to the topic, creating the card if
// needed. Duplicate question texts are ignored.
func (r *Registry) AddUnresolved(name, question string, at time.Time) {
	card := r.Get(name)
	if card == nil {
		card = r.Touch(name, "", at)
		if card == nil {
			return
		}
	}
	for _, q := range card.Unresolved {
		if q == question {
			return
		}
	}
	card.Unresolved = append(card.Unresolved, question)
}

// Resolve removes an open question from the topic and re-checks promotion,
// since a cleared unresolved list can unblock the familiar step.
func (r *Registry) Resolve(name, question string, th Thresholds) {
	card := r.Get(name)
	if card == nil {
		return
	}
	for i, q := range card.Unresolved {
		if q == question {
			card.Unresolved = append(card.Unresolved[:i], card.Unresolved[i+1:]...)
			r.Promote(name, th)
			return
		}
	}
}

// Promote advances understanding one step when the card's discussion and
// linked-memory counts cross the configured thresholds. Understanding never
// regresses.
func (r *Registry) Promote(name string, th Thresholds) {
	card := r.Get(name)
	if card == nil {
		return
	}

	current := card.Understanding.index()
	next := current

	switch card.Understanding {
	case Surface:
		if card.TimesDiscussed >= th.BasicDiscussions || len(card.Memories) >= th.BasicMemories {
			next = Basic.index()
		}
	case Basic:
		if card.TimesDiscussed >= th.FamiliarDiscussions && len(card.Memories) >= th.FamiliarMemories && len(card.Unresolved) == 0 {
			next = Familiar.index()
		}
	case Familiar:
		if card.TimesDiscussed >= th.KnowledgeableDiscussions && len(card.Memories) >= th.KnowledgeableMemories {
			next = Knowledgeable.index()
		}
	}

	if next > current {
		card.Understanding = levelOrder[next]
	}
}

// UnresolvedTopicCount counts topics that have at least one open question.
func (r *Registry) UnresolvedTopicCount() int {
	count := 0
	for _, card := range r.cards {
		if len(card.Unresolved) > 0 {
			count++
		}
	}
	return count
}

func (r *Registry) Len() int {
	return len(r.cards)
}

// Cards returns the underlying card map. Callers must hold the identity lock.
func (r *Registry) Cards() map[string]*Card {
	if r.cards == nil {
		r.cards = make(map[string]*Card)
	}
	return r.cards
}

// Mentioned returns the normalized names of known topics that appear verbatim
// in the message.
func (r *Registry) Mentioned(message string) []string {
	lower := strings.ToLower(message)
	var names []string
	for name := range r.cards {
		if strings.Contains(lower, name) {
			names = append(names, name)
		}
	}
	return names
}
