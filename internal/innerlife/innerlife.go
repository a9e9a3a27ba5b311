// Package innerlife holds the companion's thought queue and dream journal:
// questions that went unanswered, curiosities inferred from what the owner
// says, and idle-time reflections waiting to be voiced.
package innerlife

import (
	"fmt"
	"strings"
	"time"
)

type ThoughtKind string

const (
	KindQuestion  ThoughtKind = "question"
	KindCuriosity ThoughtKind = "curiosity"
)

const (
	MaxThoughts   = 20
	MaxDreams     = 10
	DreamCooldown = 30 * time.Minute
)

type Thought struct {
	Thought  string      `json:"thought"`
	Kind     ThoughtKind `json:"kind"`
	FormedAt time.Time   `json:"formed_at"`
	Surfaced bool        `json:"surfaced"`
}

type Dream struct {
	Dream    string    `json:"dream"`
	FormedAt time.Time `json:"formed_at"`
	Shared   bool      `json:"shared"`
}

type State struct {
	ThoughtQueue           []Thought `json:"thought_queue"`
	DreamJournal           []Dream   `json:"dream_journal"`
	LastDreamTime          time.Time `json:"last_dream_time"`
	DreamsSinceLastContact int       `json:"dreams_since_last_conversation"`
}

func NewState() *State {
	return &State{}
}

// Enqueue appends a thought unless an equivalent (normalized) one is already
// queued. On overflow the oldest already-surfaced entries are dropped first.
// Returns false if the thought was a duplicate.
func (s *State) Enqueue(text string, kind ThoughtKind, at time.Time) bool {
	norm := strings.ToLower(strings.TrimSpace(text))
	if norm == "" {
		return false
	}
	for _, t := range s.ThoughtQueue {
		if strings.ToLower(strings.TrimSpace(t.Thought)) == norm {
			return false
		}
	}

	s.ThoughtQueue = append(s.ThoughtQueue, Thought{
		Thought:  text,
		Kind:     kind,
		FormedAt: at,
	})

	if len(s.ThoughtQueue) > MaxThoughts {
		s.ThoughtQueue = trimThoughts(s.ThoughtQueue, MaxThoughts)
	}
	return true
}

func trimThoughts(queue []Thought, max int) []Thought {
	var unsurfaced, surfaced []Thought
	for _, t := range queue {
		if t.Surfaced {
			surfaced = append(surfaced, t)
		} else {
			unsurfaced = append(unsurfaced, t)
		}
	}
	if len(unsurfaced) >= max {
		return unsurfaced[len(unsurfaced)-max:]
	}
	keep := max - len(unsurfaced)
	if keep > len(surfaced) {
		keep = len(surfaced)
	}
	return append(surfaced[len(surfaced)-keep:], unsurfaced...)
}

// SurfaceNext returns the oldest unsurfaced thought and marks it surfaced.
func (s *State) SurfaceNext() (string, bool) {
	for i := range s.ThoughtQueue {
		if !s.ThoughtQueue[i].Surfaced {
			s.ThoughtQueue[i].Surfaced = true
			return s.ThoughtQueue[i].Thought, true
		}
	}
	return "", false
}

// PeekThought returns the oldest unsurfaced thought without consuming it.
func (s *State) PeekThought() (string, bool) {
	for _, t := range s.ThoughtQueue {
		if !t.Surfaced {
			return t.Thought, true
		}
	}
	return "", false
}

// PendingThoughts returns up to n unsurfaced thought texts, oldest first.
func (s *State) PendingThoughts(n int) []string {
	var out []string
	for _, t := range s.ThoughtQueue {
		if !t.Surfaced {
			out = append(out, t.Thought)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

// CanDream reports whether enough time has passed since the last dream.
func (s *State) CanDream(at time.Time) bool {
	if s.LastDreamTime.IsZero() {
		return true
	}
	return at.Sub(s.LastDreamTime) >= DreamCooldown
}

// RecordDream stores a freshly synthesized dream. Oldest shared dreams are
// dropped first when the journal overflows.
func (s *State) RecordDream(text string, at time.Time) {
	s.DreamJournal = append(s.DreamJournal, Dream{Dream: text, FormedAt: at})
	s.LastDreamTime = at
	s.DreamsSinceLastContact++

	if len(s.DreamJournal) > MaxDreams {
		s.DreamJournal = trimDreams(s.DreamJournal, MaxDreams)
	}
}

func trimDreams(journal []Dream, max int) []Dream {
	var unshared, shared []Dream
	for _, d := range journal {
		if d.Shared {
			shared = append(shared, d)
		} else {
			unshared = append(unshared, d)
		}
	}
	if len(unshared) >= max {
		return unshared[len(unshared)-max:]
	}
	keep := max - len(unshared)
	if keep > len(shared) {
		keep = len(shared)
	}
	return append(shared[len(shared)-keep:], unshared...)
}

// SurfaceDreams returns up to maxN unshared dreams, oldest first, marking
// them shared.
func (s *State) SurfaceDreams(maxN int) []string {
	var out []string
	for i := range s.DreamJournal {
		if len(out) == maxN {
			break
		}
		if !s.DreamJournal[i].Shared {
			s.DreamJournal[i].Shared = true
			out = append(out, s.DreamJournal[i].Dream)
		}
	}
	return out
}

// ShareLatest marks the newest unshared dream as shared and returns it.
func (s *State) ShareLatest() (string, bool) {
	for i := len(s.DreamJournal) - 1; i >= 0; i-- {
		if !s.DreamJournal[i].Shared {
			s.DreamJournal[i].Shared = true
			return s.DreamJournal[i].Dream, true
		}
	}
	return "", false
}

// LatestUnsharedDream returns the newest unshared dream without consuming it.
func (s *State) LatestUnsharedDream() (string, bool) {
	for i := len(s.DreamJournal) - 1; i >= 0; i-- {
		if !s.DreamJournal[i].Shared {
			return s.DreamJournal[i].Dream, true
		}
	}
	return "", false
}

// ResetSinceContact clears the per-absence dream counter when a conversation
// starts.
func (s *State) ResetSinceContact() {
	s.DreamsSinceLastContact = 0
}

var dismissive = map[string]bool{
	"idk": true, "i don't know": true, "dunno": true, "not sure": true,
	"maybe": true, "idc": true, "whatever": true,
}

// UnansweredQuestion returns the question from the companion's previous reply
// if the owner's response dodged it.
func UnansweredQuestion(previousReply, ownerResponse string) (string, bool) {
	if !strings.Contains(previousReply, "?") {
		return "", false
	}
	parts := strings.Split(previousReply, "?")
	if len(parts) < 2 {
		return "", false
	}
	segment := parts[len(parts)-2]
	if idx := strings.LastIndex(segment, "."); idx >= 0 {
		segment = segment[idx+1:]
	}
	question := strings.TrimSpace(segment) + "?"

	lower := strings.ToLower(strings.TrimSpace(ownerResponse))
	if dismissive[lower] || len(ownerResponse) < 3 {
		return question, true
	}
	return "", false
}

// CuriosityFromMention turns a passing mention in the owner's message into a
// follow-up curiosity, if the message hits a known keyword.
func CuriosityFromMention(message, ownerName string) (string, bool) {
	if ownerName == "" {
		ownerName = "my friend"
	}
	patterns := []struct {
		keyword string
		thought string
	}{
		{"girlfriend", fmt.Sprintf("%s mentioned a girlfriend but I don't know her name", ownerName)},
		{"boyfriend", fmt.Sprintf("%s mentioned a boyfriend but I don't know his name", ownerName)},
		{"wife", fmt.Sprintf("%s mentioned a wife but I don't know her name", ownerName)},
		{"husband", fmt.Sprintf("%s mentioned a husband but I don't know his name", ownerName)},
		{"friend", fmt.Sprintf("%s has a friend I don't know about", ownerName)},
		{"job", fmt.Sprintf("What exactly does %s do for work?", ownerName)},
		{"work", fmt.Sprintf("I wonder what %s's work is like", ownerName)},
		{"pet", fmt.Sprintf("%s has a pet I should ask about", ownerName)},
		{"dog", fmt.Sprintf("I want to know more about %s's dog", ownerName)},
		{"cat", fmt.Sprintf("I want to know more about %s's cat", ownerName)},
	}

	lower := strings.ToLower(message)
	for _, p := range patterns {
		if strings.Contains(lower, p.keyword) {
			return p.thought, true
		}
	}
	return "", false
}
