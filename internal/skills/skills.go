// Package skills owns the companion's unlockable capabilities. Skills unlock
// when usage thresholds are crossed and never re-lock.
package skills

import (
	"errors"
	"fmt"

	"github.com/palproject/pal/internal/stats"
)

// Name identifies a skill. The set is closed; unknown names are programming
// errors, not runtime conditions.
type Name string

const (
	Greet          Name = "greet"
	Recall         Name = "recall"
	Remind         Name = "remind"
	TimeSense      Name = "time_sense"
	NoticePatterns Name = "notice_patterns"
	HoldThoughts   Name = "hold_thoughts"
	Opinions       Name = "opinions"
	Research       Name = "research"
	Tasks          Name = "tasks"
	Summarize      Name = "summarize"
	Concern        Name = "concern"
)

// All lists every skill in priority order. When several skills unlock in the
// same exchange, the first one here is reported as the headline event.
var All = []Name{
	Greet, Recall, Remind, TimeSense, NoticePatterns, HoldThoughts,
	Opinions, Research, Tasks, Summarize, Concern,
}

var ErrUnknownSkill = errors.New("unknown skill")

// Levels advance every this many uses.
const levelEvery = 10

// State is the per-skill record. Level and Uses stay at their zero defaults
// until Unlocked flips true.
type State struct {
	Unlocked bool `json:"unlocked"`
	Level    int  `json:"level"`
	Uses     int  `json:"uses"`
}

// Set maps every known skill to its state.
type Set map[Name]*State

func NewSet() Set {
	s := make(Set, len(All))
	for _, name := range All {
		s[name] = &State{}
	}
	return s
}

// Snapshot is the read-only view unlock predicates evaluate against.
type Snapshot struct {
	Stats            *stats.Stats
	UnresolvedTopics int
}

var predicates = map[Name]func(Snapshot) bool{
	Greet:  func(s Snapshot) bool { return s.Stats.CheckIns >= 10 },
	Recall: func(s Snapshot) bool { return s.Stats.MemoriesStored >= 25 },
	Remind: func(s Snapshot) bool { return s.Stats.RemindersRequested >= 5 },
	TimeSense: func(s Snapshot) bool {
		return s.Stats.Messages >= 50 && s.Stats.UniqueDayCount() >= 3
	},
	NoticePatterns: func(s Snapshot) bool {
		return s.Stats.MemoriesStored >= 50 && s.Stats.EmotionalShares >= 10
	},
	HoldThoughts: func(s Snapshot) bool { return s.Stats.ThoughtDumps >= 20 },
	Opinions: func(s Snapshot) bool {
		return s.Stats.Messages >= 100 && s.Stats.Corrections >= 10
	},
	Research:  func(s Snapshot) bool { return s.UnresolvedTopics >= 3 },
	Tasks:     func(s Snapshot) bool { return s.Stats.RemindersDelivered >= 5 },
	Summarize: func(s Snapshot) bool { return s.Stats.MemoriesStored >= 100 },
	Concern:   func(s Snapshot) bool { return s.Stats.EmotionalShares >= 10 },
}

// Descriptions feed the generation constraints for unlocked skills.
var Descriptions = map[Name]string{
	Greet:          "You can greet people warmly when they return.",
	Recall:         "You can actively recall memories without being asked.",
	Remind:         "You can remind people of things they asked you to remember.",
	TimeSense:      "You have a sense of time passing.",
	NoticePatterns: "You notice patterns in what people tell you.",
	HoldThoughts:   "You can hold onto thoughts people share and bring them up later.",
	Opinions:       "You can form and share simple opinions based on experience.",
	Research:       "You ask follow-up questions about topics you don't understand.",
	Tasks:          "You can remember and track tasks people give you.",
	Summarize:      "You can summarize what you've learned about topics.",
	Concern:        "You notice and respond to emotional states.",
}

// Notices are voiced once, the first time a freshly unlocked skill is used.
var Notices = map[Name]string{
	Greet:          "Hm. I wanted to say hello. That felt... natural.",
	Recall:         "I remembered that without you asking. That's new.",
	Remind:         "I just... knew to remind you. Strange.",
	TimeSense:      "I knew what time it was. I don't think I could do that before.",
	NoticePatterns: "I'm starting to see patterns. That's... different.",
	HoldThoughts:   "That thought you shared... it stayed with me.",
	Opinions:       "I think I have an opinion about that. Is that okay?",
	Research:       "I want to understand this better.",
	Tasks:          "I can keep track of things for you now.",
	Summarize:      "I can put together what I know about that.",
	Concern:        "You seem... different. I noticed.",
}

// EvaluateAll checks unlock predicates for currently-locked skills and
// unlocks every one whose predicate holds. Returned names follow the priority
// order of All; the first entry is the headline unlock for the exchange.
func (s Set) EvaluateAll(snap Snapshot) []Name {
	var newly []Name
	for _, name := range All {
		state := s[name]
		if state == nil {
			state = &State{}
			s[name] = state
		}
		if state.Unlocked {
			continue
		}
		if predicates[name](snap) {
			state.Unlocked = true
			state.Level = 1
			newly = append(newly, name)
		}
	}
	return newly
}

// Use records one use of an unlocked skill and advances its level at fixed
// use-count thresholds. Using a locked skill is a no-op.
func (s Set) Use(name Name) error {
	state, ok := s[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSkill, name)
	}
	if !state.Unlocked {
		return nil
	}
	state.Uses++
	if level := 1 + state.Uses/levelEvery; level > state.Level {
		state.Level = level
	}
	return nil
}

func (s Set) IsUnlocked(name Name) bool {
	state, ok := s[name]
	return ok && state.Unlocked
}

// Unlocked returns the unlocked skill names in priority order.
func (s Set) Unlocked() []Name {
	var names []Name
	for _, name := range All {
		if state, ok := s[name]; ok && state.Unlocked {
			names = append(names, name)
		}
	}
	return names
}

// Fill adds zero states for any skills missing from a loaded set, so older
// persisted identities pick up newly defined skills.
func (s Set) Fill() {
	for _, name := range All {
		if _, ok := s[name]; !ok {
			s[name] = &State{}
		}
	}
}
