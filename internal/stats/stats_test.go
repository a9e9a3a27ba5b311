package stats

import (
	"errors"
	"testing"
	"time"
)

func date(day int, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

func TestRecordIncrementsExactlyOneCounter(t *testing.T) {
	s := New(date(1, 9))

	if err := s.Record(EventMessage, date(1, 9)); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if err := s.Record(EventCheckIn, date(1, 9)); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if err := s.Record(EventCheckIn, date(1, 10)); err != nil {
		t.Fatalf("Record error: %v", err)
	}

	if s.Messages != 1 {
		t.Errorf("Messages = %d, want 1", s.Messages)
	}
	if s.CheckIns != 2 {
		t.Errorf("CheckIns = %d, want 2", s.CheckIns)
	}
	if s.MemoriesStored != 0 {
		t.Errorf("MemoriesStored = %d, want 0", s.MemoriesStored)
	}
}

func TestRecordCountsMatchEvents(t *testing.T) {
	s := New(date(1, 9))
	events := []EventKind{
		EventMessage, EventMessage, EventMessage,
		EventEmotionalShare,
		EventQuestionAsked, EventQuestionAnswered,
		EventCorrection, EventCorrection,
	}
	for i, kind := range events {
		if err := s.Record(kind, date(1, 9+i%3)); err != nil {
			t.Fatalf("Record(%s) error: %v", kind, err)
		}
	}

	if s.Messages != 3 || s.EmotionalShares != 1 || s.QuestionsAsked != 1 ||
		s.QuestionsAnswered != 1 || s.Corrections != 2 {
		t.Errorf("unexpected counters: %+v", s)
	}
}

func TestRecordUniqueDays(t *testing.T) {
	s := New(date(1, 9))

	_ = s.Record(EventMessage, date(1, 9))
	_ = s.Record(EventMessage, date(1, 23))
	_ = s.Record(EventMessage, date(2, 0))
	_ = s.Record(EventCheckIn, date(2, 8))
	_ = s.Record(EventMessage, date(5, 12))

	if got := s.UniqueDayCount(); got != 3 {
		t.Errorf("UniqueDayCount = %d, want 3 (%v)", got, s.UniqueDays)
	}
	if s.LastInteraction != date(5, 12) {
		t.Errorf("LastInteraction = %v, want %v", s.LastInteraction, date(5, 12))
	}
}

func TestRecordInvalidKind(t *testing.T) {
	s := New(date(1, 9))
	err := s.Record(EventKind("telepathy"), date(1, 9))
	if !errors.Is(err, ErrInvalidEventKind) {
		t.Fatalf("err = %v, want ErrInvalidEventKind", err)
	}
	if s.Messages != 0 || s.UniqueDayCount() != 0 {
		t.Error("invalid kind must not mutate stats")
	}
}

func TestDetectKinds(t *testing.T) {
	tests := []struct {
		message string
		want    []EventKind
	}{
		{"no, that's wrong", []EventKind{EventCorrection}},
		{"i feel pretty stressed today", []EventKind{EventEmotionalShare}},
		{"remind me to water the plants", []EventKind{EventReminderRequested}},
		{"i've been thinking about the move", []EventKind{EventThoughtDump}},
		{"can you keep track of this", []EventKind{EventTaskGiven}},
		{"the sky is blue", nil},
	}

	for _, tt := range tests {
		got := DetectKinds(tt.message)
		if len(got) != len(tt.want) {
			t.Errorf("DetectKinds(%q) = %v, want %v", tt.message, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("DetectKinds(%q) = %v, want %v", tt.message, got, tt.want)
			}
		}
	}
}

func TestLooksLikeAnswer(t *testing.T) {
	if !LooksLikeAnswer("a golden retriever") {
		t.Error("short statement should look like an answer")
	}
	if LooksLikeAnswer("what do you mean by that?") {
		t.Error("question should not look like an answer")
	}
	if LooksLikeAnswer("well it is a long story that started many years ago when I was living in another city entirely") {
		t.Error("long message should not look like an answer")
	}
}
