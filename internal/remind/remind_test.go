package remind

import (
	"path/filepath"
	"testing"
	"time"
)

func TestParseRequest(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	text, sched, ok := ParseRequest("remind me to drink water in 30 minutes", now)
	if !ok {
		t.Fatal("expected a match")
	}
	if text != "drink water" {
		t.Errorf("text = %q", text)
	}
	if sched.Kind != "at" || sched.AtMs != now.Add(30*time.Minute).UnixMilli() {
		t.Errorf("schedule = %+v", sched)
	}

	text, sched, ok = ParseRequest("please remind me about stretching every 2 hours", now)
	if !ok {
		t.Fatal("expected a match")
	}
	if text != "stretching" {
		t.Errorf("text = %q", text)
	}
	if sched.Kind != "every" || sched.EveryMs != (2*time.Hour).Milliseconds() {
		t.Errorf("schedule = %+v", sched)
	}

	if _, _, ok := ParseRequest("what is rain?", now); ok {
		t.Error("plain message should not parse as a reminder")
	}
	if _, _, ok := ParseRequest("remind me to stretch in 0 minutes", now); ok {
		t.Error("zero duration should not parse")
	}
}

func TestOneShotReminderFiresOnceAndIsRemoved(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "reminders.json"))
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var fired []string
	s.OnDue = func(r Reminder) { fired = append(fired, r.Text) }

	if _, err := s.Add("drink water", Schedule{Kind: "at", AtMs: now.Add(time.Minute).UnixMilli()}, now); err != nil {
		t.Fatalf("add: %v", err)
	}

	s.CheckDue(now.Add(30 * time.Second))
	if len(fired) != 0 {
		t.Fatalf("fired early: %v", fired)
	}

	s.CheckDue(now.Add(2 * time.Minute))
	if len(fired) != 1 || fired[0] != "drink water" {
		t.Fatalf("fired = %v", fired)
	}
	if len(s.List()) != 0 {
		t.Errorf("one-shot reminder should be removed, have %v", s.List())
	}

	s.CheckDue(now.Add(3 * time.Minute))
	if len(fired) != 1 {
		t.Errorf("fired again: %v", fired)
	}
}

func TestRepeatingReminderKeepsFiring(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "reminders.json"))
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	count := 0
	s.OnDue = func(Reminder) { count++ }

	if _, err := s.Add("stretch", Schedule{Kind: "every", EveryMs: (10 * time.Minute).Milliseconds()}, now); err != nil {
		t.Fatalf("add: %v", err)
	}

	s.CheckDue(now.Add(10 * time.Minute))
	s.CheckDue(now.Add(11 * time.Minute))
	s.CheckDue(now.Add(20 * time.Minute))
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if len(s.List()) != 1 {
		t.Errorf("repeating reminder should stay, have %d", len(s.List()))
	}
}

func TestRemindersSurviveRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s := NewService(path)
	if _, err := s.Add("stretch", Schedule{Kind: "every", EveryMs: 60000}, now); err != nil {
		t.Fatalf("add: %v", err)
	}

	s2 := NewService(path)
	if err := s2.load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	got := s2.List()
	if len(got) != 1 || got[0].Text != "stretch" {
		t.Fatalf("got %v", got)
	}
}

func TestRemove(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "reminders.json"))
	now := time.Now()
	r, err := s.Add("x", Schedule{Kind: "every", EveryMs: 60000}, now)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !s.Remove(r.ID) {
		t.Error("remove should succeed")
	}
	if s.Remove("missing") {
		t.Error("remove of unknown id should fail")
	}
}
