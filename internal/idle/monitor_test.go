package idle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/palproject/pal/internal/bus"
	"github.com/palproject/pal/internal/growth"
)

type fakeEngine struct {
	action   growth.IdleAction
	owner    string
	recorded []string
	taken    int
}

func (f *fakeEngine) IdleTick(_ time.Time) growth.IdleAction { return f.action }

func (f *fakeEngine) TakeThought() (string, bool) {
	if f.action.Thought == "" {
		return "", false
	}
	f.taken++
	return f.action.Thought, true
}

func (f *fakeEngine) RecordDream(text string, _ time.Time) error {
	f.recorded = append(f.recorded, text)
	return nil
}

func (f *fakeEngine) OwnerName() string { return f.owner }

type fakeDreamer struct {
	dream string
	err   error
	calls int
}

func (f *fakeDreamer) Dream(_ context.Context, _ []string) (string, error) {
	f.calls++
	return f.dream, f.err
}

func TestTickPushesThoughtToLastSession(t *testing.T) {
	b := bus.NewMessageBus(10)
	eng := &fakeEngine{action: growth.IdleAction{Thought: "what is rain?"}, owner: "Sam"}
	m := NewMonitor(eng, &fakeDreamer{}, func(int) []string { return nil }, b, "@every 1m")
	m.NoteSession("telegram", "42")

	m.Tick(context.Background())

	select {
	case msg := <-b.Outbound:
		if msg.Channel != "telegram" || msg.ChatID != "42" {
			t.Errorf("routed to %s:%s, want telegram:42", msg.Channel, msg.ChatID)
		}
		if msg.Kind != bus.KindThought {
			t.Errorf("kind = %q, want thought", msg.Kind)
		}
		if !strings.Contains(msg.Content, "Sam?") || !strings.Contains(msg.Content, "what is rain?") {
			t.Errorf("unexpected content %q", msg.Content)
		}
	default:
		t.Fatal("no outbound message")
	}
}

func TestTickKeepsThoughtWithoutSession(t *testing.T) {
	b := bus.NewMessageBus(10)
	eng := &fakeEngine{action: growth.IdleAction{Thought: "what is rain?"}}
	m := NewMonitor(eng, &fakeDreamer{}, func(int) []string { return nil }, b, "@every 1m")

	m.Tick(context.Background())

	select {
	case msg := <-b.Outbound:
		t.Fatalf("unexpected outbound message %+v", msg)
	default:
	}
	if eng.taken != 0 {
		t.Error("thought should stay queued until a session exists")
	}

	// The owner shows up later; the same thought goes out on the next tick.
	m.NoteSession("telegram", "42")
	m.Tick(context.Background())

	select {
	case msg := <-b.Outbound:
		if !strings.Contains(msg.Content, "what is rain?") {
			t.Errorf("unexpected content %q", msg.Content)
		}
	default:
		t.Fatal("thought should be delivered once a session exists")
	}
	if eng.taken != 1 {
		t.Errorf("taken = %d, want 1", eng.taken)
	}
}

func TestTickFormsDreamSilently(t *testing.T) {
	b := bus.NewMessageBus(10)
	eng := &fakeEngine{action: growth.IdleAction{FormDream: true}}
	dreamer := &fakeDreamer{dream: "floating words about rain"}
	m := NewMonitor(eng, dreamer, func(int) []string { return []string{"rain is wet"} }, b, "@every 1m")

	m.Tick(context.Background())

	if len(eng.recorded) != 1 || eng.recorded[0] != "floating words about rain" {
		t.Errorf("recorded = %v, want the dream", eng.recorded)
	}
	select {
	case msg := <-b.Outbound:
		t.Fatalf("dreams should stay in the journal, got %+v", msg)
	default:
	}
}

func TestTickSkipsDreamWithoutMemories(t *testing.T) {
	b := bus.NewMessageBus(10)
	eng := &fakeEngine{action: growth.IdleAction{FormDream: true}}
	dreamer := &fakeDreamer{dream: "should not happen"}
	m := NewMonitor(eng, dreamer, func(int) []string { return nil }, b, "@every 1m")

	m.Tick(context.Background())

	if dreamer.calls != 0 {
		t.Error("dreamer should not run with no memories")
	}
	if len(eng.recorded) != 0 {
		t.Errorf("recorded = %v, want none", eng.recorded)
	}
}

func TestTickDreamErrorIsSwallowed(t *testing.T) {
	b := bus.NewMessageBus(10)
	eng := &fakeEngine{action: growth.IdleAction{FormDream: true}}
	dreamer := &fakeDreamer{err: errors.New("model offline")}
	m := NewMonitor(eng, dreamer, func(int) []string { return []string{"rain"} }, b, "@every 1m")

	m.Tick(context.Background())

	if len(eng.recorded) != 0 {
		t.Errorf("recorded = %v, want none after failure", eng.recorded)
	}
}
