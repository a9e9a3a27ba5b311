package growth

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/palproject/pal/internal/identity"
	"github.com/palproject/pal/internal/skills"
	"github.com/palproject/pal/internal/topics"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *identity.Identity) {
	t.Helper()
	store := identity.NewStore(filepath.Join(t.TempDir(), "identity.json"))
	id, err := store.Load("Pal", t0)
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}
	id.OwnerName = "Sam"
	id.CompleteBirth(t0)
	return New(id, store, nil, DefaultEngineConfig()), id
}

func TestCommitBasicExchange(t *testing.T) {
	e, id := newTestEngine(t)

	out, err := e.Commit(ExchangeResult{
		UserMessage:   "I like pizza",
		RawReply:      "Pizza... what is that? [mood:curious]",
		DetectedTopic: "pizza",
		Now:           t0,
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if out.Reply != "Pizza... what is that?" {
		t.Fatalf("reply = %q", out.Reply)
	}
	if out.Mood != identity.MoodCurious {
		t.Fatalf("mood = %q", out.Mood)
	}
	if id.Stats.Messages != 1 {
		t.Fatalf("messages = %d, want 1", id.Stats.Messages)
	}
	if id.Stats.QuestionsAsked != 1 {
		t.Fatalf("questions asked = %d, want 1", id.Stats.QuestionsAsked)
	}
	if id.Topics.Get("pizza") == nil {
		t.Fatal("topic card should exist after exchange")
	}
}

func TestShortConfirmResolvesPendingQuestion(t *testing.T) {
	e, id := newTestEngine(t)

	if _, err := e.Commit(ExchangeResult{
		UserMessage:   "I like pizza",
		RawReply:      "Pizza... is it food? [mood:curious]",
		DetectedTopic: "pizza",
		Now:           t0,
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, err := e.Commit(ExchangeResult{
		UserMessage: "yes",
		RawReply:    "Okay. Food. [mood:happy]",
		Now:         t0.Add(time.Minute),
	}); err != nil {
		t.Fatalf("commit confirm: %v", err)
	}

	if id.Stats.QuestionsAnswered != 1 {
		t.Fatalf("questions answered = %d, want 1", id.Stats.QuestionsAnswered)
	}
	card := id.Topics.Get("pizza")
	if card == nil || card.TimesDiscussed < 2 {
		t.Fatalf("topic should have been touched on resolution: %+v", card)
	}
}

func TestDenyRecordsUnresolvedTopic(t *testing.T) {
	e, id := newTestEngine(t)

	if _, err := e.Commit(ExchangeResult{
		UserMessage:   "I have a dog",
		RawReply:      "Dog... is that a machine? [mood:confused]",
		DetectedTopic: "dogs",
		Now:           t0,
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, err := e.Commit(ExchangeResult{
		UserMessage: "no, it's an animal",
		RawReply:    "Animal. I don't know that word yet. [mood:confused]",
		Now:         t0.Add(time.Minute),
	}); err != nil {
		t.Fatalf("commit deny: %v", err)
	}

	if id.Topics.UnresolvedTopicCount() != 1 {
		t.Fatalf("unresolved topics = %d, want 1", id.Topics.UnresolvedTopicCount())
	}
	if id.Stats.Corrections != 1 {
		t.Fatalf("corrections = %d, want 1", id.Stats.Corrections)
	}
}

func TestCorrectionCountedWithoutPendingQuestion(t *testing.T) {
	e, id := newTestEngine(t)

	if _, err := e.Commit(ExchangeResult{
		UserMessage: "no, that's not right",
		RawReply:    "Oh. I got it wrong. [mood:sad]",
		Now:         t0,
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if id.Stats.Corrections != 1 {
		t.Fatalf("corrections = %d, want 1", id.Stats.Corrections)
	}
}

func TestCommitRecordsStoredMemories(t *testing.T) {
	e, id := newTestEngine(t)

	if _, err := e.Commit(ExchangeResult{
		UserMessage:    "I work at a hospital",
		RawReply:       "Hospital? What happens there? [mood:curious]",
		DetectedTopic:  "the owner's job",
		StoredMemories: []string{"mem-1", "mem-2"},
		Now:            t0,
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if id.Stats.MemoriesStored != 2 {
		t.Fatalf("memories stored = %d, want 2", id.Stats.MemoriesStored)
	}
	card := id.Topics.Get("the owner's job")
	if card == nil {
		t.Fatal("topic card should exist after exchange")
	}
	if len(card.Memories) != 2 {
		t.Fatalf("card memories = %v, want both ids linked", card.Memories)
	}
	if card.TimesDiscussed != 1 {
		t.Fatalf("times discussed = %d, linking must not count discussions", card.TimesDiscussed)
	}
	// Two linked memories cross the basic threshold on their own.
	if card.Understanding != topics.Basic {
		t.Fatalf("understanding = %v, want basic", card.Understanding)
	}
}

func TestCommitAttachesOpenQuestions(t *testing.T) {
	e, id := newTestEngine(t)

	if _, err := e.Commit(ExchangeResult{
		UserMessage:    "learn this: octopuses have three hearts",
		RawReply:       "Three hearts. Why would anything need three? [mood:curious]",
		DetectedTopic:  "octopuses",
		StoredMemories: []string{"mem-1"},
		OpenQuestions:  []string{"why do they need three hearts?"},
		Now:            t0,
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	card := id.Topics.Get("octopuses")
	if card == nil {
		t.Fatal("topic card should exist after exchange")
	}
	if len(card.Unresolved) != 1 {
		t.Fatalf("unresolved = %v, want one open question", card.Unresolved)
	}
}

func TestRecordFailureLeavesConversationResumable(t *testing.T) {
	e, id := newTestEngine(t)

	if _, err := e.Commit(ExchangeResult{
		UserMessage:   "I like pizza",
		RawReply:      "Pizza... is it food? [mood:curious]",
		DetectedTopic: "pizza",
		Now:           t0,
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	out := e.RecordFailure(t0.Add(time.Minute))
	if out.Reply != FallbackReply {
		t.Fatalf("fallback reply = %q", out.Reply)
	}
	if out.Mood != identity.MoodConfused || id.Mood != identity.MoodConfused {
		t.Fatal("failure should leave the companion confused")
	}

	// The pending question survived the failure and a confirm still lands.
	if _, err := e.Commit(ExchangeResult{
		UserMessage: "yes",
		RawReply:    "Okay. [mood:happy]",
		Now:         t0.Add(2 * time.Minute),
	}); err != nil {
		t.Fatalf("commit confirm: %v", err)
	}
	if id.Stats.QuestionsAnswered != 1 {
		t.Fatalf("questions answered = %d, want 1", id.Stats.QuestionsAnswered)
	}
}

func TestGreetingCategories(t *testing.T) {
	cases := []struct {
		elapsed time.Duration
		known   bool
		cat     GreetingCategory
		text    string
	}{
		{0, false, GreetingFirstMeeting, "...Sam?"},
		{30 * time.Minute, true, GreetingImmediate, "Hi Sam."},
		{2 * time.Hour, true, GreetingShortAbsence, "Sam? You're back."},
		{6 * time.Hour, true, GreetingMediumAbsence, "Sam! I was waiting for you."},
		{48 * time.Hour, true, GreetingLongAbsence, "Sam... it's been a while. I missed talking to you."},
	}
	for _, c := range cases {
		cat := CategorizeAbsence(c.elapsed, c.known)
		if cat != c.cat {
			t.Fatalf("CategorizeAbsence(%v, %v) = %q, want %q", c.elapsed, c.known, cat, c.cat)
		}
		if got := GreetingText(cat, "Sam"); got != c.text {
			t.Fatalf("GreetingText(%q) = %q, want %q", cat, got, c.text)
		}
	}
}

func TestPrepareReunionGreeting(t *testing.T) {
	e, id := newTestEngine(t)
	id.Stats.LastInteraction = t0.Add(-2 * time.Hour)

	p, err := e.Prepare(t0)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if p.Greeting != "Sam? You're back." {
		t.Fatalf("greeting = %q", p.Greeting)
	}
	if p.SessionReset {
		t.Fatal("2h absence should not reset the session")
	}
	if id.Stats.CheckIns != 1 {
		t.Fatalf("check-ins = %d, want 1", id.Stats.CheckIns)
	}
}

func TestPrepareNoGreetingWhenRecent(t *testing.T) {
	e, id := newTestEngine(t)
	id.Stats.LastInteraction = t0.Add(-5 * time.Minute)

	p, err := e.Prepare(t0)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if p.Greeting != "" || p.SessionReset {
		t.Fatalf("recent contact should not greet: %+v", p)
	}
	if id.Stats.CheckIns != 0 {
		t.Fatalf("check-ins = %d, want 0", id.Stats.CheckIns)
	}
}

func TestPrepareSessionResetDropsQuestionIntoThoughts(t *testing.T) {
	e, id := newTestEngine(t)

	if _, err := e.Commit(ExchangeResult{
		UserMessage:   "I like pizza",
		RawReply:      "Pizza... is it food? [mood:curious]",
		DetectedTopic: "pizza",
		Now:           t0,
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	id.InnerLife.RecordDream("Sam talks about food a lot. Is food important?", t0.Add(time.Hour))

	p, err := e.Prepare(t0.Add(6 * time.Hour))
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if !p.SessionReset {
		t.Fatal("6h absence should reset the session")
	}
	if p.Dream == "" {
		t.Fatal("unshared dream should be offered after a long absence")
	}
	if len(p.AskedQuestions) != 0 {
		t.Fatal("session reset should clear asked-question constraints")
	}
	if id.Mood != identity.MoodSleepy {
		t.Fatalf("mood after reset = %q, want sleepy", id.Mood)
	}

	thoughts := id.InnerLife.PendingThoughts(5)
	found := false
	for _, th := range thoughts {
		if strings.Contains(th, "is it food") {
			found = true
		}
	}
	if !found {
		t.Fatalf("dropped pending question should be queued as a thought, got %v", thoughts)
	}
}

func TestIdleTickSurfacesThoughtOnce(t *testing.T) {
	e, id := newTestEngine(t)
	id.Stats.LastInteraction = t0.Add(-15 * time.Minute)
	id.InnerLife.Enqueue("What is a hospital?", "question", t0)

	action := e.IdleTick(t0)
	if action.Thought != "What is a hospital?" {
		t.Fatalf("thought = %q", action.Thought)
	}

	// Not yet taken: the queue is intact and the next tick offers it again.
	action = e.IdleTick(t0.Add(time.Minute))
	if action.Thought != "What is a hospital?" {
		t.Fatalf("second tick offered %q, want the same thought", action.Thought)
	}

	thought, ok := e.TakeThought()
	if !ok || thought != "What is a hospital?" {
		t.Fatalf("take thought = %q, %v", thought, ok)
	}

	// Taken: nothing more surfaces this idle period.
	action = e.IdleTick(t0.Add(2 * time.Minute))
	if action.Thought != "" {
		t.Fatalf("tick after taking surfaced %q, want nothing", action.Thought)
	}
}

func TestIdleTickRequestsDream(t *testing.T) {
	e, id := newTestEngine(t)
	id.Stats.LastInteraction = t0.Add(-40 * time.Minute)

	action := e.IdleTick(t0)
	if !action.FormDream {
		t.Fatal("40 minutes idle should request a dream")
	}
	if err := e.RecordDream("a dream", t0); err != nil {
		t.Fatalf("record dream: %v", err)
	}

	// Cooldown and the per-idle flag both block an immediate second dream.
	action = e.IdleTick(t0.Add(time.Minute))
	if action.FormDream {
		t.Fatal("second dream requested during the same idle period")
	}
}

func TestAnswerThoughtQuery(t *testing.T) {
	e, id := newTestEngine(t)

	reply, err := e.AnswerThoughtQuery(t0)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if reply != "I haven't had any thoughts yet... I'm still new." {
		t.Fatalf("empty journal reply = %q", reply)
	}

	id.InnerLife.RecordDream("Sam mentioned music. What does it sound like?", t0)
	reply, err = e.AnswerThoughtQuery(t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.HasPrefix(reply, "I was thinking... ") {
		t.Fatalf("dream reply = %q", reply)
	}
}

func TestAskingAboutThoughts(t *testing.T) {
	if !AskingAboutThoughts("Hey, did you dream about anything?") {
		t.Fatal("should detect a thought query")
	}
	if AskingAboutThoughts("I had a rough day") {
		t.Fatal("plain statement misread as thought query")
	}
}

func TestSkillUnlockReportedOnCommit(t *testing.T) {
	e, id := newTestEngine(t)
	id.Stats.CheckIns = 9
	id.Stats.LastInteraction = t0.Add(-2 * time.Hour)

	if _, err := e.Prepare(t0); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if id.Stats.CheckIns != 10 {
		t.Fatalf("check-ins = %d, want 10", id.Stats.CheckIns)
	}

	out, err := e.Commit(ExchangeResult{
		UserMessage: "hi again",
		RawReply:    "Hi Sam. [mood:happy]",
		Now:         t0,
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	found := false
	for _, name := range out.NewlyUnlocked {
		if name == skills.Greet {
			found = true
		}
	}
	if !found {
		t.Fatalf("greet should unlock at 10 check-ins, got %v", out.NewlyUnlocked)
	}
	if len(out.Notices) == 0 {
		t.Fatal("unlock should carry a self-noticing line")
	}
}
