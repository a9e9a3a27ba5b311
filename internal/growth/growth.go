// Package growth is the orchestrator: it owns the identity aggregate and the
// session conversation context, and applies every exchange to them as one
// atomic transition under a single lock.
//
// The engine never talks to the network. Callers run retrieval and generation
// outside the lock, then hand the results to Commit; a failed generation goes
// to RecordFailure instead and leaves the conversation context untouched.
package growth

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/palproject/pal/internal/conversation"
	"github.com/palproject/pal/internal/identity"
	"github.com/palproject/pal/internal/innerlife"
	"github.com/palproject/pal/internal/skills"
	"github.com/palproject/pal/internal/stats"
	"github.com/palproject/pal/internal/topics"
)

// FallbackReply is shown when generation fails mid-exchange.
const FallbackReply = "I... something's wrong. I can't... think."

// Config carries the session timing knobs.
type Config struct {
	SessionReset time.Duration // idle gap that starts a fresh session
	ThoughtIdle  time.Duration // idle gap before a queued thought surfaces
	DreamIdle    time.Duration // idle gap before a dream may form
	Thresholds   topics.Thresholds
}

func DefaultEngineConfig() Config {
	return Config{
		SessionReset: 4 * time.Hour,
		ThoughtIdle:  10 * time.Minute,
		DreamIdle:    30 * time.Minute,
		Thresholds:   topics.DefaultThresholds(),
	}
}

// Engine applies growth transitions to one identity.
type Engine struct {
	mu         sync.Mutex
	id         *identity.Identity
	store      *identity.Store
	conv       *conversation.Context
	classifier conversation.Classifier
	cfg        Config

	// once-per-idle-period flags, cleared by Touch
	thoughtSurfaced bool
	dreamAttempted  bool
}

func New(id *identity.Identity, store *identity.Store, classifier conversation.Classifier, cfg Config) *Engine {
	if classifier == nil {
		classifier = conversation.PhraseClassifier{}
	}
	return &Engine{
		id:         id,
		store:      store,
		conv:       conversation.NewContext(),
		classifier: classifier,
		cfg:        cfg,
	}
}

// GreetingCategory buckets the time since the owner was last heard from.
type GreetingCategory string

const (
	GreetingFirstMeeting  GreetingCategory = "first_meeting"
	GreetingImmediate     GreetingCategory = "immediate"
	GreetingShortAbsence  GreetingCategory = "short_absence"
	GreetingMediumAbsence GreetingCategory = "medium_absence"
	GreetingLongAbsence   GreetingCategory = "long_absence"
)

// CategorizeAbsence maps an elapsed gap to a greeting category. known is
// false before the very first interaction.
func CategorizeAbsence(elapsed time.Duration, known bool) GreetingCategory {
	switch {
	case !known:
		return GreetingFirstMeeting
	case elapsed < time.Hour:
		return GreetingImmediate
	case elapsed < 4*time.Hour:
		return GreetingShortAbsence
	case elapsed < 24*time.Hour:
		return GreetingMediumAbsence
	default:
		return GreetingLongAbsence
	}
}

// GreetingText renders the reunion line for a category.
func GreetingText(cat GreetingCategory, owner string) string {
	if owner == "" {
		owner = "someone"
	}
	switch cat {
	case GreetingFirstMeeting:
		return fmt.Sprintf("...%s?", owner)
	case GreetingImmediate:
		return fmt.Sprintf("Hi %s.", owner)
	case GreetingShortAbsence:
		return fmt.Sprintf("%s? You're back.", owner)
	case GreetingMediumAbsence:
		return fmt.Sprintf("%s! I was waiting for you.", owner)
	default:
		return fmt.Sprintf("%s... it's been a while. I missed talking to you.", owner)
	}
}

// Prepared is everything the caller needs to run one exchange: prompt inputs
// plus any reunion artifacts to deliver before the reply.
type Prepared struct {
	OwnerName      string
	Skills         []string
	AskedQuestions []string
	RecentReplies  []string

	// Greeting is non-empty when a fresh session just started.
	Greeting string
	// Dream is non-empty when an unshared dream should be offered after the
	// greeting.
	Dream        string
	SessionReset bool
}

// Prepare runs the pre-exchange transition: session reset on a long gap, the
// check-in record, and reunion artifacts. It saves the identity before
// returning; a save failure aborts the exchange.
func (e *Engine) Prepare(now time.Time) (Prepared, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := Prepared{
		OwnerName:      e.id.OwnerName,
		Skills:         e.skillLinesLocked(),
		AskedQuestions: e.conv.AskedQuestions(),
		RecentReplies:  e.conv.LastReplies(),
	}

	last := e.id.Stats.LastInteraction
	known := !last.IsZero()
	if !known {
		return p, nil
	}

	elapsed := now.Sub(last)
	if elapsed < time.Hour {
		return p, nil
	}

	// A reunion: the owner has been away long enough that the companion
	// notices. Greet, count the check-in, and forget the per-absence dream
	// counter.
	if err := e.id.Stats.Record(stats.EventCheckIn, now); err != nil {
		return Prepared{}, err
	}
	e.id.InnerLife.ResetSinceContact()
	p.Greeting = GreetingText(CategorizeAbsence(elapsed, true), e.id.OwnerName)

	if elapsed >= e.cfg.SessionReset {
		dropped := e.conv.Reset()
		if dropped != "" {
			// A question that never got its answer becomes something to
			// wonder about later.
			e.id.InnerLife.Enqueue(dropped, innerlife.KindQuestion, now)
		}
		// The companion was dozing through the absence.
		e.id.Mood = identity.MoodSleepy
		p.SessionReset = true
		// the reset cleared the session constraints
		p.AskedQuestions = nil
		p.RecentReplies = nil

		if dream, ok := e.id.InnerLife.ShareLatest(); ok {
			p.Dream = dream
		}
	}

	if err := e.store.Save(e.id); err != nil {
		return Prepared{}, fmt.Errorf("persist identity: %w", err)
	}
	return p, nil
}

func (e *Engine) skillLinesLocked() []string {
	var lines []string
	for _, name := range e.id.Skills.Unlocked() {
		if desc, ok := skills.Descriptions[name]; ok {
			lines = append(lines, desc)
		}
	}
	return lines
}

// ExchangeResult carries the outputs of retrieval and generation back into
// the engine.
type ExchangeResult struct {
	UserMessage    string
	RawReply       string   // mood marker intact
	DetectedTopic  string   // "" when topic detection failed or found nothing
	StoredMemories []string // ids of memories persisted for this message
	OpenQuestions  []string // questions the exchange raised but did not answer
	Now            time.Time
}

// Outcome is what the caller delivers to the owner.
type Outcome struct {
	Reply         string
	Mood          identity.Mood
	NewlyUnlocked []skills.Name
	Notices       []string // companion's quiet self-noticing lines
}

// Commit applies a successful exchange. All growth state moves in one
// critical section; the identity is saved before Commit returns, and a save
// failure is fatal to the exchange.
func (e *Engine) Commit(res ExchangeResult) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clean, mood := identity.ParseMoodMarker(res.RawReply)
	intent := e.classifier.Classify(res.UserMessage)
	now := res.Now

	// Stats: the message itself, then whatever the phrasing reveals.
	if err := e.id.Stats.Record(stats.EventMessage, now); err != nil {
		return Outcome{}, err
	}
	for _, kind := range stats.DetectKinds(res.UserMessage) {
		// A denial of a pending question already counts as a correction in
		// the conversation transition below.
		if kind == stats.EventCorrection && intent == conversation.IntentDeny && e.conv.AwaitingShortResponse() {
			continue
		}
		if err := e.id.Stats.Record(kind, now); err != nil {
			return Outcome{}, err
		}
	}
	for range res.StoredMemories {
		if err := e.id.Stats.Record(stats.EventMemoryStored, now); err != nil {
			return Outcome{}, err
		}
	}

	e.applyConversationLocked(res.UserMessage, clean, res.DetectedTopic, intent, now)

	// Stored memories and open questions attach to whatever topic the
	// conversation settled on.
	if topic := e.activeTopicLocked(res.DetectedTopic); topic != "" {
		for _, id := range res.StoredMemories {
			e.id.Topics.Link(topic, id)
		}
		for _, q := range res.OpenQuestions {
			e.id.Topics.AddUnresolved(topic, q, now)
		}
		e.id.Topics.Promote(topic, e.cfg.Thresholds)
	}

	// Inner life: unanswered questions and owner mentions become thoughts.
	if thought, ok := innerlife.UnansweredQuestion(e.prevReplyLocked(), res.UserMessage); ok {
		e.id.InnerLife.Enqueue(thought, innerlife.KindQuestion, now)
	}
	if thought, ok := innerlife.CuriosityFromMention(res.UserMessage, e.id.OwnerName); ok {
		e.id.InnerLife.Enqueue(thought, innerlife.KindCuriosity, now)
	}

	// Skill unlocks come after all counters moved.
	snap := skills.Snapshot{
		Stats:            e.id.Stats,
		UnresolvedTopics: e.id.Topics.UnresolvedTopicCount(),
	}
	newly := e.id.Skills.EvaluateAll(snap)

	// Each notice is voiced once, in the same exchange the skill unlocked.
	var notices []string
	for _, name := range newly {
		if notice, ok := skills.Notices[name]; ok {
			notices = append(notices, notice)
		}
	}

	e.id.Mood = mood
	e.conv.NoteReply(clean)
	e.thoughtSurfaced = false
	e.dreamAttempted = false

	if err := e.store.Save(e.id); err != nil {
		return Outcome{}, fmt.Errorf("persist identity: %w", err)
	}

	return Outcome{
		Reply:         clean,
		Mood:          mood,
		NewlyUnlocked: newly,
		Notices:       notices,
	}, nil
}

// applyConversationLocked runs the topic and question transitions for one
// exchange.
func (e *Engine) applyConversationLocked(userMessage, reply, detectedTopic string, intent conversation.Intent, now time.Time) {
	switch intent {
	case conversation.IntentTopicChange:
		e.conv.ClearTopic()

	case conversation.IntentConfirm:
		if question, topic, ok := e.conv.ResolveShort(); ok {
			e.id.Stats.Record(stats.EventQuestionAnswered, now)
			if topic != "" {
				e.id.Topics.Resolve(topic, question, e.cfg.Thresholds)
				e.id.Topics.Touch(topic, "", now)
				e.id.Topics.Promote(topic, e.cfg.Thresholds)
			}
		}

	case conversation.IntentDeny:
		if question, topic, ok := e.conv.ResolveShort(); ok {
			e.id.Stats.Record(stats.EventQuestionAnswered, now)
			e.id.Stats.Record(stats.EventCorrection, now)
			if topic != "" {
				// Denied: the companion still doesn't get it.
				e.id.Topics.AddUnresolved(topic, question, now)
			}
		}

	default:
		if e.conv.AwaitingShortResponse() && stats.LooksLikeAnswer(userMessage) {
			if _, topic, ok := e.conv.ResolveShort(); ok {
				e.id.Stats.Record(stats.EventQuestionAnswered, now)
				if topic != "" {
					e.id.Topics.Touch(topic, "", now)
					e.id.Topics.Promote(topic, e.cfg.Thresholds)
				}
			}
		}
		if detectedTopic != "" && detectedTopic != e.conv.CurrentTopic() {
			e.conv.OpenTopic(detectedTopic)
		}
		if topic := e.conv.CurrentTopic(); topic != "" {
			e.id.Topics.Touch(topic, "", now)
			e.id.Topics.Promote(topic, e.cfg.Thresholds)
		}
	}

	// Question tracking: a reply that asks commits a pending question.
	if question := conversation.ExtractQuestion(reply); question != "" {
		e.conv.StageQuestion(question)
		e.conv.CommitStaged()
		e.id.Stats.Record(stats.EventQuestionAsked, now)
	}
}

// activeTopicLocked picks the topic new material should attach to: the open
// conversation topic when there is one, otherwise whatever this exchange
// detected.
func (e *Engine) activeTopicLocked(detectedTopic string) string {
	if topic := e.conv.CurrentTopic(); topic != "" {
		return topic
	}
	return detectedTopic
}

// prevReplyLocked returns the companion's previous reply phrase, used to
// judge whether the owner brushed off its question.
func (e *Engine) prevReplyLocked() string {
	if q := e.conv.PendingQuestion(); q != "" {
		return q
	}
	replies := e.conv.LastReplies()
	if len(replies) == 0 {
		return ""
	}
	return replies[len(replies)-1]
}

// RecordFailure notes a failed generation. The conversation context stays
// exactly as it was: the companion never "remembers" asking a question it
// could not deliver.
func (e *Engine) RecordFailure(now time.Time) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.conv.RollbackStaged()
	e.id.Mood = identity.MoodConfused
	if err := e.store.Save(e.id); err != nil {
		log.Printf("[growth] save after failed exchange: %v", err)
	}

	return Outcome{Reply: FallbackReply, Mood: identity.MoodConfused}
}

// IdleAction tells the idle monitor what to do this tick.
type IdleAction struct {
	// Thought is the queued thought ready to surface, or "". The queue is
	// untouched until the caller claims it with TakeThought.
	Thought string
	// FormDream asks the caller to synthesize a dream and call RecordDream.
	FormDream bool
}

// IdleTick evaluates the idle timers. Each idle period surfaces at most one
// thought and forms at most one dream; Touch rearms both.
func (e *Engine) IdleTick(now time.Time) IdleAction {
	e.mu.Lock()
	defer e.mu.Unlock()

	last := e.id.Stats.LastInteraction
	if last.IsZero() {
		return IdleAction{}
	}
	idle := now.Sub(last)

	var action IdleAction
	if idle >= e.cfg.ThoughtIdle && !e.thoughtSurfaced {
		if thought, ok := e.id.InnerLife.PeekThought(); ok {
			action.Thought = thought
		}
	}
	if idle >= e.cfg.DreamIdle && !e.dreamAttempted && e.id.InnerLife.CanDream(now) {
		e.dreamAttempted = true
		action.FormDream = true
	}
	return action
}

// TakeThought removes the next queued thought once the caller has somewhere
// to deliver it. A thought peeked by IdleTick but never taken stays queued.
func (e *Engine) TakeThought() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	thought, ok := e.id.InnerLife.SurfaceNext()
	if !ok {
		return "", false
	}
	e.thoughtSurfaced = true
	if err := e.store.Save(e.id); err != nil {
		log.Printf("[growth] save after surfacing thought: %v", err)
	}
	return thought, true
}

// RecordDream stores a synthesized dream in the journal.
func (e *Engine) RecordDream(text string, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.id.InnerLife.RecordDream(text, now)
	if err := e.store.Save(e.id); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	return nil
}

// RecordReminderDelivered counts a fired reminder and credits the remind
// skill if it has been unlocked.
func (e *Engine) RecordReminderDelivered(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.id.Stats.Record(stats.EventReminderDelivered, now); err != nil {
		return err
	}
	if e.id.Skills.IsUnlocked(skills.Remind) {
		_ = e.id.Skills.Use(skills.Remind)
	}
	if err := e.store.Save(e.id); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	return nil
}

// AskingAboutThoughts reports whether the owner is asking what the companion
// has been thinking or dreaming about.
func AskingAboutThoughts(message string) bool {
	return askingPattern(message)
}

// AnswerThoughtQuery shares the newest unshared dream in response to the
// owner asking, or a stock line when the journal is empty.
func (e *Engine) AnswerThoughtQuery(now time.Time) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dream, ok := e.id.InnerLife.ShareLatest()
	if !ok {
		return "I haven't had any thoughts yet... I'm still new.", nil
	}
	if err := e.store.Save(e.id); err != nil {
		return "", fmt.Errorf("persist identity: %w", err)
	}
	return fmt.Sprintf("I was thinking... %s", dream), nil
}

// ResetSession drops the live conversation session on demand. A pending
// question moves into the thought queue instead of being lost.
func (e *Engine) ResetSession(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if dropped := e.conv.Reset(); dropped != "" {
		e.id.InnerLife.Enqueue(dropped, innerlife.KindQuestion, now)
	}
	if err := e.store.Save(e.id); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	return nil
}

// IdentityInfo is the public face of the companion.
type IdentityInfo struct {
	Name      string        `json:"name"`
	OwnerName string        `json:"owner_name,omitempty"`
	Mood      identity.Mood `json:"mood"`
	Born      string        `json:"born,omitempty"`
	Age       string        `json:"age"`
	FirstBoot bool          `json:"first_boot"`
}

func (e *Engine) IdentityInfo(now time.Time) IdentityInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	info := IdentityInfo{
		Name:      e.id.Name,
		OwnerName: e.id.OwnerName,
		Mood:      e.id.Mood,
		Age:       e.id.Age(now),
		FirstBoot: e.id.FirstBoot,
	}
	if !e.id.Born.IsZero() {
		info.Born = e.id.Born.Format(time.RFC3339)
	}
	return info
}

func (e *Engine) OwnerName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id.OwnerName
}

// SetOwnerName records who the companion belongs to.
func (e *Engine) SetOwnerName(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.id.OwnerName = name
	if err := e.store.Save(e.id); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	return nil
}

// CompleteBirth ends the first-boot sequence.
func (e *Engine) CompleteBirth(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.id.CompleteBirth(now)
	e.id.Mood = identity.MoodConfused
	if err := e.store.Save(e.id); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	return nil
}

// FirstBoot reports whether the companion has not been born yet.
func (e *Engine) FirstBoot() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id.FirstBoot
}
