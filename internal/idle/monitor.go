// Package idle runs the companion's background life: surfacing queued
// thoughts and forming dreams while the owner is away.
package idle

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/palproject/pal/internal/bus"
	"github.com/palproject/pal/internal/growth"
)

const dreamMemoryLimit = 10

// Engine is the slice of the growth engine the monitor drives.
type Engine interface {
	IdleTick(now time.Time) growth.IdleAction
	TakeThought() (string, bool)
	RecordDream(text string, now time.Time) error
	OwnerName() string
}

// Dreamer synthesizes a dream from memory fragments.
type Dreamer interface {
	Dream(ctx context.Context, memories []string) (string, error)
}

type Monitor struct {
	engine  Engine
	dreamer Dreamer
	recent  func(n int) []string
	bus     *bus.MessageBus
	spec    string
	now     func() time.Time
	cron    *rcron.Cron

	mu          sync.Mutex
	lastChannel string
	lastChatID  string
}

func NewMonitor(engine Engine, dreamer Dreamer, recent func(n int) []string, b *bus.MessageBus, spec string) *Monitor {
	return &Monitor{
		engine:  engine,
		dreamer: dreamer,
		recent:  recent,
		bus:     b,
		spec:    spec,
		now:     time.Now,
	}
}

// NoteSession records where the owner last talked from, so spontaneous
// pushes land on the right channel.
func (m *Monitor) NoteSession(channel, chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastChannel = channel
	m.lastChatID = chatID
}

func (m *Monitor) Start(ctx context.Context) error {
	m.cron = rcron.New()
	if _, err := m.cron.AddFunc(m.spec, func() {
		m.Tick(ctx)
	}); err != nil {
		return fmt.Errorf("schedule idle tick: %w", err)
	}
	m.cron.Start()
	log.Printf("[idle] monitor started (%s)", m.spec)
	return nil
}

func (m *Monitor) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
	log.Printf("[idle] monitor stopped")
}

// Tick runs one idle check. Exposed so tests can drive it without the
// scheduler.
func (m *Monitor) Tick(ctx context.Context) {
	action := m.engine.IdleTick(m.now())

	if action.Thought != "" {
		m.pushThought()
	}
	if action.FormDream {
		m.formDream(ctx)
	}
}

// pushThought claims the next queued thought and delivers it. The thought is
// only taken off the queue once a delivery target is known; with no session
// yet it stays queued for a later tick.
func (m *Monitor) pushThought() {
	m.mu.Lock()
	channel, chatID := m.lastChannel, m.lastChatID
	m.mu.Unlock()
	if channel == "" {
		log.Printf("[idle] thought ready but no session to send it to")
		return
	}

	thought, ok := m.engine.TakeThought()
	if !ok {
		return
	}

	content := fmt.Sprintf("I just thought of something. %s", thought)
	if owner := m.engine.OwnerName(); owner != "" {
		content = fmt.Sprintf("%s? %s", owner, content)
	}

	m.bus.Outbound <- bus.OutboundMessage{
		Channel: channel,
		ChatID:  chatID,
		Content: content,
		Kind:    bus.KindThought,
	}
}

// formDream synthesizes a dream from recent memories. Dreams stay in the
// journal until the owner comes back; nothing is pushed.
func (m *Monitor) formDream(ctx context.Context) {
	memories := m.recent(dreamMemoryLimit)
	if len(memories) == 0 {
		return
	}

	dream, err := m.dreamer.Dream(ctx, memories)
	if err != nil {
		log.Printf("[idle] dream synthesis failed: %v", err)
		return
	}
	if dream == "" {
		return
	}
	if err := m.engine.RecordDream(dream, m.now()); err != nil {
		log.Printf("[idle] record dream: %v", err)
	}
	log.Printf("[idle] dream formed: %s", dream)
}
