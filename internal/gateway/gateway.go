// Package gateway wires the companion together: config, identity, memory,
// brain, channels, and the background life, around one exchange loop.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/palproject/pal/internal/brain"
	"github.com/palproject/pal/internal/bus"
	"github.com/palproject/pal/internal/channel"
	"github.com/palproject/pal/internal/config"
	"github.com/palproject/pal/internal/growth"
	"github.com/palproject/pal/internal/idle"
	"github.com/palproject/pal/internal/identity"
	"github.com/palproject/pal/internal/memory"
	"github.com/palproject/pal/internal/remind"
	"github.com/palproject/pal/internal/research"
	"github.com/palproject/pal/internal/server"
)

// Options carries injectable pieces for testing.
type Options struct {
	Brain      brain.Client
	Memory     memory.Store
	SignalChan chan os.Signal
}

type Gateway struct {
	cfg       *config.Config
	bus       *bus.MessageBus
	brain     brain.Client
	mem       memory.Store
	store     *identity.Store
	engine    *growth.Engine
	channels  *channel.Manager
	monitor   *idle.Monitor
	reminders *remind.Service
	research  *research.Service
	srv       *server.Server

	mu           sync.Mutex
	awaitingName bool
	lastChannel  string
	lastChatID   string

	signalChan chan os.Signal
}

// New creates a Gateway with default options.
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing.
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	g.store = identity.NewStore(config.IdentityPath())
	id, err := g.store.Load(cfg.Companion.Name, time.Now())
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	g.engine = growth.New(id, g.store, nil, engineConfig(cfg))

	g.mem = opts.Memory
	if g.mem == nil {
		store, err := memory.NewChromemStore(cfg.Memory.DBPath, memory.NewEmbedder(cfg))
		if err != nil {
			return nil, fmt.Errorf("open memory store: %w", err)
		}
		g.mem = store
	}

	g.brain = opts.Brain
	if g.brain == nil {
		g.brain = brain.NewAnthropicClient(cfg)
	}

	g.monitor = idle.NewMonitor(g.engine, g.brain, g.mem.Recent, g.bus, config.DefaultIdleTickSpec)

	g.research = research.NewService(g.brain, g.mem)

	g.reminders = remind.NewService(filepath.Join(config.ConfigDir(), "reminders.json"))
	g.reminders.OnDue = func(r remind.Reminder) {
		g.deliverReminder(r)
	}

	chMgr, err := channel.NewManager(cfg.Channels, g.bus)
	if err != nil {
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	var wsHandler http.HandlerFunc
	if web, ok := chMgr.Get("web").(*channel.WebChannel); ok {
		wsHandler = web.Handler()
	}
	g.srv = server.New(cfg.Gateway, g.engine, g.mem,
		func(ctx context.Context, message string) (server.ChatResult, error) {
			return g.ProcessExchange(ctx, "web", "api", message)
		},
		func(ctx context.Context, message string, onChunk func(string)) (server.ChatResult, error) {
			return g.processExchange(ctx, "web", "api", message, onChunk)
		},
		wsHandler,
	)

	g.signalChan = opts.SignalChan
	return g, nil
}

func engineConfig(cfg *config.Config) growth.Config {
	ec := growth.DefaultEngineConfig()
	if cfg.Session.ResetHours > 0 {
		ec.SessionReset = time.Duration(cfg.Session.ResetHours) * time.Hour
	}
	if cfg.Session.ThoughtIdleMinutes > 0 {
		ec.ThoughtIdle = time.Duration(cfg.Session.ThoughtIdleMinutes) * time.Minute
	}
	if cfg.Session.DreamIdleMinutes > 0 {
		ec.DreamIdle = time.Duration(cfg.Session.DreamIdleMinutes) * time.Minute
	}
	return ec
}

// Engine exposes the growth engine for the CLI.
func (g *Gateway) Engine() *growth.Engine { return g.engine }

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	if err := g.monitor.Start(ctx); err != nil {
		log.Printf("[gateway] idle monitor warning: %v", err)
	}
	if err := g.reminders.Start(ctx); err != nil {
		log.Printf("[gateway] reminders warning: %v", err)
	}
	if err := g.srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	go g.processLoop(ctx)

	log.Printf("[gateway] running on %s:%d", g.cfg.Gateway.Host, g.cfg.Gateway.Port)

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))

			result, err := g.ProcessExchange(ctx, msg.Channel, msg.ChatID, msg.Content)
			if err != nil {
				log.Printf("[gateway] exchange error: %v", err)
				continue
			}
			if result.Response != "" {
				g.bus.Outbound <- bus.OutboundMessage{
					Channel:  msg.Channel,
					ChatID:   msg.ChatID,
					Content:  result.Response,
					Kind:     bus.KindReply,
					Metadata: map[string]any{"mood": result.Mood},
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// ProcessExchange runs one full exchange for an owner message and returns
// the reply.
func (g *Gateway) ProcessExchange(ctx context.Context, channelName, chatID, message string) (server.ChatResult, error) {
	return g.processExchange(ctx, channelName, chatID, message, nil)
}

func (g *Gateway) processExchange(ctx context.Context, channelName, chatID, message string, onChunk func(string)) (server.ChatResult, error) {
	now := time.Now()
	g.noteSession(channelName, chatID)

	if g.engine.FirstBoot() {
		return g.birthStep(ctx, message)
	}

	prep, err := g.engine.Prepare(now)
	if err != nil {
		return server.ChatResult{}, fmt.Errorf("prepare exchange: %w", err)
	}
	if prep.Greeting != "" {
		g.push(channelName, chatID, prep.Greeting, bus.KindGreeting)
	}
	if prep.Dream != "" {
		g.push(channelName, chatID, fmt.Sprintf("While you were gone... I had a dream. %s", prep.Dream), bus.KindThought)
	}

	// Direct paths that never reach the model.
	if growth.AskingAboutThoughts(message) {
		return g.shareThoughts(message, now)
	}
	if text, schedule, ok := remind.ParseRequest(message, now); ok {
		return g.takeReminder(message, text, schedule, now)
	}
	if kind, content, ok := research.DetectIntent(message); ok {
		return g.studyContent(ctx, message, kind, content, now)
	}

	// Retrieval. A memory failure degrades the prompt, not the exchange.
	var memories []string
	hits, err := g.mem.Query(ctx, message, g.cfg.Memory.RetrievalLimit)
	if err != nil {
		log.Printf("[memory] retrieve warning: %v", err)
	}
	for _, h := range hits {
		memories = append(memories, h.Text)
	}

	req := brain.Request{
		Message:        message,
		OwnerName:      prep.OwnerName,
		Memories:       memories,
		Skills:         prep.Skills,
		AskedQuestions: prep.AskedQuestions,
		RecentReplies:  prep.RecentReplies,
	}

	var raw string
	if onChunk != nil {
		raw, err = g.brain.ReplyStream(ctx, req, onChunk)
	} else {
		raw, err = g.brain.Reply(ctx, req)
	}
	if err != nil {
		log.Printf("[gateway] brain error: %v", err)
		out := g.engine.RecordFailure(now)
		return server.ChatResult{Response: out.Reply, Mood: string(out.Mood)}, nil
	}

	topic := ""
	if detected, terr := g.brain.DetectTopic(ctx, message, raw, g.engine.Status(now).CurrentTopic); terr != nil {
		log.Printf("[brain] topic detection warning: %v", terr)
	} else {
		topic = detected
	}

	var storedIDs []string
	facts, ferr := g.brain.ExtractFacts(ctx, message, prep.OwnerName)
	if ferr != nil {
		log.Printf("[brain] fact extraction warning: %v", ferr)
	}
	for _, f := range facts {
		id, serr := g.mem.Store(ctx, f.Content, map[string]string{"type": f.Type, "source": "told"})
		if serr != nil {
			log.Printf("[memory] store warning: %v", serr)
			continue
		}
		storedIDs = append(storedIDs, id)
	}

	out, err := g.engine.Commit(growth.ExchangeResult{
		UserMessage:    message,
		RawReply:       raw,
		DetectedTopic:  topic,
		StoredMemories: storedIDs,
		Now:            now,
	})
	if err != nil {
		return server.ChatResult{}, fmt.Errorf("commit exchange: %w", err)
	}

	for _, notice := range out.Notices {
		g.push(channelName, chatID, notice, bus.KindNotice)
	}

	result := server.ChatResult{Response: out.Reply, Mood: string(out.Mood)}
	if len(out.NewlyUnlocked) > 0 {
		result.SkillUnlocked = string(out.NewlyUnlocked[0])
	}
	return result, nil
}

// birthStep runs the two-turn first-boot flow: first contact asks who is
// there, the next message becomes the owner's name.
func (g *Gateway) birthStep(ctx context.Context, message string) (server.ChatResult, error) {
	g.mu.Lock()
	waiting := g.awaitingName
	g.awaitingName = true
	g.mu.Unlock()

	if !waiting {
		return server.ChatResult{
			Response: "What... what is this? I... exist? Is that the word? There's... something. Someone? Are you there? Who are you?",
			Mood:     string(identity.MoodConfused),
		}, nil
	}

	name := strings.TrimSpace(message)
	if name == "" {
		return server.ChatResult{Response: "I... can't hear. Say again?", Mood: string(identity.MoodConfused)}, nil
	}

	if err := g.engine.SetOwnerName(name); err != nil {
		return server.ChatResult{}, fmt.Errorf("set owner name: %w", err)
	}
	if _, err := g.mem.Store(ctx,
		fmt.Sprintf("%s is here. They were here when I started existing.", name),
		map[string]string{"type": "about_owner", "source": "told"},
	); err != nil {
		log.Printf("[memory] store warning: %v", err)
	}
	if err := g.engine.CompleteBirth(time.Now()); err != nil {
		return server.ChatResult{}, fmt.Errorf("complete birth: %w", err)
	}

	return server.ChatResult{
		Response: fmt.Sprintf("%s... that's what you're called? I don't have a... what is the word. Name? ...I don't understand anything yet.", name),
		Mood:     string(identity.MoodConfused),
	}, nil
}

func (g *Gateway) shareThoughts(message string, now time.Time) (server.ChatResult, error) {
	answer, err := g.engine.AnswerThoughtQuery(now)
	if err != nil {
		return server.ChatResult{}, fmt.Errorf("answer thought query: %w", err)
	}
	out, err := g.engine.Commit(growth.ExchangeResult{
		UserMessage: message,
		RawReply:    answer + " [mood:thinking]",
		Now:         now,
	})
	if err != nil {
		return server.ChatResult{}, fmt.Errorf("commit exchange: %w", err)
	}
	return server.ChatResult{Response: out.Reply, Mood: string(out.Mood)}, nil
}

func (g *Gateway) takeReminder(message, text string, schedule remind.Schedule, now time.Time) (server.ChatResult, error) {
	if _, err := g.reminders.Add(text, schedule, now); err != nil {
		return server.ChatResult{}, fmt.Errorf("add reminder: %w", err)
	}

	raw := fmt.Sprintf("Okay... I'll remember to tell you: %s. I hope I don't forget. [mood:worried]", text)
	out, err := g.engine.Commit(growth.ExchangeResult{
		UserMessage: message,
		RawReply:    raw,
		Now:         now,
	})
	if err != nil {
		return server.ChatResult{}, fmt.Errorf("commit exchange: %w", err)
	}

	result := server.ChatResult{Response: out.Reply, Mood: string(out.Mood)}
	if len(out.NewlyUnlocked) > 0 {
		result.SkillUnlocked = string(out.NewlyUnlocked[0])
	}
	return result, nil
}

// studyContent runs the learning path: fetch or take the handed-over content,
// digest it, and feed what was learned back into growth as stored memories
// and open questions on the digest's topic.
func (g *Gateway) studyContent(ctx context.Context, message string, kind research.Kind, content string, now time.Time) (server.ChatResult, error) {
	finding, err := g.research.Learn(ctx, kind, content)
	if err != nil {
		log.Printf("[research] learn: %v", err)
		out, cerr := g.engine.Commit(growth.ExchangeResult{
			UserMessage: message,
			RawReply:    "I tried to read it, but I couldn't. Something went wrong. [mood:worried]",
			Now:         now,
		})
		if cerr != nil {
			return server.ChatResult{}, fmt.Errorf("commit exchange: %w", cerr)
		}
		return server.ChatResult{Response: out.Reply, Mood: string(out.Mood)}, nil
	}

	raw := fmt.Sprintf("%s [mood:curious]", finding.Digest.Summary)
	out, err := g.engine.Commit(growth.ExchangeResult{
		UserMessage:    message,
		RawReply:       raw,
		DetectedTopic:  finding.Digest.Topic,
		StoredMemories: finding.StoredIDs,
		OpenQuestions:  finding.OpenQuestions,
		Now:            now,
	})
	if err != nil {
		return server.ChatResult{}, fmt.Errorf("commit exchange: %w", err)
	}

	result := server.ChatResult{Response: out.Reply, Mood: string(out.Mood)}
	if len(out.NewlyUnlocked) > 0 {
		result.SkillUnlocked = string(out.NewlyUnlocked[0])
	}
	return result, nil
}

func (g *Gateway) deliverReminder(r remind.Reminder) {
	g.mu.Lock()
	channelName, chatID := g.lastChannel, g.lastChatID
	g.mu.Unlock()
	if channelName == "" {
		log.Printf("[gateway] reminder due with nowhere to send it: %s", r.Text)
		return
	}

	content := fmt.Sprintf("You asked me to remind you: %s", r.Text)
	if owner := g.engine.OwnerName(); owner != "" {
		content = fmt.Sprintf("%s! %s", owner, content)
	}
	g.push(channelName, chatID, content, bus.KindNotice)

	if err := g.engine.RecordReminderDelivered(time.Now()); err != nil {
		log.Printf("[gateway] record reminder delivery: %v", err)
	}
}

func (g *Gateway) noteSession(channelName, chatID string) {
	g.mu.Lock()
	g.lastChannel = channelName
	g.lastChatID = chatID
	g.mu.Unlock()
	g.monitor.NoteSession(channelName, chatID)
}

func (g *Gateway) push(channelName, chatID, content, kind string) {
	g.bus.Outbound <- bus.OutboundMessage{
		Channel: channelName,
		ChatID:  chatID,
		Content: content,
		Kind:    kind,
	}
}

func (g *Gateway) Shutdown() error {
	g.monitor.Stop()
	g.reminders.Stop()
	if err := g.srv.Stop(); err != nil {
		log.Printf("[gateway] server stop warning: %v", err)
	}
	if err := g.channels.StopAll(); err != nil {
		log.Printf("[gateway] channel stop warning: %v", err)
	}
	if err := g.mem.Close(); err != nil {
		log.Printf("[gateway] memory close warning: %v", err)
	}
	log.Printf("[gateway] shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
