// Package remind schedules the things the owner asked to be reminded about.
package remind

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Schedule says when a reminder fires. Kind "at" fires once at AtMs and is
// removed; kind "every" repeats every EveryMs.
type Schedule struct {
	Kind    string `json:"kind"`
	AtMs    int64  `json:"atMs,omitempty"`
	EveryMs int64  `json:"everyMs,omitempty"`
}

type Reminder struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Schedule  Schedule `json:"schedule"`
	CreatedMs int64    `json:"createdMs"`
	Enabled   bool     `json:"enabled"`
	LastRunMs int64    `json:"lastRunMs,omitempty"`
}

type Service struct {
	storePath string
	mu        sync.Mutex
	reminders []Reminder
	cancel    context.CancelFunc

	// OnDue is called when a reminder fires.
	OnDue func(r Reminder)
}

func NewService(storePath string) *Service {
	return &Service{storePath: storePath}
}

func (s *Service) Start(ctx context.Context) error {
	if err := s.load(); err != nil {
		log.Printf("[remind] warning: failed to load reminders: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	count := len(s.reminders)
	s.mu.Unlock()

	go s.tickLoop(runCtx)
	log.Printf("[remind] started with %d reminders", count)
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	log.Printf("[remind] stopped")
}

func (s *Service) Add(text string, schedule Schedule, now time.Time) (Reminder, error) {
	r := Reminder{
		ID:        uuid.NewString(),
		Text:      text,
		Schedule:  schedule,
		CreatedMs: now.UnixMilli(),
		Enabled:   true,
		LastRunMs: now.UnixMilli(),
	}

	s.mu.Lock()
	s.reminders = append(s.reminders, r)
	err := s.saveLocked()
	s.mu.Unlock()

	if err != nil {
		return Reminder{}, fmt.Errorf("save reminders: %w", err)
	}
	return r, nil
}

func (s *Service) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.reminders {
		if r.ID == id {
			s.reminders = append(s.reminders[:i], s.reminders[i+1:]...)
			_ = s.saveLocked()
			return true
		}
	}
	return false
}

func (s *Service) List() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out
}

func (s *Service) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CheckDue(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// CheckDue fires every reminder whose time has come. Exposed so tests can
// drive it without the ticker.
func (s *Service) CheckDue(now time.Time) {
	nowMs := now.UnixMilli()

	var due []Reminder
	s.mu.Lock()
	kept := s.reminders[:0]
	for _, r := range s.reminders {
		if !r.Enabled {
			kept = append(kept, r)
			continue
		}
		switch r.Schedule.Kind {
		case "at":
			if nowMs >= r.Schedule.AtMs {
				due = append(due, r)
				continue // one-shot, drop it
			}
		case "every":
			if r.Schedule.EveryMs > 0 && nowMs >= r.LastRunMs+r.Schedule.EveryMs {
				r.LastRunMs = nowMs
				due = append(due, r)
			}
		}
		kept = append(kept, r)
	}
	s.reminders = kept
	if len(due) > 0 {
		_ = s.saveLocked()
	}
	onDue := s.OnDue
	s.mu.Unlock()

	for _, r := range due {
		log.Printf("[remind] due: %s", r.Text)
		if onDue != nil {
			onDue(r)
		}
	}
}

func (s *Service) load() error {
	data, err := os.ReadFile(s.storePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &s.reminders)
}

func (s *Service) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.storePath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.reminders, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.storePath, data, 0644)
}
