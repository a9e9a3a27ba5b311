// Package research lets the companion learn from content the owner hands it:
// a URL to go read, or a passage pasted straight into the chat.
package research

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/palproject/pal/internal/brain"
)

const (
	minFactLen     = 10
	minQuestionLen = 5

	fetchTimeout = 15 * time.Second
)

// Studier digests raw content into what the companion took from it.
type Studier interface {
	Study(ctx context.Context, content, source string) (brain.Digest, error)
}

// Memory persists what was learned.
type Memory interface {
	Store(ctx context.Context, text string, metadata map[string]string) (string, error)
}

type Service struct {
	studier Studier
	mem     Memory
	client  *http.Client
}

func NewService(studier Studier, mem Memory) *Service {
	return &Service{
		studier: studier,
		mem:     mem,
		client:  &http.Client{Timeout: fetchTimeout},
	}
}

// Finding is the outcome of one study session.
type Finding struct {
	Digest brain.Digest
	// StoredIDs are the memory ids of the facts that were kept.
	StoredIDs []string
	// OpenQuestions are the questions the content raised but did not answer.
	OpenQuestions []string
}

// Learn reads the content, digests it, and stores the facts worth keeping.
// For KindURL the content is fetched first; a fetch failure aborts the whole
// study, but a single fact failing to store does not.
func (s *Service) Learn(ctx context.Context, kind Kind, content string) (Finding, error) {
	source := "something you told me"
	text := content
	if kind == KindURL {
		source = content
		fetched, err := s.fetchPage(ctx, content)
		if err != nil {
			return Finding{}, err
		}
		text = fetched
	}

	digest, err := s.studier.Study(ctx, text, source)
	if err != nil {
		return Finding{}, fmt.Errorf("study: %w", err)
	}

	finding := Finding{Digest: digest}
	for _, fact := range digest.Facts {
		fact = strings.TrimSpace(fact)
		if len(fact) <= minFactLen {
			continue
		}
		id, serr := s.mem.Store(ctx, fact, map[string]string{"type": "learned", "source": source})
		if serr != nil {
			log.Printf("[research] store finding: %v", serr)
			continue
		}
		finding.StoredIDs = append(finding.StoredIDs, id)
	}
	for _, q := range digest.Questions {
		q = strings.TrimSpace(q)
		if len(q) <= minQuestionLen {
			continue
		}
		finding.OpenQuestions = append(finding.OpenQuestions, q)
	}
	return finding, nil
}
