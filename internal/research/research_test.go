package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/palproject/pal/internal/brain"
)

type fakeStudier struct {
	digest  brain.Digest
	err     error
	content string
	source  string
}

func (f *fakeStudier) Study(_ context.Context, content, source string) (brain.Digest, error) {
	f.content = content
	f.source = source
	return f.digest, f.err
}

type fakeMem struct {
	stored []string
	err    error
}

func (f *fakeMem) Store(_ context.Context, text string, _ map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.stored = append(f.stored, text)
	return fmt.Sprintf("id-%d", len(f.stored)), nil
}

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		message string
		kind    Kind
		content string
		ok      bool
	}{
		{"read this https://example.com/page", KindURL, "https://example.com/page", true},
		{"https://example.com", KindURL, "https://example.com", true},
		{"learn this: octopuses have three hearts and blue blood", KindText, "octopuses have three hearts and blue blood", true},
		{"remember this: the garden only gets sun in the morning hours", KindText, "the garden only gets sun in the morning hours", true},
		{"here's some info: honey never spoils if it stays sealed", KindText, "honey never spoils if it stays sealed", true},
		{"remember this: buy milk", "", "", false},
		{"I like pizza", "", "", false},
		{"remind me to stretch in 5 minutes", "", "", false},
	}
	for _, tc := range cases {
		kind, content, ok := DetectIntent(tc.message)
		if ok != tc.ok || kind != tc.kind || content != tc.content {
			t.Errorf("DetectIntent(%q) = %q, %q, %v; want %q, %q, %v",
				tc.message, kind, content, ok, tc.kind, tc.content, tc.ok)
		}
	}
}

func TestLearnFromText(t *testing.T) {
	studier := &fakeStudier{digest: brain.Digest{
		Summary:   "Octopuses have three hearts. Three!",
		Facts:     []string{"octopuses have three hearts", "blue", "octopus blood is blue"},
		Topic:     "octopuses",
		Questions: []string{"why three hearts?", "huh?"},
	}}
	mem := &fakeMem{}
	s := NewService(studier, mem)

	finding, err := s.Learn(context.Background(), KindText, "octopuses have three hearts and blue blood")
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	if studier.source != "something you told me" {
		t.Errorf("source = %q", studier.source)
	}
	// The one-word fact and the tiny question are both below the keep line.
	if len(finding.StoredIDs) != 2 {
		t.Errorf("stored ids = %v", finding.StoredIDs)
	}
	if len(mem.stored) != 2 {
		t.Errorf("stored = %v", mem.stored)
	}
	if len(finding.OpenQuestions) != 1 || finding.OpenQuestions[0] != "why three hearts?" {
		t.Errorf("open questions = %v", finding.OpenQuestions)
	}
}

func TestLearnFetchesURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Bees</title><style>p{color:red}</style></head>`+
			`<body><script>var tracking = true;</script><nav>Home</nav>`+
			`<p>Bees talk to each other by dancing. The waggle dance points other bees at food.</p></body></html>`)
	}))
	defer srv.Close()

	studier := &fakeStudier{digest: brain.Digest{Summary: "Bees dance to talk.", Topic: "bees"}}
	s := NewService(studier, &fakeMem{})

	if _, err := s.Learn(context.Background(), KindURL, srv.URL); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if studier.source != srv.URL {
		t.Errorf("source = %q, want the url", studier.source)
	}
	if !strings.Contains(studier.content, "waggle dance") {
		t.Errorf("page text missing body content: %q", studier.content)
	}
	if strings.Contains(studier.content, "tracking") || strings.Contains(studier.content, "color:red") {
		t.Errorf("page text should not carry script or style: %q", studier.content)
	}
}

func TestLearnFailsOnMissingPage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	s := NewService(&fakeStudier{}, &fakeMem{})
	if _, err := s.Learn(context.Background(), KindURL, srv.URL+"/gone"); err == nil {
		t.Fatal("expected an error for a 404 page")
	}
}

func TestLearnSurvivesStoreFailure(t *testing.T) {
	studier := &fakeStudier{digest: brain.Digest{
		Summary: "I learned a thing.",
		Facts:   []string{"a fact long enough to keep"},
		Topic:   "things",
	}}
	s := NewService(studier, &fakeMem{err: errors.New("store offline")})

	finding, err := s.Learn(context.Background(), KindText, "a fact long enough to keep around")
	if err != nil {
		t.Fatalf("learn: %v", err)
	}
	if len(finding.StoredIDs) != 0 {
		t.Errorf("stored ids = %v, want none", finding.StoredIDs)
	}
}
