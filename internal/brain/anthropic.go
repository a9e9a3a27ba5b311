package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/palproject/pal/internal/config"
)

const (
	replyMaxTokens   = 1024
	dreamMaxTokens   = 100
	extractMaxTokens = 150
	topicMaxTokens   = 30
	studyMaxTokens   = 600

	maxTopicLen = 50
)

// AnthropicClient implements Client on the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropicClient(cfg *config.Config) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.Provider.APIKey)}
	if cfg.Provider.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Provider.BaseURL))
	}

	maxTokens := int64(cfg.Companion.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = replyMaxTokens
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(cfg.Companion.Model),
		maxTokens: maxTokens,
	}
}

func (c *AnthropicClient) replyParams(req Request) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: BuildSystemPrompt(req)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Message)),
		},
	}
}

func (c *AnthropicClient) Reply(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.Messages.New(ctx, c.replyParams(req))
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return messageText(resp), nil
}

func (c *AnthropicClient) ReplyStream(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.replyParams(req))
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			continue
		}
		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if onChunk != nil {
					onChunk(delta.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("stream reply: %w", err)
	}
	return messageText(&message), nil
}

func (c *AnthropicClient) Dream(ctx context.Context, memories []string) (string, error) {
	if len(memories) == 0 {
		return "", fmt.Errorf("dream: no memories to dream about")
	}
	text, err := c.plainCompletion(ctx, buildDreamPrompt(memories), dreamMaxTokens)
	if err != nil {
		return "", fmt.Errorf("generate dream: %w", err)
	}
	return strings.TrimSpace(text), nil
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

func (c *AnthropicClient) ExtractFacts(ctx context.Context, message, ownerName string) ([]Fact, error) {
	text, err := c.plainCompletion(ctx, buildExtractPrompt(message, ownerName), extractMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("extract facts: %w", err)
	}

	raw := jsonArrayPattern.FindString(text)
	if raw == "" {
		return nil, nil
	}

	var facts []Fact
	if err := json.Unmarshal([]byte(raw), &facts); err != nil {
		return nil, fmt.Errorf("extract facts: decode %q: %w", raw, err)
	}

	kept := facts[:0]
	for _, f := range facts {
		if strings.TrimSpace(f.Content) == "" {
			continue
		}
		if f.Type == "" {
			f.Type = "fact"
		}
		kept = append(kept, f)
	}
	return kept, nil
}

func (c *AnthropicClient) DetectTopic(ctx context.Context, userMessage, reply, currentTopic string) (string, error) {
	text, err := c.plainCompletion(ctx, buildTopicPrompt(userMessage, reply, currentTopic), topicMaxTokens)
	if err != nil {
		return currentTopic, fmt.Errorf("detect topic: %w", err)
	}

	topic := strings.ToLower(strings.Trim(strings.TrimSpace(text), `"`))
	if topic == "" || topic == "none" || len(topic) >= maxTopicLen {
		return currentTopic, nil
	}
	return topic, nil
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// FallbackDigest stands in when the model's study output cannot be parsed.
// The companion read the content but got nothing structured out of it.
var FallbackDigest = Digest{
	Summary: "I read it but had trouble understanding it all.",
	Topic:   "general",
}

func (c *AnthropicClient) Study(ctx context.Context, content, source string) (Digest, error) {
	text, err := c.plainCompletion(ctx, buildStudyPrompt(content, source), studyMaxTokens)
	if err != nil {
		return Digest{}, fmt.Errorf("study content: %w", err)
	}

	raw := jsonObjectPattern.FindString(text)
	if raw == "" {
		return FallbackDigest, nil
	}

	var d Digest
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return FallbackDigest, nil
	}
	if strings.TrimSpace(d.Summary) == "" {
		d.Summary = FallbackDigest.Summary
	}
	if strings.TrimSpace(d.Topic) == "" {
		d.Topic = FallbackDigest.Topic
	}
	return d, nil
}

// plainCompletion sends a single user prompt with no system persona. Used for
// the auxiliary calls: dreams, fact extraction, topic detection.
func (c *AnthropicClient) plainCompletion(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}
	return messageText(resp), nil
}

func messageText(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
