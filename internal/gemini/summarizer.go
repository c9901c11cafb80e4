// ABOUTME: Conversation summarizer backed by Gemini
// ABOUTME: Condenses a transcript and prior memory into updated memory text
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultSummaryModel is the text model used for memory updates
const DefaultSummaryModel = "gemini-2.5-flash"

// Item is one transcript entry
type Item struct {
	Role string // "user" or "model"
	Text string
}

// Summarizer generates conversation memory
type Summarizer struct {
	client *genai.Client
	model  string
}

// NewSummarizer creates a summarizer; an empty model selects the default
func NewSummarizer(ctx context.Context, apiKey, model string) (*Summarizer, error) {
	client, err := newClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultSummaryModel
	}
	return &Summarizer{client: client, model: model}, nil
}

// Summarize returns updated memory for the transcript
func (s *Summarizer) Summarize(ctx context.Context, items []Item, memory string) (string, error) {
	if len(items) == 0 {
		return memory, nil
	}

	prompt := buildPrompt(buildTranscript(items), memory)
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}

	summary := strings.TrimSpace(resp.Text())
	if summary == "" {
		return "", fmt.Errorf("no summary generated")
	}

	log.Info().
		Int("items", len(items)).
		Int("summary_length", len(summary)).
		Msg("Generated conversation memory")

	return summary, nil
}

func buildTranscript(items []Item) string {
	var transcript strings.Builder
	for _, item := range items {
		speaker := "User"
		if item.Role == "model" {
			speaker = "Assistant"
		}
		transcript.WriteString(fmt.Sprintf("%s: %s\n", speaker, item.Text))
	}
	return transcript.String()
}

func buildPrompt(transcript, memory string) string {
	if strings.TrimSpace(memory) == "" {
		memory = "(none)"
	}
	return fmt.Sprintf(`You maintain long-term memory for a voice assistant. Merge the existing memory with anything new and durable from the conversation below: facts about the user, preferences, ongoing tasks and commitments. Drop small talk. Keep it under 100 words. Output ONLY the summary, as short plain-text bullet points.

**EXISTING MEMORY:**
%s

**CONVERSATION:**
%s
**UPDATED MEMORY:**`, memory, transcript)
}
