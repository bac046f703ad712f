package summarize

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Generator produces text from a system prompt and user prompt. The Ollama
// and OpenAI-compatible providers implement this interface.
type Generator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const (
	// Inputs below this word count are not worth summarizing.
	minWords = 5
	// Model output is clipped to keep summaries dashboard-sized.
	maxSummaryWords = 25

	fallbackWords    = 7
	fallbackMaxChars = 50
	placeholder      = "Pass request"

	defaultTimeout = 10 * time.Second
)

const systemPrompt = "You condense student pass requests for a department head. " +
	"Reply with one short sentence of at most fifteen words. No preamble, no quotes."

// Service condenses free-text justifications. A nil generator (failed model
// init) or any generation failure activates the deterministic fallback, so
// Summarize never fails and never returns an empty string for a request.
type Service struct {
	gen     Generator
	timeout time.Duration
}

// NewService wraps a generator with the summarization policy. gen may be nil.
func NewService(gen Generator, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{gen: gen, timeout: timeout}
}

// Summarize returns a short form of text. Inputs under the minimum word
// threshold are returned unchanged; an empty input yields a fixed placeholder.
func (s *Service) Summarize(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return placeholder
	}
	words := strings.Fields(text)
	if len(words) < minWords {
		return text
	}
	if s.gen == nil {
		return fallback(words)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.gen.GenerateText(ctx, systemPrompt, text)
	if err != nil {
		slog.Warn("summarization failed, using fallback", "err", err)
		return fallback(words)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return fallback(words)
	}
	return capWords(out, maxSummaryWords)
}

// fallback deterministically truncates the justification: the first few words,
// clipped to a character budget, never empty.
func fallback(words []string) string {
	take := fallbackWords
	if take > len(words) {
		take = len(words)
	}
	out := strings.Join(words[:take], " ")
	if len(out) > fallbackMaxChars {
		out = strings.TrimSpace(out[:fallbackMaxChars])
	}
	if out == "" {
		return placeholder
	}
	return out
}

func capWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}
