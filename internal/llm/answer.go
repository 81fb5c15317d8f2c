package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// NoResultsAnswer is returned when retrieval found nothing to answer from.
const NoResultsAnswer = "No relevant documents found. Please try a different query."

const answerInstructions = `You are a helpful and informative assistant that answers questions using text from the reference chunks below. Give a clear and concise response, such as a step-by-step guide or an explanation, based on the question. If the chunks are irrelevant, give a general answer based on your own knowledge and say so.`

// Answerer phrases a final answer from retrieved chunk texts.
type Answerer struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAnswerer creates an Answerer. A zero timeout leaves ctx in charge.
func NewAnswerer(provider Provider, timeout time.Duration, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{provider: provider, timeout: timeout, logger: logger}
}

// Answer never fails: provider errors come back as "Error: <message>".
func (a *Answerer) Answer(ctx context.Context, query string, texts []string) string {
	if len(texts) == 0 {
		return NoResultsAnswer
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := a.provider.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: answerInstructions},
			{Role: RoleUser, Content: answerPrompt(query, texts)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		a.logger.Warn("answer_failed", slog.String("provider", a.provider.Name()), slog.String("error", err.Error()))
		return "Error: " + err.Error()
	}

	a.logger.Debug("answer_generated",
		slog.String("provider", a.provider.Name()),
		slog.Int("input_tokens", resp.InputTokens),
		slog.Int("output_tokens", resp.OutputTokens),
		slog.Duration("duration", time.Since(start)))
	return strings.TrimSpace(resp.Content)
}

func answerPrompt(query string, texts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "QUESTION: %s\n\nREFERENCE CHUNKS:\n", query)
	for i, t := range texts {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, t)
	}
	b.WriteString("\nANSWER:")
	return b.String()
}

const condenseInstructions = `Rewrite the user's message as a short search query for a document index. Keep the key terms, drop filler words and pleasantries. Reply with the query only, on one line.`

// Condenser turns a conversational question into a compact search query.
type Condenser struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewCondenser creates a Condenser. A zero timeout leaves ctx in charge.
func NewCondenser(provider Provider, timeout time.Duration, logger *slog.Logger) *Condenser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Condenser{provider: provider, timeout: timeout, logger: logger}
}

// Condense returns the rewritten query, or query itself on any failure.
func (c *Condenser) Condense(ctx context.Context, query string) string {
	if strings.TrimSpace(query) == "" {
		return query
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.provider.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: condenseInstructions},
			{Role: RoleUser, Content: query},
		},
		MaxTokens: 64,
	})
	if err != nil {
		c.logger.Warn("condense_failed", slog.String("error", err.Error()))
		return query
	}

	line, _, _ := strings.Cut(strings.TrimSpace(resp.Content), "\n")
	line = strings.Trim(strings.TrimSpace(line), `"'`)
	if line == "" {
		return query
	}
	c.logger.Debug("query_condensed", slog.String("query", query), slog.String("condensed", line))
	return line
}
