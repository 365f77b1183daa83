package disambiguation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antoniostano/lexkit/internal/textgen"
)

// Fallback clarification texts used when no catalog entry or generated
// text is available.
const (
	FallbackTwoOptions      = "I can help you with two things. Which would you like to do?"
	FallbackMultipleOptions = "I can help you with several things. What would you like to do?"
)

const defaultSystemPrompt = "You write short, friendly clarification questions for a conversational assistant. Answer with the question only."

// Generator rewrites clarification prompts and button labels through a
// text-generation backend. With generation disabled, or on backend
// failure with FallbackToStatic set, it degrades to static text.
type Generator struct {
	config  GenerationConfig
	adapter textgen.Adapter
}

func NewGenerator(cfg GenerationConfig, adapter textgen.Adapter) *Generator {
	return &Generator{config: cfg, adapter: adapter}
}

// ClarificationMessage produces the question asking the user to choose.
func (g *Generator) ClarificationMessage(ctx context.Context, userInput string, candidates []IntentCandidate) (string, error) {
	static := StaticFallbackMessage(candidates)
	if !g.enabled() {
		return static, nil
	}

	resp, err := g.adapter.Generate(ctx, g.request(g.clarificationPrompt(userInput, candidates)))
	if err != nil {
		if g.config.FallbackToStatic {
			return static, nil
		}
		return "", fmt.Errorf("generate clarification: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return static, nil
	}
	return text, nil
}

// ButtonLabels produces one short label per candidate. Any failure to
// generate or parse exactly the right number of labels yields the
// candidates' display names.
func (g *Generator) ButtonLabels(ctx context.Context, candidates []IntentCandidate, userInput string) []string {
	if !g.enabled() {
		return displayNames(candidates)
	}

	resp, err := g.adapter.Generate(ctx, g.request(g.buttonLabelsPrompt(candidates, userInput)))
	if err != nil {
		return displayNames(candidates)
	}
	labels := extractLabels(resp.Text, len(candidates))
	if labels == nil {
		return displayNames(candidates)
	}
	return labels
}

func (g *Generator) enabled() bool {
	return g != nil && g.config.Enabled && g.adapter != nil
}

func (g *Generator) request(prompt string) textgen.Request {
	system := g.config.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	return textgen.Request{
		Prompt:       prompt,
		SystemPrompt: system,
		ModelID:      g.config.ModelID,
		MaxTokens:    g.config.MaxTokens,
		Temperature:  g.config.Temperature,
	}
}

func (g *Generator) clarificationPrompt(userInput string, candidates []IntentCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user said: %q\n", userInput)
	b.WriteString("Their request is ambiguous. They might want one of these:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s", c.DisplayName)
		if c.Description != "" {
			fmt.Fprintf(&b, ": %s", c.Description)
		}
		b.WriteByte('\n')
	}
	b.WriteString("Write one short question asking which of these they would like to do.")
	return b.String()
}

func (g *Generator) buttonLabelsPrompt(candidates []IntentCandidate, userInput string) string {
	var b strings.Builder
	b.WriteString("Produce short button labels for these intents:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s (%s)\n", c.IntentName, c.DisplayName)
	}
	if userInput != "" {
		fmt.Fprintf(&b, "The user said: %q\n", userInput)
	}
	fmt.Fprintf(&b, "Answer with a JSON array of exactly %d strings, one label per intent, in order.", len(candidates))
	return b.String()
}

// StaticFallbackMessage returns the canned clarification for a candidate
// count.
func StaticFallbackMessage(candidates []IntentCandidate) string {
	if len(candidates) == 2 {
		return FallbackTwoOptions
	}
	return FallbackMultipleOptions
}

func displayNames(candidates []IntentCandidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.DisplayName
	}
	return names
}

// extractLabels pulls want labels out of generated text. It first looks
// for a JSON string array, then for bullet or numbered lines. A count
// mismatch returns nil.
func extractLabels(text string, want int) []string {
	if start := strings.Index(text, "["); start >= 0 {
		if end := strings.LastIndex(text, "]"); end > start {
			var labels []string
			if err := json.Unmarshal([]byte(text[start:end+1]), &labels); err == nil {
				if len(labels) == want {
					return labels
				}
				return nil
			}
		}
	}

	var labels []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		stripped, listItem := strings.CutPrefix(line, "-")
		if !listItem {
			for i := 1; i <= 9; i++ {
				if stripped, listItem = strings.CutPrefix(line, fmt.Sprintf("%d.", i)); listItem {
					break
				}
			}
		}
		if !listItem {
			continue
		}
		label := strings.Trim(strings.TrimSpace(stripped), `"`)
		if label != "" {
			labels = append(labels, label)
		}
	}
	if len(labels) != want {
		return nil
	}
	return labels
}
