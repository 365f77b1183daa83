package disambiguation

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/antoniostano/lexkit/internal/dialog"
	"github.com/antoniostano/lexkit/internal/lexapi"
	"github.com/antoniostano/lexkit/internal/messages"
)

// FallbackUnclear is shown when the user's answer to a clarification
// question matches none of the offered options.
const FallbackUnclear = "I'm not sure what you're looking for. Please try rephrasing your request."

// Handler runs the two clarification turns: asking the user to choose and
// interpreting their answer.
type Handler struct {
	config    Config
	generator *Generator
	catalog   *messages.View
}

// NewHandler builds a handler. Both generator and catalog may be nil; the
// handler then uses static clarification text.
func NewHandler(cfg Config, generator *Generator, catalog *messages.View) *Handler {
	return &Handler{config: cfg.withDefaults(), generator: generator, catalog: catalog}
}

// HandleDisambiguation stores the candidate set in session attributes and
// elicits an intent with the clarification question plus one button per
// candidate.
func (h *Handler) HandleDisambiguation(ctx context.Context, req *lexapi.Request, candidates []IntentCandidate) (*lexapi.Response, error) {
	if len(candidates) > h.config.MaxCandidates {
		candidates = candidates[:h.config.MaxCandidates]
	}
	h.decorate(candidates)
	h.storeState(req, candidates)

	text, err := h.clarificationText(ctx, req.InputTranscript, candidates)
	if err != nil {
		return nil, err
	}
	labels := h.buttonLabels(ctx, req.InputTranscript, candidates)

	buttons := make([]lexapi.Button, len(candidates))
	for i, c := range candidates {
		buttons[i] = lexapi.Button{Text: labels[i], Value: c.IntentName}
	}

	return dialog.ElicitIntent(req, lexapi.Messages{
		lexapi.PlainText{Content: text},
		lexapi.ImageResponseCard{Card: lexapi.ImageCard{
			Title:   text,
			Buttons: buttons,
		}},
	}), nil
}

// decorate fills in candidate descriptions from the message catalog.
func (h *Handler) decorate(candidates []IntentCandidate) {
	for i := range candidates {
		if candidates[i].Description != "" {
			continue
		}
		candidates[i].Description = h.catalog.Get("disambiguation.description."+candidates[i].IntentName, "")
	}
}

// ProcessDisambiguationResponse inspects a turn that follows a
// clarification question. It returns nil when the turn is not a
// clarification answer, or when the answer resolved cleanly; in the
// latter case the request has been retargeted at the chosen intent and
// normal dispatch should continue. An unrecognizable answer yields a
// fallback close response.
func (h *Handler) ProcessDisambiguationResponse(ctx context.Context, req *lexapi.Request) *lexapi.Response {
	attrs := req.Attributes()
	if !attrs.DisambiguationActive {
		return nil
	}

	candidates := h.storedCandidates(req)
	if len(candidates) == 0 {
		return h.fallbackResponse(req)
	}

	selected, ok := DetermineSelectedIntent(req.InputTranscript, candidates)
	if !ok {
		return h.fallbackResponse(req)
	}

	req.SessionState.Intent.Name = selected
	req.SessionState.Intent.State = lexapi.IntentStateInProgress
	req.SessionState.Intent.Slots = make(map[string]*lexapi.SlotValue)
	h.clearState(req)
	return nil
}

// DetermineSelectedIntent matches the user's answer against the offered
// candidates: exact intent or display name first, then a display-name
// substring, then a 1-based number, then a letter (a is the first
// option).
func DetermineSelectedIntent(input string, candidates []IntentCandidate) (string, bool) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "", false
	}

	for _, c := range candidates {
		if input == strings.ToLower(c.IntentName) || input == strings.ToLower(c.DisplayName) {
			return c.IntentName, true
		}
	}
	// Substring matching needs more than one character, otherwise "b"
	// would hit "Book a Flight" instead of selecting option b.
	if len(input) > 1 {
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c.DisplayName), input) {
				return c.IntentName, true
			}
		}
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(candidates) {
			return candidates[n-1].IntentName, true
		}
		return "", false
	}
	if len(input) == 1 && input[0] >= 'a' && input[0] <= 'z' {
		if idx := int(input[0] - 'a'); idx < len(candidates) {
			return candidates[idx].IntentName, true
		}
	}
	// "option 2" or "the 2nd one" still count as a numeric pick.
	if n, ok := firstNumber(input); ok && n >= 1 && n <= len(candidates) {
		return candidates[n-1].IntentName, true
	}
	return "", false
}

// firstNumber extracts the first run of digits from s.
func firstNumber(s string) (int, bool) {
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(s[start:i])
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}

func (h *Handler) clarificationText(ctx context.Context, userInput string, candidates []IntentCandidate) (string, error) {
	if text, ok := h.customMessage(candidates); ok {
		return text, nil
	}

	static := h.staticText(candidates)
	if h.generator.enabled() {
		text, err := h.generator.ClarificationMessage(ctx, userInput, candidates)
		if err != nil {
			// Fallback disabled: the backend failure is the caller's
			// problem, not something to paper over with static text.
			return "", err
		}
		// The generator degrades to its own stock text when fallback is
		// enabled; the catalog entry is the better static choice.
		if text != "" && text != StaticFallbackMessage(candidates) {
			return text, nil
		}
	}
	return static, nil
}

func (h *Handler) staticText(candidates []IntentCandidate) string {
	key := messages.KeyDisambiguationMultiple
	if len(candidates) == 2 {
		key = messages.KeyDisambiguationTwo
	}
	return h.catalog.Get(key, StaticFallbackMessage(candidates))
}

// customMessage resolves an override: first the exact candidate
// combination ("BookFlight_ChangeFlight"), then any configured intent
// group that covers every candidate.
func (h *Handler) customMessage(candidates []IntentCandidate) (string, bool) {
	if len(h.config.CustomMessages) == 0 {
		return "", false
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.IntentName
	}
	sort.Strings(names)
	pairKey := strings.Join(names, "_")
	if text, ok := h.config.CustomMessages[pairKey]; ok {
		return text, true
	}
	if text, ok := h.config.CustomMessages["disambiguation."+pairKey]; ok {
		return text, true
	}

	for group, members := range h.config.CustomIntentGroups {
		if !coversAll(members, names) {
			continue
		}
		if text, ok := h.config.CustomMessages["disambiguation."+group]; ok {
			return text, true
		}
		if text, ok := h.config.CustomMessages[group]; ok {
			return text, true
		}
	}
	return "", false
}

func coversAll(members, names []string) bool {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	for _, n := range names {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}

func (h *Handler) buttonLabels(ctx context.Context, userInput string, candidates []IntentCandidate) []string {
	if h.generator.enabled() {
		return h.generator.ButtonLabels(ctx, candidates, userInput)
	}
	return displayNames(candidates)
}

func (h *Handler) storeState(req *lexapi.Request, candidates []IntentCandidate) {
	attrs := req.Attributes()
	attrs.DisambiguationActive = true
	raw, err := json.Marshal(candidates)
	if err != nil {
		raw = []byte("[]")
	}
	attrs.DisambiguationCandidates = string(raw)
}

func (h *Handler) clearState(req *lexapi.Request) {
	attrs := req.Attributes()
	attrs.DisambiguationActive = false
	attrs.DisambiguationCandidates = ""
}

func (h *Handler) storedCandidates(req *lexapi.Request) []IntentCandidate {
	raw := req.Attributes().DisambiguationCandidates
	if raw == "" {
		return nil
	}
	var candidates []IntentCandidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil
	}
	return candidates
}

func (h *Handler) fallbackResponse(req *lexapi.Request) *lexapi.Response {
	h.clearState(req)
	text := h.catalog.Get("disambiguation.fallback", FallbackUnclear)
	return dialog.Close(req, lexapi.Messages{lexapi.PlainText{Content: text}})
}
