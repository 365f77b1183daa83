package disambiguation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/antoniostano/lexkit/internal/lexapi"
	"github.com/antoniostano/lexkit/internal/messages"
)

func sampleCandidates() []IntentCandidate {
	return []IntentCandidate{
		{IntentName: "BookFlight", ConfidenceScore: 0.7, DisplayName: "Book a Flight", Description: "Book a new flight reservation"},
		{IntentName: "ChangeFlight", ConfidenceScore: 0.6, DisplayName: "Change Flight", Description: "Modify an existing flight reservation"},
		{IntentName: "CancelFlight", ConfidenceScore: 0.5, DisplayName: "Cancel Flight", Description: "Cancel a flight reservation"},
	}
}

func TestHandleDisambiguationStoresStateAndElicits(t *testing.T) {
	h := NewHandler(Config{}, nil, nil)
	req := requestWith()

	resp, err := h.HandleDisambiguation(context.Background(), req, sampleCandidates())
	if err != nil {
		t.Fatalf("HandleDisambiguation: %v", err)
	}

	attrs := req.Attributes()
	if !attrs.DisambiguationActive {
		t.Fatal("disambiguation_active not set")
	}
	var stored []IntentCandidate
	if err := json.Unmarshal([]byte(attrs.DisambiguationCandidates), &stored); err != nil {
		t.Fatalf("stored candidates are not JSON: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("stored %d candidates, want 3", len(stored))
	}
	if got, want := resp.SessionState.DialogAction.Type, lexapi.DialogActionElicitIntent; got != want {
		t.Fatalf("dialog action = %q, want %q", got, want)
	}

	if len(resp.Messages) != 2 {
		t.Fatalf("got %d messages, want text plus card", len(resp.Messages))
	}
	pt, ok := resp.Messages[0].(lexapi.PlainText)
	if !ok || pt.Content != FallbackMultipleOptions {
		t.Fatalf("clarification = %#v, want the multiple-options text", resp.Messages[0])
	}
	card, ok := resp.Messages[1].(lexapi.ImageResponseCard)
	if !ok {
		t.Fatalf("second message = %#v, want an image card", resp.Messages[1])
	}
	if len(card.Card.Buttons) != 3 || card.Card.Buttons[0].Text != "Book a Flight" || card.Card.Buttons[0].Value != "BookFlight" {
		t.Fatalf("buttons = %+v", card.Card.Buttons)
	}
}

func TestHandleDisambiguationLimitsCandidates(t *testing.T) {
	h := NewHandler(Config{MaxCandidates: 2}, nil, nil)
	req := requestWith()

	h.HandleDisambiguation(context.Background(), req, sampleCandidates())

	var stored []IntentCandidate
	if err := json.Unmarshal([]byte(req.Attributes().DisambiguationCandidates), &stored); err != nil {
		t.Fatalf("decode stored candidates: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d candidates, want 2", len(stored))
	}
}

func TestCustomGroupMessageWins(t *testing.T) {
	h := NewHandler(Config{
		CustomIntentGroups: map[string][]string{"booking": {"BookFlight", "ChangeFlight", "CancelFlight"}},
		CustomMessages: map[string]string{
			"disambiguation.booking": "I can help you book, change, or cancel a flight. Which would you like to do?",
		},
	}, nil, nil)
	req := requestWith()

	resp, err := h.HandleDisambiguation(context.Background(), req, sampleCandidates())
	if err != nil {
		t.Fatalf("HandleDisambiguation: %v", err)
	}
	pt := resp.Messages[0].(lexapi.PlainText)
	if want := "I can help you book, change, or cancel a flight. Which would you like to do?"; pt.Content != want {
		t.Fatalf("clarification = %q, want the group message", pt.Content)
	}
}

func TestCustomPairMessageWins(t *testing.T) {
	h := NewHandler(Config{
		CustomMessages: map[string]string{
			"BookFlight_ChangeFlight": "Do you want to book a new flight or change one?",
		},
	}, nil, nil)
	req := requestWith()

	resp, err := h.HandleDisambiguation(context.Background(), req, sampleCandidates()[:2])
	if err != nil {
		t.Fatalf("HandleDisambiguation: %v", err)
	}
	pt := resp.Messages[0].(lexapi.PlainText)
	if want := "Do you want to book a new flight or change one?"; pt.Content != want {
		t.Fatalf("clarification = %q, want the pair message", pt.Content)
	}
}

func TestDetermineSelectedIntent(t *testing.T) {
	candidates := sampleCandidates()
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"BookFlight", "BookFlight", true},
		{"Book a Flight", "BookFlight", true},
		{"book", "BookFlight", true},
		{"1", "BookFlight", true},
		{"2", "ChangeFlight", true},
		{"a", "BookFlight", true},
		{"b", "ChangeFlight", true},
		{"9", "", false},
		{"option 2", "ChangeFlight", true},
		{"the 1st one", "BookFlight", true},
		{"option 9", "", false},
		{"invalid input", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := DetermineSelectedIntent(c.input, candidates)
		if got != c.want || ok != c.ok {
			t.Fatalf("DetermineSelectedIntent(%q) = %q, %v; want %q, %v", c.input, got, ok, c.want, c.ok)
		}
	}
}

func TestProcessResponseNotActive(t *testing.T) {
	h := NewHandler(Config{}, nil, nil)
	req := requestWith()
	if resp := h.ProcessDisambiguationResponse(context.Background(), req); resp != nil {
		t.Fatalf("resp = %v, want nil for a normal turn", resp)
	}
}

func TestProcessResponseSuccessRetargetsIntent(t *testing.T) {
	h := NewHandler(Config{}, nil, nil)
	req := requestWith()
	h.HandleDisambiguation(context.Background(), req, sampleCandidates())

	req.InputTranscript = "1"
	resp := h.ProcessDisambiguationResponse(context.Background(), req)
	if resp != nil {
		t.Fatalf("resp = %v, want nil so dispatch continues", resp)
	}
	if got := req.SessionState.Intent.Name; got != "BookFlight" {
		t.Fatalf("intent = %q, want BookFlight", got)
	}
	if got := req.SessionState.Intent.State; got != lexapi.IntentStateInProgress {
		t.Fatalf("intent state = %q, want InProgress", got)
	}
	if len(req.SessionState.Intent.Slots) != 0 {
		t.Fatalf("slots = %v, want cleared", req.SessionState.Intent.Slots)
	}
	if req.Attributes().DisambiguationActive {
		t.Fatal("disambiguation state not cleared")
	}
}

func TestProcessResponseInvalidSelection(t *testing.T) {
	h := NewHandler(Config{}, nil, nil)
	req := requestWith()
	h.HandleDisambiguation(context.Background(), req, sampleCandidates())

	req.InputTranscript = "invalid"
	resp := h.ProcessDisambiguationResponse(context.Background(), req)
	if resp == nil {
		t.Fatal("expected a fallback response")
	}
	if got, want := resp.SessionState.DialogAction.Type, lexapi.DialogActionClose; got != want {
		t.Fatalf("dialog action = %q, want %q", got, want)
	}
	pt := resp.Messages[0].(lexapi.PlainText)
	if pt.Content != FallbackUnclear {
		t.Fatalf("message = %q, want %q", pt.Content, FallbackUnclear)
	}
	if req.Attributes().DisambiguationActive {
		t.Fatal("disambiguation state not cleared")
	}
}

func TestProcessResponseMissingCandidates(t *testing.T) {
	h := NewHandler(Config{}, nil, nil)
	req := requestWith()
	req.Attributes().DisambiguationActive = true

	resp := h.ProcessDisambiguationResponse(context.Background(), req)
	if resp == nil {
		t.Fatal("expected a fallback response for missing candidates")
	}
	if got, want := resp.SessionState.DialogAction.Type, lexapi.DialogActionClose; got != want {
		t.Fatalf("dialog action = %q, want %q", got, want)
	}
}

func TestHandleDisambiguationGenerationErrorPropagates(t *testing.T) {
	gen := NewGenerator(GenerationConfig{Enabled: true, FallbackToStatic: false}, stubBackend{err: errors.New("backend down")})
	h := NewHandler(Config{}, gen, nil)
	req := requestWith()

	if _, err := h.HandleDisambiguation(context.Background(), req, sampleCandidates()[:2]); err == nil {
		t.Fatal("expected the generation failure to propagate without fallback")
	}
}

func TestHandleDisambiguationGenerationErrorFallsBack(t *testing.T) {
	gen := NewGenerator(GenerationConfig{Enabled: true, FallbackToStatic: true}, stubBackend{err: errors.New("backend down")})
	h := NewHandler(Config{}, gen, nil)
	req := requestWith()

	resp, err := h.HandleDisambiguation(context.Background(), req, sampleCandidates()[:2])
	if err != nil {
		t.Fatalf("HandleDisambiguation: %v", err)
	}
	pt := resp.Messages[0].(lexapi.PlainText)
	if pt.Content != FallbackTwoOptions {
		t.Fatalf("clarification = %q, want the static two-options text", pt.Content)
	}
}

func TestHandleDisambiguationDecoratesFromCatalog(t *testing.T) {
	m := messages.NewManager()
	catalog := "disambiguation:\n  description:\n    BookFlight: \"Book a new flight reservation\"\n"
	if err := m.LoadLocale("en_US", []byte(catalog)); err != nil {
		t.Fatalf("LoadLocale: %v", err)
	}
	h := NewHandler(Config{}, nil, m.Locale("en_US"))
	req := requestWith()

	bare := []IntentCandidate{
		{IntentName: "BookFlight", ConfidenceScore: 0.5, DisplayName: "Book a Flight"},
		{IntentName: "ChangeFlight", ConfidenceScore: 0.45, DisplayName: "Change Flight", Description: "preset"},
	}
	if _, err := h.HandleDisambiguation(context.Background(), req, bare); err != nil {
		t.Fatalf("HandleDisambiguation: %v", err)
	}

	var stored []IntentCandidate
	if err := json.Unmarshal([]byte(req.Attributes().DisambiguationCandidates), &stored); err != nil {
		t.Fatalf("decode stored candidates: %v", err)
	}
	if got, want := stored[0].Description, "Book a new flight reservation"; got != want {
		t.Fatalf("description = %q, want the catalog entry", got)
	}
	if got := stored[1].Description; got != "preset" {
		t.Fatalf("description = %q, want the preset kept", got)
	}
}
