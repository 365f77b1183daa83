package lexapi

import (
	"errors"
	"testing"
)

const sampleEvent = `{
	"sessionId": "session-1",
	"inputTranscript": "book a flight",
	"invocationSource": "DialogCodeHook",
	"bot": {"name": "airline", "localeId": "en_US"},
	"requestAttributes": {"channel": "sms", "greeting_shown": "True"},
	"sessionState": {
		"intent": {
			"name": "book_flight",
			"slots": {"OriginCity": {"value": {"originalValue": "rome", "interpretedValue": "Rome"}}}
		},
		"sessionAttributes": {"error_count": "2", "vip": "True"},
		"activeContexts": [
			{"name": "fresh", "timeToLive": {"turnsToLive": 3, "timeToLiveInSeconds": 300}},
			{"name": "stale", "timeToLive": {"turnsToLive": 0, "timeToLiveInSeconds": 300}}
		]
	}
}`

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(sampleEvent), nil)
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}

	if req.SessionID != "session-1" {
		t.Fatalf("SessionID = %q", req.SessionID)
	}
	if req.SessionState.Intent.Name != "book_flight" {
		t.Fatalf("intent = %q", req.SessionState.Intent.Name)
	}

	attrs := req.Attributes()
	if attrs.ErrorCount != 2 {
		t.Fatalf("ErrorCount = %d, want 2", attrs.ErrorCount)
	}
	if attrs.Channel != "sms" {
		t.Fatalf("Channel = %q, want sms", attrs.Channel)
	}
	// "True" normalizes; non-boolean strings pass through.
	if attrs.Custom["vip"] != "true" {
		t.Fatalf("vip = %q, want true", attrs.Custom["vip"])
	}
	// Non-channel request attributes are carried onto the session bag.
	if attrs.Custom["greeting_shown"] != "true" {
		t.Fatalf("greeting_shown = %q, want true", attrs.Custom["greeting_shown"])
	}
}

func TestParseRequestPrunesExpiredContexts(t *testing.T) {
	req, err := ParseRequest([]byte(sampleEvent), nil)
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	contexts := req.SessionState.ActiveContexts
	if len(contexts) != 1 || contexts[0].Name != "fresh" {
		t.Fatalf("active contexts = %+v, want only the fresh one", contexts)
	}
}

func TestParseRequestDefaultsChannel(t *testing.T) {
	raw := []byte(`{"sessionState": {"intent": {"name": "greeting"}}}`)
	req, err := ParseRequest(raw, nil)
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if got := req.Attributes().Channel; got != DefaultChannel {
		t.Fatalf("Channel = %q, want %q", got, DefaultChannel)
	}
	if req.SessionState.Intent.Slots == nil {
		t.Fatal("slots map should be allocated")
	}
}

func TestParseRequestOverlaysDefaults(t *testing.T) {
	defaults := NewSessionAttributes()
	defaults.Custom["tier"] = "standard"
	defaults.Custom["vip"] = "false"

	req, err := ParseRequest([]byte(sampleEvent), defaults)
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}

	attrs := req.Attributes()
	if attrs.Custom["tier"] != "standard" {
		t.Fatalf("tier = %q, want the default carried through", attrs.Custom["tier"])
	}
	if attrs.Custom["vip"] != "true" {
		t.Fatalf("vip = %q, want the wire value to win", attrs.Custom["vip"])
	}
	// The shared defaults instance must not be mutated.
	if defaults.Custom["vip"] != "false" {
		t.Fatalf("defaults mutated: vip = %q", defaults.Custom["vip"])
	}
}

func TestParseRequestRejectsMalformedEvent(t *testing.T) {
	_, err := ParseRequest([]byte(`{"sessionState":`), nil)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
}

func TestParseRequestRequiresIntentName(t *testing.T) {
	_, err := ParseRequest([]byte(`{"sessionState": {"intent": {"slots": {}}}}`), nil)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if !errors.Is(err, errMissingIntentName) {
		t.Fatalf("err = %v, want missing intent name cause", err)
	}
}

func BenchmarkParseRequest(b *testing.B) {
	raw := []byte(sampleEvent)
	for i := 0; i < b.N; i++ {
		if _, err := ParseRequest(raw, nil); err != nil {
			b.Fatal(err)
		}
	}
}
