package lexapi

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultChannel is assumed when the request carries no channel attribute.
const DefaultChannel = "lex"

// ParseError reports an inbound event that could not be turned into a
// Request. Callers decide whether to surface it as a user-visible error.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse lex request: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse lex request: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errMissingIntentName = errors.New("sessionState.intent.name is required")

// ParseRequest converts a raw inbound event into a Request.
//
// Session attributes are built from the caller's defaults with the wire
// values overlaid on top (wire wins). Expired contexts are pruned, and
// request attributes are synced onto the session bag: the platform only
// sends requestAttributes on the first turn of a session, so the sync is a
// one-shot carry-over that is safe to re-apply within a turn.
func ParseRequest(raw []byte, defaults *SessionAttributes) (*Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, &ParseError{Reason: "malformed event", Err: err}
	}

	if req.SessionState.Intent.Name == "" {
		return nil, &ParseError{Reason: "invalid event", Err: errMissingIntentName}
	}
	if req.SessionState.Intent.Slots == nil {
		req.SessionState.Intent.Slots = make(map[string]*SlotValue)
	}

	attrs := defaults.Clone()
	attrs.Overlay(req.SessionState.SessionAttributes)
	req.SessionState.SessionAttributes = attrs

	req.SessionState.ActiveContexts = PruneExpiredContexts(req.SessionState.ActiveContexts)

	applyRequestAttributes(&req)

	return &req, nil
}

// PruneExpiredContexts drops contexts whose turnsToLive has reached zero.
// Handlers never see an expired context.
func PruneExpiredContexts(contexts []Context) []Context {
	if len(contexts) == 0 {
		return contexts
	}
	out := contexts[:0]
	for _, c := range contexts {
		if c.TimeToLive.TurnsToLive != 0 {
			out = append(out, c)
		}
	}
	return out
}

func applyRequestAttributes(req *Request) {
	attrs := req.SessionState.SessionAttributes

	if req.RequestAttributes == nil {
		if attrs.Channel == "" {
			attrs.Channel = DefaultChannel
		}
		return
	}

	if channel, ok := req.RequestAttributes["channel"]; ok && channel != "" {
		attrs.Channel = channel
	} else if attrs.Channel == "" {
		attrs.Channel = DefaultChannel
	}

	for key, value := range req.RequestAttributes {
		if key == "channel" {
			continue
		}
		attrs.Set(key, coerceScalar(value))
	}
}
