package dialog

import (
	"strings"

	"github.com/antoniostano/lexkit/internal/lexapi"
)

// Preference picks which captured value of a slot to read.
type Preference string

const (
	// PreferInterpreted reads the platform's resolved value, falling back
	// to what the user literally said.
	PreferInterpreted Preference = "interpreted"

	// PreferOriginal reads the user's literal utterance, falling back to
	// the resolved value.
	PreferOriginal Preference = "original"
)

// GetSlot returns the value of a slot on the intent, or "" when the slot
// is absent or unfilled. The default preference is interpreted.
func GetSlot(intent *lexapi.Intent, name string, pref ...Preference) string {
	if intent == nil {
		return ""
	}
	return GetSlotValue(intent.Slots[name], pref...)
}

// GetSlotValue extracts the scalar value of a slot with the given
// preference.
func GetSlotValue(slot *lexapi.SlotValue, pref ...Preference) string {
	if slot == nil || slot.Value == nil {
		return ""
	}
	p := PreferInterpreted
	if len(pref) > 0 {
		p = pref[0]
	}
	if p == PreferOriginal {
		if slot.Value.OriginalValue != "" {
			return slot.Value.OriginalValue
		}
		return slot.Value.InterpretedValue
	}
	if slot.Value.InterpretedValue != "" {
		return slot.Value.InterpretedValue
	}
	return slot.Value.OriginalValue
}

// SetSlot fills a slot on the intent with a scalar value.
func SetSlot(intent *lexapi.Intent, name, value string) {
	if intent.Slots == nil {
		intent.Slots = make(map[string]*lexapi.SlotValue)
	}
	intent.Slots[name] = lexapi.NewSlotValue(value)
}

// GetCompositeSlot returns all sub-slot values of a composite slot keyed
// by sub-slot name, or nil when the slot is absent or has no sub-slots.
// Unfilled sub-slots appear with an empty value.
func GetCompositeSlot(intent *lexapi.Intent, name string, pref ...Preference) map[string]string {
	if intent == nil {
		return nil
	}
	slot := intent.Slots[name]
	if slot == nil || len(slot.SubSlots) == 0 {
		return nil
	}
	out := make(map[string]string, len(slot.SubSlots))
	for sub, v := range slot.SubSlots {
		out[sub] = GetSlotValue(v, pref...)
	}
	return out
}

// GetCompositeSlotSubslot reads one sub-slot of a composite slot.
func GetCompositeSlotSubslot(intent *lexapi.Intent, name, subslot string, pref ...Preference) string {
	if intent == nil {
		return ""
	}
	slot := intent.Slots[name]
	if slot == nil {
		return ""
	}
	return GetSlotValue(slot.SubSlots[subslot], pref...)
}

// SetSubslot fills one sub-slot of a composite slot, creating the parent
// slot when needed.
func SetSubslot(intent *lexapi.Intent, name, subslot, value string) {
	if intent.Slots == nil {
		intent.Slots = make(map[string]*lexapi.SlotValue)
	}
	parent := intent.Slots[name]
	if parent == nil {
		parent = &lexapi.SlotValue{Shape: "Composite"}
		intent.Slots[name] = parent
	}
	if parent.SubSlots == nil {
		parent.SubSlots = make(map[string]*lexapi.SlotValue)
	}
	parent.SubSlots[subslot] = lexapi.NewSlotValue(value)
}

// GetIntent returns the request's intent for in-place mutation.
func GetIntent(req *lexapi.Request) *lexapi.Intent {
	return &req.SessionState.Intent
}

// GetSentiment returns the sentiment label of the top interpretation, or
// "" when the platform supplied none.
func GetSentiment(req *lexapi.Request) string {
	for _, in := range req.Interpretations {
		if in.SentimentResponse != nil {
			return in.SentimentResponse.Sentiment
		}
	}
	return ""
}

// GetActiveContexts returns the request's live contexts. Pruning filters
// the request's slice in place, so the shortened result is written back
// to keep the request and the returned view consistent.
func GetActiveContexts(req *lexapi.Request) []lexapi.Context {
	req.SessionState.ActiveContexts = lexapi.PruneExpiredContexts(req.SessionState.ActiveContexts)
	return req.SessionState.ActiveContexts
}

// RemoveContext drops the named context from the list. The match is
// case-insensitive, mirroring how the platform compares context names.
func RemoveContext(contexts []lexapi.Context, name string) []lexapi.Context {
	if len(contexts) == 0 {
		return contexts
	}
	out := contexts[:0]
	for _, c := range contexts {
		if !strings.EqualFold(c.Name, name) {
			out = append(out, c)
		}
	}
	return out
}

// GetInvocationLabel returns the request's invocation label.
func GetInvocationLabel(req *lexapi.Request) string {
	return req.InvocationLabel
}

// SafeDeleteSessionAttribute removes a session attribute, tolerating keys
// that were never set.
func SafeDeleteSessionAttribute(req *lexapi.Request, key string) {
	req.Attributes().Delete(key)
}
