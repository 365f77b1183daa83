package lexapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Framework-reserved session attribute keys. Bots add their own keys on
// top of these; the reserved ones are never repurposed.
const (
	AttrPreviousDialogActionType = "previous_dialog_action_type"
	AttrPreviousSlotToElicit     = "previous_slot_to_elicit"
	AttrPreviousIntent           = "previous_intent"
	AttrPreviousMessage          = "previous_message"
	AttrOptionsProvided          = "options_provided"
	AttrErrorCount               = "error_count"
	AttrCallbackHandler          = "callback_handler"
	AttrCallbackEvent            = "callback_event"
	AttrDisambiguationActive     = "disambiguation_active"
	AttrDisambiguationCandidates = "disambiguation_candidates"
	AttrChannel                  = "channel"
)

// SessionAttributes is the string-keyed bag the platform persists between
// turns. Reserved framework fields are typed; everything else a bot stores
// lives in Custom. On the wire the whole bag is a flat JSON object; the
// platform serializes booleans and numbers as strings inconsistently, so
// unmarshalling coerces scalars and normalizes "True"/"False".
type SessionAttributes struct {
	PreviousDialogActionType string
	PreviousSlotToElicit     string
	PreviousIntent           string
	PreviousMessage          string
	OptionsProvided          string
	ErrorCount               int
	CallbackHandler          string
	CallbackEvent            string
	DisambiguationActive     bool
	DisambiguationCandidates string
	Channel                  string

	Custom map[string]string
}

func NewSessionAttributes() *SessionAttributes {
	return &SessionAttributes{Custom: make(map[string]string)}
}

// Clone returns a deep copy. Defaults supplied by the caller are cloned
// before the wire overlay so one default instance can serve every turn.
func (a *SessionAttributes) Clone() *SessionAttributes {
	if a == nil {
		return NewSessionAttributes()
	}
	out := *a
	out.Custom = make(map[string]string, len(a.Custom))
	for k, v := range a.Custom {
		out.Custom[k] = v
	}
	return &out
}

// Get reads any attribute by wire key, reserved or custom.
func (a *SessionAttributes) Get(key string) (string, bool) {
	switch key {
	case AttrPreviousDialogActionType:
		return a.PreviousDialogActionType, a.PreviousDialogActionType != ""
	case AttrPreviousSlotToElicit:
		return a.PreviousSlotToElicit, a.PreviousSlotToElicit != ""
	case AttrPreviousIntent:
		return a.PreviousIntent, a.PreviousIntent != ""
	case AttrPreviousMessage:
		return a.PreviousMessage, a.PreviousMessage != ""
	case AttrOptionsProvided:
		return a.OptionsProvided, a.OptionsProvided != ""
	case AttrErrorCount:
		return strconv.Itoa(a.ErrorCount), a.ErrorCount != 0
	case AttrCallbackHandler:
		return a.CallbackHandler, a.CallbackHandler != ""
	case AttrCallbackEvent:
		return a.CallbackEvent, a.CallbackEvent != ""
	case AttrDisambiguationActive:
		return strconv.FormatBool(a.DisambiguationActive), a.DisambiguationActive
	case AttrDisambiguationCandidates:
		return a.DisambiguationCandidates, a.DisambiguationCandidates != ""
	case AttrChannel:
		return a.Channel, a.Channel != ""
	default:
		v, ok := a.Custom[key]
		return v, ok
	}
}

// Set writes any attribute by wire key, routing reserved keys to their
// typed fields and everything else into Custom.
func (a *SessionAttributes) Set(key, value string) {
	switch key {
	case AttrPreviousDialogActionType:
		a.PreviousDialogActionType = value
	case AttrPreviousSlotToElicit:
		a.PreviousSlotToElicit = value
	case AttrPreviousIntent:
		a.PreviousIntent = value
	case AttrPreviousMessage:
		a.PreviousMessage = value
	case AttrOptionsProvided:
		a.OptionsProvided = value
	case AttrErrorCount:
		n, err := strconv.Atoi(value)
		if err == nil {
			a.ErrorCount = n
		}
	case AttrCallbackHandler:
		a.CallbackHandler = value
	case AttrCallbackEvent:
		a.CallbackEvent = value
	case AttrDisambiguationActive:
		a.DisambiguationActive = value == "true"
	case AttrDisambiguationCandidates:
		a.DisambiguationCandidates = value
	case AttrChannel:
		a.Channel = value
	default:
		if a.Custom == nil {
			a.Custom = make(map[string]string)
		}
		a.Custom[key] = value
	}
}

// Delete clears an attribute by wire key.
func (a *SessionAttributes) Delete(key string) {
	switch key {
	case AttrErrorCount:
		a.ErrorCount = 0
	case AttrDisambiguationActive:
		a.DisambiguationActive = false
	default:
		if _, reserved := reservedAttrKeys[key]; reserved {
			a.Set(key, "")
			return
		}
		delete(a.Custom, key)
	}
}

var reservedAttrKeys = map[string]struct{}{
	AttrPreviousDialogActionType: {},
	AttrPreviousSlotToElicit:     {},
	AttrPreviousIntent:           {},
	AttrPreviousMessage:          {},
	AttrOptionsProvided:          {},
	AttrErrorCount:               {},
	AttrCallbackHandler:          {},
	AttrCallbackEvent:            {},
	AttrDisambiguationActive:     {},
	AttrDisambiguationCandidates: {},
	AttrChannel:                  {},
}

// GetBool reads a custom attribute as a boolean.
func (a *SessionAttributes) GetBool(key string) bool {
	v, ok := a.Get(key)
	return ok && v == "true"
}

// GetInt reads a custom attribute as an integer, returning 0 when absent
// or unparsable.
func (a *SessionAttributes) GetInt(key string) int {
	v, ok := a.Get(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// SetBool writes a custom attribute in the normalized boolean form.
func (a *SessionAttributes) SetBool(key string, value bool) {
	a.Set(key, strconv.FormatBool(value))
}

// SetInt writes a custom attribute as a decimal string.
func (a *SessionAttributes) SetInt(key string, value int) {
	a.Set(key, strconv.Itoa(value))
}

// Overlay applies every attribute of src on top of a. Wire values win over
// defaults; keys absent from src are left untouched.
func (a *SessionAttributes) Overlay(src *SessionAttributes) {
	if src == nil {
		return
	}
	for _, key := range src.keys() {
		v, _ := src.Get(key)
		a.Set(key, v)
	}
}

func (a *SessionAttributes) keys() []string {
	var out []string
	for key := range reservedAttrKeys {
		if _, ok := a.Get(key); ok {
			out = append(out, key)
		}
	}
	for key := range a.Custom {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func (a *SessionAttributes) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(a.Custom)+8)
	for _, key := range a.keys() {
		v, _ := a.Get(key)
		flat[key] = v
	}
	return json.Marshal(flat)
}

func (a *SessionAttributes) UnmarshalJSON(raw []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		return fmt.Errorf("session attributes must be an object: %w", err)
	}
	if a.Custom == nil {
		a.Custom = make(map[string]string, len(flat))
	}
	for key, value := range flat {
		a.Set(key, coerceScalar(value))
	}
	return nil
}

// coerceScalar flattens a wire value to its canonical string form. The
// platform round-trips booleans as "true"/"True"/"false"/"False" depending
// on channel, so those are normalized here.
func coerceScalar(value any) string {
	switch v := value.(type) {
	case string:
		switch v {
		case "true", "True":
			return "true"
		case "false", "False":
			return "false"
		}
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
