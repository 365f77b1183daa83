// Package dialog provides the primitives intent handlers use to advance or
// end a conversation turn: close, delegate, elicit, transition and the
// callback handoff, plus accessors over slots and contexts.
//
// Every primitive mutates the request's session state in place, stamps
// previous_dialog_action_type with its own name so the next turn can tell
// what happened, and returns the response to hand back to the platform.
package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antoniostano/lexkit/internal/lexapi"
)

// Dispatcher routes an intent name to its handler. It is satisfied by
// dispatch.Dispatcher; the indirection lets transition primitives re-enter
// dispatch without an import cycle.
type Dispatcher interface {
	Dispatch(ctx context.Context, intentName string, req *lexapi.Request) (*lexapi.Response, error)
}

// Close ends the conversation. The platform will not re-invoke the dialog
// hook until the user speaks again with a new intent.
func Close(req *lexapi.Request, messages lexapi.Messages) *lexapi.Response {
	attrs := req.Attributes()
	attrs.PreviousDialogActionType = lexapi.DialogActionClose
	req.SessionState.Intent.State = lexapi.IntentStateFulfilled

	return &lexapi.Response{
		SessionState: lexapi.SessionState{
			ActiveContexts:    lexapi.PruneExpiredContexts(req.SessionState.ActiveContexts),
			SessionAttributes: attrs,
			Intent:            req.SessionState.Intent,
			DialogAction:      &lexapi.DialogAction{Type: lexapi.DialogActionClose},
		},
		Messages:          messages,
		RequestAttributes: map[string]string{},
	}
}

// Delegate hands the conversation back to the platform, typically after
// all slots are filled or to let the platform retry validation.
func Delegate(req *lexapi.Request) *lexapi.Response {
	attrs := req.Attributes()
	attrs.PreviousDialogActionType = lexapi.DialogActionDelegate
	req.SessionState.Intent.State = lexapi.IntentStateReadyForFulfillment

	return &lexapi.Response{
		SessionState: lexapi.SessionState{
			ActiveContexts:    lexapi.PruneExpiredContexts(req.SessionState.ActiveContexts),
			SessionAttributes: attrs,
			Intent:            req.SessionState.Intent,
			DialogAction:      &lexapi.DialogAction{Type: lexapi.DialogActionDelegate},
		},
		Messages:          lexapi.Messages{},
		RequestAttributes: map[string]string{},
	}
}

// ElicitIntent asks the user what they want to do next. Button labels of
// any image cards are remembered in options_provided so a later
// single-character reply can be matched against what was shown.
func ElicitIntent(req *lexapi.Request, messages lexapi.Messages) *lexapi.Response {
	attrs := req.Attributes()
	attrs.PreviousDialogActionType = lexapi.DialogActionElicitIntent
	attrs.PreviousSlotToElicit = ""
	attrs.OptionsProvided = encodeOptions(messages)
	req.SessionState.Intent.State = lexapi.IntentStateFulfilled

	return &lexapi.Response{
		SessionState: lexapi.SessionState{
			ActiveContexts:    lexapi.PruneExpiredContexts(req.SessionState.ActiveContexts),
			SessionAttributes: attrs,
			Intent:            req.SessionState.Intent,
			DialogAction:      &lexapi.DialogAction{Type: lexapi.DialogActionElicitIntent},
		},
		Messages:          messages,
		RequestAttributes: map[string]string{},
	}
}

// ElicitSlot prompts the user for one slot of the current intent.
//
// The slot is recorded in previous_slot_to_elicit under the composite key
// "<IntentNameNoUnderscores>Slot.<SLOT_NAME_UPPER>"; a slot name that
// itself contains a dot would break that scheme and is rejected as an
// internal-consistency fault.
func ElicitSlot(req *lexapi.Request, slotName string, messages lexapi.Messages) (*lexapi.Response, error) {
	if strings.Contains(slotName, ".") {
		return nil, fmt.Errorf("slot name %q must not contain a dot", slotName)
	}

	intent := &req.SessionState.Intent
	attrs := req.Attributes()

	intent.State = lexapi.IntentStateInProgress
	attrs.OptionsProvided = encodeOptions(messages)
	attrs.PreviousIntent = intent.Name
	attrs.PreviousMessage = lexapi.EncodeMessages(messages)
	attrs.PreviousDialogActionType = lexapi.DialogActionElicitSlot
	attrs.PreviousSlotToElicit = CompositeSlotKey(intent.Name, slotName)

	return &lexapi.Response{
		SessionState: lexapi.SessionState{
			ActiveContexts:    lexapi.PruneExpiredContexts(req.SessionState.ActiveContexts),
			SessionAttributes: attrs,
			Intent:            *intent,
			DialogAction: &lexapi.DialogAction{
				Type:         lexapi.DialogActionElicitSlot,
				SlotToElicit: slotName,
			},
		},
		Messages:          messages,
		RequestAttributes: map[string]string{},
	}, nil
}

// CompositeSlotKey builds the previous_slot_to_elicit identifier for a
// slot of an intent.
func CompositeSlotKey(intentName, slotName string) string {
	return strings.ReplaceAll(intentName, "_", "") + "Slot." + strings.ToUpper(slotName)
}

// SlotFromCompositeKey resolves a composite previous_slot_to_elicit key
// back to the intent's actual slot name. The composite form uppercases the
// slot, so the match against the intent's slot keys is case-insensitive.
func SlotFromCompositeKey(intent *lexapi.Intent, key string) (string, bool) {
	_, upper, found := strings.Cut(key, ".")
	if !found {
		return "", false
	}
	for name := range intent.Slots {
		if strings.ToUpper(name) == upper {
			return name, true
		}
	}
	return "", false
}

// TransitionOptions tunes TransitionToIntent and TransitionToCallback.
type TransitionOptions struct {
	// InvocationLabel overrides the request's invocation label when
	// non-empty.
	InvocationLabel string

	// KeepSlots leaves the current intent in place, name and slots,
	// instead of resetting it for the target intent. The target handler
	// still runs either way.
	KeepSlots bool
}

// TransitionToIntent hands the turn to another intent's handler
// synchronously, prepending the caller's messages to whatever the target
// returns. Use it when intent A decides intent B should speak next while
// still surfacing A's own message first.
func TransitionToIntent(ctx context.Context, d Dispatcher, req *lexapi.Request, intentName string, messages lexapi.Messages, opts *TransitionOptions) (*lexapi.Response, error) {
	retarget(req, intentName, opts)

	resp, err := d.Dispatch(ctx, intentName, req)
	if err != nil {
		return nil, err
	}
	if len(messages) > 0 {
		resp.Messages = append(append(lexapi.Messages{}, messages...), resp.Messages...)
	}
	return resp, nil
}

// TransitionToCallback defers the handoff: the target intent name is
// stashed in the response's requestAttributes under "callback" and the
// orchestrator invokes it after the current response pipeline has run.
// Unlike TransitionToIntent, the caller's messages are not prepended to
// the callback handler's output; they simply precede it in the final list.
func TransitionToCallback(req *lexapi.Request, intentName string, messages lexapi.Messages, opts *TransitionOptions) *lexapi.Response {
	retarget(req, intentName, opts)

	if req.RequestAttributes == nil {
		req.RequestAttributes = make(map[string]string)
	}
	req.RequestAttributes["callback"] = intentName

	return &lexapi.Response{
		SessionState:      req.SessionState,
		Messages:          messages,
		RequestAttributes: req.RequestAttributes,
	}
}

// retarget prepares the request for a handoff. Keeping the slots also
// keeps the intent name: the target handler works on the source intent's
// data and the dispatch target alone decides who runs.
func retarget(req *lexapi.Request, intentName string, opts *TransitionOptions) {
	keepSlots := opts != nil && opts.KeepSlots
	if !keepSlots {
		req.SessionState.Intent.Slots = make(map[string]*lexapi.SlotValue)
		req.SessionState.Intent.Name = intentName
	}
	if opts != nil && opts.InvocationLabel != "" {
		req.InvocationLabel = opts.InvocationLabel
	}
}

// RepromptSlot re-elicits the slot recorded by the previous turn with an
// empty message list, letting the platform replay its own last prompt.
// Without a previous slot it delegates instead.
func RepromptSlot(req *lexapi.Request) (*lexapi.Response, error) {
	attrs := req.Attributes()
	if attrs.PreviousSlotToElicit == "" {
		return Delegate(req), nil
	}
	slotName, ok := SlotFromCompositeKey(&req.SessionState.Intent, attrs.PreviousSlotToElicit)
	if !ok {
		return Delegate(req), nil
	}
	return ElicitSlot(req, slotName, lexapi.Messages{})
}

func encodeOptions(messages lexapi.Messages) string {
	labels := lexapi.ButtonLabels(messages)
	if labels == nil {
		labels = []string{}
	}
	raw, err := json.Marshal(labels)
	if err != nil {
		return "[]"
	}
	return string(raw)
}
