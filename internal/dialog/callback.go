package dialog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/antoniostano/lexkit/internal/lexapi"
)

// CallbackOriginalIntentHandler resumes the conversation that a detour
// (such as an authentication flow) interrupted.
//
// Resolution order:
//
//  1. A stashed callback_event is replayed verbatim, except that the
//     current session attributes win over the snapshot's.
//  2. Otherwise a recorded callback_handler is dispatched against the
//     current request with its slots cleared.
//  3. With neither recorded, fallbackIntent is dispatched.
//
// The caller's messages, if any, are prepended to the resumed handler's
// output.
func CallbackOriginalIntentHandler(ctx context.Context, d Dispatcher, req *lexapi.Request, fallbackIntent string, messages lexapi.Messages) (*lexapi.Response, error) {
	attrs := req.Attributes()
	event := attrs.CallbackEvent
	handler := attrs.CallbackHandler

	if event == "" && handler == "" {
		return prepend(messages)(d.Dispatch(ctx, fallbackIntent, req))
	}

	attrs.CallbackEvent = ""
	attrs.CallbackHandler = ""

	if event != "" {
		var replay lexapi.Request
		if err := json.Unmarshal([]byte(event), &replay); err != nil {
			return nil, fmt.Errorf("decode callback_event: %w", err)
		}
		replay.SessionState.SessionAttributes = attrs
		if replay.SessionState.Intent.Slots == nil {
			replay.SessionState.Intent.Slots = make(map[string]*lexapi.SlotValue)
		}
		target := handler
		if target == "" {
			target = replay.SessionState.Intent.Name
		}
		return prepend(messages)(d.Dispatch(ctx, target, &replay))
	}

	req.SessionState.Intent.Name = handler
	req.SessionState.Intent.Slots = make(map[string]*lexapi.SlotValue)
	return prepend(messages)(d.Dispatch(ctx, handler, req))
}

func prepend(messages lexapi.Messages) func(*lexapi.Response, error) (*lexapi.Response, error) {
	return func(resp *lexapi.Response, err error) (*lexapi.Response, error) {
		if err != nil {
			return nil, err
		}
		if len(messages) > 0 {
			resp.Messages = append(append(lexapi.Messages{}, messages...), resp.Messages...)
		}
		return resp, nil
	}
}

// AnyUnknownSlotChoices reports whether the previous turn elicited a slot
// whose captured value does not decode to a plain string. When the value
// is fine, or nothing was elicited, the error counter resets and the turn
// proceeds normally.
func AnyUnknownSlotChoices(req *lexapi.Request) bool {
	attrs := req.Attributes()
	if attrs.PreviousDialogActionType != lexapi.DialogActionElicitSlot {
		attrs.ErrorCount = 0
		return false
	}
	slot, ok := req.SessionState.Intent.Slots[attrs.PreviousSlotToElicit]
	if !ok || slot == nil || slot.Value != nil {
		attrs.ErrorCount = 0
		return false
	}
	return true
}

// UnknownChoiceHandler decides what to do when AnyUnknownSlotChoices fires.
type UnknownChoiceHandler func(req *lexapi.Request) *lexapi.Response

// HandleUnknownSlotChoice invokes the configured strategy, or delegates
// back to the platform when none is set.
func HandleUnknownSlotChoice(req *lexapi.Request, strategy UnknownChoiceHandler) *lexapi.Response {
	if strategy != nil {
		return strategy(req)
	}
	return Delegate(req)
}
