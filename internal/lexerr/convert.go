package lexerr

import (
	"errors"

	"github.com/antoniostano/lexkit/internal/lexapi"
)

// User-facing fallback strings, matching the per-error-kind policy: the
// precise cause is logged, never shown.
const (
	MsgIntentNotFound = "I'm not sure how to handle that request."
	MsgInvalidInput   = "Invalid input provided."
	MsgSessionIssue   = "There was an issue with your session. Please start over."
	MsgGenericError   = "I'm sorry, I encountered an error while processing your request. Please try again."
)

// Options tunes how Convert resolves the generic error message.
type Options struct {
	// ErrorMessage is a message-catalog key or a literal string. Keys are
	// tried first; on lookup failure the value is used verbatim.
	ErrorMessage string

	// Lookup resolves a catalog key. Nil disables catalog resolution.
	Lookup func(key string) (string, error)
}

// Convert maps any error escaping a handler or the turn pipeline into a
// terminal Close response so the conversation never gets stuck. The
// session state of the request is preserved; originatingRequestId echoes
// the inbound session id for correlation.
func Convert(err error, req *lexapi.Request, opts Options) *lexapi.Response {
	attrs := req.Attributes()
	attrs.ErrorCount++
	attrs.PreviousDialogActionType = lexapi.DialogActionClose

	intent := req.SessionState.Intent
	intent.State = lexapi.IntentStateFulfilled

	return &lexapi.Response{
		SessionState: lexapi.SessionState{
			ActiveContexts:       lexapi.PruneExpiredContexts(req.SessionState.ActiveContexts),
			SessionAttributes:    attrs,
			Intent:               intent,
			DialogAction:         &lexapi.DialogAction{Type: lexapi.DialogActionClose},
			OriginatingRequestID: req.SessionID,
		},
		Messages:          lexapi.Messages{lexapi.PlainText{Content: userMessage(err, opts)}},
		RequestAttributes: map[string]string{},
	}
}

func userMessage(err error, opts Options) string {
	var notFound *IntentNotFoundError
	if errors.As(err, &notFound) {
		return MsgIntentNotFound
	}
	var invalid *HandlerInvalidError
	if errors.As(err, &invalid) {
		return MsgIntentNotFound
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		if validation.Message != "" {
			return validation.Message
		}
		return MsgInvalidInput
	}
	var session *SessionError
	if errors.As(err, &session) {
		return MsgSessionIssue
	}
	return genericMessage(opts)
}

// genericMessage resolves the configured fallback: catalog key first,
// literal string second, hardcoded default third.
func genericMessage(opts Options) string {
	if opts.ErrorMessage == "" {
		return MsgGenericError
	}
	if opts.Lookup != nil {
		if msg, err := opts.Lookup(opts.ErrorMessage); err == nil && msg != "" {
			return msg
		}
	}
	return opts.ErrorMessage
}
