// Package turn orchestrates one fulfillment turn end to end: decode the
// platform event, intercept clarification answers, detect ambiguity,
// dispatch the intent handler, resume stashed callbacks and format the
// response for the delivery channel.
package turn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/antoniostano/lexkit/internal/channels"
	"github.com/antoniostano/lexkit/internal/dialog"
	"github.com/antoniostano/lexkit/internal/disambiguation"
	"github.com/antoniostano/lexkit/internal/dispatch"
	"github.com/antoniostano/lexkit/internal/lexapi"
	"github.com/antoniostano/lexkit/internal/lexerr"
	"github.com/antoniostano/lexkit/internal/messages"
	"github.com/antoniostano/lexkit/internal/observability"
	"github.com/antoniostano/lexkit/internal/policy"
	"github.com/antoniostano/lexkit/internal/textgen"
)

// DefaultCallbackFallbackIntent receives control when a callback
// resumption finds nothing to resume.
const DefaultCallbackFallbackIntent = "FallbackIntent"

// Config wires an Orchestrator.
type Config struct {
	// Dispatcher routes intents to handlers. Required.
	Dispatcher *dispatch.Dispatcher

	// DefaultAttributes seeds the session attribute bag before the wire
	// values are overlaid. Nil means an empty bag.
	DefaultAttributes func() *lexapi.SessionAttributes

	// ErrorMessage overrides the generic error text. It is first tried
	// as a message catalog key, then used verbatim.
	ErrorMessage string

	// DisableAutoErrorHandling propagates handler errors to the caller
	// instead of converting them into close responses.
	DisableAutoErrorHandling bool

	// CloseOnUnknownIntent converts IntentNotFoundError into a close
	// response like any other failure. Off by default: a missing handler
	// is a deployment problem and propagates to the caller.
	CloseOnUnknownIntent bool

	// CallbackFallbackIntent is dispatched when a callback resumption
	// has no stashed state. Empty selects the default.
	CallbackFallbackIntent string

	// UnknownChoiceHandler overrides what happens when an elicited slot
	// did not decode. Nil delegates back to the platform.
	UnknownChoiceHandler dialog.UnknownChoiceHandler

	// EnableDisambiguation turns on ambiguity detection.
	EnableDisambiguation bool
	Disambiguation       disambiguation.Config

	// TextGen, when set together with Disambiguation.Generation.Enabled,
	// rewrites clarification prompts.
	TextGen textgen.Adapter

	// Messages supplies localized response text. Optional.
	Messages *messages.Manager

	Metrics *observability.Metrics
	Stages  *observability.StageWindow
	Logger  *log.Logger
}

// Orchestrator processes turns. Safe for concurrent use.
type Orchestrator struct {
	cfg      Config
	analyzer *disambiguation.Analyzer
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("turn orchestrator requires a dispatcher")
	}
	if cfg.CallbackFallbackIntent == "" {
		cfg.CallbackFallbackIntent = DefaultCallbackFallbackIntent
	}
	o := &Orchestrator{cfg: cfg}
	if cfg.EnableDisambiguation {
		o.analyzer = disambiguation.NewAnalyzer(cfg.Disambiguation)
	}
	return o, nil
}

// HandleTurn processes one raw platform event and returns the encoded
// response. A malformed event yields a minimal close response rather
// than an error, so the platform always gets something to say.
func (o *Orchestrator) HandleTurn(ctx context.Context, raw []byte) ([]byte, error) {
	started := time.Now()
	defer func() {
		o.cfg.Metrics.ObserveTurnDuration(time.Since(started))
	}()

	parseStart := time.Now()
	req, err := lexapi.ParseRequest(raw, o.defaults())
	o.cfg.Stages.ObserveSince(observability.StageParse, parseStart)
	if err != nil {
		o.logf("turn: parse request: %v", err)
		o.cfg.Metrics.CountTurn("parse_error")
		return json.Marshal(o.parseFailureResponse())
	}

	resp, err := o.HandleRequest(ctx, req)
	if err != nil {
		o.cfg.Metrics.CountTurn("error")
		return nil, err
	}

	formatStart := time.Now()
	resp = channels.FormatForChannel(resp, req.Attributes().Channel)
	o.cfg.Stages.ObserveSince(observability.StageFormat, formatStart)

	o.cfg.Metrics.CountTurn("ok")
	return json.Marshal(resp)
}

// HandleRequest runs the pipeline on an already-decoded request. With
// auto error handling (the default) the returned error is always nil and
// failures surface as close responses.
func (o *Orchestrator) HandleRequest(ctx context.Context, req *lexapi.Request) (*lexapi.Response, error) {
	ctx = dispatch.WithTurn(ctx)

	if dialog.AnyUnknownSlotChoices(req) {
		return dialog.HandleUnknownSlotChoice(req, o.cfg.UnknownChoiceHandler), nil
	}

	if resp, err := o.interceptDisambiguation(ctx, req); err != nil {
		return o.handleError(err, req)
	} else if resp != nil {
		return resp, nil
	}

	dispatchStart := time.Now()
	resp, err := o.cfg.Dispatcher.Dispatch(ctx, req.SessionState.Intent.Name, req)
	o.cfg.Stages.ObserveSince(observability.StageDispatch, dispatchStart)
	if err != nil {
		return o.handleError(err, req)
	}

	if target := resp.RequestAttributes["callback"]; target != "" {
		delete(resp.RequestAttributes, "callback")
		if o.cfg.Metrics != nil {
			o.cfg.Metrics.CallbackResumes.Inc()
		}
		preceding := resp.Messages
		resp, err = o.cfg.Dispatcher.Dispatch(ctx, target, req)
		if err != nil {
			return o.handleError(err, req)
		}
		resp.Messages = append(append(lexapi.Messages{}, preceding...), resp.Messages...)
	}

	return resp, nil
}

// interceptDisambiguation handles both clarification turns. It first
// checks whether this turn answers a pending clarification; if not, and
// detection is enabled, it analyzes the interpretations and asks the
// user to choose when no clear intent wins.
func (o *Orchestrator) interceptDisambiguation(ctx context.Context, req *lexapi.Request) (*lexapi.Response, error) {
	if !o.cfg.EnableDisambiguation {
		return nil, nil
	}
	handler := disambiguation.NewHandler(o.cfg.Disambiguation, o.generator(), o.catalog(req))
	attrs := req.Attributes()

	if attrs.DisambiguationActive {
		disambigStart := time.Now()
		resp := handler.ProcessDisambiguationResponse(ctx, req)
		o.cfg.Stages.ObserveSince(observability.StageDisambiguation, disambigStart)
		if resp != nil {
			o.cfg.Metrics.CountDisambiguation("fallback")
			return resp, nil
		}
		o.cfg.Metrics.CountDisambiguation("resolved")
		return nil, nil
	}

	// Never second-guess a turn that answers a slot prompt.
	if attrs.PreviousDialogActionType == lexapi.DialogActionElicitSlot {
		return nil, nil
	}
	if req.InvocationSource == lexapi.InvocationFulfillmentCodeHook {
		return nil, nil
	}

	disambigStart := time.Now()
	result := o.analyzer.AnalyzeRequest(req)
	if !result.ShouldDisambiguate {
		o.cfg.Stages.ObserveSince(observability.StageDisambiguation, disambigStart)
		return nil, nil
	}
	resp, err := handler.HandleDisambiguation(ctx, req, result.Candidates)
	o.cfg.Stages.ObserveSince(observability.StageDisambiguation, disambigStart)
	if err != nil {
		return nil, err
	}
	o.cfg.Metrics.CountDisambiguation("triggered")
	o.cfg.Stages.ObserveIndicator("disambiguation_triggered")
	return resp, nil
}

func (o *Orchestrator) handleError(err error, req *lexapi.Request) (*lexapi.Response, error) {
	o.logf("turn: intent %s: %v", req.SessionState.Intent.Name, err)
	o.cfg.Metrics.CountHandlerError(lexerr.TypeName(err))
	if o.cfg.DisableAutoErrorHandling {
		return nil, err
	}
	// An unregistered intent is a bot misconfiguration. It propagates so
	// the integrator sees it instead of the user getting a polite close.
	var notFound *lexerr.IntentNotFoundError
	if errors.As(err, &notFound) && !o.cfg.CloseOnUnknownIntent {
		return nil, err
	}
	return lexerr.Convert(err, req, lexerr.Options{
		ErrorMessage: o.cfg.ErrorMessage,
		Lookup:       o.catalog(req).Lookup,
	}), nil
}

func (o *Orchestrator) parseFailureResponse() *lexapi.Response {
	return &lexapi.Response{
		SessionState: lexapi.SessionState{
			SessionAttributes: lexapi.NewSessionAttributes(),
			Intent: lexapi.Intent{
				Name:  o.cfg.CallbackFallbackIntent,
				State: lexapi.IntentStateFailed,
			},
			DialogAction: &lexapi.DialogAction{Type: lexapi.DialogActionClose},
		},
		Messages: lexapi.Messages{lexapi.PlainText{Content: lexerr.MsgGenericError}},
	}
}

func (o *Orchestrator) generator() *disambiguation.Generator {
	if o.cfg.TextGen == nil {
		return nil
	}
	return disambiguation.NewGenerator(o.cfg.Disambiguation.Generation, o.cfg.TextGen)
}

func (o *Orchestrator) catalog(req *lexapi.Request) *messages.View {
	if o.cfg.Messages == nil {
		return nil
	}
	return o.cfg.Messages.Locale(req.Locale())
}

func (o *Orchestrator) defaults() *lexapi.SessionAttributes {
	if o.cfg.DefaultAttributes == nil {
		return lexapi.NewSessionAttributes()
	}
	return o.cfg.DefaultAttributes()
}

// logf writes through the configured logger. Handler errors can quote
// what the user typed, so the rendered line is scrubbed of PII first.
func (o *Orchestrator) logf(format string, args ...any) {
	if o.cfg.Logger == nil {
		return
	}
	line, _ := policy.Scrub(fmt.Sprintf(format, args...))
	o.cfg.Logger.Print(line)
}
