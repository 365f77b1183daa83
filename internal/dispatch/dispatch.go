// Package dispatch routes incoming intents to their registered handlers.
//
// Handlers are registered under normalized snake_case names; the platform
// may deliver either "BookFlight" or "book_flight" and both reach the
// same handler. Re-entrant dispatch (intent transitions, callback
// resumption) runs on a per-turn hop counter so a handler cycle cannot
// spin forever.
package dispatch

import (
	"context"
	"strings"

	"github.com/antoniostano/lexkit/internal/lexapi"
	"github.com/antoniostano/lexkit/internal/lexerr"
)

// MaxHops bounds how many handler invocations a single turn may chain
// through transitions before dispatch fails closed.
const MaxHops = 5

// HandlerFunc is one intent's handler.
type HandlerFunc func(ctx context.Context, req *lexapi.Request) (*lexapi.Response, error)

// Registry maps normalized intent names to handlers.
type Registry struct {
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler to an intent name. Later registrations for the
// same normalized name win, which lets a bot override a stock handler.
func (r *Registry) Register(intentName string, h HandlerFunc) {
	r.handlers[NormalizeIntentName(intentName)] = h
}

// Lookup resolves an intent name to its handler.
func (r *Registry) Lookup(intentName string) (HandlerFunc, bool) {
	h, ok := r.handlers[NormalizeIntentName(intentName)]
	return h, ok
}

// Intents lists the registered normalized intent names.
func (r *Registry) Intents() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}

// NormalizeIntentName converts an intent name to snake_case. A name that
// already contains an underscore is only lowercased; otherwise an
// underscore is inserted before every interior uppercase letter.
func NormalizeIntentName(name string) string {
	if strings.Contains(name, "_") {
		return strings.ToLower(name)
	}
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// Dispatcher invokes handlers out of a registry.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

type hopKey struct{}

// WithTurn seeds a fresh hop counter for one inbound turn. Dispatch calls
// that share the returned context share the counter.
func WithTurn(ctx context.Context) context.Context {
	return context.WithValue(ctx, hopKey{}, new(int))
}

// Dispatch runs the handler for intentName. An unregistered intent yields
// an IntentNotFoundError; handler errors propagate unchanged so the
// caller decides how to surface them.
func (d *Dispatcher) Dispatch(ctx context.Context, intentName string, req *lexapi.Request) (*lexapi.Response, error) {
	hops, ok := ctx.Value(hopKey{}).(*int)
	if !ok {
		ctx = WithTurn(ctx)
		hops = ctx.Value(hopKey{}).(*int)
	}
	*hops++
	if *hops > MaxHops {
		return nil, &lexerr.TransitionLimitError{Limit: MaxHops}
	}

	handler, found := d.registry.Lookup(intentName)
	if !found {
		return nil, &lexerr.IntentNotFoundError{Intent: intentName}
	}
	if handler == nil {
		return nil, &lexerr.HandlerInvalidError{Intent: intentName}
	}
	return handler(ctx, req)
}
