// Package airline is the sample bot shipped with the service. It exercises
// the full dialog toolkit: slot elicitation, authentication detours with
// callback resumption, transitions and a reservation store.
package airline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antoniostano/lexkit/internal/dialog"
	"github.com/antoniostano/lexkit/internal/dispatch"
	"github.com/antoniostano/lexkit/internal/lexapi"
	"github.com/antoniostano/lexkit/internal/reservations"
)

// Slot names used by the booking intents.
const (
	SlotOriginCity      = "OriginCity"
	SlotDestinationCity = "DestinationCity"
	SlotDepartureDate   = "DepartureDate"
	SlotConfirmation    = "Confirmation"
)

const (
	attrAuthenticated    = "authenticated"
	attrLastConfirmation = "last_confirmation"
)

// Bot wires the airline intent handlers to a reservation store.
type Bot struct {
	store      reservations.Store
	dispatcher dialog.Dispatcher
}

func New(store reservations.Store) *Bot {
	return &Bot{store: store}
}

// Register installs the bot's handlers. The dispatcher is kept so that
// handlers can resume interrupted intents.
func (b *Bot) Register(reg *dispatch.Registry, d dialog.Dispatcher) {
	b.dispatcher = d
	reg.Register("greeting", b.Greeting)
	reg.Register("authenticate", b.Authenticate)
	reg.Register("book_flight", b.BookFlight)
	reg.Register("change_flight", b.ChangeFlight)
	reg.Register("cancel_flight", b.CancelFlight)
	reg.Register("flight_delay_update", b.FlightDelayUpdate)
	reg.Register("track_baggage", b.TrackBaggage)
	reg.Register("goodbye", b.Goodbye)
	reg.Register("anything_else", b.AnythingElse)
	reg.Register("fallback_intent", b.Fallback)
}

func (b *Bot) Greeting(_ context.Context, req *lexapi.Request) (*lexapi.Response, error) {
	return dialog.ElicitIntent(req, lexapi.Messages{
		lexapi.PlainText{Content: "Hi! I'm your airline assistant."},
		lexapi.ImageResponseCard{Card: lexapi.ImageCard{
			Title: "What can I help you with?",
			Buttons: []lexapi.Button{
				lexapi.NewButton("Book a flight"),
				lexapi.NewButton("Change a flight"),
				lexapi.NewButton("Track baggage"),
			},
		}},
	}), nil
}

// Authenticate simulates a sign-in step and resumes whatever intent sent
// the user here.
func (b *Bot) Authenticate(ctx context.Context, req *lexapi.Request) (*lexapi.Response, error) {
	req.Attributes().Custom[attrAuthenticated] = "true"
	return dialog.CallbackOriginalIntentHandler(ctx, b.dispatcher, req, "greeting",
		lexapi.Messages{lexapi.PlainText{Content: "You're signed in."}})
}

func (b *Bot) BookFlight(ctx context.Context, req *lexapi.Request) (*lexapi.Response, error) {
	attrs := req.Attributes()
	if attrs.Custom[attrAuthenticated] != "true" {
		return b.requireAuth(req)
	}

	intent := dialog.GetIntent(req)
	origin := dialog.GetSlot(intent, SlotOriginCity)
	destination := dialog.GetSlot(intent, SlotDestinationCity)
	departure := dialog.GetSlot(intent, SlotDepartureDate)

	switch {
	case origin == "":
		return dialog.ElicitSlot(req, SlotOriginCity,
			lexapi.Messages{lexapi.PlainText{Content: "Which city are you flying from?"}})
	case destination == "":
		return dialog.ElicitSlot(req, SlotDestinationCity,
			lexapi.Messages{lexapi.PlainText{Content: "Where would you like to fly to?"}})
	case departure == "":
		return dialog.ElicitSlot(req, SlotDepartureDate,
			lexapi.Messages{lexapi.PlainText{Content: "What date would you like to depart?"}})
	}

	saved, err := b.store.Save(ctx, reservations.Reservation{
		SessionID:       req.SessionID,
		OriginCity:      origin,
		DestinationCity: destination,
		DepartureDate:   departure,
		Passengers:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("book flight: %w", err)
	}
	attrs.Custom[attrLastConfirmation] = saved.Confirmation

	return dialog.Close(req, lexapi.Messages{lexapi.PlainText{
		Content: fmt.Sprintf("Your flight from %s to %s on %s is booked. Confirmation code: %s.",
			origin, destination, departure, saved.Confirmation),
	}}), nil
}

func (b *Bot) ChangeFlight(ctx context.Context, req *lexapi.Request) (*lexapi.Response, error) {
	confirmation, resp, err := b.resolveConfirmation(req, "Which confirmation code should I change?")
	if resp != nil || err != nil {
		return resp, err
	}

	intent := dialog.GetIntent(req)
	departure := dialog.GetSlot(intent, SlotDepartureDate)
	if departure == "" {
		return dialog.ElicitSlot(req, SlotDepartureDate,
			lexapi.Messages{lexapi.PlainText{Content: "What new departure date would you like?"}})
	}

	r, err := b.store.Get(ctx, confirmation)
	if err != nil {
		return b.notFound(req, confirmation)
	}
	r.DepartureDate = departure
	r.Status = reservations.StatusChanged
	if _, err := b.store.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("change flight: %w", err)
	}

	return dialog.Close(req, lexapi.Messages{lexapi.PlainText{
		Content: fmt.Sprintf("Done. Reservation %s now departs on %s.", r.Confirmation, departure),
	}}), nil
}

func (b *Bot) CancelFlight(ctx context.Context, req *lexapi.Request) (*lexapi.Response, error) {
	confirmation, resp, err := b.resolveConfirmation(req, "Which confirmation code should I cancel?")
	if resp != nil || err != nil {
		return resp, err
	}

	r, err := b.store.Get(ctx, confirmation)
	if err != nil {
		return b.notFound(req, confirmation)
	}
	r.Status = reservations.StatusCancelled
	if _, err := b.store.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("cancel flight: %w", err)
	}

	return dialog.Close(req, lexapi.Messages{lexapi.PlainText{
		Content: fmt.Sprintf("Reservation %s is cancelled.", r.Confirmation),
	}}), nil
}

func (b *Bot) FlightDelayUpdate(ctx context.Context, req *lexapi.Request) (*lexapi.Response, error) {
	confirmation, resp, err := b.resolveConfirmation(req, "Which confirmation code should I check for delays?")
	if resp != nil || err != nil {
		return resp, err
	}

	r, err := b.store.Get(ctx, confirmation)
	if err != nil {
		return b.notFound(req, confirmation)
	}

	return dialog.Close(req, lexapi.Messages{lexapi.PlainText{
		Content: fmt.Sprintf("Your flight from %s to %s on %s is on time.",
			r.OriginCity, r.DestinationCity, r.DepartureDate),
	}}), nil
}

func (b *Bot) TrackBaggage(_ context.Context, req *lexapi.Request) (*lexapi.Response, error) {
	confirmation, resp, err := b.resolveConfirmation(req, "What's the confirmation code on your baggage tag?")
	if resp != nil || err != nil {
		return resp, err
	}

	return dialog.Close(req, lexapi.Messages{lexapi.PlainText{
		Content: fmt.Sprintf("The bags on reservation %s are en route to the carousel.", confirmation),
	}}), nil
}

func (b *Bot) Goodbye(_ context.Context, req *lexapi.Request) (*lexapi.Response, error) {
	return dialog.Close(req, lexapi.Messages{
		lexapi.PlainText{Content: "Safe travels!"},
	}), nil
}

func (b *Bot) AnythingElse(_ context.Context, req *lexapi.Request) (*lexapi.Response, error) {
	return dialog.ElicitIntent(req, lexapi.Messages{
		lexapi.ImageResponseCard{Card: lexapi.ImageCard{
			Title: "Anything else I can help with?",
			Buttons: []lexapi.Button{
				lexapi.NewButton("Book a flight"),
				lexapi.NewButton("Flight delay updates"),
				lexapi.NewButton("No, thanks"),
			},
		}},
	}), nil
}

// Fallback resumes an interrupted intent when one is stashed, replays the
// last slot prompt when the user wandered mid-elicitation, and otherwise
// asks them to rephrase.
func (b *Bot) Fallback(ctx context.Context, req *lexapi.Request) (*lexapi.Response, error) {
	attrs := req.Attributes()
	if attrs.CallbackEvent != "" || attrs.CallbackHandler != "" {
		return dialog.CallbackOriginalIntentHandler(ctx, b.dispatcher, req, "greeting", nil)
	}
	if attrs.PreviousSlotToElicit != "" {
		return dialog.RepromptSlot(req)
	}
	return dialog.ElicitIntent(req, lexapi.Messages{
		lexapi.PlainText{Content: "Sorry, I didn't catch that. You can ask me to book, change or cancel a flight."},
	}), nil
}

// requireAuth stashes the current turn and detours through the sign-in
// intent. The orchestrator runs the detour after this response is built,
// and Authenticate replays the snapshot once the user is signed in.
func (b *Bot) requireAuth(req *lexapi.Request) (*lexapi.Response, error) {
	attrs := req.Attributes()
	snapshot, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request: %w", err)
	}
	attrs.CallbackEvent = string(snapshot)
	attrs.CallbackHandler = dispatch.NormalizeIntentName(req.SessionState.Intent.Name)

	return dialog.TransitionToCallback(req, "authenticate",
		lexapi.Messages{lexapi.PlainText{Content: "You'll need to sign in first."}}, nil), nil
}

// resolveConfirmation finds the reservation code for the current turn,
// preferring the Confirmation slot over the last booking in this session.
// It returns a non-nil response when the code still has to be elicited.
func (b *Bot) resolveConfirmation(req *lexapi.Request, prompt string) (string, *lexapi.Response, error) {
	intent := dialog.GetIntent(req)
	if code := strings.TrimSpace(dialog.GetSlot(intent, SlotConfirmation)); code != "" {
		return strings.ToUpper(code), nil, nil
	}
	if code := req.Attributes().Custom[attrLastConfirmation]; code != "" {
		return code, nil, nil
	}
	resp, err := dialog.ElicitSlot(req, SlotConfirmation,
		lexapi.Messages{lexapi.PlainText{Content: prompt}})
	return "", resp, err
}

func (b *Bot) notFound(req *lexapi.Request, confirmation string) (*lexapi.Response, error) {
	return dialog.Close(req, lexapi.Messages{lexapi.PlainText{
		Content: fmt.Sprintf("I couldn't find a reservation with code %s.", confirmation),
	}}), nil
}
