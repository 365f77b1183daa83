package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/antoniostano/lexkit/internal/bots/airline"
	"github.com/antoniostano/lexkit/internal/config"
	"github.com/antoniostano/lexkit/internal/dispatch"
	"github.com/antoniostano/lexkit/internal/lexapi"
	"github.com/antoniostano/lexkit/internal/observability"
	"github.com/antoniostano/lexkit/internal/reservations"
	"github.com/antoniostano/lexkit/internal/turn"
)

func newTestServer(t *testing.T) (*httptest.Server, *reservations.InMemoryStore) {
	t.Helper()

	store := reservations.NewInMemoryStore()
	reg := dispatch.NewRegistry()
	d := dispatch.NewDispatcher(reg)
	airline.New(store).Register(reg, d)

	orchestrator, err := turn.New(turn.Config{Dispatcher: d})
	if err != nil {
		t.Fatalf("turn.New() error = %v", err)
	}

	cfg := config.Config{DefaultLocale: "en_US"}
	stages := observability.NewStageWindow(32)
	metrics := observability.NewMetrics(testNamespace())
	srv := New(cfg, orchestrator, store, metrics, stages)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, store
}

var namespaceSeq atomic.Int64

// testNamespace keeps prometheus registrations unique across tests.
func testNamespace() string {
	return "test_httpapi_" + time.Now().Format("150405") + "_" + strconv.FormatInt(namespaceSeq.Add(1), 10)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return res
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", res.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if body["store_mode"] != "in-memory" {
		t.Fatalf("store_mode = %v, want in-memory", body["store_mode"])
	}
}

func TestTurnEndpointRunsHandler(t *testing.T) {
	ts, _ := newTestServer(t)

	event := map[string]any{
		"sessionId":        "session-1",
		"inputTranscript":  "bye",
		"invocationSource": "DialogCodeHook",
		"bot":              map[string]any{"name": "lexkit", "localeId": "en_US"},
		"sessionState": map[string]any{
			"intent": map[string]any{"name": "goodbye", "slots": map[string]any{}},
		},
	}
	res := postJSON(t, ts.URL+"/v1/turn", event)
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("turn status = %d", res.StatusCode)
	}

	var resp lexapi.Response
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode turn response: %v", err)
	}
	if got := resp.SessionState.DialogAction.Type; got != lexapi.DialogActionClose {
		t.Fatalf("dialog action = %q, want Close", got)
	}
}

func TestTurnEndpointRejectsEmptyBody(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Post(ts.URL+"/v1/turn", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST /v1/turn error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestChatKeepsSessionStateAcrossTurns(t *testing.T) {
	ts, _ := newTestServer(t)

	first := postJSON(t, ts.URL+"/v1/chat", map[string]any{
		"intent": "book_flight",
		"text":   "I want to book a flight",
	})
	defer first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d", first.StatusCode)
	}

	var one struct {
		SessionID    string              `json:"session_id"`
		SessionState lexapi.SessionState `json:"session_state"`
	}
	if err := json.NewDecoder(first.Body).Decode(&one); err != nil {
		t.Fatalf("decode chat response: %v", err)
	}
	if one.SessionID == "" {
		t.Fatal("chat should mint a session id")
	}

	// The unauthenticated booking detours through sign-in and resumes,
	// ending on the origin city prompt.
	if got := one.SessionState.DialogAction.SlotToElicit; got != airline.SlotOriginCity {
		t.Fatalf("slotToElicit = %q, want %q", got, airline.SlotOriginCity)
	}

	second := postJSON(t, ts.URL+"/v1/chat", map[string]any{
		"session_id": one.SessionID,
		"text":       "Rome",
		"slots":      map[string]string{airline.SlotOriginCity: "Rome"},
	})
	defer second.Body.Close()

	var two struct {
		SessionState lexapi.SessionState `json:"session_state"`
	}
	if err := json.NewDecoder(second.Body).Decode(&two); err != nil {
		t.Fatalf("decode second chat response: %v", err)
	}
	if got := two.SessionState.DialogAction.SlotToElicit; got != airline.SlotDestinationCity {
		t.Fatalf("slotToElicit = %q, want %q", got, airline.SlotDestinationCity)
	}
}

func TestChatRequiresText(t *testing.T) {
	ts, _ := newTestServer(t)

	res := postJSON(t, ts.URL+"/v1/chat", map[string]any{"intent": "greeting"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestReservationEndpoints(t *testing.T) {
	ts, store := newTestServer(t)

	saved, err := store.Save(context.Background(), reservations.Reservation{
		SessionID:       "session-9",
		OriginCity:      "Rome",
		DestinationCity: "Milan",
		DepartureDate:   "2026-10-01",
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	res, err := http.Get(ts.URL + "/v1/reservations/" + saved.Confirmation)
	if err != nil {
		t.Fatalf("GET reservation error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", res.StatusCode)
	}
	var got reservations.Reservation
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode reservation: %v", err)
	}
	if got.Confirmation != saved.Confirmation {
		t.Fatalf("confirmation = %q, want %q", got.Confirmation, saved.Confirmation)
	}

	missing, err := http.Get(ts.URL + "/v1/reservations/ZZZZZZZZ")
	if err != nil {
		t.Fatalf("GET missing reservation error = %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d, want %d", missing.StatusCode, http.StatusNotFound)
	}

	list, err := http.Get(ts.URL + "/v1/sessions/session-9/reservations")
	if err != nil {
		t.Fatalf("GET session reservations error = %v", err)
	}
	defer list.Body.Close()
	var listBody struct {
		Reservations []reservations.Reservation `json:"reservations"`
	}
	if err := json.NewDecoder(list.Body).Decode(&listBody); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listBody.Reservations) != 1 {
		t.Fatalf("session reservations = %d, want 1", len(listBody.Reservations))
	}
}

func TestPerfLatencySnapshot(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/v1/perf/latency")
	if err != nil {
		t.Fatalf("GET /v1/perf/latency error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("latency status = %d", res.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(res.Body); err != nil {
		t.Fatalf("read latency body: %v", err)
	}
	if !strings.Contains(buf.String(), "stages") {
		t.Fatalf("latency body missing stages: %s", buf.String())
	}
}
