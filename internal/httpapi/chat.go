package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/antoniostano/lexkit/internal/lexapi"
)

// chatRequest is the plain-text testing surface. Intent recognition is a
// platform concern, so callers name the intent explicitly; later turns in
// the same session may omit it and continue the stored conversation.
type chatRequest struct {
	SessionID string            `json:"session_id,omitempty"`
	Text      string            `json:"text"`
	Intent    string            `json:"intent,omitempty"`
	Slots     map[string]string `json:"slots,omitempty"`
	Locale    string            `json:"locale,omitempty"`
	Channel   string            `json:"channel,omitempty"`
}

type chatResponse struct {
	SessionID    string              `json:"session_id"`
	Messages     []json.RawMessage   `json:"messages"`
	SessionState lexapi.SessionState `json:"session_state"`
}

// chatState remembers the session state the pipeline returned for each
// chat session, standing in for the platform's own persistence.
type chatState struct {
	mu     sync.Mutex
	states map[string]lexapi.SessionState
}

func newChatState() *chatState {
	return &chatState{states: make(map[string]lexapi.SessionState)}
}

func (c *chatState) get(sessionID string) (lexapi.SessionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[sessionID]
	return st, ok
}

func (c *chatState) put(sessionID string, st lexapi.SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[sessionID] = st
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "missing_text", "text is required")
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	event := s.synthesizeEvent(sessionID, req)
	raw, err := json.Marshal(event)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}

	out, err := s.turns.HandleTurn(r.Context(), raw)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		return
	}

	var parsed struct {
		SessionState lexapi.SessionState `json:"sessionState"`
		Messages     []json.RawMessage   `json:"messages"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		respondError(w, http.StatusInternalServerError, "decode_failed", err.Error())
		return
	}
	s.chats.put(sessionID, parsed.SessionState)

	messages := parsed.Messages
	if messages == nil {
		messages = []json.RawMessage{}
	}
	respondJSON(w, http.StatusOK, chatResponse{
		SessionID:    sessionID,
		Messages:     messages,
		SessionState: parsed.SessionState,
	})
}

func (s *Server) synthesizeEvent(sessionID string, req chatRequest) *lexapi.Request {
	state, ok := s.chats.get(sessionID)
	if !ok {
		state = lexapi.SessionState{
			Intent: lexapi.Intent{Slots: make(map[string]*lexapi.SlotValue)},
		}
	}

	intent := strings.TrimSpace(req.Intent)
	if intent != "" && intent != state.Intent.Name {
		state.Intent = lexapi.Intent{Name: intent, Slots: make(map[string]*lexapi.SlotValue)}
	}
	if state.Intent.Name == "" {
		state.Intent.Name = "fallback_intent"
	}
	if state.Intent.Slots == nil {
		state.Intent.Slots = make(map[string]*lexapi.SlotValue)
	}
	for name, value := range req.Slots {
		state.Intent.Slots[name] = lexapi.NewSlotValue(value)
	}
	state.Intent.State = lexapi.IntentStateInProgress
	state.DialogAction = nil

	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = s.cfg.DefaultLocale
	}

	event := &lexapi.Request{
		SessionID:        sessionID,
		InputTranscript:  req.Text,
		InputMode:        "Text",
		InvocationSource: lexapi.InvocationDialogCodeHook,
		MessageVersion:   "1.0",
		Bot: lexapi.Bot{
			Name:     "lexkit",
			LocaleID: locale,
		},
		SessionState: state,
	}
	if channel := strings.TrimSpace(req.Channel); channel != "" {
		event.RequestAttributes = map[string]string{"channel": channel}
	}
	return event
}
