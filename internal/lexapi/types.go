package lexapi

// Intent states understood by the Lex V2 runtime.
const (
	IntentStateInProgress          = "InProgress"
	IntentStateFulfilled           = "Fulfilled"
	IntentStateReadyForFulfillment = "ReadyForFulfillment"
	IntentStateFailed              = "Failed"
	IntentStateWaiting             = "Waiting"
)

// Confirmation states for an intent.
const (
	ConfirmationNone      = "None"
	ConfirmationConfirmed = "Confirmed"
	ConfirmationDenied    = "Denied"
)

// Dialog action types the fulfillment function can return.
const (
	DialogActionClose         = "Close"
	DialogActionDelegate      = "Delegate"
	DialogActionElicitIntent  = "ElicitIntent"
	DialogActionElicitSlot    = "ElicitSlot"
	DialogActionConfirmIntent = "ConfirmIntent"
)

// Invocation sources reported by the platform.
const (
	InvocationDialogCodeHook      = "DialogCodeHook"
	InvocationFulfillmentCodeHook = "FulfillmentCodeHook"
)

// SlotValueDetail carries the platform's resolution of a single slot value.
// The interpreted value is preferred over the original transcript fragment.
type SlotValueDetail struct {
	OriginalValue    string   `json:"originalValue,omitempty"`
	InterpretedValue string   `json:"interpretedValue,omitempty"`
	ResolvedValues   []string `json:"resolvedValues,omitempty"`
}

// SlotValue is either a scalar value or a composite slot with sub-slots.
type SlotValue struct {
	Value    *SlotValueDetail      `json:"value,omitempty"`
	SubSlots map[string]*SlotValue `json:"subSlots,omitempty"`
	Shape    string                `json:"shape,omitempty"`
}

// NewSlotValue builds a scalar slot value the way the platform would,
// with identical original/interpreted values.
func NewSlotValue(value string) *SlotValue {
	return &SlotValue{
		Value: &SlotValueDetail{
			OriginalValue:    value,
			InterpretedValue: value,
			ResolvedValues:   []string{value},
		},
	}
}

// Intent is the user's recognized goal for the current turn. Slots may hold
// nil entries for slots the platform knows about but has not filled.
type Intent struct {
	Name              string                `json:"name"`
	Slots             map[string]*SlotValue `json:"slots"`
	State             string                `json:"state,omitempty"`
	ConfirmationState string                `json:"confirmationState,omitempty"`
}

type SentimentScore struct {
	Neutral  float64 `json:"neutral"`
	Mixed    float64 `json:"mixed"`
	Negative float64 `json:"negative"`
	Positive float64 `json:"positive"`
}

type SentimentResponse struct {
	Sentiment      string         `json:"sentiment"`
	SentimentScore SentimentScore `json:"sentimentScore"`
}

// Interpretation is one NLU candidate, ordered by descending confidence in
// the request. A nil NLUConfidence means the platform supplied no score.
type Interpretation struct {
	Intent            Intent             `json:"intent"`
	NLUConfidence     *float64           `json:"nluConfidence,omitempty"`
	SentimentResponse *SentimentResponse `json:"sentimentResponse,omitempty"`
}

type ContextTTL struct {
	TimeToLiveInSeconds int `json:"timeToLiveInSeconds"`
	TurnsToLive         int `json:"turnsToLive"`
}

// Context is an active conversation context. A context whose TurnsToLive
// has reached zero is expired and is pruned at parse time.
type Context struct {
	Name              string            `json:"name"`
	ContextAttributes map[string]string `json:"contextAttributes,omitempty"`
	TimeToLive        ContextTTL        `json:"timeToLive"`
}

type DialogAction struct {
	Type         string `json:"type,omitempty"`
	SlotToElicit string `json:"slotToElicit,omitempty"`
}

// SessionState travels in both directions: the inbound copy describes the
// conversation so far, the outbound copy is what the platform persists.
type SessionState struct {
	ActiveContexts       []Context          `json:"activeContexts,omitempty"`
	SessionAttributes    *SessionAttributes `json:"sessionAttributes,omitempty"`
	Intent               Intent             `json:"intent"`
	DialogAction         *DialogAction      `json:"dialogAction,omitempty"`
	OriginatingRequestID string             `json:"originatingRequestId,omitempty"`
}

type Bot struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	LocaleID  string `json:"localeId"`
	ID        string `json:"id"`
	AliasID   string `json:"aliasId"`
	AliasName string `json:"aliasName"`
}

type ResolvedContext struct {
	Intent string `json:"intent"`
}

type Transcription struct {
	Transcription           string          `json:"transcription"`
	TranscriptionConfidence float64         `json:"transcriptionConfidence"`
	ResolvedContext         ResolvedContext `json:"resolvedContext"`
	ResolvedSlots           map[string]any  `json:"resolvedSlots,omitempty"`
}

// Request is the parsed form of one inbound conversation turn.
type Request struct {
	SessionID           string            `json:"sessionId"`
	InputTranscript     string            `json:"inputTranscript"`
	Interpretations     []Interpretation  `json:"interpretations,omitempty"`
	Bot                 Bot               `json:"bot"`
	SessionState        SessionState      `json:"sessionState"`
	InvocationSource    string            `json:"invocationSource,omitempty"`
	InvocationLabel     string            `json:"invocationLabel,omitempty"`
	MessageVersion      string            `json:"messageVersion,omitempty"`
	InputMode           string            `json:"inputMode,omitempty"`
	ResponseContentType string            `json:"responseContentType,omitempty"`
	Transcriptions      []Transcription   `json:"transcriptions,omitempty"`
	RequestAttributes   map[string]string `json:"requestAttributes,omitempty"`
}

// Response is the terminal artifact of a turn. Its SessionState is what the
// platform persists and echoes back on the next turn.
type Response struct {
	SessionState      SessionState      `json:"sessionState"`
	Messages          Messages          `json:"messages"`
	RequestAttributes map[string]string `json:"requestAttributes"`
}

// Attributes returns the session-attribute bag of the request, allocating
// an empty one if the turn arrived without any.
func (r *Request) Attributes() *SessionAttributes {
	if r.SessionState.SessionAttributes == nil {
		r.SessionState.SessionAttributes = NewSessionAttributes()
	}
	return r.SessionState.SessionAttributes
}

// Locale returns the bot locale, defaulting to en_US.
func (r *Request) Locale() string {
	if r.Bot.LocaleID == "" {
		return "en_US"
	}
	return r.Bot.LocaleID
}
