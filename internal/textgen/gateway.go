package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/lexkit/internal/reliability"
)

const (
	gatewayWriteTimeout = 3 * time.Second
	gatewayReadTimeout  = 60 * time.Second
	gatewayRetryBackoff = 250 * time.Millisecond
)

// GatewayAdapter speaks a small request/response frame protocol over a
// WebSocket. The server streams "delta" events and closes the exchange
// with a "res" frame matching the request id; deltas are concatenated
// into the final text.
type GatewayAdapter struct {
	wsURL  string
	token  string
	dialer websocket.Dialer
}

func NewGatewayAdapter(wsURL, token string) *GatewayAdapter {
	return &GatewayAdapter{
		wsURL: strings.TrimSpace(wsURL),
		token: strings.TrimSpace(token),
		dialer: websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
		},
	}
}

type gatewayFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Event   string          `json:"event,omitempty"`
	OK      bool            `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *gatewayError   `json:"error,omitempty"`
}

type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type gatewayRequest struct {
	Type   string  `json:"type"`
	ID     string  `json:"id"`
	Method string  `json:"method"`
	Params Request `json:"params"`
}

type gatewayDelta struct {
	Text string `json:"text"`
}

func (a *GatewayAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	resp, retryable, err := a.generateOnce(ctx, req)
	if err == nil || !retryable {
		return resp, err
	}

	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-time.After(reliability.ExponentialBackoff(0, gatewayRetryBackoff, gatewayRetryBackoff)):
	}
	resp, _, err = a.generateOnce(ctx, req)
	return resp, err
}

func (a *GatewayAdapter) generateOnce(ctx context.Context, req Request) (Response, bool, error) {
	header := http.Header{}
	if a.token != "" {
		header.Set("Authorization", "Bearer "+a.token)
	}

	conn, _, err := a.dialer.DialContext(ctx, a.wsURL, header)
	if err != nil {
		return Response{}, false, &InvocationError{Backend: "gateway", Err: fmt.Errorf("dial %s: %w", a.wsURL, err)}
	}
	defer conn.Close()

	frame := gatewayRequest{
		Type:   "req",
		ID:     uuid.NewString(),
		Method: "generate",
		Params: req,
	}
	conn.SetWriteDeadline(time.Now().Add(gatewayWriteTimeout))
	if err := conn.WriteJSON(frame); err != nil {
		return Response{}, false, &InvocationError{Backend: "gateway", Err: fmt.Errorf("write request: %w", err)}
	}

	deadline := time.Now().Add(gatewayReadTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetReadDeadline(deadline)

	var text strings.Builder
	for {
		var in gatewayFrame
		if err := conn.ReadJSON(&in); err != nil {
			return Response{}, false, &InvocationError{Backend: "gateway", Err: fmt.Errorf("read frame: %w", err)}
		}

		switch in.Type {
		case "event":
			if in.Event != "delta" {
				continue
			}
			var delta gatewayDelta
			if err := json.Unmarshal(in.Payload, &delta); err != nil {
				continue
			}
			text.WriteString(delta.Text)
		case "res":
			if in.ID != frame.ID {
				continue
			}
			if !in.OK {
				msg := "request rejected"
				retryable := false
				if in.Error != nil {
					msg = fmt.Sprintf("%s: %s", in.Error.Code, in.Error.Message)
					retryable = reliability.IsRetryableGatewayCode(in.Error.Code)
				}
				return Response{}, retryable, &InvocationError{Backend: "gateway", Err: fmt.Errorf("%s", msg)}
			}
			if text.Len() == 0 && len(in.Payload) > 0 {
				var final gatewayDelta
				if err := json.Unmarshal(in.Payload, &final); err == nil {
					text.WriteString(final.Text)
				}
			}
			return Response{Text: strings.TrimSpace(text.String())}, false, nil
		}
	}
}
