package textgen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func newGatewayServer(t *testing.T, handle func(conn *websocket.Conn, req gatewayRequest)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var req gatewayRequest
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read request: %v", err)
			return
		}
		handle(conn, req)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestGatewayAdapterConcatenatesDeltas(t *testing.T) {
	srv := newGatewayServer(t, func(conn *websocket.Conn, req gatewayRequest) {
		if req.Method != "generate" {
			t.Errorf("method = %q, want generate", req.Method)
		}
		conn.WriteJSON(map[string]any{"type": "event", "event": "delta", "payload": map[string]string{"text": "Would you like "}})
		conn.WriteJSON(map[string]any{"type": "event", "event": "delta", "payload": map[string]string{"text": "to book a flight?"}})
		conn.WriteJSON(map[string]any{"type": "res", "id": req.ID, "ok": true})
	})
	defer srv.Close()

	resp, err := NewGatewayAdapter(wsURL(srv), "token-1").Generate(context.Background(), Request{Prompt: "clarify"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if want := "Would you like to book a flight?"; resp.Text != want {
		t.Fatalf("resp.Text = %q, want %q", resp.Text, want)
	}
}

func TestGatewayAdapterFinalPayloadWithoutDeltas(t *testing.T) {
	srv := newGatewayServer(t, func(conn *websocket.Conn, req gatewayRequest) {
		conn.WriteJSON(map[string]any{"type": "res", "id": req.ID, "ok": true, "payload": map[string]string{"text": "all at once"}})
	})
	defer srv.Close()

	resp, err := NewGatewayAdapter(wsURL(srv), "").Generate(context.Background(), Request{Prompt: "clarify"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text != "all at once" {
		t.Fatalf("resp.Text = %q, want %q", resp.Text, "all at once")
	}
}

func TestGatewayAdapterRejectedRequest(t *testing.T) {
	srv := newGatewayServer(t, func(conn *websocket.Conn, req gatewayRequest) {
		conn.WriteJSON(map[string]any{
			"type": "res", "id": req.ID, "ok": false,
			"error": map[string]string{"code": "quota", "message": "limit reached"},
		})
	})
	defer srv.Close()

	_, err := NewGatewayAdapter(wsURL(srv), "").Generate(context.Background(), Request{Prompt: "clarify"})
	if err == nil || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("err = %v, want the server's error code surfaced", err)
	}
}
