package sessions

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Desarso/flareagent/models"
	"github.com/gorilla/websocket"
)

func dialTestSocket(t *testing.T, server *Server) *websocket.Conn {
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketRunEmitsMessagesThenDone(t *testing.T) {
	model := &stubModel{message: models.Message{Content: "finished"}}
	conn := dialTestSocket(t, testServer(model))

	if err := conn.WriteJSON(RunRequest{Prompt: "do it"}); err != nil {
		t.Fatal(err)
	}

	var first WebSocketEvent
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Type != "message" || first.Message == nil || first.Message.Role != "assistant" {
		t.Fatalf("expected an assistant message event, got %+v", first)
	}

	var done WebSocketEvent
	if err := conn.ReadJSON(&done); err != nil {
		t.Fatal(err)
	}
	if done.Type != "done" || done.Result != "finished" {
		t.Fatalf("expected done event with the result, got %+v", done)
	}
}

func TestWebSocketMissingPromptGetsErrorEvent(t *testing.T) {
	conn := dialTestSocket(t, testServer(&stubModel{message: models.Message{Content: "x"}}))

	if err := conn.WriteJSON(RunRequest{}); err != nil {
		t.Fatal(err)
	}

	var event WebSocketEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatal(err)
	}
	if event.Type != "error" || !strings.Contains(event.Error, "prompt") {
		t.Fatalf("expected a prompt error event, got %+v", event)
	}

	// The connection must survive: a valid run still works afterwards.
	if err := conn.WriteJSON(RunRequest{Prompt: "retry"}); err != nil {
		t.Fatal(err)
	}
	var next WebSocketEvent
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatal(err)
	}
	if next.Type != "message" {
		t.Fatalf("expected the session to keep serving runs, got %+v", next)
	}
}
