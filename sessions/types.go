package sessions

import (
	"log"
	"sync"

	"github.com/Desarso/flareagent/models"
	"github.com/gorilla/websocket"
)

// RunRequest is the body accepted by POST /run and by WebSocket frames.
type RunRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

// RunResponse is the result of one agent run: the final answer and the full
// conversation transcript.
type RunResponse struct {
	Result   string           `json:"result"`
	Messages []models.Message `json:"messages"`
}

// WebSocketEvent is one frame emitted over a WebSocket session.
type WebSocketEvent struct {
	Type    string          `json:"type"` // "message", "done", "error"
	Message *models.Message `json:"message,omitempty"`
	Result  string          `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// WebSocketWriter handles all WebSocket communication
type WebSocketWriter struct {
	Conn   *websocket.Conn
	Logger *log.Logger
	mu     sync.Mutex
}

// WriteMessage sends one transcript message as it is appended.
func (w *WebSocketWriter) WriteMessage(message models.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(WebSocketEvent{Type: "message", Message: &message})
}

// WriteDone sends the final result of a run.
func (w *WebSocketWriter) WriteDone(result string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(WebSocketEvent{Type: "done", Result: result})
}

// WriteError reports a failed run without closing the connection.
func (w *WebSocketWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(WebSocketEvent{Type: "error", Error: message})
}
