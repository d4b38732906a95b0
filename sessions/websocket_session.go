package sessions

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Desarso/flareagent/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is permissive on the HTTP surface, mirror it here
	},
}

// handleWebSocket runs agent loops over a WebSocket connection. Each inbound
// {prompt, model?} frame triggers one run; every message appended to the
// transcript is emitted as its own event, followed by a final "done" frame.
// Runs on a connection execute one at a time, never concurrently.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Printf("WebSocket upgrade failed: %v", err)
		}
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()[:8]
	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", sessionID), log.LstdFlags)
	writer := &WebSocketWriter{Conn: conn, Logger: logger}

	for {
		var req RunRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Printf("Read error: %v", err)
			}
			return
		}

		if req.Prompt == "" {
			writer.WriteError("Missing 'prompt' in request")
			continue
		}

		modelID := req.Model
		if modelID == "" {
			modelID = s.defaultModel()
		}

		runID := uuid.New().String()
		agent := s.Agents(modelID)
		agent.Logger = logger
		agent.OnMessage = func(message models.Message) {
			if err := writer.WriteMessage(message); err != nil {
				logger.Printf("Failed to write message event: %v", err)
			}
		}

		start := time.Now()
		result, err := agent.Run(req.Prompt)
		if err != nil {
			logger.Printf("Run failed: %v", err)
			writer.WriteError(err.Error())
			continue
		}

		s.recordRun(runID, modelID, req.Prompt, result, time.Since(start))

		if err := writer.WriteDone(result.Result); err != nil {
			logger.Printf("Failed to write done event: %v", err)
			return
		}
	}
}
