// Package sessions is the HTTP shell around the agent loop: request parsing,
// CORS, the static front-end page, and the WebSocket session. Each POST /run
// executes exactly one agent run, synchronously, to completion or failure.
package sessions

import (
	_ "embed"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Desarso/flareagent"
	"github.com/Desarso/flareagent/stores"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//go:embed index.html
var indexHTML []byte

// DefaultModel is used when a request does not name one.
const DefaultModel = "openai/gpt-4o"

// AgentFactory builds a fresh agent for one run. Every run gets its own
// agent so no conversation state is shared across requests.
type AgentFactory func(modelID string) *flareagent.Agent

// Server wires the agent loop to its HTTP surface.
type Server struct {
	Agents       AgentFactory
	Store        stores.RunStore // optional run audit log
	DefaultModel string
	Logger       *log.Logger
	ToolNames    []string // advertised in the capability descriptor
}

// NewServer creates a server with a default logger.
func NewServer(agents AgentFactory, store stores.RunStore) *Server {
	return &Server{
		Agents:       agents,
		Store:        store,
		DefaultModel: DefaultModel,
		Logger:       log.New(os.Stdout, "[HTTP] ", log.LstdFlags),
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/", s.handleIndex)
	router.POST("/run", s.handleRun)
	router.GET("/ws", s.handleWebSocket)

	router.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Not found")
	})

	return router
}

// corsMiddleware applies the permissive CORS contract and short-circuits
// preflight requests on any path.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// handleIndex serves the HTML front end, or a JSON capability descriptor for
// clients that ask for JSON.
func (s *Server) handleIndex(c *gin.Context) {
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.IndentedJSON(http.StatusOK, gin.H{
			"name":        "flareagent",
			"description": "HTTP-triggered agent that manages Cloudflare Workers through an LLM tool loop",
			"endpoints": gin.H{
				"POST /run": "run one agent loop: {prompt, model?} -> {result, messages}",
				"GET /ws":   "WebSocket session emitting one event per transcript message",
			},
			"default_model": s.defaultModel(),
			"tools":         s.ToolNames,
		})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// handleRun executes one agent run to completion and returns the result with
// the full transcript.
func (s *Server) handleRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body"})
		return
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'prompt' in request body"})
		return
	}

	modelID := req.Model
	if modelID == "" {
		modelID = s.defaultModel()
	}

	runID := uuid.New().String()
	agent := s.Agents(modelID)
	agent.Logger = log.New(os.Stdout, fmt.Sprintf("[RUN %s] ", runID[:8]), log.LstdFlags)

	start := time.Now()
	result, err := agent.Run(req.Prompt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.recordRun(runID, modelID, req.Prompt, result, time.Since(start))

	c.IndentedJSON(http.StatusOK, RunResponse{
		Result:   result.Result,
		Messages: result.Messages,
	})
}

func (s *Server) defaultModel() string {
	if s.DefaultModel != "" {
		return s.DefaultModel
	}
	return DefaultModel
}

// recordRun writes the run's outcome to the audit store. Best-effort: a
// store failure never fails the request.
func (s *Server) recordRun(runID, modelID, prompt string, result flareagent.RunResult, elapsed time.Duration) {
	if s.Store == nil {
		return
	}
	record := &stores.RunRecord{
		RunID:            runID,
		ModelID:          modelID,
		Prompt:           prompt,
		Result:           result.Result,
		Iterations:       result.Iterations,
		ToolCalls:        result.ToolCalls,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalTokens:      result.Usage.TotalTokens,
		DurationMS:       elapsed.Milliseconds(),
	}
	if err := s.Store.SaveRun(record); err != nil && s.Logger != nil {
		s.Logger.Printf("Warning: failed to save run record %s: %v", runID, err)
	}
}
