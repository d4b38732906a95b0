package openrouter

import (
	"fmt"

	"github.com/Desarso/flareagent/models"
)

// OpenRouter API Request/Response types (OpenAI-compatible format)

type OpenRouterRequest struct {
	Model       string           `json:"model"`
	Messages    []models.Message `json:"messages"`
	Tools       []Tool           `json:"tools,omitempty"`
	ToolChoice  interface{}      `json:"tool_choice,omitempty"` // "auto", "none", or specific tool
	MaxTokens   *int             `json:"max_tokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
}

type Tool struct {
	Type     string       `json:"type"` // "function"
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters"` // JSON Schema object
}

type OpenRouterResponse struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"` // "chat.completion"
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []Choice      `json:"choices"`
	Usage   *models.Usage `json:"usage,omitempty"`
}

type Choice struct {
	Index        int            `json:"index"`
	Message      models.Message `json:"message"`
	FinishReason *string        `json:"finish_reason,omitempty"` // "stop", "tool_calls", "length", etc.
}

type ErrorResponse struct {
	Error OpenRouterError `json:"error"`
}

type OpenRouterError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Param   interface{} `json:"param,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// UpstreamError is returned when the chat endpoint answers with a non-2xx
// status. It carries the raw status and body so callers can surface them.
type UpstreamError struct {
	Status  int
	Body    string
	Message string // parsed error message, when the body was a recognizable error payload
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("OpenRouter API error: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("OpenRouter API error: status %d, body: %s", e.Status, e.Body)
}

// SanitizedParameters ensures the parameters object has proper structure for strict APIs like xAI/Grok
// Some APIs require properties to be an object (not null) and required to be an array (not null)
type SanitizedParameters struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required"`
}

// ConvertToOpenRouterTool converts a FunctionDeclaration to OpenRouter Tool format
func ConvertToOpenRouterTool(fd models.FunctionDeclaration) Tool {
	sanitizedParams := SanitizedParameters{
		Type:       fd.Parameters.Type,
		Properties: fd.Parameters.Properties,
		Required:   fd.Parameters.Required,
	}

	if sanitizedParams.Properties == nil {
		sanitizedParams.Properties = make(map[string]interface{})
	}
	if sanitizedParams.Required == nil {
		sanitizedParams.Required = []string{}
	}
	if sanitizedParams.Type == "" {
		sanitizedParams.Type = "object"
	}

	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        fd.Name,
			Description: fd.Description,
			Parameters:  sanitizedParams,
		},
	}
}

// ConvertToOpenRouterTools converts multiple FunctionDeclarations to OpenRouter Tools
func ConvertToOpenRouterTools(fds []models.FunctionDeclaration) []Tool {
	tools := make([]Tool, len(fds))
	for i, fd := range fds {
		tools[i] = ConvertToOpenRouterTool(fd)
	}
	return tools
}
