package openrouter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/Desarso/flareagent/models"
)

const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel      = "openai/gpt-4o"
)

// OpenRouter_Model is a chat-completions client for OpenRouter.
// Also supports any OpenAI-compatible API endpoint via BaseURL.
type OpenRouter_Model struct {
	Model       string // Model identifier (e.g., "openai/gpt-4o", "anthropic/claude-3-opus")
	APIKey      string // API key; falls back to the APIKeyEnv environment variable when empty
	APIKeyEnv   string // Optional: environment variable name for the API key (defaults to OPENROUTER_API_KEY)
	BaseURL     string // Optional: custom API base URL (defaults to OpenRouter)
	SiteURL     string // Optional: your site URL for OpenRouter rankings
	SiteName    string // Optional: your site name for OpenRouter rankings
	Temperature *float64
	MaxTokens   *int
	HTTPClient  *http.Client // Optional: custom HTTP client
}

// Complete sends the full conversation plus the tool catalog to the chat
// endpoint with tool_choice "auto" and returns the first choice's message.
// A non-2xx response becomes an *UpstreamError.
func (o *OpenRouter_Model) Complete(messages []models.Message, tools []models.FunctionDeclaration) (models.Message, *models.Usage, error) {
	if len(messages) == 0 {
		return models.Message{}, nil, fmt.Errorf("cannot create OpenRouter request with no messages")
	}

	modelToUse := o.Model
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	request := OpenRouterRequest{
		Model:    modelToUse,
		Messages: messages,
	}
	if len(tools) > 0 {
		request.Tools = ConvertToOpenRouterTools(tools)
		request.ToolChoice = "auto"
	}
	if o.Temperature != nil {
		request.Temperature = o.Temperature
	}
	if o.MaxTokens != nil {
		request.MaxTokens = o.MaxTokens
	}

	jsonBytes, err := json.Marshal(request)
	if err != nil {
		return models.Message{}, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}

	req, err := http.NewRequest("POST", baseURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return models.Message{}, nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	o.setHeaders(req)

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.Message{}, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Message{}, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upErr := &UpstreamError{Status: resp.StatusCode, Body: string(body)}
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			upErr.Message = errResp.Error.Message
		}
		return models.Message{}, nil, upErr
	}

	var response OpenRouterResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return models.Message{}, nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(response.Choices) == 0 {
		return models.Message{}, nil, fmt.Errorf("OpenRouter response contained no choices")
	}

	return response.Choices[0].Message, response.Usage, nil
}

// setHeaders sets the required headers for OpenRouter API requests
func (o *OpenRouter_Model) setHeaders(req *http.Request) {
	apiKey := o.APIKey
	if apiKey == "" {
		apiKeyEnv := o.APIKeyEnv
		if apiKeyEnv == "" {
			apiKeyEnv = "OPENROUTER_API_KEY"
		}
		apiKey = os.Getenv(apiKeyEnv)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	// Optional headers for OpenRouter
	if o.SiteURL != "" {
		req.Header.Set("HTTP-Referer", o.SiteURL)
	}
	if o.SiteName != "" {
		req.Header.Set("X-Title", o.SiteName)
	}
}
