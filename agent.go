// Package flareagent runs a bounded agent loop over an OpenAI-compatible
// chat endpoint and a Cloudflare Workers tool catalog: the model is asked
// for the next action, requested tool calls are executed in order, and
// results are fed back until the model answers without tools or the
// iteration cap is hit.
package flareagent

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Desarso/flareagent/models"
)

const (
	// MaxIterations caps the number of model calls in a single run.
	MaxIterations = 20

	// MaxIterationsResult is returned verbatim when the cap is exhausted.
	MaxIterationsResult = "Max iterations reached"
)

// Model is a chat-completions backend. Complete sends the full conversation
// and the tool catalog and returns the model's next message.
type Model interface {
	Complete(messages []models.Message, tools []models.FunctionDeclaration) (models.Message, *models.Usage, error)
}

// Agent owns the tool catalog and drives the conversation loop for one run
// at a time. It holds no state between runs.
type Agent struct {
	Model  Model
	Tools  []models.FunctionDeclaration
	Logger *log.Logger

	// OnMessage, when set, is called for every message appended to the
	// transcript after the initial system and user messages.
	OnMessage func(models.Message)
}

func Create_Agent(model Model, tools []models.FunctionDeclaration) Agent {
	return Agent{
		Model: model,
		Tools: tools,
	}
}

// RunResult is the outcome of one agent run: the final answer plus the full
// transcript, which is always returned so callers can inspect what happened.
type RunResult struct {
	Result     string
	Messages   []models.Message
	Iterations int
	ToolCalls  int
	Usage      models.Usage
}

// ArgumentParseError indicates a tool call carried a malformed argument string.
type ArgumentParseError struct {
	Tool string
	Err  error
}

func (e *ArgumentParseError) Error() string {
	return fmt.Sprintf("invalid arguments for tool '%s': %v", e.Tool, e.Err)
}

// Run executes the agent loop for a single prompt. The conversation starts
// with the system prompt and the user's prompt. Each iteration asks the model
// for the next message; a response without tool calls ends the run with that
// message's content, otherwise every requested tool call is executed in
// request order and its result appended as a tool message before the next
// model call. Model errors abort the run; tool errors never do.
func (a *Agent) Run(prompt string) (RunResult, error) {
	conversation := []models.Message{
		models.SystemMessage(SystemPrompt),
		models.UserMessage(prompt),
	}

	result := RunResult{}

	for result.Iterations < MaxIterations {
		result.Iterations++
		a.logf("=== Iteration %d ===", result.Iterations)

		message, usage, err := a.Model.Complete(conversation, a.Tools)
		if err != nil {
			result.Messages = conversation
			return result, err
		}
		message.Role = "assistant"
		conversation = a.append(conversation, message)
		result.Usage.Add(usage)

		if len(message.ToolCalls) == 0 {
			a.logf("No tool calls - final response")
			result.Result = message.Content
			result.Messages = conversation
			return result, nil
		}

		a.logf("Model requested %d tool calls", len(message.ToolCalls))
		for _, call := range message.ToolCalls {
			result.ToolCalls++
			output := a.ExecuteTool(call)
			a.logf("  %s (%s) -> %d bytes", call.Function.Name, call.ID, len(output))
			conversation = a.append(conversation, models.ToolMessage(call.ID, output))
		}
	}

	a.logf("Iteration cap reached after %d iterations", result.Iterations)
	result.Result = MaxIterationsResult
	result.Messages = conversation
	return result, nil
}

// ExecuteTool runs a single model-requested tool call and renders its outcome
// as text. This is the error boundary for tool execution: any failure,
// including malformed arguments, becomes an "Error: ..." result so one bad
// call never aborts the run. Unrecognized names report "Unknown tool".
func (a *Agent) ExecuteTool(call models.ToolCall) string {
	args := map[string]interface{}{}
	if raw := call.Function.Arguments; raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			parseErr := &ArgumentParseError{Tool: call.Function.Name, Err: err}
			return "Error: " + parseErr.Error()
		}
	}

	for _, tool := range a.Tools {
		if tool.Name != call.Function.Name {
			continue
		}
		output, err := tool.Callable(args)
		if err != nil {
			return "Error: " + err.Error()
		}
		return output
	}

	return "Unknown tool: " + call.Function.Name
}

func (a *Agent) append(conversation []models.Message, message models.Message) []models.Message {
	if a.OnMessage != nil {
		a.OnMessage(message)
	}
	return append(conversation, message)
}

func (a *Agent) logf(format string, args ...interface{}) {
	if a.Logger != nil {
		a.Logger.Printf(format, args...)
	}
}
