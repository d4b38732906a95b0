package workers

import (
	"fmt"

	"github.com/Desarso/flareagent/models"
)

// Tools returns the full tool catalog for an account, bound to the given
// client. The catalog is fixed: build it once at startup and never mutate it.
func Tools(c *Client) []models.FunctionDeclaration {
	return []models.FunctionDeclaration{
		CreateWorkerTool(c),
		UpdateWorkerTool(c),
		GetWorkerTool(c),
		ListWorkersTool(c),
		DeleteWorkerTool(c),
		InvokeWorkerTool(c),
	}
}

func nameCodeParameters() models.Parameters {
	return models.Parameters{
		Type: "object",
		Properties: map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the worker script",
			},
			"code": map[string]interface{}{
				"type":        "string",
				"description": "Complete JavaScript source of the worker, in module syntax (export default { fetch })",
			},
		},
		Required: []string{"name", "code"},
	}
}

func nameOnlyParameters(description string) models.Parameters {
	return models.Parameters{
		Type: "object",
		Properties: map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
		Required: []string{"name"},
	}
}

// CreateWorkerTool returns a FunctionDeclaration for deploying a new worker.
func CreateWorkerTool(c *Client) models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "create_worker",
		Description: "Create and deploy a new Cloudflare Worker. The code must be a complete module-syntax worker script.",
		Parameters:  nameCodeParameters(),
		Callable: func(args map[string]interface{}) (string, error) {
			name, code, err := nameCodeArgs(args)
			if err != nil {
				return "", err
			}
			return c.CreateOrUpdate(name, code)
		},
	}
}

// UpdateWorkerTool returns a FunctionDeclaration for replacing a worker's
// code. Deploys use full replacement, so updating is the same call as
// creating.
func UpdateWorkerTool(c *Client) models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "update_worker",
		Description: "Replace the code of an existing Cloudflare Worker. The new code fully replaces the old script.",
		Parameters:  nameCodeParameters(),
		Callable: func(args map[string]interface{}) (string, error) {
			name, code, err := nameCodeArgs(args)
			if err != nil {
				return "", err
			}
			return c.CreateOrUpdate(name, code)
		},
	}
}

// GetWorkerTool returns a FunctionDeclaration for reading a worker's source.
func GetWorkerTool(c *Client) models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "get_worker",
		Description: "Fetch the current source code of a deployed Cloudflare Worker.",
		Parameters:  nameOnlyParameters("Name of the worker script to read"),
		Callable: func(args map[string]interface{}) (string, error) {
			name, err := stringArg(args, "name")
			if err != nil {
				return "", err
			}
			return c.ReadSource(name)
		},
	}
}

// ListWorkersTool returns a FunctionDeclaration for listing the account's workers.
func ListWorkersTool(c *Client) models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "list_workers",
		Description: "List all Cloudflare Workers deployed on the account with their last-modified timestamps.",
		Parameters: models.Parameters{
			Type:       "object",
			Properties: map[string]interface{}{},
			Required:   []string{},
		},
		Callable: func(args map[string]interface{}) (string, error) {
			return c.List()
		},
	}
}

// DeleteWorkerTool returns a FunctionDeclaration for deleting a worker.
func DeleteWorkerTool(c *Client) models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "delete_worker",
		Description: "Delete a deployed Cloudflare Worker from the account.",
		Parameters:  nameOnlyParameters("Name of the worker script to delete"),
		Callable: func(args map[string]interface{}) (string, error) {
			name, err := stringArg(args, "name")
			if err != nil {
				return "", err
			}
			return c.Delete(name)
		},
	}
}

// InvokeWorkerTool returns a FunctionDeclaration for calling a deployed
// worker over HTTP.
func InvokeWorkerTool(c *Client) models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "invoke_worker",
		Description: "Send an HTTP request to a deployed worker at https://{name}.{subdomain}.workers.dev and return the raw response.",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the worker to invoke",
				},
				"method": map[string]interface{}{
					"type":        "string",
					"description": "HTTP method",
					"enum":        []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Request path, defaults to /",
				},
				"body": map[string]interface{}{
					"type":        "string",
					"description": "Request body, only sent for POST, PUT, and PATCH",
				},
				"headers": map[string]interface{}{
					"type":        "object",
					"description": "Request headers as a string-to-string map",
				},
			},
			Required: []string{"name", "method"},
		},
		Callable: func(args map[string]interface{}) (string, error) {
			name, err := stringArg(args, "name")
			if err != nil {
				return "", err
			}
			method, err := stringArg(args, "method")
			if err != nil {
				return "", err
			}
			path := optionalStringArg(args, "path", "/")
			body := optionalStringArg(args, "body", "")
			headers, err := headersArg(args)
			if err != nil {
				return "", err
			}
			return c.Invoke(name, method, path, body, headers)
		},
	}
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	value, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument '%s'", key)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("argument '%s' must be a string, got %T", key, value)
	}
	return str, nil
}

func nameCodeArgs(args map[string]interface{}) (string, string, error) {
	name, err := stringArg(args, "name")
	if err != nil {
		return "", "", err
	}
	code, err := stringArg(args, "code")
	if err != nil {
		return "", "", err
	}
	return name, code, nil
}

func optionalStringArg(args map[string]interface{}, key, fallback string) string {
	if value, ok := args[key].(string); ok && value != "" {
		return value
	}
	return fallback
}

func headersArg(args map[string]interface{}) (map[string]string, error) {
	raw, ok := args["headers"]
	if !ok || raw == nil {
		return nil, nil
	}
	rawMap, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("argument 'headers' must be an object, got %T", raw)
	}
	headers := make(map[string]string, len(rawMap))
	for key, value := range rawMap {
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("header '%s' must be a string, got %T", key, value)
		}
		headers[key] = str
	}
	return headers, nil
}
