// Package workers is a client for the Cloudflare Workers management API. It
// exposes the six operations the agent's tool catalog is built from: create
// or update a script, read its source, list scripts, delete a script, and
// invoke a deployed worker over its workers.dev subdomain.
package workers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
)

const (
	DefaultBaseURL = "https://api.cloudflare.com/client/v4"

	// Script uploads always use module syntax with a pinned compatibility date.
	mainModuleName    = "worker.js"
	compatibilityDate = "2025-01-01"
)

// workerHost builds the public host a deployed worker is invoked on.
// Swappable in tests.
var workerHost = func(name, subdomain string) string {
	return fmt.Sprintf("https://%s.%s.workers.dev", name, subdomain)
}

// Client talks to the Cloudflare Workers management API for one account.
type Client struct {
	AccountID  string
	APIToken   string
	BaseURL    string       // Optional: defaults to DefaultBaseURL
	HTTPClient *http.Client // Optional: custom HTTP client
	Logger     *log.Logger  // Optional: used for best-effort failures
}

// apiEnvelope is the JSON envelope every management endpoint answers with.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Errors  []apiMessage    `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type scriptInfo struct {
	ID         string `json:"id"`
	ModifiedOn string `json:"modified_on"`
}

type subdomainResult struct {
	Subdomain string `json:"subdomain"`
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	return DefaultBaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) scriptsURL(name string) string {
	url := fmt.Sprintf("%s/accounts/%s/workers/scripts", c.baseURL(), c.AccountID)
	if name != "" {
		url += "/" + name
	}
	return url
}

// doEnvelope issues a management-API request and decodes the standard envelope.
func (c *Client) doEnvelope(operation, method, url string, body io.Reader, contentType string) (*apiEnvelope, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &RemoteAPIError{Operation: operation, Status: resp.StatusCode, Payload: string(respBody)}
	}
	if !envelope.Success {
		payload, _ := json.Marshal(envelope.Errors)
		return nil, &RemoteAPIError{Operation: operation, Payload: string(payload)}
	}
	return &envelope, nil
}

// CreateOrUpdate uploads code as a module-syntax worker script. The script is
// created when absent and replaced in full when it exists. On success a
// best-effort call enables the script's workers.dev subdomain; failures of
// that call are swallowed.
func (c *Client) CreateOrUpdate(name, code string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	metadata := map[string]interface{}{
		"main_module":        mainModuleName,
		"compatibility_date": compatibilityDate,
	}
	metadataBytes, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal script metadata: %w", err)
	}

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Disposition", `form-data; name="metadata"`)
	metaHeader.Set("Content-Type", "application/json")
	metaPart, err := writer.CreatePart(metaHeader)
	if err != nil {
		return "", fmt.Errorf("failed to create metadata part: %w", err)
	}
	if _, err := metaPart.Write(metadataBytes); err != nil {
		return "", fmt.Errorf("failed to write metadata part: %w", err)
	}

	moduleHeader := textproto.MIMEHeader{}
	moduleHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, mainModuleName, mainModuleName))
	moduleHeader.Set("Content-Type", "application/javascript+module")
	modulePart, err := writer.CreatePart(moduleHeader)
	if err != nil {
		return "", fmt.Errorf("failed to create module part: %w", err)
	}
	if _, err := modulePart.Write([]byte(code)); err != nil {
		return "", fmt.Errorf("failed to write module part: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	if _, err := c.doEnvelope("deploy", "PUT", c.scriptsURL(name), &buf, writer.FormDataContentType()); err != nil {
		return "", err
	}

	// Best-effort: enable the public workers.dev route for this script.
	// A failure here never fails the deploy.
	c.enableSubdomain(name)

	return fmt.Sprintf("Worker '%s' deployed successfully.", name), nil
}

// enableSubdomain turns on the workers.dev route for a script. Errors are
// logged and swallowed.
func (c *Client) enableSubdomain(name string) {
	body := strings.NewReader(`{"enabled":true}`)
	url := c.scriptsURL(name) + "/subdomain"
	if _, err := c.doEnvelope("subdomain-enable", "POST", url, body, "application/json"); err != nil {
		if c.Logger != nil {
			c.Logger.Printf("Warning: failed to enable subdomain for worker '%s': %v", name, err)
		}
	}
}

// ReadSource fetches the raw source of a deployed worker script.
func (c *Client) ReadSource(name string) (string, error) {
	url := c.scriptsURL(name) + "/content"
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create content request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("content request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read content response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RemoteAPIError{Operation: "read", Status: resp.StatusCode, Payload: string(body)}
	}
	return string(body), nil
}

// Delete removes a worker script from the account.
func (c *Client) Delete(name string) (string, error) {
	if _, err := c.doEnvelope("delete", "DELETE", c.scriptsURL(name), nil, ""); err != nil {
		return "", err
	}
	return fmt.Sprintf("Worker '%s' deleted successfully.", name), nil
}

// List returns a formatted listing of the account's worker scripts,
// one line per script with its id and last-modified timestamp.
func (c *Client) List() (string, error) {
	envelope, err := c.doEnvelope("list", "GET", c.scriptsURL(""), nil, "")
	if err != nil {
		return "", err
	}

	var scripts []scriptInfo
	if len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, &scripts); err != nil {
			return "", fmt.Errorf("failed to unmarshal script list: %w", err)
		}
	}
	if len(scripts) == 0 {
		return "No workers found.", nil
	}

	var builder strings.Builder
	for _, script := range scripts {
		builder.WriteString(fmt.Sprintf("- %s (modified: %s)\n", script.ID, script.ModifiedOn))
	}
	return strings.TrimSuffix(builder.String(), "\n"), nil
}

// Subdomain resolves the account's workers.dev subdomain. An account without
// one configured yields a *ConfigurationError.
func (c *Client) Subdomain() (string, error) {
	url := fmt.Sprintf("%s/accounts/%s/workers/subdomain", c.baseURL(), c.AccountID)
	envelope, err := c.doEnvelope("subdomain", "GET", url, nil, "")
	if err != nil {
		return "", err
	}

	var result subdomainResult
	if len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, &result); err != nil {
			return "", fmt.Errorf("failed to unmarshal subdomain response: %w", err)
		}
	}
	if result.Subdomain == "" {
		return "", &ConfigurationError{Message: "no workers.dev subdomain is configured for this account"}
	}
	return result.Subdomain, nil
}

// Invoke sends an HTTP request to a deployed worker at
// https://{name}.{subdomain}.workers.dev/{path} and returns a formatted block
// with the status, all response headers, and the raw body. The body argument
// is attached only for POST, PUT, and PATCH. The worker's response is never
// parsed or validated.
func (c *Client) Invoke(name, method, path, body string, headers map[string]string) (string, error) {
	subdomain, err := c.Subdomain()
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := workerHost(name, subdomain) + path

	method = strings.ToUpper(method)
	var reqBody io.Reader
	switch method {
	case "POST", "PUT", "PATCH":
		if body != "" {
			reqBody = strings.NewReader(body)
		}
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to create invoke request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("invoke request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read invoke response: %w", err)
	}

	return formatInvokeResponse(resp.StatusCode, resp.Header, string(respBody)), nil
}

// formatInvokeResponse renders a worker response for the model to read.
func formatInvokeResponse(status int, headers http.Header, body string) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Status: %d\n", status))
	builder.WriteString("Headers:\n")

	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		builder.WriteString(fmt.Sprintf("  %s: %s\n", key, strings.Join(headers[key], ", ")))
	}

	builder.WriteString("Body:\n")
	builder.WriteString(body)
	return builder.String()
}
