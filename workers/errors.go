package workers

import (
	"fmt"
	"strings"
)

// RemoteAPIError is a failure reported by the Cloudflare management API,
// either through a non-2xx status or a success:false envelope.
type RemoteAPIError struct {
	Operation string // e.g. "create", "delete"
	Status    int    // HTTP status, 0 when the envelope itself reported failure
	Payload   string // the platform's error payload, verbatim
}

func (e *RemoteAPIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("Cloudflare API %s failed with status %d: %s", e.Operation, e.Status, strings.TrimSpace(e.Payload))
	}
	return fmt.Sprintf("Cloudflare API %s failed: %s", e.Operation, strings.TrimSpace(e.Payload))
}

// ConfigurationError indicates the account is missing a setting an operation
// depends on, such as the workers.dev subdomain.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}
