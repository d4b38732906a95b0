// Package stores persists run outcomes for auditing. Only the result of a
// run is recorded (prompt, final answer, counters, token usage); message
// transcripts are never stored and no conversation state survives a request.
package stores

import (
	"time"

	"gorm.io/gorm"
)

// RunRecord is the audit row written after each completed agent run.
type RunRecord struct {
	gorm.Model
	RunID            string `gorm:"uniqueIndex;not null"`
	ModelID          string `gorm:"index"`
	Prompt           string `gorm:"type:text"`
	Result           string `gorm:"type:text"`
	Iterations       int
	ToolCalls        int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	DurationMS       int64
}

// RunStore interface for abstracting database operations
type RunStore interface {
	SaveRun(record *RunRecord) error
	ListRuns(limit int) ([]RunRecord, error)

	// PruneBefore deletes run records created before the cutoff and
	// returns how many were removed.
	PruneBefore(cutoff time.Time) (int64, error)

	// Connection management
	Connect() error
	Close() error

	// Health check
	Ping() error
}

// StoreConfig holds configuration for database stores
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite", "postgres"
	Connection string            `json:"connection"` // connection string
	Options    map[string]string `json:"options"`    // additional options
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
