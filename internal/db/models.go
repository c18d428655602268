package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONB represents a JSON column
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*j = nil
			return nil
		}
		return json.Unmarshal(v, j)
	case string:
		if v == "" {
			*j = nil
			return nil
		}
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("type assertion to []byte or string failed")
	}
}

// Event actions
const (
	ActionSetup         = "setup"
	ActionSyncRemove    = "sync.remove"
	ActionCleanupRemove = "cleanup.remove"
)

// Event statuses
const (
	EventOK     = "ok"
	EventFailed = "failed"
)

// Event is one journaled lifecycle operation
type Event struct {
	ID            string    `json:"id" db:"id"`
	RunID         string    `json:"run_id" db:"run_id"`
	Action        string    `json:"action" db:"action"`
	EnvironmentID string    `json:"environment_id" db:"environment_id"`
	Branch        string    `json:"branch" db:"branch"`
	Status        string    `json:"status" db:"status"`
	Message       string    `json:"message" db:"message"`
	Details       JSONB     `json:"details,omitempty" db:"details"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for Event
func (Event) TableName() string {
	return "events"
}
