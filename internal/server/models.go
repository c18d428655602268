package server

import (
	"worktreectl/internal/db"
	"worktreectl/internal/registry"
)

// ErrorResponse represents a plain error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	Registry      string `json:"registry"`
	History       string `json:"history"`
	SchemaVersion uint   `json:"schema_version,omitempty"`
}

// EnvironmentsResponse represents a list of environments
type EnvironmentsResponse struct {
	Environments []registry.Environment `json:"environments"`
	Total        int                    `json:"total"`
}

// HistoryResponse represents a page of history events
type HistoryResponse struct {
	Events []db.Event `json:"events"`
	Total  int        `json:"total"`
}
