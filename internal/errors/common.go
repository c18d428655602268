package errors

import "fmt"

// Configuration Errors
func ConfigInvalid(reason string) *WorktreeError {
	return NewWithDetails(ErrConfigInvalid, "Invalid configuration", reason)
}

func ConfigParseError(path string, cause error) *WorktreeError {
	return WrapWithDetails(ErrConfigParse, "Failed to parse configuration",
		fmt.Sprintf("Path: %s", path), cause)
}

// Validation Errors
func ValidationFailed(field, value, reason string) *WorktreeError {
	return NewWithDetails(ErrValidationFailed, "Validation failed",
		fmt.Sprintf("Field: %s, Value: %s, Reason: %s", field, value, reason))
}

func InvalidBranchName(branch string) *WorktreeError {
	return ValidationFailed("branch", branch,
		"must start and end with a letter or digit and contain only letters, digits, '/', '-', '_' or single '.'")
}

// Registry Errors
func DuplicateID(id string) *WorktreeError {
	return NewWithDetails(ErrConflict, "Worktree already registered",
		fmt.Sprintf("ID: %s", id)).WithContext("id", id)
}

func DuplicateBranch(branch string) *WorktreeError {
	return NewWithDetails(ErrConflict, "Branch already has a registered worktree",
		fmt.Sprintf("Branch: %s", branch)).WithContext("branch", branch)
}

func WorktreeNotFound(id string) *WorktreeError {
	return NewWithDetails(ErrNotFound, "Worktree not found", fmt.Sprintf("ID: %s", id))
}

// Port Errors
func PortsExhausted(serviceType string, min, max int) *WorktreeError {
	return NewWithDetails(ErrResourceExhausted, "no available port in configured range",
		fmt.Sprintf("Service: %s, Range: %d-%d", serviceType, min, max)).
		WithContext("service", serviceType)
}

// External Tool Errors
func CommandFailed(command string, exitCode int, output string, cause error) *WorktreeError {
	return WrapWithDetails(ErrExternalTool, "External command failed",
		fmt.Sprintf("Command: %s, Exit: %d, Output: %s", command, exitCode, output), cause).
		WithContext("command", command)
}

func StepFailed(step string, cause error) *WorktreeError {
	return WrapWithDetails(ErrExternalTool, "Setup step failed",
		fmt.Sprintf("Step: %s", step), cause).WithContext("step", step)
}

// Batch Errors
func PartialBatch(operation string, failed, total int) *WorktreeError {
	return NewWithDetails(ErrPartialBatch, "Some items could not be removed",
		fmt.Sprintf("Operation: %s, Failed: %d of %d", operation, failed, total))
}

// Database Errors
func DatabaseConnectionError(cause error) *WorktreeError {
	return Wrap(ErrDatabaseConnection, "History database connection failed", cause)
}

func DatabaseQueryError(query string, cause error) *WorktreeError {
	return WrapWithDetails(ErrDatabaseQuery, "History database query failed",
		fmt.Sprintf("Query: %s", query), cause)
}

func DatabaseMigrationError(cause error) *WorktreeError {
	return Wrap(ErrDatabaseMigration, "History database migration failed", cause)
}

func BranchCheckedOut(branch, path string) *WorktreeError {
	return NewWithDetails(ErrConflict, "Branch is already checked out in a git worktree",
		fmt.Sprintf("Branch: %s, Path: %s", branch, path)).
		WithContext("branch", branch).
		WithContext("worktree_path", path)
}

func DetachedHead() *WorktreeError {
	return ValidationFailed("source", "HEAD",
		"HEAD is detached; pass the source branch with --from")
}
