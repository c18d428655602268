package container

import (
	"fmt"
	"strings"
)

// ErrorType represents the type of container error
type ErrorType string

const (
	// ErrorTypeRuntimeNotFound indicates the container runtime is not available
	ErrorTypeRuntimeNotFound ErrorType = "runtime_not_found"
	// ErrorTypeContainerNotFound indicates the container was not found
	ErrorTypeContainerNotFound ErrorType = "container_not_found"
	// ErrorTypeImageNotFound indicates the container image was not found
	ErrorTypeImageNotFound ErrorType = "image_not_found"
	// ErrorTypePermissionDenied indicates a permission error
	ErrorTypePermissionDenied ErrorType = "permission_denied"
	// ErrorTypePortConflict indicates the published host port is taken
	ErrorTypePortConflict ErrorType = "port_conflict"
	// ErrorTypeNameConflict indicates the container name is taken
	ErrorTypeNameConflict ErrorType = "name_conflict"
	// ErrorTypeNotReady indicates readiness polling gave up
	ErrorTypeNotReady ErrorType = "not_ready"
	// ErrorTypeUnknown indicates an unknown error
	ErrorTypeUnknown ErrorType = "unknown"
)

// ContainerError represents a detailed container operation error
type ContainerError struct {
	Type        ErrorType
	Operation   string
	ContainerID string
	Message     string
	Underlying  error
	Output      string // stdout/stderr from the command
}

// Error implements the error interface
func (e *ContainerError) Error() string {
	parts := []string{e.Message}

	if e.ContainerID != "" {
		parts = append(parts, fmt.Sprintf("container=%s", e.ContainerID))
	}

	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Operation))
	}

	if e.Output != "" {
		output := strings.TrimSpace(e.Output)
		if len(output) > 200 {
			output = output[:200] + "..."
		}
		parts = append(parts, fmt.Sprintf("output=%s", output))
	}

	return strings.Join(parts, ", ")
}

// Unwrap returns the underlying error
func (e *ContainerError) Unwrap() error {
	return e.Underlying
}

func newContainerError(operation, name, output string, err error) *ContainerError {
	errType := parseDockerError(output, err)
	return &ContainerError{
		Type:        errType,
		Operation:   operation,
		ContainerID: name,
		Message:     fmt.Sprintf("failed to %s container", operation),
		Underlying:  err,
		Output:      output,
	}
}

// parseDockerError attempts to determine the error type from Docker output
func parseDockerError(output string, err error) ErrorType {
	combined := strings.ToLower(output)
	if err != nil {
		combined += " " + strings.ToLower(err.Error())
	}

	switch {
	case strings.Contains(combined, "no such container"):
		return ErrorTypeContainerNotFound
	case strings.Contains(combined, "no such image") || strings.Contains(combined, "pull access denied"):
		return ErrorTypeImageNotFound
	case strings.Contains(combined, "permission denied"):
		return ErrorTypePermissionDenied
	case strings.Contains(combined, "port is already allocated") || strings.Contains(combined, "address already in use"):
		return ErrorTypePortConflict
	case strings.Contains(combined, "is already in use by container"):
		return ErrorTypeNameConflict
	case strings.Contains(combined, "cannot connect to the docker daemon") || strings.Contains(combined, "executable file not found"):
		return ErrorTypeRuntimeNotFound
	default:
		return ErrorTypeUnknown
	}
}

// isMissing reports docker output that means the target is already gone
func isMissing(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "no such container") ||
		strings.Contains(lower, "no such volume") ||
		strings.Contains(lower, "is not running")
}
