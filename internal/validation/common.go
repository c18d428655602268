package validation

import (
	"regexp"
	"strings"

	"worktreectl/internal/constants"
	"worktreectl/internal/errors"
)

var (
	// branchNameRegex: alphanumeric first and last character, interior from [A-Za-z0-9/_.-]
	branchNameRegex = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9/_.-]*[A-Za-z0-9])?$`)

	// containerPrefixRegex validates the per-project container name prefix
	containerPrefixRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)
)

// IsValidBranchName reports whether name is an acceptable branch name
func IsValidBranchName(name string) bool {
	if name == "" || strings.Contains(name, "..") {
		return false
	}
	return branchNameRegex.MatchString(name)
}

// BranchName validates a branch name
func BranchName(name string) error {
	if !IsValidBranchName(name) {
		return errors.InvalidBranchName(name)
	}
	return nil
}

// ContainerPrefix validates the container name prefix
func ContainerPrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	if !containerPrefixRegex.MatchString(prefix) {
		return errors.ValidationFailed("container_prefix", prefix, "must be lowercase letters, digits, '_', '.' or '-'")
	}
	return nil
}

// PortRange validates an inclusive port range
func PortRange(field string, min, max int) error {
	if min < constants.MinPortNumber || max > constants.MaxPortNumber {
		return errors.ValidationFailed(field, "", "ports must be between 1 and 65535")
	}
	if min > max {
		return errors.ValidationFailed(field, "", "min must not exceed max")
	}
	return nil
}
