package container

import (
	"errors"
	"strings"
)

// GetUserMessage returns a user-friendly error message with recovery suggestions
func GetUserMessage(err error) string {
	var containerErr *ContainerError
	if !errors.As(err, &containerErr) {
		return err.Error()
	}

	var message strings.Builder
	message.WriteString(containerErr.Error())

	switch containerErr.Type {
	case ErrorTypeRuntimeNotFound:
		message.WriteString("\n\nPossible solutions:")
		message.WriteString("\n• Ensure Docker is installed: https://docs.docker.com/get-docker/")
		message.WriteString("\n• Check if Docker daemon is running: 'docker info'")

	case ErrorTypeImageNotFound:
		message.WriteString("\n\nPossible solutions:")
		message.WriteString("\n• Check the [database] image in config.toml")
		message.WriteString("\n• Try pulling the image manually: 'docker pull <image>'")

	case ErrorTypePermissionDenied:
		message.WriteString("\n\nPossible solutions:")
		message.WriteString("\n• Add your user to the docker group: 'sudo usermod -aG docker $USER'")
		message.WriteString("\n• Log out and back in for group changes to take effect")

	case ErrorTypePortConflict:
		message.WriteString("\n\nPort conflict detected. Another process took the port after it was allocated.")
		message.WriteString("\n• Re-run setup to allocate a different port")

	case ErrorTypeNameConflict:
		message.WriteString("\n\nA container with this name already exists.")
		message.WriteString("\n• Run 'worktreectl sync' to remove stale database containers")

	case ErrorTypeNotReady:
		message.WriteString("\n\nThe database did not pass its readiness check.")
		message.WriteString("\n• Inspect the container logs: 'docker logs " + containerErr.ContainerID + "'")
	}

	return message.String()
}
