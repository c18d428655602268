package commands

import (
	stderrors "errors"
	"fmt"

	"worktreectl/internal/container"
	"worktreectl/internal/errors"
	"worktreectl/internal/logger"
)

// HandleError adds a hint to errors the user can act on
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	var containerErr *container.ContainerError
	if stderrors.As(err, &containerErr) {
		logger.WithError(err).Debug("Container operation failed")
		if we, ok := errors.As(err); ok && we.Details != "" {
			return fmt.Errorf("%s (%s)\n\n%s", we.Message, we.Details, container.GetUserMessage(containerErr))
		}
		return fmt.Errorf("%s", container.GetUserMessage(containerErr))
	}

	if we, ok := errors.As(err); ok && we.Code == errors.ErrConflict {
		if path, ok := we.Context["worktree_path"].(string); ok && path != "" {
			return fmt.Errorf("%w\n\nTip: The branch is checked out in a worktree that is not registered. Remove it with 'git worktree remove %s' and retry.", err, path)
		}
	}

	switch errors.GetCode(err) {
	case errors.ErrConflict:
		return fmt.Errorf("%w\n\nTip: Use 'worktreectl list' to see registered worktrees, or 'worktreectl sync' to drop stale entries.", err)
	case errors.ErrResourceExhausted:
		return fmt.Errorf("%w\n\nTip: Remove unused worktrees with 'worktreectl cleanup' or widen the range in the [ports] config section.", err)
	case errors.ErrPartialBatch:
		return fmt.Errorf("%w\n\nTip: Run 'worktreectl sync' to reconcile what is left.", err)
	case errors.ErrNotFound:
		return fmt.Errorf("%w\n\nTip: Use 'worktreectl list' to see registered worktrees.", err)
	case errors.ErrConfigInvalid, errors.ErrConfigParse:
		return fmt.Errorf("%w\n\nTip: Use 'worktreectl config show' to see the effective configuration.", err)
	case errors.ErrDatabaseConnection, errors.ErrDatabaseMigration:
		return fmt.Errorf("%w\n\nTip: Set [history] disabled = true to run without the history journal.", err)
	default:
		return err
	}
}
