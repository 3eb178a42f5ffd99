package dispatch

import (
	"errors"
	"os/exec"
)

// exitCode extracts the exit code from a command error. A non-exit error
// (spawn failure, context kill) is passed through unchanged.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}
