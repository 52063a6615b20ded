package errors

import (
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/dytgt/internal/logger"
)

// Format renders err for the terminal with an "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Report writes err to w, followed by the user-facing hint of a classified error
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, Format(err))
	if hint := UserMessage(err); hint != "" {
		fmt.Fprintln(w, hint)
	}
}

// ExitCode is 0 for nil, 2 for classified failures the user cannot retry and 1 otherwise
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case CodeOf(err) != "" && !IsRecoverable(err):
		return 2
	default:
		return 1
	}
}

// Fatal logs err, reports it on stderr and exits with ExitCode(err). A nil error is a no-op.
func Fatal(err error) {
	if err == nil {
		return
	}
	logger.Error("Command execution failed", "error", err, "code", CodeOf(err))
	Report(os.Stderr, err)
	os.Exit(ExitCode(err))
}
