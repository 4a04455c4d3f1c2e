package lang

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// TestWrapError verifies adaptation of arbitrary errors for structured
// logging.
func TestWrapError(t *testing.T) {
	base := ErrBadForm.With()

	if WrapError(base) != base {
		t.Error("expected Error to pass through unchanged")
	}

	cause := errors.New("exit status 7: command not found")

	wrapped := WrapError(cause)
	if !errors.Is(wrapped, cause) {
		t.Error("expected wrapped chain to preserve the cause")
	}

	if !strings.Contains(wrapped.Error(), "command not found") {
		t.Errorf("expected cause message preserved, got %q", wrapped.Error())
	}
}

// TestError_Attrs verifies attribute rendering in the plain-text message.
func TestError_Attrs(t *testing.T) {
	err := ErrDuplicate.With(
		slog.String("name", "train"),
	)

	if !errors.Is(err, ErrDuplicate) {
		t.Error("expected sentinel match after With")
	}

	if !strings.Contains(err.Error(), "name=train") {
		t.Errorf("expected attribute in message, got %q", err.Error())
	}
}
