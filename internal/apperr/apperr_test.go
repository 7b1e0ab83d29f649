package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindPropagatesThroughWrapping(t *testing.T) {
	base := New(NotFound, "no instance named %q", "dev")
	wrapped := fmt.Errorf("listing: %w", base)

	if !IsKind(wrapped, NotFound) {
		t.Error("IsKind(wrapped, NotFound) = false")
	}
	if IsKind(wrapped, Validation) {
		t.Error("IsKind(wrapped, Validation) = true")
	}
	if got := As(wrapped); got.Message != `no instance named "dev"` {
		t.Errorf("As(wrapped).Message = %q", got.Message)
	}
}

func TestAsWrapsForeignErrors(t *testing.T) {
	plain := errors.New("boom")
	ae := As(plain)
	if ae.Kind != Runtime {
		t.Errorf("Kind = %s, want runtime", ae.Kind)
	}
	if !errors.Is(ae, plain) {
		t.Error("wrapped error lost its cause")
	}
}

func TestWithDetailAndHintDoNotMutate(t *testing.T) {
	base := New(Runtime, "exec failed")
	detailed := base.WithDetail("line1\nline2\n")
	hinted := detailed.WithHint("try again")

	if base.Detail != "" || base.Hint != "" {
		t.Error("base error was mutated")
	}
	if detailed.Detail != "line1\nline2" {
		t.Errorf("Detail = %q, trailing newline should be trimmed", detailed.Detail)
	}
	if hinted.Hint != "try again" || hinted.Detail != "line1\nline2" {
		t.Errorf("hinted = %+v", hinted)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Dependency, cause, "runtime unreachable")
	if !errors.Is(err, cause) {
		t.Error("Wrap lost the cause")
	}
	if err.Error() != "runtime unreachable" {
		t.Errorf("Error() = %q", err.Error())
	}
}
