package bridge

import (
	"errors"
	"fmt"
	"testing"
)

func TestExceptionKinds(t *testing.T) {
	if KindOf(nil) != Ok {
		t.Error("nil error should be Ok")
	}
	if KindOf(errors.New("x")) != IOError {
		t.Error("plain errors should classify as IOError")
	}
	wrapped := fmt.Errorf("outer: %w", Raise(ValueError, "bad"))
	if KindOf(wrapped) != ValueError {
		t.Errorf("wrapped kind = %v", KindOf(wrapped))
	}
	if _, ok := ExitCode(Raise(TypeError, "x")); ok {
		t.Error("TypeError reported as exit")
	}
	if code, ok := ExitCode(Exit(3)); !ok || code != 3 {
		t.Errorf("ExitCode = %d, %v", code, ok)
	}
}

func TestExceptionMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Exit(2), "SystemExit: 2"},
		{Raise(TypeError, "argument %d", 1), "TypeError: argument 1"},
		{wrap(IOError, errors.New("nak"), "eeprom.read"), "IOError: eeprom.read: nak"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
	if ExceptionKind(99).String() != "ExceptionKind(99)" {
		t.Errorf("unknown kind = %q", ExceptionKind(99).String())
	}
}
