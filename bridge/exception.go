package bridge

import (
	"errors"
	"fmt"
)

// ExceptionKind identifies the interpreter exception a failed call raises.
type ExceptionKind int

const (
	// Ok is reported by KindOf for a nil error.
	Ok ExceptionKind = iota
	TypeError
	ValueError
	SystemExit
	MemoryError
	IOError
	NameError
)

var exceptionNames = [...]string{
	Ok:          "Ok",
	TypeError:   "TypeError",
	ValueError:  "ValueError",
	SystemExit:  "SystemExit",
	MemoryError: "MemoryError",
	IOError:     "IOError",
	NameError:   "NameError",
}

func (k ExceptionKind) String() string {
	if k < 0 || int(k) >= len(exceptionNames) {
		return fmt.Sprintf("ExceptionKind(%d)", int(k))
	}
	return exceptionNames[k]
}

// Exception is the single failure outcome of a bridge call. It propagates
// unchanged to the interpreter.
type Exception struct {
	Kind ExceptionKind
	Code int32 // exit code, SystemExit only
	Msg  string
	Err  error // underlying driver or allocator error, if any
}

func (e *Exception) Error() string {
	switch {
	case e.Kind == SystemExit:
		return fmt.Sprintf("SystemExit: %d", e.Code)
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Exception) Unwrap() error {
	return e.Err
}

// Raise builds an exception of the given kind.
func Raise(kind ExceptionKind, format string, args ...any) *Exception {
	return &Exception{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Exit builds the SystemExit exception carrying code.
func Exit(code int32) *Exception {
	return &Exception{Kind: SystemExit, Code: code}
}

// wrap attaches a cause to a new exception
func wrap(kind ExceptionKind, err error, format string, args ...any) *Exception {
	return &Exception{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf classifies err. Errors that are not exceptions are reported as
// IOError since they can only come from a collaborator.
func KindOf(err error) ExceptionKind {
	if err == nil {
		return Ok
	}
	var ex *Exception
	if errors.As(err, &ex) {
		return ex.Kind
	}
	return IOError
}

// ExitCode returns the code of a SystemExit and whether err was one.
func ExitCode(err error) (int32, bool) {
	var ex *Exception
	if errors.As(err, &ex) && ex.Kind == SystemExit {
		return ex.Code, true
	}
	return 0, false
}
