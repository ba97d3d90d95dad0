// Package value provides the tagged value model shared by the interpreter
// and the native bridge. Every value carries an explicit Kind; nothing is
// inferred from its contents.
package value

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the type tag of a Value
type Kind int

const (
	KindNone Kind = iota
	KindInt
	KindFloat
	KindStr
	KindList
	KindTuple
	KindFunc
)

var kindNames = [...]string{
	KindNone:  "None",
	KindInt:   "int",
	KindFloat: "float",
	KindStr:   "string",
	KindList:  "list",
	KindTuple: "tuple",
	KindFunc:  "function",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Callable is the opaque handle behind a function value. The interpreter
// provides the implementation; the bridge only passes it along.
type Callable interface {
	Call(ctx context.Context, args []Value) (Value, error)
}

// CallableFunc adapts a Go function to Callable
type CallableFunc func(ctx context.Context, args []Value) (Value, error)

func (f CallableFunc) Call(ctx context.Context, args []Value) (Value, error) {
	return f(ctx, args)
}

// Value is a single interpreter value
type Value struct {
	kind  Kind
	i     int32
	f     float32
	s     []byte // string data followed by one NUL byte
	list  *List
	tuple []Value
	fn    Callable
}

// None returns the None value
func None() Value {
	return Value{kind: KindNone}
}

// Int creates an integer value
func Int(n int32) Value {
	return Value{kind: KindInt, i: n}
}

// Float creates a float value
func Float(f float32) Value {
	return Value{kind: KindFloat, f: f}
}

// Str creates a string value. The bytes are copied and terminated.
func Str(s string) Value {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return Value{kind: KindStr, s: buf}
}

// StrBytes creates a string value from raw bytes.
func StrBytes(b []byte) Value {
	buf := make([]byte, len(b)+1)
	copy(buf, b)
	return Value{kind: KindStr, s: buf}
}

// ListOf creates a list value holding the given elements.
func ListOf(elems ...Value) Value {
	return Value{kind: KindList, list: NewList(elems...)}
}

// FromList wraps an existing list. The list is shared, not copied.
func FromList(l *List) Value {
	if l == nil {
		l = NewList()
	}
	return Value{kind: KindList, list: l}
}

// Tuple creates an immutable tuple value.
func Tuple(elems ...Value) Value {
	t := make([]Value, len(elems))
	copy(t, elems)
	return Value{kind: KindTuple, tuple: t}
}

// Func wraps a callable handle.
func Func(c Callable) Value {
	if c == nil {
		return None()
	}
	return Value{kind: KindFunc, fn: c}
}

// Kind returns the type tag
func (v Value) Kind() Kind {
	return v.kind
}

// Is reports whether v carries tag k
func (v Value) Is(k Kind) bool {
	return v.kind == k
}

// IsNone returns true for the None value
func (v Value) IsNone() bool {
	return v.kind == KindNone
}

// AsInt returns the integer payload
func (v Value) AsInt() (int32, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// AsFloat returns the float payload
func (v Value) AsFloat() (float32, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// AsString returns a copy of the string payload
func (v Value) AsString() (string, bool) {
	if v.kind != KindStr {
		return "", false
	}
	return string(v.s[:len(v.s)-1]), true
}

// Len returns the number of data bytes of a string, the number of
// elements of a list or tuple, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindStr:
		return len(v.s) - 1
	case KindList:
		return v.list.Len()
	case KindTuple:
		return len(v.tuple)
	default:
		return 0
	}
}

// Storage exposes the string's backing bytes including the trailing NUL.
// Callers must not modify or retain the slice.
func (v Value) Storage() []byte {
	if v.kind != KindStr {
		return nil
	}
	return v.s
}

// AsList returns the list payload
func (v Value) AsList() (*List, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// TupleAt returns a tuple element, or None when out of range
func (v Value) TupleAt(i int) Value {
	if v.kind != KindTuple || i < 0 || i >= len(v.tuple) {
		return None()
	}
	return v.tuple[i]
}

// AsFunc returns the callable payload
func (v Value) AsFunc() (Callable, bool) {
	if v.kind != KindFunc {
		return nil, false
	}
	return v.fn, true
}

// String renders the value the way the interpreter prints it
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindInt:
		return strconv.FormatInt(int64(v.i), 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.f), 'f', -1, 32)
	case KindStr:
		return strconv.Quote(string(v.s[:len(v.s)-1]))
	case KindList:
		return "[" + joinValues(v.list.elems) + "]"
	case KindTuple:
		if len(v.tuple) == 1 {
			return "(" + v.tuple[0].String() + ",)"
		}
		return "(" + joinValues(v.tuple) + ")"
	case KindFunc:
		return fmt.Sprintf("<function %p>", v.fn)
	default:
		return "<invalid>"
	}
}

func joinValues(vs []Value) string {
	parts := make([]string, len(vs))
	for i, e := range vs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// Equal compares two values structurally. Functions compare by identity.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNone:
		return true
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindStr:
		return string(a.s) == string(b.s)
	case KindList:
		if a.list == b.list {
			return true
		}
		return equalSlices(a.list.elems, b.list.elems)
	case KindTuple:
		return equalSlices(a.tuple, b.tuple)
	case KindFunc:
		return a.fn == b.fn
	}
	return false
}

func equalSlices(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
