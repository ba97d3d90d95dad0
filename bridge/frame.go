package bridge

import (
	"github.com/chazu/pmnative/value"
)

// Frame holds the arguments of one bridge invocation. It is owned by the
// interpreter; the bridge reads it and never keeps it past the call.
type Frame struct {
	args []value.Value
}

// NewFrame wraps the given arguments
func NewFrame(args ...value.Value) *Frame {
	return &Frame{args: args}
}

// Count returns the number of arguments supplied
func (f *Frame) Count() int {
	if f == nil {
		return 0
	}
	return len(f.args)
}

// Arg returns the argument at index i. Callers check Count first; an index
// outside the frame is a TypeError.
func (f *Frame) Arg(i int) (value.Value, error) {
	if i < 0 || i >= f.Count() {
		return value.None(), Raise(TypeError, "argument %d out of range (%d given)", i, f.Count())
	}
	return f.args[i], nil
}

// Kinds returns the tags of all arguments
func (f *Frame) Kinds() []value.Kind {
	kinds := make([]value.Kind, f.Count())
	for i := range kinds {
		kinds[i] = f.args[i].Kind()
	}
	return kinds
}

func (f *Frame) typed(i int, k value.Kind) (value.Value, error) {
	v, err := f.Arg(i)
	if err != nil {
		return v, err
	}
	if v.Kind() != k {
		return v, Raise(TypeError, "argument %d must be %s, not %s", i, k, v.Kind())
	}
	return v, nil
}

// Int returns argument i as an integer
func (f *Frame) Int(i int) (int32, error) {
	v, err := f.typed(i, value.KindInt)
	if err != nil {
		return 0, err
	}
	n, _ := v.AsInt()
	return n, nil
}

// Float returns argument i as a float
func (f *Frame) Float(i int) (float32, error) {
	v, err := f.typed(i, value.KindFloat)
	if err != nil {
		return 0, err
	}
	x, _ := v.AsFloat()
	return x, nil
}

// Str returns argument i as a Go string
func (f *Frame) Str(i int) (string, error) {
	v, err := f.typed(i, value.KindStr)
	if err != nil {
		return "", err
	}
	s, _ := v.AsString()
	return s, nil
}

// StrValue returns argument i as a string value, for borrowing its storage
func (f *Frame) StrValue(i int) (value.Value, error) {
	return f.typed(i, value.KindStr)
}

// List returns argument i as a list
func (f *Frame) List(i int) (*value.List, error) {
	v, err := f.typed(i, value.KindList)
	if err != nil {
		return nil, err
	}
	l, _ := v.AsList()
	return l, nil
}

// Func returns argument i as a function value
func (f *Frame) Func(i int) (value.Value, error) {
	return f.typed(i, value.KindFunc)
}
