package bridge

import (
	"strconv"
	"strings"

	"github.com/chazu/pmnative/value"
)

// Signature is the expected arity and argument tags of a native.
// Arguments past Required are optional.
type Signature struct {
	Params   []value.Kind
	Required int
}

// Sig builds a fixed-arity signature
func Sig(params ...value.Kind) Signature {
	return Signature{Params: params, Required: len(params)}
}

// Optional marks the last n parameters as optional
func (s Signature) Optional(n int) Signature {
	s.Required = len(s.Params) - n
	if s.Required < 0 {
		s.Required = 0
	}
	return s
}

// Validate checks the arity first, then each tag in order, and fails at
// the first mismatch. It runs before any conversion or allocation.
func (s Signature) Validate(name string, f *Frame) error {
	n := f.Count()
	if n < s.Required || n > len(s.Params) {
		return Raise(TypeError, "%s%s takes %s, %d given", name, s, s.arity(), n)
	}
	for i := 0; i < n; i++ {
		arg, err := f.Arg(i)
		if err != nil {
			return err
		}
		if arg.Kind() != s.Params[i] {
			return Raise(TypeError, "%s: argument %d must be %s, not %s", name, i, s.Params[i], arg.Kind())
		}
	}
	return nil
}

func (s Signature) arity() string {
	if s.Required == len(s.Params) {
		return plural(len(s.Params))
	}
	return "between " + strconv.Itoa(s.Required) + " and " + plural(len(s.Params))
}

func plural(n int) string {
	if n == 1 {
		return "1 argument"
	}
	return strconv.Itoa(n) + " arguments"
}

// String renders the signature as "(string, int, [int])"
func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, k := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if i >= s.Required {
			b.WriteString("[" + k.String() + "]")
		} else {
			b.WriteString(k.String())
		}
	}
	b.WriteByte(')')
	return b.String()
}
