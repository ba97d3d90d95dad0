package value

import (
	"context"
	"testing"
)

type nopFunc struct{}

func (nopFunc) Call(ctx context.Context, args []Value) (Value, error) {
	return None(), nil
}

func TestKinds(t *testing.T) {
	tests := []struct {
		v    Value
		kind Kind
	}{
		{None(), KindNone},
		{Int(7), KindInt},
		{Float(1.5), KindFloat},
		{Str("abc"), KindStr},
		{ListOf(Int(1)), KindList},
		{Tuple(Int(1), Int(2)), KindTuple},
		{Func(nopFunc{}), KindFunc},
	}
	for _, tt := range tests {
		if tt.v.Kind() != tt.kind {
			t.Errorf("%v: kind = %v, want %v", tt.v, tt.v.Kind(), tt.kind)
		}
	}
}

func TestFuncNilIsNone(t *testing.T) {
	if !Func(nil).IsNone() {
		t.Error("Func(nil) should be None")
	}
}

func TestAccessorsRejectOtherKinds(t *testing.T) {
	if _, ok := Str("1").AsInt(); ok {
		t.Error("AsInt accepted a string")
	}
	if _, ok := Int(1).AsString(); ok {
		t.Error("AsString accepted an int")
	}
	if _, ok := Tuple().AsList(); ok {
		t.Error("AsList accepted a tuple")
	}
	if _, ok := ListOf().AsFunc(); ok {
		t.Error("AsFunc accepted a list")
	}
}

func TestStrStorageIsTerminated(t *testing.T) {
	s := Str("hi")
	st := s.Storage()
	if len(st) != 3 || st[2] != 0 {
		t.Fatalf("storage = %v, want data plus NUL", st)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	got, _ := s.AsString()
	if got != "hi" {
		t.Errorf("AsString = %q, want hi", got)
	}
}

func TestStrCopiesInput(t *testing.T) {
	src := []byte("abc")
	s := StrBytes(src)
	src[0] = 'z'
	got, _ := s.AsString()
	if got != "abc" {
		t.Errorf("string changed with its source: %q", got)
	}
}

func TestTupleIsImmutable(t *testing.T) {
	elems := []Value{Int(1), Int(2)}
	tup := Tuple(elems...)
	elems[0] = Int(9)
	if n, _ := tup.TupleAt(0).AsInt(); n != 1 {
		t.Errorf("tuple element changed with its source: %d", n)
	}
	if !tup.TupleAt(5).IsNone() {
		t.Error("out-of-range TupleAt should be None")
	}
}

func TestListMutation(t *testing.T) {
	l := NewList(Int(1))
	l.Append(Int(2))
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
	if !l.Set(0, Int(5)) {
		t.Fatal("Set in range returned false")
	}
	if l.Set(3, Int(5)) {
		t.Error("Set out of range returned true")
	}
	v, ok := l.At(0)
	if n, _ := v.AsInt(); !ok || n != 5 {
		t.Errorf("At(0) = %v, want 5", v)
	}
	if _, ok := l.At(-1); ok {
		t.Error("At(-1) should be out of range")
	}
	shared := FromList(l)
	l.Append(Int(3))
	if shared.Len() != 3 {
		t.Errorf("FromList should share the list, Len = %d", shared.Len())
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{None(), "None"},
		{Int(-3), "-3"},
		{Float(49.609375), "49.609375"},
		{Str("a\"b"), `"a\"b"`},
		{ListOf(Int(0x79), Int(0x6F)), "[121, 111]"},
		{Tuple(Int(1)), "(1,)"},
		{Tuple(Int(1), Int(2)), "(1, 2)"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	f := nopFunc{}
	tests := []struct {
		a, b Value
		want bool
	}{
		{Int(1), Int(1), true},
		{Int(1), Float(1), false},
		{Str("x"), Str("x"), true},
		{Str("x"), Str("y"), false},
		{ListOf(Int(1), Int(2)), ListOf(Int(1), Int(2)), true},
		{ListOf(Int(1)), ListOf(Int(1), Int(2)), false},
		{Tuple(Int(1), Str("a")), Tuple(Int(1), Str("a")), true},
		{Func(f), Func(f), true},
		{None(), None(), true},
	}
	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindList.String() != "list" {
		t.Errorf("KindList = %q", KindList.String())
	}
	if Kind(42).String() != "Kind(42)" {
		t.Errorf("unknown kind = %q", Kind(42).String())
	}
}
