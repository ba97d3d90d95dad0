package bridge

import (
	"testing"

	"github.com/chazu/pmnative/value"
)

func TestFrameAccess(t *testing.T) {
	f := NewFrame(value.Str("dev"), value.Int(3))
	if f.Count() != 2 {
		t.Fatalf("Count = %d", f.Count())
	}
	v, err := f.Arg(1)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := v.AsInt(); n != 3 {
		t.Errorf("Arg(1) = %v", v)
	}
	if _, err := f.Arg(2); KindOf(err) != TypeError {
		t.Errorf("Arg(2) = %v, want TypeError", err)
	}
	if _, err := f.Arg(-1); KindOf(err) != TypeError {
		t.Errorf("Arg(-1) = %v, want TypeError", err)
	}
	if _, err := f.Int(0); KindOf(err) != TypeError {
		t.Errorf("Int(0) on a string = %v, want TypeError", err)
	}
	if s, err := f.Str(0); err != nil || s != "dev" {
		t.Errorf("Str(0) = %q, %v", s, err)
	}

	var nilFrame *Frame
	if nilFrame.Count() != 0 {
		t.Error("nil frame should be empty")
	}
}

func TestSignatureValidate(t *testing.T) {
	s := Sig(value.KindStr, value.KindInt)
	tests := []struct {
		args []value.Value
		ok   bool
	}{
		{[]value.Value{value.Str("a"), value.Int(1)}, true},
		{[]value.Value{value.Str("a")}, false},
		{[]value.Value{value.Int(1), value.Int(1)}, false},
		{[]value.Value{value.Str("a"), value.Int(1), value.Int(2)}, false},
	}
	for _, tt := range tests {
		err := s.Validate("f", NewFrame(tt.args...))
		if (err == nil) != tt.ok {
			t.Errorf("Validate(%v) = %v, want ok=%v", tt.args, err, tt.ok)
		}
		if err != nil && KindOf(err) != TypeError {
			t.Errorf("Validate(%v) kind = %v", tt.args, KindOf(err))
		}
	}
}

func TestSignatureOptional(t *testing.T) {
	s := Sig(value.KindInt).Optional(1)
	if err := s.Validate("exit", NewFrame()); err != nil {
		t.Errorf("no args: %v", err)
	}
	if err := s.Validate("exit", NewFrame(value.Int(2))); err != nil {
		t.Errorf("one arg: %v", err)
	}
	if err := s.Validate("exit", NewFrame(value.Str("x"))); err == nil {
		t.Error("string accepted for optional int")
	}
	if s.String() != "([int])" {
		t.Errorf("String = %q", s.String())
	}
	if got := Sig(value.KindStr, value.KindList).String(); got != "(string, list)" {
		t.Errorf("String = %q", got)
	}
}

func TestHeapAccounting(t *testing.T) {
	h := NewHeap(10)
	a, err := h.Acquire(6)
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range a.Bytes() {
		if b != 0 {
			t.Fatal("buffer not zero-filled")
		}
	}
	if _, err := h.Acquire(5); err == nil {
		t.Fatal("over-commit succeeded")
	}
	if h.Avail() != 4 {
		t.Errorf("Avail = %d, want 4", h.Avail())
	}
	a.Release()
	a.Release()
	if a.Bytes() != nil || !a.Released() {
		t.Error("released buffer still exposes its bytes")
	}
	c := h.Counters()
	if c.Acquired != 1 || c.Released != 1 || c.InUse != 0 {
		t.Errorf("counters = %+v", c)
	}
	if _, err := h.Acquire(-1); err == nil {
		t.Error("negative acquire succeeded")
	}
}

func TestRegistryFilter(t *testing.T) {
	r := DefaultRegistry()
	n := r.Len()
	r.Filter(func(nat *Native) bool { return nat.Module() != "sys" })
	for _, name := range r.Names() {
		if r.Lookup(name).Module() == "sys" {
			t.Errorf("%s survived the filter", name)
		}
	}
	if r.Len() >= n {
		t.Errorf("filter removed nothing (%d -> %d)", n, r.Len())
	}
	if r.Lookup("eeprom.read") == nil {
		t.Error("eeprom.read was removed")
	}
}
