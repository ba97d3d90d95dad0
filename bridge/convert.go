package bridge

import (
	"bytes"

	"github.com/chazu/pmnative/value"
)

// ListToBytes copies the first len(dst) elements of l into dst. Every
// element must be an int in 0..255; a list shorter than dst is a ValueError.
func ListToBytes(l *value.List, dst []byte) error {
	if err := checkByteList(l, len(dst)); err != nil {
		return err
	}
	for i := range dst {
		v, _ := l.At(i)
		n, _ := v.AsInt()
		dst[i] = byte(n)
	}
	return nil
}

// checkByteList validates the first n elements without copying, so callers
// can reject bad data before acquiring a buffer.
func checkByteList(l *value.List, n int) error {
	if l.Len() < n {
		return Raise(ValueError, "list has %d elements, %d required", l.Len(), n)
	}
	for i := 0; i < n; i++ {
		v, _ := l.At(i)
		b, ok := v.AsInt()
		if !ok {
			return Raise(TypeError, "list element %d must be int, not %s", i, v.Kind())
		}
		if b < 0 || b > 0xFF {
			return Raise(TypeError, "list element %d out of byte range: %d", i, b)
		}
	}
	return nil
}

// BytesToList builds a list of ints, one per byte, in order
func BytesToList(b []byte) value.Value {
	l := value.NewList()
	for _, c := range b {
		l.Append(value.Int(int32(c)))
	}
	return value.FromList(l)
}

// StringFromBytes builds a string from b, stopping at the first NUL.
// Nothing past len(b) is examined.
func StringFromBytes(b []byte) value.Value {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return value.StrBytes(b)
}

// BorrowString lends fn n+1 bytes of s straight from the string's
// storage. Byte n is the NUL terminator only when n equals the string
// length; otherwise it is the next data byte. The slice is valid only
// while fn runs and must not be modified.
func BorrowString(s value.Value, n int, fn func(src []byte) error) error {
	if !s.Is(value.KindStr) {
		return Raise(TypeError, "expected string, not %s", s.Kind())
	}
	if n < 0 {
		return Raise(ValueError, "negative length %d", n)
	}
	if n > s.Len() {
		return Raise(ValueError, "length %d exceeds string length %d", n, s.Len())
	}
	storage := s.Storage()
	return fn(storage[:n+1:n+1])
}
