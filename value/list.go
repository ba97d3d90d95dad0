package value

// List is the mutable sequence behind a list value
type List struct {
	elems []Value
}

// NewList creates a list holding a copy of elems
func NewList(elems ...Value) *List {
	l := &List{elems: make([]Value, len(elems))}
	copy(l.elems, elems)
	return l
}

// Append adds an element to the end of the list
func (l *List) Append(v Value) {
	l.elems = append(l.elems, v)
}

// At returns the element at idx and whether idx was in range
func (l *List) At(idx int) (Value, bool) {
	if l == nil || idx < 0 || idx >= len(l.elems) {
		return None(), false
	}
	return l.elems[idx], true
}

// Set replaces the element at idx. Out-of-range indexes are ignored.
func (l *List) Set(idx int, v Value) bool {
	if l == nil || idx < 0 || idx >= len(l.elems) {
		return false
	}
	l.elems[idx] = v
	return true
}

// Len returns the number of elements
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.elems)
}
