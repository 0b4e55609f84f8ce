package sd

import "github.com/bpx-format/bpx/bpxerr"

// Array is an ordered sequence of Values, at most 255 entries.
type Array struct {
	items []Value
}

func NewArray() *Array { return &Array{} }

func (a *Array) Len() int { return len(a.items) }

func (a *Array) Append(v Value) error {
	if len(a.items) >= maxEntries {
		return bpxerr.PropCountExceeded(len(a.items) + 1)
	}
	a.items = append(a.items, v)
	return nil
}

func (a *Array) Items() []Value { return a.items }

func (a *Array) Equal(other *Array) bool {
	if a == nil || other == nil {
		return a == other
	}
	if len(a.items) != len(other.items) {
		return false
	}
	for i := range a.items {
		if !a.items[i].Equal(other.items[i]) {
			return false
		}
	}
	return true
}
