package sd

import "github.com/bpx-format/bpx/bpxerr"

// maxEntries is the wire format's per-Object/per-Array entry cap: encoded
// as a single count byte, so 255 is the largest representable count.
const maxEntries = 255

// Object is an insertion-order-irrelevant mapping from 64-bit name hash to
// Value, with at most 255 entries.
type Object struct {
	entries map[uint64]Value
	names   map[uint64]string
}

func NewObject() *Object {
	return &Object{entries: make(map[uint64]Value)}
}

func (o *Object) Len() int { return len(o.entries) }

// Set stores v under name's hash. It rejects a hash collision against a
// previously set, different name — the namespace is small and curated, so
// a collision here is treated as a programmer error rather than silently
// overwriting the earlier entry.
func (o *Object) Set(name string, v Value) error {
	h := Hash(name)
	if prev, ok := o.names[h]; ok && prev != name {
		return bpxerr.Corruption("BPXSD name hash collision between " + prev + " and " + name)
	}
	if err := o.SetHash(h, v); err != nil {
		return err
	}
	if o.names == nil {
		o.names = make(map[uint64]string)
	}
	o.names[h] = name
	return nil
}

// SetHash stores v under an already-hashed name, for decoders that only
// ever see hashes on the wire.
func (o *Object) SetHash(h uint64, v Value) error {
	if _, exists := o.entries[h]; !exists && len(o.entries) >= maxEntries {
		return bpxerr.PropCountExceeded(len(o.entries) + 1)
	}
	o.entries[h] = v
	return nil
}

func (o *Object) Get(name string) (Value, bool) {
	return o.GetHash(Hash(name))
}

func (o *Object) GetHash(h uint64) (Value, bool) {
	v, ok := o.entries[h]
	return v, ok
}

// Entries returns the hash->Value mapping directly. Callers must not
// mutate the returned map.
func (o *Object) Entries() map[uint64]Value { return o.entries }

// Equal compares two objects by hash->value mapping and recursive
// structural equality, per spec.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if len(o.entries) != len(other.entries) {
		return false
	}
	for h, v := range o.entries {
		ov, ok := other.entries[h]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// DebugSymbolsKey is the reserved field name carrying the optional
// __debug__ auxiliary array of source symbol names.
const DebugSymbolsKey = "__debug__"

// DebugSymbols returns the __debug__ array, or a MissingProp error if it is
// absent.
func (o *Object) DebugSymbols() (*Array, error) {
	v, ok := o.Get(DebugSymbolsKey)
	if !ok {
		return nil, bpxerr.MissingProp(DebugSymbolsKey)
	}
	if v.Kind() != KindArray {
		return nil, bpxerr.TypeErrorf("%s is not an array", DebugSymbolsKey)
	}
	return v.Array(), nil
}

// SetDebugSymbols attaches names as the __debug__ auxiliary array.
func (o *Object) SetDebugSymbols(names []string) error {
	arr := NewArray()
	for _, n := range names {
		if err := arr.Append(Str(n)); err != nil {
			return err
		}
	}
	return o.Set(DebugSymbolsKey, Arr(arr))
}
