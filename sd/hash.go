package sd

import "hash/fnv"

// Hash is the fixed 64-bit deterministic hash function for BPXSD names:
// FNV-1a/64 over the UTF-8 bytes. The namespace is small and curated, so
// collisions are a programmer error rather than a security concern — see
// Object.Set.
func Hash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
