// Package blockinfo holds the per-index info array: the packed
// (timestamp, bad, rehash) triple the sync engine consults before
// deciding whether an index's parity must be rewritten.
package blockinfo

// Info is the per-index metadata entry.
type Info struct {
	// Timestamp is the wall-clock second parity at this index was last
	// written.
	Timestamp int64
	// Bad marks the index as suspect; a later scrub/fix pass must
	// re-examine it.
	Bad bool
	// Rehash marks that stored hashes at this index used the previous
	// hash function/seed and must be rewritten with the current one
	// the next time this index is cleanly committed.
	Rehash bool
}

// Make builds an Info entry from its three fields.
func Make(timestamp int64, bad, rehash bool) Info {
	return Info{Timestamp: timestamp, Bad: bad, Rehash: rehash}
}

// SetBad returns a copy of info with Bad set, preserving Timestamp and
// Rehash.
func (info Info) SetBad() Info {
	info.Bad = true
	return info
}

// Array is the per-disk-index info array, indexed the same way as each
// disk's block arena.
type Array struct {
	entries map[uint32]Info
}

// NewArray creates an empty info array.
func NewArray() *Array {
	return &Array{entries: make(map[uint32]Info)}
}

// Get returns the info entry at i, or the zero Info if none is set.
func (a *Array) Get(i uint32) Info {
	if a == nil {
		return Info{}
	}
	return a.entries[i]
}

// Set stores the info entry at i.
func (a *Array) Set(i uint32, info Info) {
	a.entries[i] = info
}

// GetBad reports whether the entry at i is marked bad.
func (a *Array) GetBad(i uint32) bool {
	return a.Get(i).Bad
}

// GetRehash reports whether the entry at i is pending a rehash.
func (a *Array) GetRehash(i uint32) bool {
	return a.Get(i).Rehash
}

// SetBad marks the entry at i bad, preserving its other fields.
func (a *Array) SetBad(i uint32) {
	a.Set(i, a.Get(i).SetBad())
}

// Len reports how many indices currently hold an entry, including
// entries whose fields are all zero.
func (a *Array) Len() int {
	return len(a.entries)
}

// Range calls fn once for every index currently holding an entry. The
// order of iteration is unspecified.
func (a *Array) Range(fn func(i uint32, info Info)) {
	if a == nil {
		return
	}
	for i, info := range a.entries {
		fn(i, info)
	}
}
