// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package rhmap defines a Robin Hood open-addressing hash map from
// hashable keys to dense uint32 indices. Its main use is deduplication
// of composite records during asset import: inserting an unseen key
// assigns it the next index, inserting a seen one returns the index it
// got the first time.
package rhmap

import "math/bits"

// entry packs a shortened hash and a value into one uint64.
// A zero entry marks a free slot; hashes are adjusted so that a live
// entry is never all-zero.
type entry uint64

func makeEntry(hash uint32, value uint32) entry {
	return entry(hash)<<32 | entry(value)
}

func (e entry) hash() uint32  { return uint32(e >> 32) }
func (e entry) value() uint32 { return uint32(e) }

// Map maps keys of type K to the order in which they were first
// inserted. The zero value is an empty map ready for use.
type Map[K comparable] struct {
	entries []entry
	keys    []K
	mask    uint32
	size    int
}

// loadMax is the numerator of the map's maximum load factor (x/8).
const loadMax = 6

// Len returns the number of distinct keys inserted so far.
func (m *Map[K]) Len() int { return m.size }

// At returns the key that Insert assigned index to.
// It panics if index is out of bounds.
func (m *Map[K]) At(index uint32) K { return m.keys[index] }

// Keys returns the inserted keys in insertion (index) order.
// The returned slice is owned by the map and must not be mutated.
func (m *Map[K]) Keys() []K { return m.keys }

// Insert returns the index assigned to key, allocating the next unused
// index when key was never inserted before. found reports whether key
// was already present.
func (m *Map[K]) Insert(key K, hash uint32) (index uint32, found bool) {
	if m.size*8 >= len(m.entries)*loadMax {
		m.grow()
	}

	h := hash | 1 // zero marks a free slot

	// Robin Hood probing: walk the run for h, stealing the slot of any
	// entry closer to its home than we are to ours.
	pos := h & m.mask
	dist := uint32(0)
	for {
		e := m.entries[pos]
		if e == 0 {
			break
		}
		if e.hash() == h && m.keys[e.value()] == key {
			return e.value(), true
		}
		if (pos-e.hash())&m.mask < dist {
			// e sits closer to its home slot than the new key does to
			// its own, so the key cannot appear further down the run.
			// Take the slot and shift the chain.
			index = uint32(len(m.keys))
			m.keys = append(m.keys, key)
			m.place(pos, makeEntry(h, index), dist)
			m.size++
			return index, false
		}
		pos = (pos + 1) & m.mask
		dist++
	}

	index = uint32(len(m.keys))
	m.keys = append(m.keys, key)
	m.entries[pos] = makeEntry(h, index)
	m.size++
	return index, false
}

// Get returns the index assigned to key, or ok=false if key was never
// inserted.
func (m *Map[K]) Get(key K, hash uint32) (index uint32, ok bool) {
	if m.size == 0 {
		return 0, false
	}
	h := hash | 1
	pos := h & m.mask
	dist := uint32(0)
	for {
		e := m.entries[pos]
		if e == 0 {
			return 0, false
		}
		if e.hash() == h && m.keys[e.value()] == key {
			return e.value(), true
		}
		if (pos-e.hash())&m.mask < dist {
			return 0, false
		}
		pos = (pos + 1) & m.mask
		dist++
	}
}

// place continues a Robin Hood insertion from pos: ins takes the slot
// and the displaced chain shifts down until a free slot absorbs it.
func (m *Map[K]) place(pos uint32, ins entry, dist uint32) {
	for {
		e := m.entries[pos]
		if e == 0 {
			m.entries[pos] = ins
			return
		}
		if ed := (pos - e.hash()) & m.mask; ed < dist {
			m.entries[pos] = ins
			ins = e
			dist = ed
		}
		pos = (pos + 1) & m.mask
		dist++
	}
}

func (m *Map[K]) grow() {
	n := len(m.entries) * 2
	if n < 16 {
		n = 16
	}
	old := m.entries
	m.entries = make([]entry, n)
	m.mask = uint32(n - 1)
	for _, e := range old {
		if e == 0 {
			continue
		}
		pos := e.hash() & m.mask
		dist := uint32(0)
		m.place(pos, e, dist)
	}
}

// HashBytes hashes an arbitrary byte string, word at a time, with the
// rotate-xor-multiply scheme the map was designed around.
func HashBytes(data []byte) uint32 {
	const seed = 0x9e3779b9
	var hash uint32
	for len(data) >= 4 {
		w := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
		hash = (bits.RotateLeft32(hash, 5) ^ w) * seed
		data = data[4:]
	}
	if len(data) > 0 {
		var w uint32
		for _, b := range data {
			w = w<<8 | uint32(b)
		}
		hash = (bits.RotateLeft32(hash, 5) ^ w) * seed
	}
	return hash
}

// HashU32 hashes a sequence of 32-bit words.
func HashU32(words ...uint32) uint32 {
	const seed = 0x9e3779b9
	var hash uint32
	for _, w := range words {
		hash = (bits.RotateLeft32(hash, 5) ^ w) * seed
	}
	return hash
}
