// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package hmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Key1, Key2, Key3, Key4 are the ordered node-tuple keys for HapNodes,
// SingleNodes, DuoNodes and TrioNodes respectively (§3 "Sparse
// node-tuple table", §4.H).
type (
	Key1 [1]int
	Key2 [2]int
	Key3 [3]int
	Key4 [4]int
)

// mix64 is a 64-bit integer hash (splitmix64 finalizer), used to build
// the two independent probe hashes h1/h2 required by double hashing
// (§4.H: "Primary hash h1 = mix(key), secondary h2 = mix'(key) | 1").
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

func combine(seed uint64, v int) uint64 {
	return mix64(seed ^ uint64(v)*0x9e3779b97f4a7c15)
}

func hashTuple(seed uint64, key []int) uint64 {
	h := seed
	for _, v := range key {
		h = combine(h, v)
	}
	return mix64(h)
}

// Table is a double-hashed, open-addressed sparse map from an ordered
// integer tuple to a non-negative float64, with deterministic
// insertion-order enumeration preserved across rehashing (§4.H).
type Table[K comparable] struct {
	cap      int
	keys     []K
	vals     []float64
	occupied []bool
	order    []K
	size     int
	toInts   func(K) []int
}

const initialTableCap = 16
const loadFactorTrigger = 0.75

// NewTable builds an empty table for key type K, given a function that
// exposes a key's components as an ordered int slice (used to build the
// two probe hashes).
func NewTable[K comparable](toInts func(K) []int) *Table[K] {
	return &Table[K]{
		cap:      initialTableCap,
		keys:     make([]K, initialTableCap),
		vals:     make([]float64, initialTableCap),
		occupied: make([]bool, initialTableCap),
		toInts:   toInts,
	}
}

func (t *Table[K]) probe(key K) (h1, h2 uint64) {
	ints := t.toInts(key)
	h1 = hashTuple(0x9e3779b97f4a7c15, ints) % uint64(t.cap)
	h2 = hashTuple(0xc2b2ae3d27d4eb4f, ints)
	h2 = (h2 | 1) % uint64(t.cap)
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

// findSlot returns the slot index for key: either its existing slot, or
// the first empty slot on its probe sequence.
func (t *Table[K]) findSlot(key K) int {
	h1, h2 := t.probe(key)
	slot := int(h1)
	for i := 0; i < t.cap; i++ {
		if !t.occupied[slot] || t.keys[slot] == key {
			return slot
		}
		slot = int((uint64(slot) + h2)) % t.cap
	}
	panic("hmm: node table probe sequence exhausted without finding a slot")
}

func checkValue(v float64) {
	if math.IsNaN(v) {
		panic("hmm: NaN value passed to node table update")
	}
	if v < 0 {
		panic(fmt.Sprintf("hmm: negative value %v passed to node table update", v))
	}
	if v == 0 {
		// Open question (§9): "forbid inserting 0 (already true)" —
		// a legitimate sampler value never underflows below MinValue,
		// so a bare zero here is a programming error, not data.
		panic("hmm: zero value passed to node table update (use MinValue for underflow)")
	}
}

func (t *Table[K]) maybeGrow() {
	if float64(t.size+1) >= loadFactorTrigger*float64(t.cap) {
		t.rehash(t.cap * 2)
	}
}

func (t *Table[K]) rehash(newCap int) {
	order := t.order
	vals := make(map[K]float64, len(order))
	for _, k := range order {
		vals[k] = t.Value(k)
	}

	t.cap = newCap
	t.keys = make([]K, newCap)
	t.vals = make([]float64, newCap)
	t.occupied = make([]bool, newCap)
	t.size = 0
	t.order = nil
	for _, k := range order {
		t.insert(k, vals[k])
	}
}

func (t *Table[K]) insert(key K, v float64) {
	slot := t.findSlot(key)
	if !t.occupied[slot] {
		t.occupied[slot] = true
		t.keys[slot] = key
		t.order = append(t.order, key)
		t.size++
	}
	t.vals[slot] = v
}

// SumUpdate accumulates delta into key's value, inserting it at 0 first
// if absent.
func (t *Table[K]) SumUpdate(key K, delta float64) {
	checkValue(delta)
	t.maybeGrow()
	slot := t.findSlot(key)
	if !t.occupied[slot] {
		t.occupied[slot] = true
		t.keys[slot] = key
		t.order = append(t.order, key)
		t.size++
		t.vals[slot] = delta
		return
	}
	t.vals[slot] += delta
}

// MaxUpdate replaces key's value with v iff v is strictly greater than
// the current value (or key is absent).
func (t *Table[K]) MaxUpdate(key K, v float64) {
	checkValue(v)
	t.maybeGrow()
	slot := t.findSlot(key)
	if !t.occupied[slot] {
		t.occupied[slot] = true
		t.keys[slot] = key
		t.order = append(t.order, key)
		t.size++
		t.vals[slot] = v
		return
	}
	if v > t.vals[slot] {
		t.vals[slot] = v
	}
}

// Value returns key's stored value, or 0 if key was never inserted.
// Callers must not use 0 to detect absence (§9 open question).
func (t *Table[K]) Value(key K) float64 {
	h1, h2 := t.probe(key)
	slot := int(h1)
	for i := 0; i < t.cap; i++ {
		if !t.occupied[slot] {
			return 0
		}
		if t.keys[slot] == key {
			return t.vals[slot]
		}
		slot = int((uint64(slot) + h2)) % t.cap
	}
	return 0
}

// Size returns the number of distinct keys currently stored.
func (t *Table[K]) Size() int { return t.size }

// ScaleAll multiplies every live entry's value by factor, in place,
// without disturbing insertion order. Used to normalize a freshly
// accumulated child-node table by its level sum (§4.G). Unoccupied
// slots are always 0 and scaling them is a no-op, so this scales the
// whole backing array rather than filtering by t.occupied.
func (t *Table[K]) ScaleAll(factor float64) {
	floats.Scale(factor, t.vals)
}

// Clear empties the table in O(size).
func (t *Table[K]) Clear() {
	for _, k := range t.order {
		h1, h2 := t.probe(k)
		slot := int(h1)
		for i := 0; i < t.cap; i++ {
			if t.occupied[slot] && t.keys[slot] == k {
				t.occupied[slot] = false
				t.vals[slot] = 0
				break
			}
			slot = int((uint64(slot) + h2)) % t.cap
		}
	}
	t.order = t.order[:0]
	t.size = 0
}

// Trim drops entries whose value is below max/ratio, where max is the
// largest value currently stored (§4.H "trim(max_ratio)").
func (t *Table[K]) Trim(ratio float64) {
	max := 0.0
	for _, k := range t.order {
		if v := t.Value(k); v > max {
			max = v
		}
	}
	if max == 0 {
		return
	}
	threshold := max / ratio
	kept := t.order[:0:0]
	for _, k := range t.order {
		v := t.Value(k)
		if v < threshold {
			h1, h2 := t.probe(k)
			slot := int(h1)
			for i := 0; i < t.cap; i++ {
				if t.occupied[slot] && t.keys[slot] == k {
					t.occupied[slot] = false
					t.vals[slot] = 0
					t.size--
					break
				}
				slot = int((uint64(slot) + h2)) % t.cap
			}
			continue
		}
		kept = append(kept, k)
	}
	t.order = kept
}

// Enumerate calls fn for every live entry, in insertion order. fn must
// not mutate the table.
func (t *Table[K]) Enumerate(fn func(key K, value float64)) {
	for _, k := range t.order {
		fn(k, t.Value(k))
	}
}

// EnumValue returns the value of the j'th entry in insertion order
// (Testable property 13).
func (t *Table[K]) EnumValue(j int) float64 {
	return t.Value(t.order[j])
}

func key1Ints(k Key1) []int { return k[:] }
func key2Ints(k Key2) []int { return k[:] }
func key3Ints(k Key3) []int { return k[:] }
func key4Ints(k Key4) []int { return k[:] }

// HapNodes is the node-tuple table for the haploid model (one live edge
// per state).
type HapNodes = Table[Key1]

// NewHapNodes returns an empty HapNodes table.
func NewHapNodes() *HapNodes { return NewTable(key1Ints) }

// SingleNodes is the node-tuple table for the singleton diploid model
// (one edge per haplotype copy).
type SingleNodes = Table[Key2]

// NewSingleNodes returns an empty SingleNodes table.
func NewSingleNodes() *SingleNodes { return NewTable(key2Ints) }

// DuoNodes is the node-tuple table for the parent-offspring duo model
// (transmitted edge + two untransmitted edges).
type DuoNodes = Table[Key3]

// NewDuoNodes returns an empty DuoNodes table.
func NewDuoNodes() *DuoNodes { return NewTable(key3Ints) }

// TrioNodes is the node-tuple table for the parent-offspring trio model
// (father's two edges, mother's two edges).
type TrioNodes = Table[Key4]

// NewTrioNodes returns an empty TrioNodes table.
func NewTrioNodes() *TrioNodes { return NewTable(key4Ints) }
