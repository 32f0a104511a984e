// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package hmm

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"github.com/beaglephase/beagle/gl"
	"github.com/beaglephase/beagle/marker"
)

// HapBaum is the per-haplotype Baum driver: single-threaded, owns its
// PRNG, level engine and checkpoint buffer; nothing here is shared
// across haplotypes (§5, §4.I).
type HapBaum struct {
	dag     DAG
	al      gl.AL
	hap     int
	markers *marker.Markers
	rng     *rand.Rand
	lvl     *HapBaumLevel
}

// NewHapBaum builds a driver for the given haplotype index, seeded
// deterministically: identical seed, input and DAG reproduce identical
// samples.
func NewHapBaum(dag DAG, al gl.AL, hap int, markers *marker.Markers, seed uint64) *HapBaum {
	return &HapBaum{
		dag:     dag,
		al:      al,
		hap:     hap,
		markers: markers,
		rng:     rand.New(rand.NewSource(seed)),
		lvl:     NewHapBaumLevel(dag, al, hap),
	}
}

// rootParent returns the singleton forward table seeding level 0.
func (hb *HapBaum) rootParent() *HapNodes {
	p := NewHapNodes()
	p.SumUpdate(Key1{hb.dag.Root()}, 1.0)
	return p
}

// statesAtLevel reconstructs hb.lvl.states for the requested level,
// replaying the forward recursion from the nearest stored checkpoint
// at or before level-1 (§4.I: "re-run forward from
// levels[window_index].marker + 1 up to the end of the array").
func (hb *HapBaum) statesAtLevel(tb *triangleBuffer[*HapNodes], level int) error {
	if level == 0 {
		_, err := hb.lvl.Forward(0, hb.rootParent())
		return err
	}
	cm, ctbl, ok := tb.NearestAtOrBefore(level - 1)
	var parent *HapNodes
	start := 0
	if ok && cm == level-1 {
		parent = ctbl
		start = level
	} else if ok {
		parent = ctbl
		start = cm + 1
		log.Debugf("hmm: HapBaum replaying forward from checkpoint %d to %d", cm, level)
	} else {
		parent = hb.rootParent()
		start = 0
	}
	for l := start; l < level; l++ {
		next, err := hb.lvl.Forward(l, parent)
		if err != nil {
			return err
		}
		parent = next
	}
	_, err := hb.lvl.Forward(level, parent)
	return err
}

// Sample draws nCopies independent allele sequences (one symbol per
// marker) via the full forward pass followed by nCopies independent
// backward walks.
func (hb *HapBaum) Sample(nCopies int) ([][]int, error) {
	n := hb.markers.Len()
	if n == 0 {
		return make([][]int, nCopies), nil
	}
	tb := newTriangleBuffer[*HapNodes](n)
	parent := hb.rootParent()
	for level := 0; level < n; level++ {
		child, err := hb.lvl.Forward(level, parent)
		if err != nil {
			return nil, fmt.Errorf("hmm: HapBaum forward pass: %w", err)
		}
		tb.Store(level, child)
		parent = child
	}

	out := make([][]int, nCopies)
	for c := 0; c < nCopies; c++ {
		alleles, err := hb.sampleOne(n, tb)
		if err != nil {
			return nil, err
		}
		out[c] = alleles
	}
	return out, nil
}

func (hb *HapBaum) sampleOne(n int, tb *triangleBuffer[*HapNodes]) ([]int, error) {
	alleles := make([]int, n)

	if err := hb.statesAtLevel(tb, n-1); err != nil {
		return nil, err
	}
	u := hb.rng.Float64()
	chosen, err := pickState(hb.lvl.states, u, func(s hapState) float64 { return s.fwd })
	if err != nil {
		return nil, err
	}
	alleles[n-1] = chosen.edge.Symbol
	target := chosen.parent

	for level := n - 2; level >= 0; level-- {
		if err := hb.statesAtLevel(tb, level); err != nil {
			return nil, err
		}
		var candidates []hapState
		mass := 0.0
		for _, s := range hb.lvl.states {
			if s.edge.Child == target[0] {
				candidates = append(candidates, s)
				mass += s.fwd
			}
		}
		if len(candidates) == 0 {
			return nil, fmt.Errorf("hmm: HapBaum backward walk found no matching state at level %d", level)
		}
		u := hb.rng.Float64() * mass
		chosen, err := pickState(candidates, u, func(s hapState) float64 { return s.fwd })
		if err != nil {
			return nil, err
		}
		alleles[level] = chosen.edge.Symbol
		target = chosen.parent
	}
	return alleles, nil
}

// pickState walks states accumulating weight(s) until the running sum
// reaches u, returning the state at which it crossed (§4.I initial-
// state and backward-walk sampling). Floating point rounding can leave
// the cumulative sum just short of u; the last state is the fallback.
func pickState[S any](states []S, u float64, weight func(S) float64) (S, error) {
	var zero S
	if len(states) == 0 {
		return zero, fmt.Errorf("hmm: pickState called with no live states")
	}
	cum := 0.0
	for _, s := range states {
		cum += weight(s)
		if cum >= u {
			return s, nil
		}
	}
	return states[len(states)-1], nil
}
