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

// TrioPair is a sampled allele track quadruple for one
// father/mother/offspring trio: A1, A2 the father's two copies, B1, B2
// the mother's; the offspring inherits (A1, B1).
type TrioPair struct {
	FatherIndex, MotherIndex, ChildIndex int
	A1, A2, B1, B2                       []int
}

// TrioBaum is the per-trio Baum driver (§4.G "Trio sample coupling",
// §4.I): single-threaded, owns its PRNG, level engine and checkpoint
// buffer, same triangular checkpoint scheme as HapBaum.
type TrioBaum struct {
	dag                   DAG
	g                     gl.GL
	father, mother, child int
	markers               *marker.Markers
	rng                   *rand.Rand
	lvl                   *TrioBaumLevel
}

// NewTrioBaum builds a driver for the given father/mother/child sample
// indices, seeded deterministically.
func NewTrioBaum(dag DAG, g gl.GL, father, mother, child int, markers *marker.Markers, seed uint64) *TrioBaum {
	return &TrioBaum{
		dag:     dag,
		g:       g,
		father:  father,
		mother:  mother,
		child:   child,
		markers: markers,
		rng:     rand.New(rand.NewSource(seed)),
		lvl:     NewTrioBaumLevel(dag, g, father, mother, child),
	}
}

// rootParent returns the singleton forward table seeding level 0.
func (tb *TrioBaum) rootParent() *TrioNodes {
	p := NewTrioNodes()
	p.SumUpdate(Key4{tb.dag.Root(), tb.dag.Root(), tb.dag.Root(), tb.dag.Root()}, 1.0)
	return p
}

// statesAtLevel reconstructs tb.lvl.states for the requested level,
// replaying the forward recursion from the nearest stored checkpoint
// at or before level-1 (§4.I).
func (tb *TrioBaum) statesAtLevel(buf *triangleBuffer[*TrioNodes], level int) error {
	if level == 0 {
		_, err := tb.lvl.Forward(0, tb.rootParent())
		return err
	}
	cm, ctbl, ok := buf.NearestAtOrBefore(level - 1)
	var parent *TrioNodes
	start := 0
	if ok && cm == level-1 {
		parent = ctbl
		start = level
	} else if ok {
		parent = ctbl
		start = cm + 1
		log.Debugf("hmm: TrioBaum replaying forward from checkpoint %d to %d", cm, level)
	} else {
		parent = tb.rootParent()
		start = 0
	}
	for l := start; l < level; l++ {
		next, err := tb.lvl.Forward(l, parent)
		if err != nil {
			return err
		}
		parent = next
	}
	_, err := tb.lvl.Forward(level, parent)
	return err
}

// Run executes the forward pass, storing triangular checkpoints,
// optionally walks backward to accumulate genotype posteriors for
// father, mother and child into gv, then draws nCopies independent
// trio samples via backward-walk sampling.
func (tb *TrioBaum) Run(nCopies int, gv *GenotypeValues, fatherIdx, motherIdx, childIdx int) ([]TrioPair, error) {
	n := tb.markers.Len()
	if n == 0 {
		return make([]TrioPair, nCopies), nil
	}

	buf := newTriangleBuffer[*TrioNodes](n)
	parent := tb.rootParent()
	for level := 0; level < n; level++ {
		child, err := tb.lvl.Forward(level, parent)
		if err != nil {
			return nil, fmt.Errorf("hmm: TrioBaum forward pass: %w", err)
		}
		buf.Store(level, child)
		parent = child
	}

	if gv != nil {
		if err := tb.statesAtLevel(buf, n-1); err != nil {
			return nil, fmt.Errorf("hmm: TrioBaum backward pass: %w", err)
		}
		next := tb.lvl.InitialBackward()
		for level := n - 1; level >= 0; level-- {
			if err := tb.statesAtLevel(buf, level); err != nil {
				return nil, fmt.Errorf("hmm: TrioBaum backward pass: %w", err)
			}
			nAlleles := tb.markers.Marker(level).NAlleles()
			parentTab, post, err := tb.lvl.Backward(next, nAlleles)
			if err != nil {
				return nil, fmt.Errorf("hmm: TrioBaum backward pass: %w", err)
			}
			off := tb.markers.SumGenotypes(level)
			gv.Add(fatherIdx, off, post.Father)
			gv.Add(motherIdx, off, post.Mother)
			gv.Add(childIdx, off, post.Child)
			next = parentTab
		}
	}

	out := make([]TrioPair, nCopies)
	for c := 0; c < nCopies; c++ {
		pair, err := tb.sampleOne(n, buf, fatherIdx, motherIdx, childIdx)
		if err != nil {
			return nil, err
		}
		out[c] = pair
	}
	return out, nil
}

func (tb *TrioBaum) sampleOne(n int, buf *triangleBuffer[*TrioNodes], fatherIdx, motherIdx, childIdx int) (TrioPair, error) {
	a1 := make([]int, n)
	a2 := make([]int, n)
	b1 := make([]int, n)
	b2 := make([]int, n)

	if err := tb.statesAtLevel(buf, n-1); err != nil {
		return TrioPair{}, err
	}
	u := tb.rng.Float64()
	chosen, err := pickState(tb.lvl.states, u, func(s trioState) float64 { return s.fwd })
	if err != nil {
		return TrioPair{}, err
	}
	a1[n-1], a2[n-1], b1[n-1], b2[n-1] = chosen.eA1.Symbol, chosen.eA2.Symbol, chosen.eB1.Symbol, chosen.eB2.Symbol
	target := chosen.parent

	for level := n - 2; level >= 0; level-- {
		if err := tb.statesAtLevel(buf, level); err != nil {
			return TrioPair{}, err
		}
		var candidates []trioState
		mass := 0.0
		for _, s := range tb.lvl.states {
			if s.eA1.Child == target[0] && s.eA2.Child == target[1] && s.eB1.Child == target[2] && s.eB2.Child == target[3] {
				candidates = append(candidates, s)
				mass += s.fwd
			}
		}
		if len(candidates) == 0 {
			return TrioPair{}, fmt.Errorf("hmm: TrioBaum backward walk found no matching state at level %d", level)
		}
		u := tb.rng.Float64() * mass
		chosen, err := pickState(candidates, u, func(s trioState) float64 { return s.fwd })
		if err != nil {
			return TrioPair{}, err
		}
		a1[level], a2[level], b1[level], b2[level] = chosen.eA1.Symbol, chosen.eA2.Symbol, chosen.eB1.Symbol, chosen.eB2.Symbol
		target = chosen.parent
	}
	return TrioPair{FatherIndex: fatherIdx, MotherIndex: motherIdx, ChildIndex: childIdx, A1: a1, A2: a2, B1: b1, B2: b2}, nil
}
