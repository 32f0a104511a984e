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

// DuoPair is a sampled allele track triple for one parent-offspring
// duo: AB1 is the haplotype transmitted from parent to offspring, A2
// the parent's other copy, B2 the offspring's other copy.
type DuoPair struct {
	ParentIndex, ChildIndex int
	AB1, A2, B2             []int
}

// DuoBaum is the per-duo Baum driver (§4.G "Duo sample coupling",
// §4.I): single-threaded, owns its PRNG, level engine and checkpoint
// buffer, same triangular checkpoint scheme as HapBaum.
type DuoBaum struct {
	dag             DAG
	g               gl.GL
	parentS, childS int
	markers         *marker.Markers
	rng             *rand.Rand
	lvl             *DuoBaumLevel
}

// NewDuoBaum builds a driver for the given parent/offspring sample
// indices, seeded deterministically.
func NewDuoBaum(dag DAG, g gl.GL, parentSample, childSample int, markers *marker.Markers, seed uint64) *DuoBaum {
	return &DuoBaum{
		dag:     dag,
		g:       g,
		parentS: parentSample,
		childS:  childSample,
		markers: markers,
		rng:     rand.New(rand.NewSource(seed)),
		lvl:     NewDuoBaumLevel(dag, g, parentSample, childSample),
	}
}

// rootParent returns the singleton forward table seeding level 0.
func (db *DuoBaum) rootParent() *DuoNodes {
	p := NewDuoNodes()
	p.SumUpdate(Key3{db.dag.Root(), db.dag.Root(), db.dag.Root()}, 1.0)
	return p
}

// statesAtLevel reconstructs db.lvl.states for the requested level,
// replaying the forward recursion from the nearest stored checkpoint
// at or before level-1 (§4.I).
func (db *DuoBaum) statesAtLevel(tb *triangleBuffer[*DuoNodes], level int) error {
	if level == 0 {
		_, err := db.lvl.Forward(0, db.rootParent())
		return err
	}
	cm, ctbl, ok := tb.NearestAtOrBefore(level - 1)
	var parent *DuoNodes
	start := 0
	if ok && cm == level-1 {
		parent = ctbl
		start = level
	} else if ok {
		parent = ctbl
		start = cm + 1
		log.Debugf("hmm: DuoBaum replaying forward from checkpoint %d to %d", cm, level)
	} else {
		parent = db.rootParent()
		start = 0
	}
	for l := start; l < level; l++ {
		next, err := db.lvl.Forward(l, parent)
		if err != nil {
			return err
		}
		parent = next
	}
	_, err := db.lvl.Forward(level, parent)
	return err
}

// Run executes the forward pass, storing triangular checkpoints,
// optionally walks backward to accumulate genotype posteriors for
// both parent and offspring into gv, then draws nCopies independent
// duo samples via backward-walk sampling.
func (db *DuoBaum) Run(nCopies int, gv *GenotypeValues, parentIdx, childIdx int) ([]DuoPair, error) {
	n := db.markers.Len()
	if n == 0 {
		return make([]DuoPair, nCopies), nil
	}

	tb := newTriangleBuffer[*DuoNodes](n)
	parent := db.rootParent()
	for level := 0; level < n; level++ {
		child, err := db.lvl.Forward(level, parent)
		if err != nil {
			return nil, fmt.Errorf("hmm: DuoBaum forward pass: %w", err)
		}
		tb.Store(level, child)
		parent = child
	}

	if gv != nil {
		if err := db.statesAtLevel(tb, n-1); err != nil {
			return nil, fmt.Errorf("hmm: DuoBaum backward pass: %w", err)
		}
		next := db.lvl.InitialBackward()
		for level := n - 1; level >= 0; level-- {
			if err := db.statesAtLevel(tb, level); err != nil {
				return nil, fmt.Errorf("hmm: DuoBaum backward pass: %w", err)
			}
			nAlleles := db.markers.Marker(level).NAlleles()
			parentTab, post, err := db.lvl.Backward(next, nAlleles)
			if err != nil {
				return nil, fmt.Errorf("hmm: DuoBaum backward pass: %w", err)
			}
			off := db.markers.SumGenotypes(level)
			gv.Add(parentIdx, off, post.Parent)
			gv.Add(childIdx, off, post.Child)
			next = parentTab
		}
	}

	out := make([]DuoPair, nCopies)
	for c := 0; c < nCopies; c++ {
		pair, err := db.sampleOne(n, tb, parentIdx, childIdx)
		if err != nil {
			return nil, err
		}
		out[c] = pair
	}
	return out, nil
}

func (db *DuoBaum) sampleOne(n int, tb *triangleBuffer[*DuoNodes], parentIdx, childIdx int) (DuoPair, error) {
	ab1 := make([]int, n)
	a2 := make([]int, n)
	b2 := make([]int, n)

	if err := db.statesAtLevel(tb, n-1); err != nil {
		return DuoPair{}, err
	}
	u := db.rng.Float64()
	chosen, err := pickState(db.lvl.states, u, func(s duoState) float64 { return s.fwd })
	if err != nil {
		return DuoPair{}, err
	}
	ab1[n-1], a2[n-1], b2[n-1] = chosen.eAB1.Symbol, chosen.eA2.Symbol, chosen.eB2.Symbol
	target := chosen.parent

	for level := n - 2; level >= 0; level-- {
		if err := db.statesAtLevel(tb, level); err != nil {
			return DuoPair{}, err
		}
		var candidates []duoState
		mass := 0.0
		for _, s := range db.lvl.states {
			if s.eAB1.Child == target[0] && s.eA2.Child == target[1] && s.eB2.Child == target[2] {
				candidates = append(candidates, s)
				mass += s.fwd
			}
		}
		if len(candidates) == 0 {
			return DuoPair{}, fmt.Errorf("hmm: DuoBaum backward walk found no matching state at level %d", level)
		}
		u := db.rng.Float64() * mass
		chosen, err := pickState(candidates, u, func(s duoState) float64 { return s.fwd })
		if err != nil {
			return DuoPair{}, err
		}
		ab1[level], a2[level], b2[level] = chosen.eAB1.Symbol, chosen.eA2.Symbol, chosen.eB2.Symbol
		target = chosen.parent
	}
	return DuoPair{ParentIndex: parentIdx, ChildIndex: childIdx, AB1: ab1, A2: a2, B2: b2}, nil
}
