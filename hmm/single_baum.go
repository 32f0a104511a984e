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

// HapPair is a sampled pair of per-marker allele tracks for one
// diploid sample, identified by the sample's global index (§4.I
// "Output").
type HapPair struct {
	SampleIndex int
	Allele1     []int
	Allele2     []int
}

// SingleBaum is the per-sample Baum driver for a singleton diploid
// sample: single-threaded, owns its PRNG, level engine and checkpoint
// buffer, same triangular checkpoint scheme as HapBaum (§4.G, §4.I).
type SingleBaum struct {
	dag     DAG
	g       gl.GL
	sample  int
	markers *marker.Markers
	rng     *rand.Rand
	lvl     *SingleBaumLevel
}

// NewSingleBaum builds a driver for the given sample index, seeded
// deterministically.
func NewSingleBaum(dag DAG, g gl.GL, sample int, markers *marker.Markers, seed uint64) *SingleBaum {
	return &SingleBaum{
		dag:     dag,
		g:       g,
		sample:  sample,
		markers: markers,
		rng:     rand.New(rand.NewSource(seed)),
		lvl:     NewSingleBaumLevel(dag, g, sample),
	}
}

// rootParent returns the singleton forward table seeding level 0.
func (sb *SingleBaum) rootParent() *SingleNodes {
	p := NewSingleNodes()
	p.SumUpdate(Key2{sb.dag.Root(), sb.dag.Root()}, 1.0)
	return p
}

// statesAtLevel reconstructs sb.lvl.states for the requested level,
// replaying the forward recursion from the nearest stored checkpoint
// at or before level-1 (§4.I).
func (sb *SingleBaum) statesAtLevel(tb *triangleBuffer[*SingleNodes], level int) error {
	if level == 0 {
		_, err := sb.lvl.Forward(0, sb.rootParent())
		return err
	}
	cm, ctbl, ok := tb.NearestAtOrBefore(level - 1)
	var parent *SingleNodes
	start := 0
	if ok && cm == level-1 {
		parent = ctbl
		start = level
	} else if ok {
		parent = ctbl
		start = cm + 1
		log.Debugf("hmm: SingleBaum replaying forward from checkpoint %d to %d", cm, level)
	} else {
		parent = sb.rootParent()
		start = 0
	}
	for l := start; l < level; l++ {
		next, err := sb.lvl.Forward(l, parent)
		if err != nil {
			return err
		}
		parent = next
	}
	_, err := sb.lvl.Forward(level, parent)
	return err
}

// Run executes the forward pass, storing triangular checkpoints,
// optionally walks backward (replaying forward states from the
// nearest checkpoint at each level) to accumulate genotype posteriors
// into gv's sampleIndex row, then draws nCopies independent
// haplotype-pair samples via backward-walk sampling.
func (sb *SingleBaum) Run(nCopies int, gv *GenotypeValues, sampleIndex int) ([]HapPair, error) {
	n := sb.markers.Len()
	if n == 0 {
		return make([]HapPair, nCopies), nil
	}

	tb := newTriangleBuffer[*SingleNodes](n)
	parent := sb.rootParent()
	for level := 0; level < n; level++ {
		child, err := sb.lvl.Forward(level, parent)
		if err != nil {
			return nil, fmt.Errorf("hmm: SingleBaum forward pass: %w", err)
		}
		tb.Store(level, child)
		parent = child
	}

	if gv != nil {
		if err := sb.statesAtLevel(tb, n-1); err != nil {
			return nil, fmt.Errorf("hmm: SingleBaum backward pass: %w", err)
		}
		next := sb.lvl.InitialBackward()
		for level := n - 1; level >= 0; level-- {
			if err := sb.statesAtLevel(tb, level); err != nil {
				return nil, fmt.Errorf("hmm: SingleBaum backward pass: %w", err)
			}
			nAlleles := sb.markers.Marker(level).NAlleles()
			parentTab, probAcc, err := sb.lvl.Backward(next, nAlleles)
			if err != nil {
				return nil, fmt.Errorf("hmm: SingleBaum backward pass: %w", err)
			}
			gv.Add(sampleIndex, sb.markers.SumGenotypes(level), probAcc)
			next = parentTab
		}
	}

	out := make([]HapPair, nCopies)
	for c := 0; c < nCopies; c++ {
		pair, err := sb.sampleOne(n, tb, sampleIndex)
		if err != nil {
			return nil, err
		}
		out[c] = pair
	}
	return out, nil
}

func (sb *SingleBaum) sampleOne(n int, tb *triangleBuffer[*SingleNodes], sampleIndex int) (HapPair, error) {
	a1 := make([]int, n)
	a2 := make([]int, n)

	if err := sb.statesAtLevel(tb, n-1); err != nil {
		return HapPair{}, err
	}
	u := sb.rng.Float64()
	chosen, err := pickState(sb.lvl.states, u, func(s singleState) float64 { return s.fwd })
	if err != nil {
		return HapPair{}, err
	}
	a1[n-1], a2[n-1] = chosen.e1.Symbol, chosen.e2.Symbol
	target := chosen.parent

	for level := n - 2; level >= 0; level-- {
		if err := sb.statesAtLevel(tb, level); err != nil {
			return HapPair{}, err
		}
		var candidates []singleState
		mass := 0.0
		for _, s := range sb.lvl.states {
			if s.e1.Child == target[0] && s.e2.Child == target[1] {
				candidates = append(candidates, s)
				mass += s.fwd
			}
		}
		if len(candidates) == 0 {
			return HapPair{}, fmt.Errorf("hmm: SingleBaum backward walk found no matching state at level %d", level)
		}
		u := sb.rng.Float64() * mass
		chosen, err := pickState(candidates, u, func(s singleState) float64 { return s.fwd })
		if err != nil {
			return HapPair{}, err
		}
		a1[level], a2[level] = chosen.e1.Symbol, chosen.e2.Symbol
		target = chosen.parent
	}
	return HapPair{SampleIndex: sampleIndex, Allele1: a1, Allele2: a2}, nil
}
