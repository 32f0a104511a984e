// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package hmm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/beaglephase/beagle/gl"
)

type duoState struct {
	parent               Key3
	eAB1, eA2, eB2       Edge
	ep                   float64
	fwd                  float64
	bwd                  float64
}

// DuoBaumLevel is the per-level forward/backward engine for a
// parent-offspring duo: three edges per state — AB1 (the haplotype
// transmitted from parent to offspring), A2 (parent's other copy),
// B2 (offspring's other copy) (§4.G "Duo sample coupling").
type DuoBaumLevel struct {
	g       gl.GL
	dag     DAG
	parentS int
	childS  int

	level   int
	states  []duoState
	fwdSum  float64
	bwdSum  float64
	clamped int
}

// NewDuoBaumLevel builds a level engine over dag; parentSample and
// childSample index the parent and offspring rows of g.
func NewDuoBaumLevel(dag DAG, g gl.GL, parentSample, childSample int) *DuoBaumLevel {
	return &DuoBaumLevel{dag: dag, g: g, parentS: parentSample, childS: childSample}
}

func (lvl *DuoBaumLevel) ClampCount() int { return lvl.clamped }

func (lvl *DuoBaumLevel) Forward(level int, parent *DuoNodes) (*DuoNodes, error) {
	lvl.level = level
	lvl.states = lvl.states[:0]
	child := NewDuoNodes()
	var raw []float64

	parent.Enumerate(func(key Key3, v float64) {
		edgesAB1 := lvl.dag.OutEdges(level, key[0])
		edgesA2 := lvl.dag.OutEdges(level, key[1])
		edgesB2 := lvl.dag.OutEdges(level, key[2])
		for _, eAB1 := range edgesAB1 {
			for _, eA2 := range edgesA2 {
				epParent := lvl.g.GL(level, lvl.parentS, eAB1.Symbol, eA2.Symbol)
				if epParent <= 0 {
					continue
				}
				for _, eB2 := range edgesB2 {
					epChild := lvl.g.GL(level, lvl.childS, eAB1.Symbol, eB2.Symbol)
					if epChild <= 0 {
						continue
					}
					ep := epParent * epChild
					fwd := v * ep * eAB1.Prob * eA2.Prob * eB2.Prob
					if fwd == 0 && v > 0 {
						fwd = MinValue
						lvl.clamped++
					}
					lvl.states = append(lvl.states, duoState{parent: key, eAB1: eAB1, eA2: eA2, eB2: eB2, ep: ep, fwd: fwd})
					raw = append(raw, fwd)
					child.SumUpdate(Key3{eAB1.Child, eA2.Child, eB2.Child}, fwd)
				}
			}
		}
	})
	sum := floats.Sum(raw)
	if sum <= 0 {
		return nil, fmt.Errorf("hmm: DuoBaumLevel has no live states at level %d", level)
	}
	floats.Scale(1/sum, raw)
	for i := range lvl.states {
		lvl.states[i].fwd = raw[i]
	}
	child.ScaleAll(1 / sum)
	lvl.fwdSum = sum
	return child, nil
}

func (lvl *DuoBaumLevel) InitialBackward() *DuoNodes {
	next := NewDuoNodes()
	for _, s := range lvl.states {
		next.MaxUpdate(Key3{s.eAB1.Child, s.eA2.Child, s.eB2.Child}, 1.0)
	}
	return next
}

// DuoPosteriors bundles the parent and offspring genotype-probability
// accumulators produced by one Backward call.
type DuoPosteriors struct {
	Parent []float64
	Child  []float64
}

func (lvl *DuoBaumLevel) Backward(next *DuoNodes, nAlleles int) (*DuoNodes, DuoPosteriors, error) {
	if len(lvl.states) == 0 {
		return nil, DuoPosteriors{}, fmt.Errorf("hmm: DuoBaumLevel.Backward called with no forward states at level %d", lvl.level)
	}
	raw := make([]float64, len(lvl.states))
	for i, s := range lvl.states {
		raw[i] = next.Value(Key3{s.eAB1.Child, s.eA2.Child, s.eB2.Child})
	}
	sum := floats.Sum(raw)
	if sum <= 0 {
		return nil, DuoPosteriors{}, fmt.Errorf("hmm: DuoBaumLevel backward sum underflowed to zero at level %d", lvl.level)
	}
	floats.Scale(1/sum, raw)

	nGt := NGenotypes(nAlleles)
	post := DuoPosteriors{Parent: make([]float64, nGt), Child: make([]float64, nGt)}
	gtSum := 0.0
	parent := NewDuoNodes()
	for i := range lvl.states {
		s := &lvl.states[i]
		bwd := raw[i]
		s.bwd = bwd
		stateProb := s.fwd * bwd
		post.Parent[GenotypeIndex(s.eAB1.Symbol, s.eA2.Symbol)] += stateProb
		post.Child[GenotypeIndex(s.eAB1.Symbol, s.eB2.Symbol)] += stateProb
		gtSum += stateProb

		bwdProp := bwd * s.eAB1.Prob * s.eA2.Prob * s.eB2.Prob * s.ep
		if bwdProp == 0 && bwd > 0 {
			bwdProp = MinValue
			lvl.clamped++
		}
		parent.SumUpdate(s.parent, bwdProp)
	}
	if gtSum > 0 {
		floats.Scale(1/gtSum, post.Parent)
		floats.Scale(1/gtSum, post.Child)
	}
	lvl.bwdSum = sum
	return parent, post, nil
}
