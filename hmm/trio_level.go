// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package hmm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/beaglephase/beagle/gl"
)

type trioState struct {
	parent                     Key4
	eA1, eA2, eB1, eB2         Edge
	ep                         float64
	fwd                        float64
	bwd                        float64
}

// TrioBaumLevel is the per-level forward/backward engine for a
// parent-offspring trio: four edges per state — A1, A2 the father's
// two haplotype copies, B1, B2 the mother's; the offspring inherits
// the pair (A1, B1) (§4.G "Trio sample coupling").
type TrioBaumLevel struct {
	g       gl.GL
	dag     DAG
	father  int
	mother  int
	child   int

	level   int
	states  []trioState
	fwdSum  float64
	bwdSum  float64
	clamped int
}

// NewTrioBaumLevel builds a level engine over dag; father, mother and
// child index the corresponding rows of g.
func NewTrioBaumLevel(dag DAG, g gl.GL, father, mother, child int) *TrioBaumLevel {
	return &TrioBaumLevel{dag: dag, g: g, father: father, mother: mother, child: child}
}

func (lvl *TrioBaumLevel) ClampCount() int { return lvl.clamped }

func (lvl *TrioBaumLevel) Forward(level int, parent *TrioNodes) (*TrioNodes, error) {
	lvl.level = level
	lvl.states = lvl.states[:0]
	childTab := NewTrioNodes()
	var raw []float64

	parent.Enumerate(func(key Key4, v float64) {
		edgesA1 := lvl.dag.OutEdges(level, key[0])
		edgesA2 := lvl.dag.OutEdges(level, key[1])
		edgesB1 := lvl.dag.OutEdges(level, key[2])
		edgesB2 := lvl.dag.OutEdges(level, key[3])
		for _, eA1 := range edgesA1 {
			for _, eA2 := range edgesA2 {
				epFather := lvl.g.GL(level, lvl.father, eA1.Symbol, eA2.Symbol)
				if epFather <= 0 {
					continue
				}
				for _, eB1 := range edgesB1 {
					for _, eB2 := range edgesB2 {
						epMother := lvl.g.GL(level, lvl.mother, eB1.Symbol, eB2.Symbol)
						if epMother <= 0 {
							continue
						}
						epChild := lvl.g.GL(level, lvl.child, eA1.Symbol, eB1.Symbol)
						if epChild <= 0 {
							continue
						}
						ep := epFather * epMother * epChild
						fwd := v * ep * eA1.Prob * eA2.Prob * eB1.Prob * eB2.Prob
						if fwd == 0 && v > 0 {
							fwd = MinValue
							lvl.clamped++
						}
						lvl.states = append(lvl.states, trioState{
							parent: key, eA1: eA1, eA2: eA2, eB1: eB1, eB2: eB2, ep: ep, fwd: fwd,
						})
						raw = append(raw, fwd)
						childTab.SumUpdate(Key4{eA1.Child, eA2.Child, eB1.Child, eB2.Child}, fwd)
					}
				}
			}
		}
	})
	sum := floats.Sum(raw)
	if sum <= 0 {
		return nil, fmt.Errorf("hmm: TrioBaumLevel has no live states at level %d", level)
	}
	floats.Scale(1/sum, raw)
	for i := range lvl.states {
		lvl.states[i].fwd = raw[i]
	}
	childTab.ScaleAll(1 / sum)
	lvl.fwdSum = sum
	return childTab, nil
}

func (lvl *TrioBaumLevel) InitialBackward() *TrioNodes {
	next := NewTrioNodes()
	for _, s := range lvl.states {
		next.MaxUpdate(Key4{s.eA1.Child, s.eA2.Child, s.eB1.Child, s.eB2.Child}, 1.0)
	}
	return next
}

// TrioPosteriors bundles the father, mother and offspring
// genotype-probability accumulators produced by one Backward call.
type TrioPosteriors struct {
	Father []float64
	Mother []float64
	Child  []float64
}

func (lvl *TrioBaumLevel) Backward(next *TrioNodes, nAlleles int) (*TrioNodes, TrioPosteriors, error) {
	if len(lvl.states) == 0 {
		return nil, TrioPosteriors{}, fmt.Errorf("hmm: TrioBaumLevel.Backward called with no forward states at level %d", lvl.level)
	}
	raw := make([]float64, len(lvl.states))
	for i, s := range lvl.states {
		raw[i] = next.Value(Key4{s.eA1.Child, s.eA2.Child, s.eB1.Child, s.eB2.Child})
	}
	sum := floats.Sum(raw)
	if sum <= 0 {
		return nil, TrioPosteriors{}, fmt.Errorf("hmm: TrioBaumLevel backward sum underflowed to zero at level %d", lvl.level)
	}
	floats.Scale(1/sum, raw)

	nGt := NGenotypes(nAlleles)
	post := TrioPosteriors{Father: make([]float64, nGt), Mother: make([]float64, nGt), Child: make([]float64, nGt)}
	gtSum := 0.0
	parent := NewTrioNodes()
	for i := range lvl.states {
		s := &lvl.states[i]
		bwd := raw[i]
		s.bwd = bwd
		stateProb := s.fwd * bwd
		post.Father[GenotypeIndex(s.eA1.Symbol, s.eA2.Symbol)] += stateProb
		post.Mother[GenotypeIndex(s.eB1.Symbol, s.eB2.Symbol)] += stateProb
		post.Child[GenotypeIndex(s.eA1.Symbol, s.eB1.Symbol)] += stateProb
		gtSum += stateProb

		bwdProp := bwd * s.eA1.Prob * s.eA2.Prob * s.eB1.Prob * s.eB2.Prob * s.ep
		if bwdProp == 0 && bwd > 0 {
			bwdProp = MinValue
			lvl.clamped++
		}
		parent.SumUpdate(s.parent, bwdProp)
	}
	if gtSum > 0 {
		floats.Scale(1/gtSum, post.Father)
		floats.Scale(1/gtSum, post.Mother)
		floats.Scale(1/gtSum, post.Child)
	}
	lvl.bwdSum = sum
	return parent, post, nil
}
