// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package hmm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/beaglephase/beagle/gl"
)

type singleState struct {
	parent Key2
	e1, e2 Edge
	ep     float64
	fwd    float64
	bwd    float64
}

// SingleBaumLevel is the per-level forward/backward engine for a
// singleton diploid sample: two edges per state, one per haplotype
// copy (§4.G).
type SingleBaumLevel struct {
	g      gl.GL
	dag    DAG
	sample int

	level   int
	states  []singleState
	fwdSum  float64
	bwdSum  float64
	clamped int
}

// NewSingleBaumLevel builds a level engine over dag, reading genotype
// emissions from g for the given sample index.
func NewSingleBaumLevel(dag DAG, g gl.GL, sample int) *SingleBaumLevel {
	return &SingleBaumLevel{dag: dag, g: g, sample: sample}
}

func (lvl *SingleBaumLevel) ClampCount() int { return lvl.clamped }

func (lvl *SingleBaumLevel) Forward(level int, parent *SingleNodes) (*SingleNodes, error) {
	lvl.level = level
	lvl.states = lvl.states[:0]
	child := NewSingleNodes()
	var raw []float64

	parent.Enumerate(func(key Key2, v float64) {
		edges1 := lvl.dag.OutEdges(level, key[0])
		edges2 := lvl.dag.OutEdges(level, key[1])
		for _, e1 := range edges1 {
			for _, e2 := range edges2 {
				ep := lvl.g.GL(level, lvl.sample, e1.Symbol, e2.Symbol)
				if ep <= 0 {
					continue
				}
				fwd := v * ep * e1.Prob * e2.Prob
				if fwd == 0 && v > 0 {
					fwd = MinValue
					lvl.clamped++
				}
				lvl.states = append(lvl.states, singleState{parent: key, e1: e1, e2: e2, ep: ep, fwd: fwd})
				raw = append(raw, fwd)
				child.SumUpdate(Key2{e1.Child, e2.Child}, fwd)
			}
		}
	})
	sum := floats.Sum(raw)
	if sum <= 0 {
		return nil, fmt.Errorf("hmm: SingleBaumLevel has no live states at level %d", level)
	}
	floats.Scale(1/sum, raw)
	for i := range lvl.states {
		lvl.states[i].fwd = raw[i]
	}
	child.ScaleAll(1 / sum)
	lvl.fwdSum = sum
	return child, nil
}

func (lvl *SingleBaumLevel) InitialBackward() *SingleNodes {
	next := NewSingleNodes()
	for _, s := range lvl.states {
		next.MaxUpdate(Key2{s.e1.Child, s.e2.Child}, 1.0)
	}
	return next
}

// Backward returns the parent-node backward table for the level before
// this one, plus the normalized genotype-probability accumulator
// (size NGenotypes(nAlleles)) for this level.
func (lvl *SingleBaumLevel) Backward(next *SingleNodes, nAlleles int) (*SingleNodes, []float64, error) {
	if len(lvl.states) == 0 {
		return nil, nil, fmt.Errorf("hmm: SingleBaumLevel.Backward called with no forward states at level %d", lvl.level)
	}
	raw := make([]float64, len(lvl.states))
	for i, s := range lvl.states {
		raw[i] = next.Value(Key2{s.e1.Child, s.e2.Child})
	}
	sum := floats.Sum(raw)
	if sum <= 0 {
		return nil, nil, fmt.Errorf("hmm: SingleBaumLevel backward sum underflowed to zero at level %d", lvl.level)
	}
	floats.Scale(1/sum, raw)

	probAcc := make([]float64, NGenotypes(nAlleles))
	gtSum := 0.0
	parent := NewSingleNodes()
	for i := range lvl.states {
		s := &lvl.states[i]
		bwd := raw[i]
		s.bwd = bwd
		stateProb := s.fwd * bwd
		probAcc[GenotypeIndex(s.e1.Symbol, s.e2.Symbol)] += stateProb
		gtSum += stateProb

		bwdProp := bwd * s.e1.Prob * s.e2.Prob * s.ep
		if bwdProp == 0 && bwd > 0 {
			bwdProp = MinValue
			lvl.clamped++
		}
		parent.SumUpdate(s.parent, bwdProp)
	}
	if gtSum > 0 {
		floats.Scale(1/gtSum, probAcc)
	}
	lvl.bwdSum = sum
	return parent, probAcc, nil
}
