// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package hmm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/beaglephase/beagle/gl"
)

type hapState struct {
	parent Key1
	edge   Edge
	ep     float64
	fwd    float64
	bwd    float64
}

// HapBaumLevel is the per-level forward/backward engine for the
// haploid model: one live edge per state (§4.G).
type HapBaumLevel struct {
	dag DAG
	al  gl.AL
	hap int

	level   int
	states  []hapState
	fwdSum  float64
	bwdSum  float64
	clamped int
}

// NewHapBaumLevel builds a level engine over dag, reading emissions
// from al for haplotype index hap.
func NewHapBaumLevel(dag DAG, al gl.AL, hap int) *HapBaumLevel {
	return &HapBaumLevel{dag: dag, al: al, hap: hap}
}

// ClampCount reports how many times the MinValue underflow floor was
// applied by this engine so far (Testable scenario S6).
func (lvl *HapBaumLevel) ClampCount() int { return lvl.clamped }

// Forward consumes parent's forward values at level-1's node layer and
// produces the child-node table for level's node layer, normalizing by
// the level's accumulated forward sum.
func (lvl *HapBaumLevel) Forward(level int, parent *HapNodes) (*HapNodes, error) {
	lvl.level = level
	lvl.states = lvl.states[:0]
	child := NewHapNodes()
	var raw []float64

	parent.Enumerate(func(key Key1, v float64) {
		for _, e := range lvl.dag.OutEdges(level, key[0]) {
			ep := lvl.al.AL(level, lvl.hap, e.Symbol)
			if ep <= 0 {
				continue
			}
			fwd := v * ep * e.Prob
			if fwd == 0 && v > 0 {
				fwd = MinValue
				lvl.clamped++
			}
			lvl.states = append(lvl.states, hapState{parent: key, edge: e, ep: ep, fwd: fwd})
			raw = append(raw, fwd)
			child.SumUpdate(Key1{e.Child}, fwd)
		}
	})
	sum := floats.Sum(raw)
	if sum <= 0 {
		return nil, fmt.Errorf("hmm: HapBaumLevel has no live states at level %d", level)
	}
	floats.Scale(1/sum, raw)
	for i := range lvl.states {
		lvl.states[i].fwd = raw[i]
	}
	child.ScaleAll(1 / sum)
	lvl.fwdSum = sum
	return child, nil
}

// InitialBackward seeds the final level's backward child-node table:
// every live state's child tuple starts with backward value 1 (§4.I).
func (lvl *HapBaumLevel) InitialBackward() *HapNodes {
	next := NewHapNodes()
	for _, s := range lvl.states {
		next.MaxUpdate(Key1{s.edge.Child}, 1.0)
	}
	return next
}

// Backward consumes next's backward child-node values and returns the
// backward parent-node table for the level before this one, plus the
// normalized allele-probability accumulator for this level.
func (lvl *HapBaumLevel) Backward(next *HapNodes, nAlleles int) (*HapNodes, []float64, error) {
	if len(lvl.states) == 0 {
		return nil, nil, fmt.Errorf("hmm: HapBaumLevel.Backward called with no forward states at level %d", lvl.level)
	}
	raw := make([]float64, len(lvl.states))
	for i, s := range lvl.states {
		raw[i] = next.Value(Key1{s.edge.Child})
	}
	sum := floats.Sum(raw)
	if sum <= 0 {
		return nil, nil, fmt.Errorf("hmm: HapBaumLevel backward sum underflowed to zero at level %d", lvl.level)
	}
	floats.Scale(1/sum, raw)

	probAcc := make([]float64, nAlleles)
	gtSum := 0.0
	parent := NewHapNodes()
	for i := range lvl.states {
		s := &lvl.states[i]
		bwd := raw[i]
		s.bwd = bwd
		stateProb := s.fwd * bwd
		probAcc[s.edge.Symbol] += stateProb
		gtSum += stateProb

		bwdProp := bwd * s.edge.Prob * s.ep
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
