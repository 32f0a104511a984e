// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gl

import (
	"fmt"

	"github.com/beaglephase/beagle/marker"
)

// FuzzyGL injects independent per-allele error epsilon into base's
// called alleles, producing the joint (ff, ef, ee) factors described in
// §4.F: ff for both alleles observed correctly, ef for exactly one,
// ee for neither.
type FuzzyGL struct {
	base       GL
	eps        float64
	ff, ef, ee float64
}

// NewFuzzyGL wraps base with per-allele error rate eps, 0 <= eps < 1.
func NewFuzzyGL(base GL, eps float64) (*FuzzyGL, error) {
	if eps < 0 || eps >= 1 {
		return nil, fmt.Errorf("gl: epsilon %v out of range [0,1)", eps)
	}
	f := 1 - eps
	return &FuzzyGL{base: base, eps: eps, ff: f * f, ef: f * eps, ee: eps * eps}, nil
}

func (g *FuzzyGL) NMarkers() int              { return g.base.NMarkers() }
func (g *FuzzyGL) Marker(i int) marker.Marker { return g.base.Marker(i) }
func (g *FuzzyGL) NSamples() int              { return g.base.NSamples() }

func (g *FuzzyGL) phasedFactor(obs1, obs2, a1, a2 int) float64 {
	if obs1 == a1 {
		if obs2 == a2 {
			return g.ff
		}
		return g.ef
	}
	if obs2 == a2 {
		return g.ef
	}
	return g.ee
}

func (g *FuzzyGL) GL(m, sample, a1, a2 int) float64 {
	obs1 := g.base.Allele1(m, sample)
	obs2 := g.base.Allele2(m, sample)
	if obs1 == -1 || obs2 == -1 {
		return g.base.GL(m, sample, a1, a2)
	}
	if g.base.IsPhased(m, sample) || obs1 == obs2 {
		return g.phasedFactor(obs1, obs2, a1, a2)
	}
	return g.phasedFactor(obs1, obs2, a1, a2) + g.phasedFactor(obs2, obs1, a1, a2)
}

func (g *FuzzyGL) IsPhased(m, sample int) bool { return g.base.IsPhased(m, sample) }
func (g *FuzzyGL) Allele1(m, sample int) int   { return g.base.Allele1(m, sample) }
func (g *FuzzyGL) Allele2(m, sample int) int   { return g.base.Allele2(m, sample) }
