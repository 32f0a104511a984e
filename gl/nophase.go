// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gl

import "github.com/beaglephase/beagle/marker"

// NoPhaseGL symmetrizes a base GL over phase ordering: gl'(m,s,a1,a2) =
// max(gl(m,s,a1,a2), gl(m,s,a2,a1)) for a1 != a2, and IsPhased is always
// false (§4.F).
type NoPhaseGL struct {
	base GL
}

// NewNoPhaseGL wraps base, erasing phase information.
func NewNoPhaseGL(base GL) *NoPhaseGL { return &NoPhaseGL{base: base} }

func (g *NoPhaseGL) NMarkers() int              { return g.base.NMarkers() }
func (g *NoPhaseGL) Marker(i int) marker.Marker { return g.base.Marker(i) }
func (g *NoPhaseGL) NSamples() int              { return g.base.NSamples() }

func (g *NoPhaseGL) GL(m, sample, a1, a2 int) float64 {
	v := g.base.GL(m, sample, a1, a2)
	if a1 == a2 {
		return v
	}
	other := g.base.GL(m, sample, a2, a1)
	if other > v {
		return other
	}
	return v
}

func (g *NoPhaseGL) IsPhased(m, sample int) bool { return false }
func (g *NoPhaseGL) Allele1(m, sample int) int   { return g.base.Allele1(m, sample) }
func (g *NoPhaseGL) Allele2(m, sample int) int   { return g.base.Allele2(m, sample) }
