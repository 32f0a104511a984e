// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gl

import "github.com/beaglephase/beagle/marker"

// MaskedEndsGL forces uniform emission (1.0), unphased, unknown-allele
// outside [start, end); markers in [start, end) delegate to base (§4.F).
type MaskedEndsGL struct {
	base       GL
	start, end int
}

// NewMaskedEndsGL wraps base, masking marker indices outside
// [start, end).
func NewMaskedEndsGL(base GL, start, end int) *MaskedEndsGL {
	return &MaskedEndsGL{base: base, start: start, end: end}
}

func (g *MaskedEndsGL) inWindow(m int) bool { return m >= g.start && m < g.end }

func (g *MaskedEndsGL) NMarkers() int              { return g.base.NMarkers() }
func (g *MaskedEndsGL) Marker(i int) marker.Marker { return g.base.Marker(i) }
func (g *MaskedEndsGL) NSamples() int              { return g.base.NSamples() }

func (g *MaskedEndsGL) GL(m, sample, a1, a2 int) float64 {
	if !g.inWindow(m) {
		return 1
	}
	return g.base.GL(m, sample, a1, a2)
}

func (g *MaskedEndsGL) IsPhased(m, sample int) bool {
	if !g.inWindow(m) {
		return false
	}
	return g.base.IsPhased(m, sample)
}

func (g *MaskedEndsGL) Allele1(m, sample int) int {
	if !g.inWindow(m) {
		return -1
	}
	return g.base.Allele1(m, sample)
}

func (g *MaskedEndsGL) Allele2(m, sample int) int {
	if !g.inWindow(m) {
		return -1
	}
	return g.base.Allele2(m, sample)
}
