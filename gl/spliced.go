// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gl

import (
	"fmt"

	"github.com/beaglephase/beagle/marker"
)

// PhasedPrefix is a fixed, already-phased haplotype-pair assignment
// over a prefix of markers, the source SplicedGL grafts onto a base GL
// (§4.F SplicedGL).
type PhasedPrefix interface {
	NMarkers() int
	Marker(i int) marker.Marker
	NSamples() int
	Allele1(m, sample int) int
	Allele2(m, sample int) int
}

// SplicedGL uses a PhasedPrefix's called haplotype pair for markers
// before prefix.NMarkers(), and delegates to base beyond that (§4.F).
type SplicedGL struct {
	prefix PhasedPrefix
	base   GL
	n      int
}

// NewSplicedGL splices prefix onto base. Construction fails unless the
// prefix's markers equal base's markers over the prefix length and the
// sample counts match.
func NewSplicedGL(prefix PhasedPrefix, base GL) (*SplicedGL, error) {
	n := prefix.NMarkers()
	if n > base.NMarkers() {
		return nil, fmt.Errorf("gl: prefix has %d markers, base only has %d", n, base.NMarkers())
	}
	if prefix.NSamples() != base.NSamples() {
		return nil, fmt.Errorf("gl: prefix has %d samples, base has %d", prefix.NSamples(), base.NSamples())
	}
	for i := 0; i < n; i++ {
		if !prefix.Marker(i).Equal(base.Marker(i)) {
			return nil, fmt.Errorf("gl: prefix marker %d does not match base marker %d", i, i)
		}
	}
	return &SplicedGL{prefix: prefix, base: base, n: n}, nil
}

func (g *SplicedGL) NMarkers() int              { return g.base.NMarkers() }
func (g *SplicedGL) Marker(i int) marker.Marker { return g.base.Marker(i) }
func (g *SplicedGL) NSamples() int              { return g.base.NSamples() }

func (g *SplicedGL) GL(m, sample, a1, a2 int) float64 {
	if m < g.n {
		if a1 == g.prefix.Allele1(m, sample) && a2 == g.prefix.Allele2(m, sample) {
			return 1
		}
		return 0
	}
	return g.base.GL(m, sample, a1, a2)
}

func (g *SplicedGL) IsPhased(m, sample int) bool {
	if m < g.n {
		return true
	}
	return g.base.IsPhased(m, sample)
}

func (g *SplicedGL) Allele1(m, sample int) int {
	if m < g.n {
		return g.prefix.Allele1(m, sample)
	}
	return g.base.Allele1(m, sample)
}

func (g *SplicedGL) Allele2(m, sample int) int {
	if m < g.n {
		return g.prefix.Allele2(m, sample)
	}
	return g.base.Allele2(m, sample)
}
