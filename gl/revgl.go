// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gl

import "github.com/beaglephase/beagle/marker"

// RevGL presents base's markers in reverse order: marker'(i) =
// base.Marker(last-i), with every accessor remapped accordingly (§4.F).
type RevGL struct {
	base GL
	last int
}

// NewRevGL wraps base so it is read in reverse marker order.
func NewRevGL(base GL) *RevGL {
	return &RevGL{base: base, last: base.NMarkers() - 1}
}

func (r *RevGL) remap(i int) int { return r.last - i }

func (r *RevGL) NMarkers() int                { return r.base.NMarkers() }
func (r *RevGL) Marker(i int) marker.Marker   { return r.base.Marker(r.remap(i)) }
func (r *RevGL) NSamples() int                { return r.base.NSamples() }
func (r *RevGL) GL(m, sample, a1, a2 int) float64 {
	return r.base.GL(r.remap(m), sample, a1, a2)
}
func (r *RevGL) IsPhased(m, sample int) bool { return r.base.IsPhased(r.remap(m), sample) }
func (r *RevGL) Allele1(m, sample int) int   { return r.base.Allele1(r.remap(m), sample) }
func (r *RevGL) Allele2(m, sample int) int   { return r.base.Allele2(r.remap(m), sample) }

// Base exposes the wrapped GL.
func (r *RevGL) Base() GL { return r.base }
