// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package gl implements the genotype-likelihood (GL) and
// allele-likelihood (AL) interfaces and their composing wrappers (§3
// GL/AL, §4.F).
package gl

import "github.com/beaglephase/beagle/marker"

// GL maps (marker, sample, a1, a2) to an emission probability in
// [0,1], plus phase and called-allele accessors, for a diploid sample
// cohort over NMarkers() markers.
type GL interface {
	NMarkers() int
	// Marker returns the i'th marker in this view's own order (not
	// necessarily the source order: wrappers like RevGL remap it).
	Marker(i int) marker.Marker
	NSamples() int
	// GL returns the emission probability of ordered allele pair
	// (a1, a2) for sample at marker m.
	GL(m, sample, a1, a2 int) float64
	// IsPhased reports whether (Allele1, Allele2) ordering reflects
	// parental origin for sample at marker m.
	IsPhased(m, sample int) bool
	// Allele1 and Allele2 return the called alleles, or -1 if unknown.
	Allele1(m, sample int) int
	Allele2(m, sample int) int
}

// AL maps (marker, haplotype, allele) to an allele emission probability
// for a haploid cohort.
type AL interface {
	NMarkers() int
	Marker(i int) marker.Marker
	NHaplotypes() int
	AL(m, hap, allele int) float64
	// Allele returns the called allele for hap at marker m, or -1 if
	// unknown.
	Allele(m, hap int) int
}
