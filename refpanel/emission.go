// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package refpanel implements the sequence-coded reference panel
// representation (§3 VcfEmission, §4.B, §4.C): the four interchangeable
// per-marker haplotype stores, the selection rule that picks among them,
// and the sequence compressor that collapses runs of markers sharing a
// haplotype-to-sequence assignment.
package refpanel

import "fmt"

// Emission is the interface every encoding implements: O(1) per-haplotype
// allele lookup over a reference panel marker record (§3 VcfEmission).
type Emission interface {
	// Allele returns the allele index carried by haplotype hap.
	Allele(hap int) int
	// Allele1 returns the first-copy allele for sample.
	Allele1(sample int) int
	// Allele2 returns the second-copy allele for sample.
	Allele2(sample int) int
	// IsPhased always reports true: reference panel data is phased by
	// construction.
	IsPhased(sample int) bool
	// IsRefData always reports true.
	IsRefData() bool
	// NHaplotypes returns 2*NSamples.
	NHaplotypes() int
	// NAlleles returns the number of distinct alleles at this marker.
	NAlleles() int
}

// MinorIndexed is implemented by encodings that track a major allele and
// can enumerate the haplotypes carrying each non-major allele in O(1)
// amortized time (§3: "when they support minor-index storage").
type MinorIndexed interface {
	Emission
	// MajorAllele returns the allele index with the most haplotypes
	// (ties broken by lowest index).
	MajorAllele() int
	// AlleleCount returns the number of haplotypes carrying allele a.
	AlleleCount(a int) int
	// HapIndex returns the copy'th (0-based) haplotype index carrying
	// allele a, in ascending order.
	HapIndex(a, copy int) int
}

func checkHap(e Emission, hap int) {
	if hap < 0 || hap >= e.NHaplotypes() {
		panic(fmt.Sprintf("refpanel: haplotype index %d out of range [0,%d)", hap, e.NHaplotypes()))
	}
}

func checkAllele(a, nAlleles int) {
	if a < 0 || a >= nAlleles {
		panic(fmt.Sprintf("refpanel: allele index %d out of range [0,%d)", a, nAlleles))
	}
}

// alleleCounts tallies haplotype counts per allele and identifies the
// major allele: the allele of maximum count, ties broken by lowest
// index (§4.B invariant: "that major must be the unique allele of
// maximum count or the least-indexed tied-majority allele").
func alleleCounts(hapAlleles []int, nAlleles int) (counts []int, major int) {
	counts = make([]int, nAlleles)
	for _, a := range hapAlleles {
		counts[a]++
	}
	major = 0
	for a := 1; a < nAlleles; a++ {
		if counts[a] > counts[major] {
			major = a
		}
	}
	return counts, major
}

// lowMafThreshold returns the §4.B low-MAF threshold "1 + N_hap/200" for
// a panel with nHap haplotypes.
func lowMafThreshold(nHap int) int {
	return 1 + nHap/200
}

// ChooseEncoding applies the deterministic §4.B selection rule to a
// fully-resolved haplotype allele assignment (one entry per haplotype,
// 2*NSamples long, each in [0, nAlleles)) and returns the chosen
// Emission.
func ChooseEncoding(hapAlleles []int, nAlleles int) (Emission, error) {
	if nAlleles < 2 {
		// §9 open question: bitsPerAllele assumes n_alleles >= 2;
		// reject at ingestion rather than silently mis-encoding.
		return nil, fmt.Errorf("refpanel: need at least 2 alleles, got %d", nAlleles)
	}
	if len(hapAlleles)%2 != 0 {
		return nil, fmt.Errorf("refpanel: odd haplotype count %d", len(hapAlleles))
	}
	for _, a := range hapAlleles {
		checkAllele(a, nAlleles)
	}

	counts, major := alleleCounts(hapAlleles, nAlleles)
	nonMajorTotal := len(hapAlleles) - counts[major]
	if nonMajorTotal < lowMafThreshold(len(hapAlleles)) {
		if nAlleles == 2 {
			return newLowMafDiallelic(hapAlleles, major), nil
		}
		return newLowMafMultiallelic(hapAlleles, nAlleles, major), nil
	}
	if nAlleles <= 127 {
		return newByteArray(hapAlleles, nAlleles), nil
	}
	return newBitSet(hapAlleles, nAlleles), nil
}
