// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package refpanel

import "sort"

// LowMafDiallelic stores the minor allele index and a sorted array of
// haplotype indices that carry it; every other haplotype is implicitly
// the major allele. Valid when nAlleles == 2 (§4.B).
type LowMafDiallelic struct {
	major       int
	minor       int
	minorHaps   []int
	nHaplotypes int
}

// NewLowMafDiallelic rebuilds a LowMafDiallelic from a fully-resolved
// per-haplotype allele assignment, e.g. when reconstructing a record
// read back from BREF's minor-index (coding_flag 1) payload.
func NewLowMafDiallelic(hapAlleles []int, major int) *LowMafDiallelic {
	return newLowMafDiallelic(hapAlleles, major)
}

func newLowMafDiallelic(hapAlleles []int, major int) *LowMafDiallelic {
	minor := 1 - major
	var minorHaps []int
	for hap, a := range hapAlleles {
		if a == minor {
			minorHaps = append(minorHaps, hap)
		}
	}
	return &LowMafDiallelic{major: major, minor: minor, minorHaps: minorHaps, nHaplotypes: len(hapAlleles)}
}

func (e *LowMafDiallelic) Allele(hap int) int {
	checkHap(e, hap)
	i := sort.SearchInts(e.minorHaps, hap)
	if i < len(e.minorHaps) && e.minorHaps[i] == hap {
		return e.minor
	}
	return e.major
}
func (e *LowMafDiallelic) Allele1(sample int) int   { return e.Allele(2 * sample) }
func (e *LowMafDiallelic) Allele2(sample int) int   { return e.Allele(2*sample + 1) }
func (e *LowMafDiallelic) IsPhased(sample int) bool { return true }
func (e *LowMafDiallelic) IsRefData() bool          { return true }
func (e *LowMafDiallelic) NHaplotypes() int         { return e.nHaplotypes }
func (e *LowMafDiallelic) NAlleles() int            { return 2 }
func (e *LowMafDiallelic) MajorAllele() int         { return e.major }
func (e *LowMafDiallelic) AlleleCount(a int) int {
	checkAllele(a, 2)
	if a == e.minor {
		return len(e.minorHaps)
	}
	return e.nHaplotypes - len(e.minorHaps)
}
func (e *LowMafDiallelic) HapIndex(a, copy int) int {
	checkAllele(a, 2)
	if a != e.minor {
		panic("refpanel: HapIndex only enumerates the minor allele of a LowMafDiallelic")
	}
	return e.minorHaps[copy]
}

// LowMafMultiallelic stores one sorted array of haplotype indices per
// non-major allele; the major allele is implicit (§4.B).
type LowMafMultiallelic struct {
	major       int
	nAlleles    int
	nHaplotypes int
	// haps[a] is the sorted haplotype-index list for non-major allele
	// a; haps[major] is nil.
	haps [][]int
}

// NewLowMafMultiallelic rebuilds a LowMafMultiallelic from a
// fully-resolved per-haplotype allele assignment, e.g. when
// reconstructing a record read back from BREF's minor-index
// (coding_flag 1) payload.
func NewLowMafMultiallelic(hapAlleles []int, nAlleles, major int) *LowMafMultiallelic {
	return newLowMafMultiallelic(hapAlleles, nAlleles, major)
}

func newLowMafMultiallelic(hapAlleles []int, nAlleles, major int) *LowMafMultiallelic {
	e := &LowMafMultiallelic{major: major, nAlleles: nAlleles, nHaplotypes: len(hapAlleles), haps: make([][]int, nAlleles)}
	for hap, a := range hapAlleles {
		if a == major {
			continue
		}
		e.haps[a] = append(e.haps[a], hap)
	}
	return e
}

func (e *LowMafMultiallelic) Allele(hap int) int {
	checkHap(e, hap)
	for a, list := range e.haps {
		if a == e.major {
			continue
		}
		i := sort.SearchInts(list, hap)
		if i < len(list) && list[i] == hap {
			return a
		}
	}
	return e.major
}
func (e *LowMafMultiallelic) Allele1(sample int) int   { return e.Allele(2 * sample) }
func (e *LowMafMultiallelic) Allele2(sample int) int   { return e.Allele(2*sample + 1) }
func (e *LowMafMultiallelic) IsPhased(sample int) bool { return true }
func (e *LowMafMultiallelic) IsRefData() bool          { return true }
func (e *LowMafMultiallelic) NHaplotypes() int         { return e.nHaplotypes }
func (e *LowMafMultiallelic) NAlleles() int            { return e.nAlleles }
func (e *LowMafMultiallelic) MajorAllele() int         { return e.major }
func (e *LowMafMultiallelic) AlleleCount(a int) int {
	checkAllele(a, e.nAlleles)
	if a == e.major {
		n := e.nHaplotypes
		for allele, list := range e.haps {
			if allele != e.major {
				n -= len(list)
			}
		}
		return n
	}
	return len(e.haps[a])
}
func (e *LowMafMultiallelic) HapIndex(a, copy int) int {
	checkAllele(a, e.nAlleles)
	if a == e.major {
		panic("refpanel: HapIndex does not enumerate the major allele of a LowMafMultiallelic")
	}
	return e.haps[a][copy]
}
