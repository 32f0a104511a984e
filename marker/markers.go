// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package marker

import (
	"strconv"
	"strings"
	"sync"
)

// Markers is an ordered, immutable sequence of distinct markers (§3).
// Invariants enforced by New:
//   - all markers on one chromosome are contiguous;
//   - within a chromosome, positions are monotonically non-decreasing;
//   - no duplicate marker (by value equality).
//
// Markers precomputes cumulative prefix sums of allele count, genotype
// count, and per-haplotype bit count, each of length n+1, so that
// sum*(i) gives the total over markers[0:i].
type Markers struct {
	markers []Marker

	sumAlleles       []int
	sumGenotypes     []int
	sumHaplotypeBits []int

	revOnce sync.Once
	rev     *Markers
}

// markerKey builds a string key over the fields Equal compares, so
// duplicate detection does not require Marker to be comparable.
func markerKey(m Marker) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(m.chrom))
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(m.pos, 10))
	b.WriteByte(':')
	b.WriteString(strings.Join(m.alleles, ","))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(m.end, 10))
	return b.String()
}

// New validates ms and builds a Markers with precomputed prefix sums.
// Disordered input or cross-chromosome non-contiguity fails with an
// *OrderError; a duplicate marker likewise.
func New(ms []Marker) (*Markers, error) {
	// Marker has slice-typed fields (ids, alleles) and so is not
	// comparable; dedup on a string key derived from the fields Equal
	// compares (chrom, pos, alleles, end) instead of using Marker
	// itself as a map key.
	seen := make(map[string]bool, len(ms))
	chromSeen := make(map[int]bool, len(ms))
	for i, m := range ms {
		key := markerKey(m)
		if seen[key] {
			return nil, orderErrorf("duplicate marker %s", m)
		}
		seen[key] = true
		if i > 0 {
			prev := ms[i-1]
			if prev.chrom == m.chrom {
				if m.pos < prev.pos {
					return nil, orderErrorf("positions out of order on chrom %d: %d then %d", m.chrom, prev.pos, m.pos)
				}
			} else {
				if chromSeen[m.chrom] {
					return nil, orderErrorf("chromosome %d is not contiguous in marker list", m.chrom)
				}
			}
		}
		chromSeen[m.chrom] = true
	}

	out := &Markers{
		markers:          append([]Marker(nil), ms...),
		sumAlleles:       make([]int, len(ms)+1),
		sumGenotypes:     make([]int, len(ms)+1),
		sumHaplotypeBits: make([]int, len(ms)+1),
	}
	for i, m := range ms {
		out.sumAlleles[i+1] = out.sumAlleles[i] + m.NAlleles()
		out.sumGenotypes[i+1] = out.sumGenotypes[i] + m.NGenotypes()
		out.sumHaplotypeBits[i+1] = out.sumHaplotypeBits[i] + m.BitsPerAllele()
	}
	return out, nil
}

// Len returns the number of markers.
func (ms *Markers) Len() int { return len(ms.markers) }

// Marker returns the i'th marker.
func (ms *Markers) Marker(i int) Marker { return ms.markers[i] }

// Markers returns the underlying slice (read-only; callers must not
// mutate it).
func (ms *Markers) Markers() []Marker { return ms.markers }

// SumAlleles returns the total number of alleles over markers[0:i].
func (ms *Markers) SumAlleles(i int) int { return ms.sumAlleles[i] }

// SumGenotypes returns the total number of genotypes over markers[0:i].
func (ms *Markers) SumGenotypes(i int) int { return ms.sumGenotypes[i] }

// SumHaplotypeBits returns the total number of per-haplotype encoding
// bits over markers[0:i].
func (ms *Markers) SumHaplotypeBits(i int) int { return ms.sumHaplotypeBits[i] }

// Restrict returns a fresh Markers over the half-open slice [lo, hi).
func (ms *Markers) Restrict(lo, hi int) (*Markers, error) {
	if lo < 0 || hi > len(ms.markers) || lo > hi {
		return nil, orderErrorf("Restrict(%d, %d) out of range for %d markers", lo, hi, len(ms.markers))
	}
	return New(ms.markers[lo:hi])
}

// Reversed lazily builds, and caches, the marker list in reverse order.
// It shares no mutable structure with the forward view but is computed
// at most once per Markers instance (§3: "a reversed view is
// materialized lazily").
func (ms *Markers) Reversed() *Markers {
	ms.revOnce.Do(func() {
		n := len(ms.markers)
		rev := make([]Marker, n)
		for i, m := range ms.markers {
			rev[n-1-i] = m
		}
		// A reversed marker list is not guaranteed to satisfy the
		// position-ordering invariant under New's checks (positions
		// descend instead of ascend), so build the prefix-sum
		// structure directly rather than through New.
		out := &Markers{
			markers:          rev,
			sumAlleles:       make([]int, n+1),
			sumGenotypes:     make([]int, n+1),
			sumHaplotypeBits: make([]int, n+1),
		}
		for i, m := range rev {
			out.sumAlleles[i+1] = out.sumAlleles[i] + m.NAlleles()
			out.sumGenotypes[i+1] = out.sumGenotypes[i] + m.NGenotypes()
			out.sumHaplotypeBits[i+1] = out.sumHaplotypeBits[i] + m.BitsPerAllele()
		}
		ms.rev = out
	})
	return ms.rev
}
