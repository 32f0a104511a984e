// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package bref

import "fmt"

// canonicalBases are the four SNV bases in the fixed order that defines
// "lexicographic index of a permutation of (A,C,G,T)" (§4.D record
// allele_code).
var canonicalBases = [4]byte{'A', 'C', 'G', 'T'}

// snvPermutations holds all 24 permutations of canonicalBases, built in
// lexicographic order by repeated selection: permutation i is the i'th
// in standard factorial-number-system (Lehmer code) order.
var snvPermutations = buildPermutations()

func buildPermutations() [24][4]byte {
	var perms [24][4]byte
	remaining := make([]byte, 4)
	copy(remaining, canonicalBases[:])
	// Generate permutations in lexicographic order via the standard
	// factorial-number-system construction.
	factorial := [4]int{6, 2, 1, 1}
	for i := 0; i < 24; i++ {
		idx := i
		avail := append([]byte(nil), remaining...)
		var perm [4]byte
		for pos := 0; pos < 4; pos++ {
			f := factorial[pos]
			sel := idx / f
			idx %= f
			perm[pos] = avail[sel]
			avail = append(avail[:sel], avail[sel+1:]...)
		}
		perms[i] = perm
	}
	return perms
}

func permIndex(full [4]byte) (int, bool) {
	for i, p := range snvPermutations {
		if p == full {
			return i, true
		}
	}
	return 0, false
}

// encodeSNVAlleleCode computes the allele_code for a marker whose
// alleles are exactly the distinct SNV bases A/C/G/T (1 to 4 of them,
// order significant: index 0 is the reference allele). It returns
// ok=false if alleles are not a pure subset of {A,C,G,T} (callers then
// fall back to the explicit n_alleles/allele/end payload).
func encodeSNVAlleleCode(alleles []string) (code int8, ok bool) {
	n := len(alleles)
	if n < 1 || n > 4 {
		return 0, false
	}
	seen := map[byte]bool{}
	var full [4]byte
	for i, a := range alleles {
		if len(a) != 1 {
			return 0, false
		}
		b := a[0]
		switch b {
		case 'A', 'C', 'G', 'T':
		default:
			return 0, false
		}
		if seen[b] {
			return 0, false
		}
		seen[b] = true
		full[i] = b
	}
	// Fill remaining permutation slots with the bases not present,
	// in canonical (A,C,G,T) order, to make the full-permutation
	// construction deterministic.
	next := n
	for _, b := range canonicalBases {
		if !seen[b] {
			full[next] = b
			next++
		}
	}
	idx, ok := permIndex(full)
	if !ok {
		return 0, false
	}
	return int8((idx << 2) | (n - 1)), true
}

// decodeSNVAlleleCode inverts encodeSNVAlleleCode, returning the first
// nAlleles bases of the encoded permutation.
func decodeSNVAlleleCode(code int8) ([]string, error) {
	permIdx := int(code) >> 2
	n := int(code&0x3) + 1
	if permIdx < 0 || permIdx >= 24 {
		return nil, fmt.Errorf("bref: invalid SNV permutation index %d", permIdx)
	}
	full := snvPermutations[permIdx]
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = string(full[i])
	}
	return out, nil
}
