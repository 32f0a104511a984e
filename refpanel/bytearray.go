// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package refpanel

// ByteArray stores one signed byte per haplotype. Valid when
// nAlleles <= 127 (§4.B).
type ByteArray struct {
	alleles  []int8
	nAlleles int
}

func newByteArray(hapAlleles []int, nAlleles int) *ByteArray {
	b := make([]int8, len(hapAlleles))
	for i, a := range hapAlleles {
		b[i] = int8(a)
	}
	return &ByteArray{alleles: b, nAlleles: nAlleles}
}

func (e *ByteArray) Allele(hap int) int {
	checkHap(e, hap)
	return int(e.alleles[hap])
}
func (e *ByteArray) Allele1(sample int) int   { return e.Allele(2 * sample) }
func (e *ByteArray) Allele2(sample int) int   { return e.Allele(2*sample + 1) }
func (e *ByteArray) IsPhased(sample int) bool { return true }
func (e *ByteArray) IsRefData() bool          { return true }
func (e *ByteArray) NHaplotypes() int         { return len(e.alleles) }
func (e *ByteArray) NAlleles() int            { return e.nAlleles }
