// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package stats implements statistical diagnostics kept off the Baum
// hot path: Hardy-Weinberg equilibrium testing over called genotype
// counts.
package stats

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var chisquared = distuv.ChiSquared{K: 1, Src: rand.NewSource(rand.Uint64())}

// HWEPValue returns the Hardy-Weinberg equilibrium p-value for a
// diallelic site given the called genotype counts nAA (homozygous
// reference), nAa (heterozygous), naa (homozygous alternate). A low
// p-value flags sites whose genotype distribution is inconsistent with
// random mating, a common site-level QC filter ahead of phasing.
func HWEPValue(nAA, nAa, naa int) float64 {
	n := nAA + nAa + naa
	if n == 0 {
		return 1
	}
	nTotal := float64(n)
	p := (2*float64(nAA) + float64(nAa)) / (2 * nTotal)
	q := 1 - p

	expAA := p * p * nTotal
	expAa := 2 * p * q * nTotal
	expaa := q * q * nTotal

	var sum float64
	for _, pair := range [][2]float64{
		{float64(nAA), expAA},
		{float64(nAa), expAa},
		{float64(naa), expaa},
	} {
		obs, exp := pair[0], pair[1]
		if exp == 0 {
			continue
		}
		d := obs - exp
		sum += (d * d) / exp
	}
	return 1 - chisquared.CDF(sum)
}
