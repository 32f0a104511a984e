// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package hmm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beaglephase/beagle/marker"
)

func buildMarkers(t *testing.T, n int) *marker.Markers {
	t.Helper()
	ms := make([]marker.Marker, n)
	for i := 0; i < n; i++ {
		m, err := marker.New(0, uint64(100+i), nil, []string{"A", "C"}, -1)
		require.NoError(t, err)
		ms[i] = m
	}
	out, err := marker.New(ms)
	require.NoError(t, err)
	return out
}

// TestHapBaumDeterminism covers §4.I "identical seed, input, and DAG
// produce identical samples".
func TestHapBaumDeterminism(t *testing.T) {
	dag := twoAlleleChainDAG(4)
	al := &hardAL{nMarkers: 4, nHaps: 1}
	ms := buildMarkers(t, 4)

	hb1 := NewHapBaum(dag, al, 0, ms, 42)
	hb2 := NewHapBaum(dag, al, 0, ms, 42)

	out1, err := hb1.Sample(5)
	require.NoError(t, err)
	out2, err := hb2.Sample(5)
	require.NoError(t, err)
	require.Equal(t, out1, out2)

	for _, alleles := range out1 {
		for _, a := range alleles {
			require.Equal(t, 0, a, "hard-called allele-0 emissions must always sample allele 0")
		}
	}
}

// TestSingleBaumPosteriorSums covers Testable property 6: genotype
// posterior probabilities at each marker sum to 1 within 1e-9, and
// scenario S5's homozygous-REF expectation at the driver level.
func TestSingleBaumPosteriorSums(t *testing.T) {
	dag := twoAlleleChainDAG(3)
	g := &hardGL{nMarkers: 3, nSamples: 1}
	ms := buildMarkers(t, 3)

	sb := NewSingleBaum(dag, g, 0, ms, 7)
	gv := NewGenotypeValues(1, ms.SumGenotypes(ms.Len()))

	pairs, err := sb.Run(3, gv, 0)
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	row := gv.Row(0)
	homRefIdx := GenotypeIndex(0, 0)
	for level := 0; level < ms.Len(); level++ {
		off := ms.SumGenotypes(level)
		nGt := NGenotypes(ms.Marker(level).NAlleles())
		sum := 0.0
		for i := 0; i < nGt; i++ {
			sum += row[off+i]
		}
		require.InDelta(t, 1.0, sum, 1e-9, "genotype posteriors must sum to 1 at level %d", level)
		require.GreaterOrEqual(t, row[off+homRefIdx], 1-1e-9)
	}

	for _, p := range pairs {
		for _, a := range p.Allele1 {
			require.Equal(t, 0, a)
		}
		for _, a := range p.Allele2 {
			require.Equal(t, 0, a)
		}
	}
}

// TestDuoBaumDeterminism covers §4.I for the duo driver: identical
// seed, input and DAG produce identical samples.
func TestDuoBaumDeterminism(t *testing.T) {
	dag := twoAlleleChainDAG(4)
	g := &hardGL{nMarkers: 4, nSamples: 2}
	ms := buildMarkers(t, 4)

	db1 := NewDuoBaum(dag, g, 0, 1, ms, 99)
	db2 := NewDuoBaum(dag, g, 0, 1, ms, 99)

	out1, err := db1.Run(5, nil, 0, 1)
	require.NoError(t, err)
	out2, err := db2.Run(5, nil, 0, 1)
	require.NoError(t, err)
	require.Equal(t, out1, out2)

	for _, pair := range out1 {
		for _, a := range pair.AB1 {
			require.Equal(t, 0, a)
		}
		for _, a := range pair.A2 {
			require.Equal(t, 0, a)
		}
		for _, a := range pair.B2 {
			require.Equal(t, 0, a)
		}
	}
}

// TestDuoBaumPosteriorSums covers Testable property 6 for the duo
// driver: genotype posterior probabilities at each marker sum to 1
// for both the parent and offspring rows.
func TestDuoBaumPosteriorSums(t *testing.T) {
	dag := twoAlleleChainDAG(3)
	g := &hardGL{nMarkers: 3, nSamples: 2}
	ms := buildMarkers(t, 3)

	db := NewDuoBaum(dag, g, 0, 1, ms, 11)
	gv := NewGenotypeValues(2, ms.SumGenotypes(ms.Len()))

	pairs, err := db.Run(3, gv, 0, 1)
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	homRefIdx := GenotypeIndex(0, 0)
	for _, sampleIdx := range []int{0, 1} {
		row := gv.Row(sampleIdx)
		for level := 0; level < ms.Len(); level++ {
			off := ms.SumGenotypes(level)
			nGt := NGenotypes(ms.Marker(level).NAlleles())
			sum := 0.0
			for i := 0; i < nGt; i++ {
				sum += row[off+i]
			}
			require.InDelta(t, 1.0, sum, 1e-9, "sample %d genotype posteriors must sum to 1 at level %d", sampleIdx, level)
			require.GreaterOrEqual(t, row[off+homRefIdx], 1-1e-9)
		}
	}
}

// TestTrioBaumDeterminism covers §4.I for the trio driver: identical
// seed, input and DAG produce identical samples.
func TestTrioBaumDeterminism(t *testing.T) {
	dag := twoAlleleChainDAG(4)
	g := &hardGL{nMarkers: 4, nSamples: 3}
	ms := buildMarkers(t, 4)

	tb1 := NewTrioBaum(dag, g, 0, 1, 2, ms, 123)
	tb2 := NewTrioBaum(dag, g, 0, 1, 2, ms, 123)

	out1, err := tb1.Run(5, nil, 0, 1, 2)
	require.NoError(t, err)
	out2, err := tb2.Run(5, nil, 0, 1, 2)
	require.NoError(t, err)
	require.Equal(t, out1, out2)

	for _, pair := range out1 {
		for _, a := range pair.A1 {
			require.Equal(t, 0, a)
		}
		for _, a := range pair.B1 {
			require.Equal(t, 0, a)
		}
	}
}

// TestTrioBaumPosteriorSums covers Testable property 6 for the trio
// driver: genotype posterior probabilities at each marker sum to 1
// for the father, mother and offspring rows.
func TestTrioBaumPosteriorSums(t *testing.T) {
	dag := twoAlleleChainDAG(3)
	g := &hardGL{nMarkers: 3, nSamples: 3}
	ms := buildMarkers(t, 3)

	tb := NewTrioBaum(dag, g, 0, 1, 2, ms, 17)
	gv := NewGenotypeValues(3, ms.SumGenotypes(ms.Len()))

	pairs, err := tb.Run(3, gv, 0, 1, 2)
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	homRefIdx := GenotypeIndex(0, 0)
	for _, sampleIdx := range []int{0, 1, 2} {
		row := gv.Row(sampleIdx)
		for level := 0; level < ms.Len(); level++ {
			off := ms.SumGenotypes(level)
			nGt := NGenotypes(ms.Marker(level).NAlleles())
			sum := 0.0
			for i := 0; i < nGt; i++ {
				sum += row[off+i]
			}
			require.InDelta(t, 1.0, sum, 1e-9, "sample %d genotype posteriors must sum to 1 at level %d", sampleIdx, level)
			require.GreaterOrEqual(t, row[off+homRefIdx], 1-1e-9)
		}
	}
}
