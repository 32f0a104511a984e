// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package hmm

import "sync"

// GenotypeValues is the shared posterior accumulator: one row per
// sample, each row a flattened sequence of per-marker genotype (or
// allele) probability vectors. Rows are independent, so concurrent
// Add calls on distinct sample indices write disjoint memory; a single
// mutex guards only the row lookup, not the row writes (§5:
// "must support concurrent add(sample_index, probs) with independent
// rows, no row contention").
type GenotypeValues struct {
	mu   sync.Mutex
	rows [][]float64
}

// NewGenotypeValues allocates storage for nSamples rows, each of width
// rowWidth (typically Markers.SumGenotypes(Markers.Len()) or
// Markers.SumAlleles(...) depending on the model).
func NewGenotypeValues(nSamples, rowWidth int) *GenotypeValues {
	rows := make([][]float64, nSamples)
	for i := range rows {
		rows[i] = make([]float64, rowWidth)
	}
	return &GenotypeValues{rows: rows}
}

// Add accumulates probs into sampleIndex's row starting at offset,
// summing into any values already present there. The mutex only
// guards the row lookup, not the increment loop: safe for concurrent
// calls across distinct sample indices, but the caller's dispatch
// model (§5: one writer per sample row) must ensure no two goroutines
// call Add on the same sampleIndex concurrently.
func (gv *GenotypeValues) Add(sampleIndex, offset int, probs []float64) {
	gv.mu.Lock()
	row := gv.rows[sampleIndex]
	gv.mu.Unlock()
	for i, p := range probs {
		row[offset+i] += p
	}
}

// Row returns sampleIndex's accumulated row (read-only for callers).
func (gv *GenotypeValues) Row(sampleIndex int) []float64 { return gv.rows[sampleIndex] }

// NSamples returns the number of sample rows.
func (gv *GenotypeValues) NSamples() int { return len(gv.rows) }
