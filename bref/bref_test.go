// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package bref

import (
	"bytes"
	"io"
	"testing"

	"github.com/beaglephase/beagle/chromtable"
	"github.com/beaglephase/beagle/marker"
	"github.com/beaglephase/beagle/refpanel"
)

func mustSNVMarker(t *testing.T, tab *chromtable.Table, chrom string, pos uint64, alleles ...string) marker.Marker {
	t.Helper()
	idx, err := tab.Intern(chrom)
	if err != nil {
		t.Fatal(err)
	}
	m, err := marker.New(idx, pos, nil, alleles, -1)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// TestRoundTripS4 reproduces spec.md scenario S4: a panel of 50
// diallelic SNV markers over 8 haplotypes with mixed major alleles,
// compressed with a sequence compressor, written to BREF, read back,
// and checked marker-by-marker.
func TestRoundTripS4(t *testing.T) {
	const nHap = 8
	const nMarkers = 50
	tab := chromtable.New()

	hapVectors := make([][]int, nMarkers)
	markers := make([]marker.Marker, nMarkers)
	c := refpanel.NewCompressor(255)
	for i := 0; i < nMarkers; i++ {
		vec := make([]int, nHap)
		for h := 0; h < nHap; h++ {
			vec[h] = (h + i) % 2
		}
		hapVectors[i] = vec
		ok, err := c.Add(vec)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("Add(%d) reported capacity exceeded unexpectedly", i)
		}
		alleles := []string{"A", "C"}
		if i%2 == 1 {
			alleles = []string{"C", "A"}
		}
		markers[i] = mustSNVMarker(t, tab, "chr1", uint64(1000+i), alleles...)
	}
	nAlleles := make([]int, nMarkers)
	for i := range nAlleles {
		nAlleles[i] = 2
	}
	seqRecs, err := c.Flush(nAlleles)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, []string{"s0", "s1", "s2", "s3"})
	if err != nil {
		t.Fatal(err)
	}
	recs := make([]Record, nMarkers)
	for i := range recs {
		recs[i] = Record{Marker: markers[i], Emission: seqRecs[i]}
	}
	if err := w.WriteBlock(Block{Chrom: "chr1", NHap: nHap, HapToSeq: seqRecs[0].HapToSeq(), Records: recs}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	rdr, err := NewReader(&buf, tab)
	if err != nil {
		t.Fatal(err)
	}
	if len(rdr.Header.SampleIDs) != 4 {
		t.Fatalf("SampleIDs = %v, want 4 entries", rdr.Header.SampleIDs)
	}
	blk, err := rdr.ReadBlock()
	if err != nil {
		t.Fatal(err)
	}
	if blk.Chrom != "chr1" {
		t.Errorf("Chrom = %q, want chr1", blk.Chrom)
	}
	if len(blk.Records) != nMarkers {
		t.Fatalf("got %d records, want %d", len(blk.Records), nMarkers)
	}
	for i, rec := range blk.Records {
		if !rec.Marker.Equal(markers[i]) {
			t.Errorf("record %d marker = %v, want %v", i, rec.Marker, markers[i])
		}
		for h := 0; h < nHap; h++ {
			if rec.Emission.Allele(h) != hapVectors[i][h] {
				t.Errorf("record %d Allele(%d) = %d, want %d", i, h, rec.Emission.Allele(h), hapVectors[i][h])
			}
		}
	}

	if _, err := rdr.ReadBlock(); err != io.EOF {
		t.Errorf("ReadBlock after last block = %v, want io.EOF", err)
	}
}

// TestRoundTripMinorIndexed covers the coding_flag 1 payload path: a
// low-MAF record persisted via its minor-allele haplotype lists rather
// than a shared hap->seq assignment.
func TestRoundTripMinorIndexed(t *testing.T) {
	tab := chromtable.New()
	const nHap = 400
	hapAlleles := make([]int, nHap)
	hapAlleles[3] = 1
	hapAlleles[99] = 1
	e, err := refpanel.ChooseEncoding(hapAlleles, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*refpanel.LowMafDiallelic); !ok {
		t.Fatalf("got %T, want *LowMafDiallelic", e)
	}
	m := mustSNVMarker(t, tab, "chr2", 5000, "A", "G")

	var buf bytes.Buffer
	w, err := NewWriter(&buf, make([]string, nHap/2))
	if err != nil {
		t.Fatal(err)
	}
	flatHapToSeq := make([]uint8, nHap)
	if err := w.WriteBlock(Block{
		Chrom:    "chr2",
		NHap:     nHap,
		HapToSeq: flatHapToSeq,
		Records:  []Record{{Marker: m, Emission: e}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	rdr, err := NewReader(&buf, tab)
	if err != nil {
		t.Fatal(err)
	}
	blk, err := rdr.ReadBlock()
	if err != nil {
		t.Fatal(err)
	}
	got := blk.Records[0].Emission
	for h := 0; h < nHap; h++ {
		if got.Allele(h) != hapAlleles[h] {
			t.Errorf("Allele(%d) = %d, want %d", h, got.Allele(h), hapAlleles[h])
		}
	}
}

// TestSNVAlleleCodeRejectsUnencodable checks that a non-SNV allele list
// (multi-character token) forces the explicit n_alleles/allele/end
// payload branch rather than a permutation code.
func TestSNVAlleleCodeRejectsUnencodable(t *testing.T) {
	if _, ok := encodeSNVAlleleCode([]string{"A", "AT"}); ok {
		t.Error("encodeSNVAlleleCode accepted a multi-base allele")
	}
	if _, ok := encodeSNVAlleleCode([]string{"A", "<DEL>"}); ok {
		t.Error("encodeSNVAlleleCode accepted a symbolic allele")
	}
}

func TestSNVAlleleCodeRoundTrip(t *testing.T) {
	cases := [][]string{
		{"A", "C"},
		{"G", "A"},
		{"A", "C", "G"},
		{"T", "G", "C", "A"},
	}
	for _, alleles := range cases {
		code, ok := encodeSNVAlleleCode(alleles)
		if !ok {
			t.Fatalf("encodeSNVAlleleCode(%v) = false", alleles)
		}
		got, err := decodeSNVAlleleCode(code)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(alleles) {
			t.Fatalf("decode(%v) = %v, length mismatch", alleles, got)
		}
		for i := range alleles {
			if got[i] != alleles[i] {
				t.Errorf("decode(%v)[%d] = %q, want %q", alleles, i, got[i], alleles[i])
			}
		}
	}
}
