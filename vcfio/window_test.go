// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfio

import (
	"io"
	"testing"

	"github.com/beaglephase/beagle/chromtable"
	"github.com/beaglephase/beagle/marker"
	"github.com/beaglephase/beagle/refpanel"
)

type fakeSource struct {
	recs []MarkerEmission
	i    int
}

func (s *fakeSource) Next() (MarkerEmission, error) {
	if s.i >= len(s.recs) {
		return MarkerEmission{}, io.EOF
	}
	rec := s.recs[s.i]
	s.i++
	return rec, nil
}

func mustRec(t *testing.T, tab *chromtable.Table, chrom string, pos uint64) MarkerEmission {
	t.Helper()
	idx, err := tab.Intern(chrom)
	if err != nil {
		t.Fatal(err)
	}
	m, err := marker.New(idx, pos, nil, []string{"A", "C"}, -1)
	if err != nil {
		t.Fatal(err)
	}
	e, err := refpanel.ChooseEncoding([]int{0, 1, 0, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	return MarkerEmission{Marker: m, Emission: e}
}

func TestVcfWindowAdvanceBasic(t *testing.T) {
	tab := chromtable.New()
	recs := []MarkerEmission{
		mustRec(t, tab, "chr1", 100),
		mustRec(t, tab, "chr1", 200),
		mustRec(t, tab, "chr1", 300),
		mustRec(t, tab, "chr1", 400),
		mustRec(t, tab, "chr1", 500),
	}
	w := NewVcfWindow(&fakeSource{recs: recs})
	if err := w.Advance(0, 3); err != nil {
		t.Fatal(err)
	}
	if w.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", w.Size())
	}
	if w.At(0).Marker.Pos() != 100 || w.At(2).Marker.Pos() != 300 {
		t.Errorf("unexpected window contents")
	}

	if err := w.Advance(1, 3); err != nil {
		t.Fatal(err)
	}
	if w.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", w.Size())
	}
	if w.At(0).Marker.Pos() != 300 {
		t.Errorf("At(0).Pos() = %d, want 300 (retained overlap)", w.At(0).Marker.Pos())
	}
	if w.At(2).Marker.Pos() != 500 {
		t.Errorf("At(2).Pos() = %d, want 500", w.At(2).Marker.Pos())
	}
}

// TestVcfWindowNoPositionStraddle covers Testable property 11: two
// source records sharing (chrom, pos) never land in different windows.
func TestVcfWindowNoPositionStraddle(t *testing.T) {
	tab := chromtable.New()
	recs := []MarkerEmission{
		mustRec(t, tab, "chr1", 100),
		mustRec(t, tab, "chr1", 200),
		mustRec(t, tab, "chr1", 200),
		mustRec(t, tab, "chr1", 200),
		mustRec(t, tab, "chr1", 300),
	}
	w := NewVcfWindow(&fakeSource{recs: recs})
	if err := w.Advance(0, 2); err != nil {
		t.Fatal(err)
	}
	if w.Size() != 4 {
		t.Fatalf("Size() = %d, want 4 (drained all pos=200 records)", w.Size())
	}
	for i := 1; i < w.Size(); i++ {
		if w.At(i).Marker.Pos() != 200 {
			t.Errorf("At(%d).Pos() = %d, want 200", i, w.At(i).Marker.Pos())
		}
	}
}

func TestVcfWindowChromBoundary(t *testing.T) {
	tab := chromtable.New()
	recs := []MarkerEmission{
		mustRec(t, tab, "chr1", 100),
		mustRec(t, tab, "chr1", 200),
		mustRec(t, tab, "chr2", 50),
	}
	w := NewVcfWindow(&fakeSource{recs: recs})
	if err := w.Advance(0, 5); err != nil {
		t.Fatal(err)
	}
	if w.Size() != 2 {
		t.Fatalf("Size() = %d, want 2 (stopped at chromosome change)", w.Size())
	}
	last, err := w.LastWindowOnChrom()
	if err != nil {
		t.Fatal(err)
	}
	if !last {
		t.Error("LastWindowOnChrom() = false, want true")
	}
	if err := w.Advance(0, 5); err != nil {
		t.Fatal(err)
	}
	if w.Size() != 1 || w.At(0).Marker.Pos() != 50 {
		t.Errorf("second window = %+v, want single chr2:50 record", w.Records())
	}
}

func TestVcfWindowAdvancePreconditions(t *testing.T) {
	tab := chromtable.New()
	w := NewVcfWindow(&fakeSource{recs: []MarkerEmission{mustRec(t, tab, "chr1", 1)}})
	if err := w.Advance(3, 3); err == nil {
		t.Error("expected error for overlap >= target_size")
	}
	if err := w.Advance(-1, 3); err == nil {
		t.Error("expected error for negative overlap")
	}
}

func TestRestrictedVcfWindow(t *testing.T) {
	tab := chromtable.New()
	srcRecs := []MarkerEmission{
		mustRec(t, tab, "chr1", 100),
		mustRec(t, tab, "chr1", 300),
	}
	w := NewRestrictedVcfWindow(&fakeSource{recs: srcRecs})

	idx, err := tab.Intern("chr1")
	if err != nil {
		t.Fatal(err)
	}
	m100, err := marker.New(idx, 100, nil, []string{"A", "C"}, -1)
	if err != nil {
		t.Fatal(err)
	}
	m200, err := marker.New(idx, 200, nil, []string{"A", "C"}, -1)
	if err != nil {
		t.Fatal(err)
	}
	m300, err := marker.New(idx, 300, nil, []string{"A", "C"}, -1)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := marker.New([]marker.Marker{m100, m200, m300})
	if err != nil {
		t.Fatal(err)
	}

	got, err := w.Advance(ref)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	if got[0] == nil || got[2] == nil {
		t.Error("expected non-nil entries at markers present in source")
	}
	if got[1] != nil {
		t.Error("expected nil entry at marker absent from source")
	}
}
