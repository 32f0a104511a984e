package refpanel

import "testing"

// TestCompressorS3 reproduces spec.md scenario S3: three diallelic
// markers with identical allele sequences (0,1,0) on haplotypes
// [0,2,4] and (1,0,1) on haplotypes [1,3,5] compress to exactly two
// sequences, hap->seq = [0,1,0,1,0,1].
func TestCompressorS3(t *testing.T) {
	c := NewCompressor(255)
	markers := [][]int{
		{0, 1, 0, 1, 0, 1},
		{1, 0, 1, 0, 1, 0},
		{0, 1, 0, 1, 0, 1},
	}
	for i, m := range markers {
		ok, err := c.Add(m)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("Add(%d) returned false unexpectedly", i)
		}
	}
	if c.NSeq() != 2 {
		t.Fatalf("NSeq() = %d, want 2", c.NSeq())
	}
	recs, err := c.Flush([]int{2, 2, 2})
	if err != nil {
		t.Fatal(err)
	}
	wantHapToSeq := []uint8{0, 1, 0, 1, 0, 1}
	for _, rec := range recs {
		h2s := rec.HapToSeq()
		for h, want := range wantHapToSeq {
			if h2s[h] != want {
				t.Fatalf("hapToSeq = %v, want %v", h2s, wantHapToSeq)
			}
		}
	}
	for i, rec := range recs {
		for h := range wantHapToSeq {
			if rec.Allele(h) != markers[i][h] {
				t.Errorf("marker %d Allele(%d) = %d, want %d", i, h, rec.Allele(h), markers[i][h])
			}
		}
	}
}

// TestCompressorEquivalenceInvariant checks testable property 3: after
// successful adds, two haplotypes share hap->seq iff their allele
// vectors over the buffered markers are identical.
func TestCompressorEquivalenceInvariant(t *testing.T) {
	c := NewCompressor(255)
	markers := [][]int{
		{0, 0, 1, 1, 0, 1},
		{1, 1, 1, 0, 0, 1},
		{0, 1, 1, 0, 1, 1},
	}
	for _, m := range markers {
		ok, err := c.Add(m)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("Add returned false unexpectedly")
		}
	}
	recs, err := c.Flush([]int{2, 2, 2})
	if err != nil {
		t.Fatal(err)
	}
	nHap := len(markers[0])
	for h1 := 0; h1 < nHap; h1++ {
		for h2 := 0; h2 < nHap; h2++ {
			sameSeq := recs[0].HapToSeq()[h1] == recs[0].HapToSeq()[h2]
			sameVec := true
			for _, m := range markers {
				if m[h1] != m[h2] {
					sameVec = false
					break
				}
			}
			if sameSeq != sameVec {
				t.Errorf("h1=%d h2=%d: sameSeq=%v sameVec=%v", h1, h2, sameSeq, sameVec)
			}
		}
	}
}

// TestCompressorCapacityRollback verifies that exceeding maxNSeq rolls
// back the failed Add entirely, leaving the compressor exactly as it
// was before the call.
func TestCompressorCapacityRollback(t *testing.T) {
	c := NewCompressor(2)
	// First marker: 4 haplotypes, identical allele -> one sequence.
	ok, err := c.Add([]int{0, 0, 0, 0})
	if err != nil || !ok {
		t.Fatalf("first Add failed: ok=%v err=%v", ok, err)
	}
	if c.NSeq() != 1 {
		t.Fatalf("NSeq() = %d, want 1", c.NSeq())
	}
	// Second marker: splits into 2 sequences (capacity 2, fits).
	ok, err = c.Add([]int{0, 1, 0, 1})
	if err != nil || !ok {
		t.Fatalf("second Add failed: ok=%v err=%v", ok, err)
	}
	if c.NSeq() != 2 {
		t.Fatalf("NSeq() = %d, want 2", c.NSeq())
	}
	preHapToSeq := append([]uint8(nil), c.hapToSeq...)
	preMarkers := c.markers

	// Third marker: would require a third sequence, exceeding
	// capacity 2. Add must report false and roll back completely.
	ok, err = c.Add([]int{0, 1, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected Add to report capacity exceeded")
	}
	if c.markers != preMarkers {
		t.Errorf("markers changed after rollback: %d != %d", c.markers, preMarkers)
	}
	for h := range preHapToSeq {
		if c.hapToSeq[h] != preHapToSeq[h] {
			t.Errorf("hapToSeq[%d] changed after rollback: %d != %d", h, c.hapToSeq[h], preHapToSeq[h])
		}
	}
	if c.NSeq() != 2 {
		t.Errorf("NSeq() after rollback = %d, want 2", c.NSeq())
	}
}
