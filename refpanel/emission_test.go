package refpanel

import "testing"

func allAlleles(t *testing.T, e Emission) []int {
	t.Helper()
	out := make([]int, e.NHaplotypes())
	for h := range out {
		out[h] = e.Allele(h)
	}
	return out
}

func checkInvariants(t *testing.T, e Emission, nSamples int) {
	t.Helper()
	for s := 0; s < nSamples; s++ {
		if e.Allele(2*s) != e.Allele1(s) {
			t.Errorf("Allele(%d) != Allele1(%d)", 2*s, s)
		}
		if e.Allele(2*s+1) != e.Allele2(s) {
			t.Errorf("Allele(%d) != Allele2(%d)", 2*s+1, s)
		}
	}
	for h := 0; h < e.NHaplotypes(); h++ {
		a := e.Allele(h)
		if a < 0 || a >= e.NAlleles() {
			t.Errorf("Allele(%d) = %d out of range [0,%d)", h, a, e.NAlleles())
		}
	}
}

func TestByteArrayRoundTrip(t *testing.T) {
	hapAlleles := []int{0, 1, 1, 0, 2, 1, 0, 0}
	e := newByteArray(hapAlleles, 3)
	checkInvariants(t, e, 4)
	got := allAlleles(t, e)
	for i, a := range hapAlleles {
		if got[i] != a {
			t.Errorf("Allele(%d) = %d, want %d", i, got[i], a)
		}
	}
}

func TestBitSetRoundTrip(t *testing.T) {
	nAlleles := 200
	hapAlleles := []int{0, 199, 55, 1, 0, 128}
	e := newBitSet(hapAlleles, nAlleles)
	checkInvariants(t, e, 3)
	got := allAlleles(t, e)
	for i, a := range hapAlleles {
		if got[i] != a {
			t.Errorf("Allele(%d) = %d, want %d", i, got[i], a)
		}
	}
}

func TestLowMafDiallelic(t *testing.T) {
	// 400 haplotypes, only 1 carries the minor allele (index 1).
	hapAlleles := make([]int, 400)
	hapAlleles[37] = 1
	e := newLowMafDiallelic(hapAlleles, 0)
	checkInvariants(t, e, 200)
	if e.MajorAllele() != 0 {
		t.Errorf("MajorAllele() = %d, want 0", e.MajorAllele())
	}
	if e.AlleleCount(1) != 1 {
		t.Errorf("AlleleCount(1) = %d, want 1", e.AlleleCount(1))
	}
	if e.HapIndex(1, 0) != 37 {
		t.Errorf("HapIndex(1,0) = %d, want 37", e.HapIndex(1, 0))
	}
	if e.Allele(37) != 1 {
		t.Errorf("Allele(37) = %d, want 1", e.Allele(37))
	}
	if e.Allele(0) != 0 {
		t.Errorf("Allele(0) = %d, want 0", e.Allele(0))
	}
}

func TestLowMafMultiallelic(t *testing.T) {
	hapAlleles := make([]int, 400)
	hapAlleles[10] = 1
	hapAlleles[20] = 2
	e := newLowMafMultiallelic(hapAlleles, 3, 0)
	checkInvariants(t, e, 200)
	if e.AlleleCount(0) != 398 {
		t.Errorf("AlleleCount(major) = %d, want 398", e.AlleleCount(0))
	}
	if e.Allele(10) != 1 || e.Allele(20) != 2 {
		t.Errorf("non-major alleles not recovered correctly")
	}
}

func TestChooseEncodingBoundary(t *testing.T) {
	// Testable property 12: at n_hap=400, threshold = 1+400/200 = 3.
	// total minor count < 3 => LowMafDiallelic; total minor count == 3
	// (at the threshold, not below it) => ByteArray.
	nHap := 400
	below := make([]int, nHap)
	for i := 0; i < 2; i++ {
		below[i] = 1
	}
	e, err := ChooseEncoding(below, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*LowMafDiallelic); !ok {
		t.Errorf("below threshold: got %T, want *LowMafDiallelic", e)
	}

	atThreshold := make([]int, nHap)
	for i := 0; i < 3; i++ {
		atThreshold[i] = 1
	}
	e2, err := ChooseEncoding(atThreshold, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e2.(*ByteArray); !ok {
		t.Errorf("at threshold: got %T, want *ByteArray", e2)
	}
}

func TestChooseEncodingBitSetForManyAlleles(t *testing.T) {
	nHap := 400
	hapAlleles := make([]int, nHap)
	nAlleles := 200
	for i := range hapAlleles {
		hapAlleles[i] = i % nAlleles
	}
	e, err := ChooseEncoding(hapAlleles, nAlleles)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*BitSet); !ok {
		t.Errorf("got %T, want *BitSet", e)
	}
}
