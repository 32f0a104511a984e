// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package marker implements the immutable Marker and Markers types (§3,
// §4.A of the spec): genomic site identity, VCF-record parsing, strand
// flipping, and the ordered Markers list with its precomputed prefix
// sums.
package marker

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/beaglephase/beagle/chromtable"
)

// Marker is an immutable genomic site: chromosome, position, optional
// IDs, allele list (index 0 is the reference allele), and an optional
// INFO:END. Two markers are equal iff their (chrom, pos, alleles, end)
// match; ordering is lexicographic over the same tuple.
type Marker struct {
	chrom   int
	pos     uint64
	ids     []string
	alleles []string
	end     int64 // -1 if absent
}

// New builds a Marker directly from already-validated fields. It is the
// low-level constructor used by ParseVCFRecord and by the BREF decoder,
// which both parse alleles and ids independently.
func New(chrom int, pos uint64, ids []string, alleles []string, end int64) (Marker, error) {
	if len(alleles) < 2 {
		return Marker{}, fmt.Errorf("marker: need at least 2 alleles, got %d", len(alleles))
	}
	seen := make(map[string]bool, len(alleles))
	for _, a := range alleles {
		if seen[a] {
			return Marker{}, fmt.Errorf("marker: duplicate allele %q", a)
		}
		seen[a] = true
		if err := validateAllele(a); err != nil {
			return Marker{}, err
		}
	}
	if end != -1 && end < int64(pos) {
		return Marker{}, fmt.Errorf("marker: end %d precedes pos %d", end, pos)
	}
	return Marker{
		chrom:   chrom,
		pos:     pos,
		ids:     ids,
		alleles: canonicalize(alleles),
		end:     end,
	}, nil
}

func validateAllele(a string) error {
	if a == "" {
		return fmt.Errorf("marker: empty allele token")
	}
	if a == "*" {
		return nil
	}
	if strings.HasPrefix(a, "<") {
		if !strings.HasSuffix(a, ">") {
			return fmt.Errorf("marker: malformed symbolic allele %q", a)
		}
		inner := a[1 : len(a)-1]
		if inner == "" || strings.ContainsAny(inner, " \t,") {
			return fmt.Errorf("marker: malformed symbolic allele %q", a)
		}
		return nil
	}
	for _, c := range a {
		switch c {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return fmt.Errorf("marker: invalid SNV allele character %q in %q", c, a)
		}
	}
	return nil
}

func isSymbolic(a string) bool {
	return strings.HasPrefix(a, "<") || a == "*"
}

// Chrom returns the interned chromosome index.
func (m Marker) Chrom() int { return m.chrom }

// Pos returns the (0- or 1-based, per caller convention) position.
func (m Marker) Pos() uint64 { return m.pos }

// IDs returns the marker's id tokens (may be empty, never nil-vs-empty
// significant).
func (m Marker) IDs() []string { return m.ids }

// Alleles returns the allele list; index 0 is the reference allele.
func (m Marker) Alleles() []string { return m.alleles }

// NAlleles returns len(Alleles()).
func (m Marker) NAlleles() int { return len(m.alleles) }

// End returns the INFO:END value, or -1 if absent.
func (m Marker) End() int64 { return m.end }

// NGenotypes returns n*(n+1)/2 for n = NAlleles(): the number of
// unordered genotypes at this marker.
func (m Marker) NGenotypes() int {
	n := m.NAlleles()
	return n * (n + 1) / 2
}

// BitsPerAllele returns ceil(log2(NAlleles())), the number of bits
// needed to encode one haplotype allele at this marker. Precondition:
// NAlleles() >= 2 (see open question in §9: bitsPerAllele assumes
// n_alleles >= 2; callers must reject smaller marker alleles lists
// before reaching here, which New() already does).
func (m Marker) BitsPerAllele() int {
	n := m.NAlleles()
	bits := 0
	for (1 << bits) < n {
		bits++
	}
	return bits
}

// Equal reports whether m and other have identical (chrom, pos,
// alleles, end).
func (m Marker) Equal(other Marker) bool {
	if m.chrom != other.chrom || m.pos != other.pos || m.end != other.end {
		return false
	}
	if len(m.alleles) != len(other.alleles) {
		return false
	}
	for i := range m.alleles {
		if m.alleles[i] != other.alleles[i] {
			return false
		}
	}
	return true
}

// sameSite reports whether m and other identify the same genomic site
// for window-alignment purposes: same chrom, pos and alleles, ignoring
// ids (per §4.E RestrictedVcfWindow: "equality by chrom, pos, id-
// irrelevant, alleles").
func (m Marker) sameSite(other Marker) bool {
	if m.chrom != other.chrom || m.pos != other.pos {
		return false
	}
	if len(m.alleles) != len(other.alleles) {
		return false
	}
	for i := range m.alleles {
		if m.alleles[i] != other.alleles[i] {
			return false
		}
	}
	return true
}

// SameSite reports whether m and other are the same site for the
// purposes of RestrictedVcfWindow alignment (chrom, pos, alleles; ids
// and end are irrelevant).
func (m Marker) SameSite(other Marker) bool { return m.sameSite(other) }

// Less implements the lexicographic (chrom, pos, alleles, end) order.
func (m Marker) Less(other Marker) bool {
	if m.chrom != other.chrom {
		return m.chrom < other.chrom
	}
	if m.pos != other.pos {
		return m.pos < other.pos
	}
	for i := 0; i < len(m.alleles) && i < len(other.alleles); i++ {
		if m.alleles[i] != other.alleles[i] {
			return m.alleles[i] < other.alleles[i]
		}
	}
	if len(m.alleles) != len(other.alleles) {
		return len(m.alleles) < len(other.alleles)
	}
	return m.end < other.end
}

func (m Marker) String() string {
	return fmt.Sprintf("%s:%d:%s", chromtable.Default.Name(m.chrom), m.pos, strings.Join(m.alleles, ","))
}

// complement maps a single base to its reverse-complement, per §4.A
// strand_flip: "A<->T, C<->G, N<->N, *<->*".
var complement = map[byte]byte{
	'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C', 'N': 'N',
}

func reverseComplementAllele(a string) (string, error) {
	if isSymbolic(a) {
		return a, nil
	}
	out := make([]byte, len(a))
	for i := 0; i < len(a); i++ {
		c, ok := complement[a[len(a)-1-i]]
		if !ok {
			return "", fmt.Errorf("marker: cannot strand-flip allele %q", a)
		}
		out[i] = c
	}
	return string(out), nil
}

// StrandFlip returns a new Marker with every non-symbolic allele
// reverse-complemented. It is an involution on non-symbolic alleles
// (Testable property 8).
func StrandFlip(m Marker) (Marker, error) {
	flipped := make([]string, len(m.alleles))
	for i, a := range m.alleles {
		fa, err := reverseComplementAllele(a)
		if err != nil {
			return Marker{}, err
		}
		flipped[i] = fa
	}
	return Marker{chrom: m.chrom, pos: m.pos, ids: m.ids, alleles: canonicalize(flipped), end: m.end}, nil
}

// --- VCF record parsing (§6, §4.A) ---

// ParseVCFRecord parses the CHROM, POS, ID, REF, ALT, and INFO fields of
// a tab-separated VCF data line into a Marker, interning the chromosome
// name in tab. QUAL, FILTER and FORMAT/genotype fields, if present, are
// ignored by this function; genotype parsing lives in package vcfio.
func ParseVCFRecord(line string, tab *chromtable.Table) (Marker, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 5 {
		return Marker{}, formatErrorf(line, "record", "need at least CHROM,POS,ID,REF,ALT fields, got %d", len(fields))
	}
	chromStr, posStr, idStr, ref, alt := fields[0], fields[1], fields[2], fields[3], fields[4]

	if chromStr == "" || chromStr == "." || strings.ContainsAny(chromStr, " \t:") {
		return Marker{}, formatErrorf(line, "CHROM", "missing or invalid chromosome %q", chromStr)
	}
	chrom, err := tab.Intern(chromStr)
	if err != nil {
		return Marker{}, formatErrorf(line, "CHROM", "%s", err)
	}

	pos, err := strconv.ParseUint(posStr, 10, 64)
	if err != nil {
		return Marker{}, formatErrorf(line, "POS", "not a non-negative integer: %q", posStr)
	}

	var ids []string
	if idStr != "" && idStr != "." {
		ids = strings.Split(idStr, ";")
	}

	ref = strings.ToUpper(ref)
	if ref == "" {
		return Marker{}, formatErrorf(line, "REF", "empty reference allele")
	}
	for _, c := range ref {
		switch c {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return Marker{}, formatErrorf(line, "REF", "invalid base %q", c)
		}
	}

	if alt == "" || alt == "." {
		return Marker{}, formatErrorf(line, "ALT", "missing alternate allele")
	}
	altTokens := strings.Split(alt, ",")
	alleles := make([]string, 0, 1+len(altTokens))
	alleles = append(alleles, ref)
	for _, a := range altTokens {
		a = strings.ToUpper(a)
		if err := validateAllele(a); err != nil {
			return Marker{}, formatErrorf(line, "ALT", "%s", err)
		}
		alleles = append(alleles, a)
	}

	end := int64(-1)
	if len(fields) >= 8 {
		end, err = parseEnd(fields[7], pos)
		if err != nil {
			return Marker{}, formatErrorf(line, "INFO", "%s", err)
		}
	}

	m, err := New(chrom, pos, ids, alleles, end)
	if err != nil {
		return Marker{}, formatErrorf(line, "record", "%s", err)
	}
	return m, nil
}

// parseEnd scans an INFO field for the first END=<int> subfield,
// requiring end >= pos per §4.A.
func parseEnd(info string, pos uint64) (int64, error) {
	if info == "" || info == "." {
		return -1, nil
	}
	for _, kv := range strings.Split(info, ";") {
		if !strings.HasPrefix(kv, "END=") {
			continue
		}
		v, err := strconv.ParseInt(kv[len("END="):], 10, 64)
		if err != nil {
			return -1, fmt.Errorf("malformed END subfield %q", kv)
		}
		if v < int64(pos) {
			return -1, fmt.Errorf("END=%d precedes POS=%d", v, pos)
		}
		return v, nil
	}
	return -1, nil
}

// --- bounded SNV allele-tuple cache (§9: "static allele-tuple cache") ---

// snvTupleCache interns non-symbolic allele tuples by content so that
// repeated occurrences of the same (e.g. biallelic SNV) alleles across a
// large marker stream share one backing slice, bounded so the cache
// cannot grow without limit. Keyed by blake2b.Sum256 of the joined
// alleles, mirroring the teacher's tile-sequence content-addressing
// (tilelib.go: getRef uses blake2b.Sum256(seq) to dedup sequences).
type snvTupleCache struct {
	mtx   sync.Mutex
	cap   int
	byKey map[[blake2b.Size256]byte][]string
}

// 24 is the number of permutations of the 4 canonical SNV bases (A, C,
// G, T); see Design Notes, "keep it bounded (e.g., 24 permutations of
// ACGT)". The cap of 256, about ten times that, gives room for
// multiallelic combinations without letting the cache grow unbounded
// for pathological input.
const snvCacheCap = 256

var defaultSNVCache = &snvTupleCache{cap: snvCacheCap, byKey: map[[blake2b.Size256]byte][]string{}}

func (c *snvTupleCache) intern(alleles []string) []string {
	for _, a := range alleles {
		if isSymbolic(a) {
			// Not a pure-SNV tuple; do not cache.
			return alleles
		}
	}
	key := blake2b.Sum256([]byte(strings.Join(alleles, ",")))
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if cached, ok := c.byKey[key]; ok {
		return cached
	}
	if len(c.byKey) >= c.cap {
		return alleles
	}
	cp := append([]string(nil), alleles...)
	c.byKey[key] = cp
	return cp
}

func canonicalize(alleles []string) []string {
	return defaultSNVCache.intern(alleles)
}
