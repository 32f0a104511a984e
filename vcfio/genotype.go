// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package vcfio implements the minimal VCF genotype-subfield grammar
// (§6) and the sliding marker windows that stream reference and target
// emissions into the phasing core (§4.E).
package vcfio

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseGT parses one sample column's genotype subfield grammar (§6):
// "allele1 (| or /) allele2 (: ...)?" with "." meaning unknown (-1) and
// digit strings meaning a non-negative allele index. Fields beyond GT
// are ignored. nAlleles bounds valid allele indices; an allele >=
// nAlleles is a fatal format error.
func ParseGT(sample string, nAlleles int) (a1, a2 int, phased bool, err error) {
	gtField := sample
	if i := strings.IndexByte(sample, ':'); i >= 0 {
		gtField = sample[:i]
	}
	sep := strings.IndexAny(gtField, "|/")
	if sep < 0 {
		return 0, 0, false, fmt.Errorf("vcfio: malformed GT %q: no allele separator", sample)
	}
	phased = gtField[sep] == '|'
	tok1, tok2 := gtField[:sep], gtField[sep+1:]
	a1, err = parseAllele(tok1, nAlleles)
	if err != nil {
		return 0, 0, false, err
	}
	a2, err = parseAllele(tok2, nAlleles)
	if err != nil {
		return 0, 0, false, err
	}
	return a1, a2, phased, nil
}

func parseAllele(tok string, nAlleles int) (int, error) {
	if tok == "." {
		return -1, nil
	}
	v, err := strconv.Atoi(tok)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("vcfio: invalid GT allele token %q", tok)
	}
	if v >= nAlleles {
		return 0, fmt.Errorf("vcfio: GT allele %d >= n_alleles %d", v, nAlleles)
	}
	return v, nil
}

// CheckFormat validates the FORMAT column begins with GT strictly
// followed by ':' or end of field (§6: "The FORMAT field must begin
// with GT (strictly GT followed by : or TAB)").
func CheckFormat(format string) error {
	if format == "GT" || strings.HasPrefix(format, "GT:") {
		return nil
	}
	return fmt.Errorf("vcfio: FORMAT field %q does not begin with GT", format)
}
