// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package refpanel

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// DefaultMaxSeq is the sequence-compressor capacity used in practice
// (§3 VcfEmissionCompressor: "capacity bound max_nseq (set to 255 in
// practice)"). A chromosome-bound run is bounded to this many distinct
// allele sequences so hap->seq fits in a byte (§4.D BREF nSeq framing).
const DefaultMaxSeq = 255

// Compressor buffers a chromosome-bound run of markers, assigning each
// haplotype to a shared sequence id such that two haplotypes share a
// sequence iff their allele vectors over the buffered markers are
// identical (§4.C).
type Compressor struct {
	maxNSeq int

	nHap     int
	hapToSeq []uint8
	// seqAlleles[s] is the allele vector accumulated so far for
	// sequence s; all live vectors have equal length == c.markers.
	seqAlleles [][]int
	markers    int
}

// NewCompressor returns an empty compressor bounded to maxNSeq distinct
// sequences.
func NewCompressor(maxNSeq int) *Compressor {
	if maxNSeq <= 0 {
		maxNSeq = DefaultMaxSeq
	}
	return &Compressor{maxNSeq: maxNSeq}
}

// Markers returns the number of markers currently buffered.
func (c *Compressor) Markers() int { return c.markers }

// NSeq returns the number of distinct sequences created so far in the
// current run.
func (c *Compressor) NSeq() int { return len(c.seqAlleles) }

type hapChange struct {
	hap int
	old uint8
}

// Add appends one marker's haplotype allele assignment to the buffered
// run, returning true iff the sequence set remains within capacity. On
// false, Add rolls back to the pre-call state and the caller must Flush
// then Clear before retrying (§4.C).
func (c *Compressor) Add(hapAlleles []int) (bool, error) {
	if c.hapToSeq == nil {
		c.nHap = len(hapAlleles)
		c.hapToSeq = make([]uint8, c.nHap)
		c.seqAlleles = [][]int{{}}
	} else if len(hapAlleles) != c.nHap {
		return false, fmt.Errorf("refpanel: Add called with %d haplotypes, run has %d", len(hapAlleles), c.nHap)
	}

	preSeqCount := len(c.seqAlleles)
	var changes []hapChange
	touched := map[int]bool{}
	localMap := map[int]map[int]int{}

	abort := func() {
		for i := len(changes) - 1; i >= 0; i-- {
			c.hapToSeq[changes[i].hap] = changes[i].old
		}
		for seqIdx := range touched {
			if seqIdx < preSeqCount {
				v := c.seqAlleles[seqIdx]
				c.seqAlleles[seqIdx] = v[:len(v)-1]
			}
		}
		c.seqAlleles = c.seqAlleles[:preSeqCount]
	}

	for h, a := range hapAlleles {
		s := int(c.hapToSeq[h])
		m := localMap[s]
		if m == nil {
			m = map[int]int{}
			localMap[s] = m
		}
		if dest, ok := m[a]; ok {
			if dest != s {
				changes = append(changes, hapChange{h, c.hapToSeq[h]})
				c.hapToSeq[h] = uint8(dest)
			}
			continue
		}
		if len(m) == 0 {
			// First haplotype seen for origin sequence s this
			// marker: extend s in place.
			m[a] = s
			c.seqAlleles[s] = append(c.seqAlleles[s], a)
			touched[s] = true
			continue
		}
		// A different allele was already recorded for origin s this
		// marker: s must split.
		if len(c.seqAlleles) >= c.maxNSeq {
			abort()
			log.Debugf("refpanel: compressor run hit capacity %d at marker %d, flush required", c.maxNSeq, c.markers)
			return false, nil
		}
		base := c.seqAlleles[s]
		newVec := make([]int, len(base))
		copy(newVec, base[:len(base)-1])
		newVec[len(newVec)-1] = a
		c.seqAlleles = append(c.seqAlleles, newVec)
		newIdx := len(c.seqAlleles) - 1
		m[a] = newIdx
		changes = append(changes, hapChange{h, c.hapToSeq[h]})
		c.hapToSeq[h] = uint8(newIdx)
	}

	c.markers++
	return true, nil
}

// Flush emits the buffered run as one SeqCoded record per marker,
// sharing a single hapToSeq snapshot, in the order Add was called.
func (c *Compressor) Flush(nAlleles []int) ([]*SeqCoded, error) {
	if len(nAlleles) != c.markers {
		return nil, fmt.Errorf("refpanel: Flush expected %d marker allele-counts, got %d", c.markers, len(nAlleles))
	}
	shared := append([]uint8(nil), c.hapToSeq...)
	out := make([]*SeqCoded, c.markers)
	for i := range out {
		seqToAllele := make([]int, len(c.seqAlleles))
		for s, vec := range c.seqAlleles {
			seqToAllele[s] = vec[i]
		}
		out[i] = NewSeqCoded(shared, seqToAllele, nAlleles[i])
	}
	return out, nil
}

// Clear resets the compressor so it can begin a new run (typically on
// a new chromosome, or after a failed Add forces a Flush+Clear+retry).
func (c *Compressor) Clear() {
	c.nHap = 0
	c.hapToSeq = nil
	c.seqAlleles = nil
	c.markers = 0
}
