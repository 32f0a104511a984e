// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package bref

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"

	"github.com/beaglephase/beagle/chromtable"
	"github.com/beaglephase/beagle/marker"
	"github.com/beaglephase/beagle/refpanel"
)

// Record is one marker/emission pair within a Block. Emission must be
// either a *refpanel.SeqCoded (coding_flag 0) or a
// refpanel.MinorIndexed (coding_flag 1, the LowMaf encodings); any other
// concrete Emission type cannot be framed by this codec and WriteBlock
// returns an error (a ByteArray/BitSet record must first be routed
// through a refpanel.Compressor or re-selected as LowMaf before
// persisting).
type Record struct {
	Marker   marker.Marker
	Emission refpanel.Emission
}

// Block is one chromosome-bound run: n_records > 0 records sharing one
// hap_to_seq assignment (§4.D "Block frame").
type Block struct {
	Chrom    string
	NHap     int
	HapToSeq []uint8 // length NHap; meaningful only for SeqCoded records
	Records  []Record
}

// Header is the file-level preamble (§4.D "File frame").
type Header struct {
	Version    string
	SampleIDs  []string
}

// Writer streams BREF blocks to an underlying io.Writer through a gzip
// layer (RFC 1952, via pgzip — the same library the teacher uses to
// wrap its gob-encoded tile library streams). A Writer has
// at-most-one-writer semantics: concurrent calls are serialized by a
// mutex.
type Writer struct {
	mtx    sync.Mutex
	gz     *pgzip.Writer
	closed bool
}

// NewWriter writes the file header (magic, version, sample ids) and
// returns a Writer ready to accept blocks.
func NewWriter(w io.Writer, sampleIDs []string) (*Writer, error) {
	gz := pgzip.NewWriter(w)
	if err := writeInt32(gz, Magic); err != nil {
		return nil, err
	}
	if err := writeUTF(gz, Version); err != nil {
		return nil, err
	}
	if err := writeInt32(gz, int32(len(sampleIDs))); err != nil {
		return nil, err
	}
	for _, id := range sampleIDs {
		if err := writeUTF(gz, id); err != nil {
			return nil, err
		}
	}
	return &Writer{gz: gz}, nil
}

// WriteBlock appends one chromosome block. Blocks must be written in
// source order; a chromosome change always starts a new block (§4.D,
// §6 "Record order within a block is the original VCF order; chromosome
// changes force a new block").
func (bw *Writer) WriteBlock(blk Block) error {
	bw.mtx.Lock()
	defer bw.mtx.Unlock()
	if bw.closed {
		return fmt.Errorf("bref: WriteBlock called after Close")
	}
	if len(blk.Records) == 0 {
		return fmt.Errorf("bref: block %q has zero records", blk.Chrom)
	}
	if len(blk.HapToSeq) != blk.NHap {
		return fmt.Errorf("bref: block %q hap_to_seq length %d != NHap %d", blk.Chrom, len(blk.HapToSeq), blk.NHap)
	}

	if err := writeInt32(bw.gz, int32(len(blk.Records))); err != nil {
		return err
	}
	if err := writeUTF(bw.gz, blk.Chrom); err != nil {
		return err
	}
	nSeq := 1
	for _, s := range blk.HapToSeq {
		if int(s)+1 > nSeq {
			nSeq = int(s) + 1
		}
	}
	nSeqByte, err := offsetByte(nSeq)
	if err != nil {
		return fmt.Errorf("bref: block %q: %w", blk.Chrom, err)
	}
	if err := writeInt8(bw.gz, nSeqByte); err != nil {
		return err
	}
	for _, s := range blk.HapToSeq {
		b, err := offsetByte(int(s))
		if err != nil {
			return fmt.Errorf("bref: block %q: %w", blk.Chrom, err)
		}
		if err := writeInt8(bw.gz, b); err != nil {
			return err
		}
	}
	for _, rec := range blk.Records {
		if err := writeRecord(bw.gz, rec); err != nil {
			return fmt.Errorf("bref: block %q: %w", blk.Chrom, err)
		}
	}
	log.Debugf("bref: wrote block %s (%d records, %d haps)", blk.Chrom, len(blk.Records), blk.NHap)
	return nil
}

// Close writes the EOF marker and flushes the gzip stream. It does not
// close the underlying io.Writer.
func (bw *Writer) Close() error {
	bw.mtx.Lock()
	defer bw.mtx.Unlock()
	if bw.closed {
		return nil
	}
	bw.closed = true
	if err := writeInt32(bw.gz, EOFMarker); err != nil {
		return err
	}
	return bw.gz.Close()
}

func writeRecord(w io.Writer, rec Record) error {
	if err := writeInt32(w, int32(rec.Marker.Pos())); err != nil {
		return err
	}
	ids := rec.Marker.IDs()
	nIDs, err := offsetByte(len(ids))
	if err != nil {
		return fmt.Errorf("record has too many ids: %w", err)
	}
	if err := writeInt8(w, nIDs); err != nil {
		return err
	}
	for _, id := range ids {
		if err := writeUTF(w, id); err != nil {
			return err
		}
	}

	alleles := rec.Marker.Alleles()
	if code, ok := encodeSNVAlleleCode(alleles); ok {
		if err := writeInt8(w, code); err != nil {
			return err
		}
	} else {
		if err := writeInt8(w, -1); err != nil {
			return err
		}
		if err := writeInt32(w, int32(len(alleles))); err != nil {
			return err
		}
		for _, a := range alleles {
			if err := writeUTF(w, a); err != nil {
				return err
			}
		}
		if err := writeInt32(w, int32(rec.Marker.End())); err != nil {
			return err
		}
	}

	switch e := rec.Emission.(type) {
	case *refpanel.SeqCoded:
		if err := writeInt8(w, 0); err != nil {
			return err
		}
		seqToAllele := e.SeqToAllele()
		if e.NAlleles() <= 256 {
			for _, v := range seqToAllele {
				b, err := offsetByte(v)
				if err != nil {
					return err
				}
				if err := writeInt8(w, b); err != nil {
					return err
				}
			}
		} else {
			for _, v := range seqToAllele {
				if err := writeInt32(w, int32(v)); err != nil {
					return err
				}
			}
		}
	case refpanel.MinorIndexed:
		if err := writeInt8(w, 1); err != nil {
			return err
		}
		major := e.MajorAllele()
		for a := 0; a < e.NAlleles(); a++ {
			if a == major {
				if err := writeInt32(w, -1); err != nil {
					return err
				}
				continue
			}
			cnt := e.AlleleCount(a)
			if err := writeInt32(w, int32(cnt)); err != nil {
				return err
			}
			for i := 0; i < cnt; i++ {
				if err := writeInt32(w, int32(e.HapIndex(a, i))); err != nil {
					return err
				}
			}
		}
	default:
		return fmt.Errorf("bref: emission type %T cannot be encoded (must be SeqCoded or MinorIndexed)", e)
	}
	return nil
}

// Reader streams BREF blocks from an underlying io.Reader, decompressing
// through pgzip. Each call to ReadBlock decodes exactly one block; io.EOF
// is returned once the EOFMarker sentinel is read.
type Reader struct {
	gz     *pgzip.Reader
	tab    *chromtable.Table
	Header Header
}

// NewReader parses the file header and returns a Reader positioned at
// the first block. If tab is nil, chromtable.Default is used.
func NewReader(r io.Reader, tab *chromtable.Table) (*Reader, error) {
	gz, err := pgzip.NewReader(bufio.NewReaderSize(r, 1<<20))
	if err != nil {
		return nil, err
	}
	magic, err := readInt32(gz)
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("bref: bad magic number %d, want %d", magic, Magic)
	}
	version, err := readUTF(gz)
	if err != nil {
		return nil, err
	}
	nSamples, err := readInt32(gz)
	if err != nil {
		return nil, err
	}
	if nSamples < 0 {
		return nil, fmt.Errorf("bref: negative sample count %d", nSamples)
	}
	ids := make([]string, nSamples)
	for i := range ids {
		ids[i], err = readUTF(gz)
		if err != nil {
			return nil, err
		}
	}
	if tab == nil {
		tab = chromtable.Default
	}
	return &Reader{gz: gz, tab: tab, Header: Header{Version: version, SampleIDs: ids}}, nil
}

// Close releases the underlying gzip reader. It does not close the
// underlying io.Reader.
func (br *Reader) Close() error {
	return br.gz.Close()
}

// ReadBlock decodes the next block, or returns io.EOF once the file's
// EOF marker has been consumed.
func (br *Reader) ReadBlock() (*Block, error) {
	nRecords, err := readInt32(br.gz)
	if err != nil {
		return nil, err
	}
	if nRecords == EOFMarker {
		return nil, io.EOF
	}
	if nRecords < 0 {
		return nil, fmt.Errorf("bref: negative record count %d", nRecords)
	}
	chromName, err := readUTF(br.gz)
	if err != nil {
		return nil, err
	}
	chromIdx, err := br.tab.Intern(chromName)
	if err != nil {
		return nil, fmt.Errorf("bref: %w", err)
	}
	nSeqByte, err := readInt8(br.gz)
	if err != nil {
		return nil, err
	}
	nSeq := unoffsetByte(nSeqByte)
	if nSeq < 1 || nSeq > 255 {
		return nil, fmt.Errorf("bref: invalid nSeq %d", nSeq)
	}
	// hap_to_seq has no explicit length prefix; NHap comes from the
	// file header's sample count instead.
	nHap := 2 * len(br.Header.SampleIDs)
	hapToSeq := make([]uint8, nHap)
	for i := range hapToSeq {
		b, err := readInt8(br.gz)
		if err != nil {
			return nil, err
		}
		v := unoffsetByte(b)
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("bref: invalid hap_to_seq byte %d", v)
		}
		hapToSeq[i] = uint8(v)
	}

	blk := &Block{Chrom: chromName, NHap: nHap, HapToSeq: hapToSeq, Records: make([]Record, nRecords)}
	for i := 0; i < int(nRecords); i++ {
		rec, err := readRecord(br.gz, chromIdx, hapToSeq, nSeq)
		if err != nil {
			return nil, fmt.Errorf("bref: block %q record %d: %w", chromName, i, err)
		}
		blk.Records[i] = rec
	}
	log.Debugf("bref: read block %s (%d records)", chromName, nRecords)
	return blk, nil
}

func readRecord(r io.Reader, chromIdx int, hapToSeq []uint8, blockNSeq int) (Record, error) {
	pos32, err := readInt32(r)
	if err != nil {
		return Record{}, err
	}
	nIDsByte, err := readInt8(r)
	if err != nil {
		return Record{}, err
	}
	nIDs := unoffsetByte(nIDsByte)
	ids := make([]string, nIDs)
	for i := range ids {
		ids[i], err = readUTF(r)
		if err != nil {
			return Record{}, err
		}
	}

	codeByte, err := readInt8(r)
	if err != nil {
		return Record{}, err
	}
	var alleles []string
	end := int64(-1)
	if codeByte == -1 {
		nAlleles, err := readInt32(r)
		if err != nil {
			return Record{}, err
		}
		alleles = make([]string, nAlleles)
		for i := range alleles {
			alleles[i], err = readUTF(r)
			if err != nil {
				return Record{}, err
			}
		}
		end64, err := readInt32(r)
		if err != nil {
			return Record{}, err
		}
		end = int64(end64)
	} else {
		alleles, err = decodeSNVAlleleCode(codeByte)
		if err != nil {
			return Record{}, err
		}
	}

	m, err := marker.New(chromIdx, uint64(pos32), ids, alleles, end)
	if err != nil {
		return Record{}, err
	}

	codingFlag, err := readInt8(r)
	if err != nil {
		return Record{}, err
	}
	var emission refpanel.Emission
	switch codingFlag {
	case 0:
		seqToAllele := make([]int, blockNSeq)
		if len(alleles) <= 256 {
			for i := range seqToAllele {
				b, err := readInt8(r)
				if err != nil {
					return Record{}, err
				}
				seqToAllele[i] = unoffsetByte(b)
			}
		} else {
			for i := range seqToAllele {
				v, err := readInt32(r)
				if err != nil {
					return Record{}, err
				}
				seqToAllele[i] = int(v)
			}
		}
		emission = refpanel.NewSeqCoded(hapToSeq, seqToAllele, len(alleles))
	case 1:
		nAlleles := len(alleles)
		hapLists := make([][]int, nAlleles)
		major := -1
		for a := 0; a < nAlleles; a++ {
			cnt, err := readInt32(r)
			if err != nil {
				return Record{}, err
			}
			if cnt == -1 {
				major = a
				continue
			}
			haps := make([]int, cnt)
			for i := range haps {
				h, err := readInt32(r)
				if err != nil {
					return Record{}, err
				}
				haps[i] = int(h)
			}
			hapLists[a] = haps
		}
		if major < 0 {
			return Record{}, fmt.Errorf("minor-index record has no major allele")
		}
		hapAlleles := make([]int, len(hapToSeq))
		for h := range hapAlleles {
			hapAlleles[h] = major
		}
		for a, haps := range hapLists {
			for _, h := range haps {
				hapAlleles[h] = a
			}
		}
		if nAlleles == 2 {
			emission = refpanel.NewLowMafDiallelic(hapAlleles, major)
		} else {
			emission = refpanel.NewLowMafMultiallelic(hapAlleles, nAlleles, major)
		}
	default:
		return Record{}, fmt.Errorf("bref: unsupported coding_flag %d", codingFlag)
	}

	return Record{Marker: m, Emission: emission}, nil
}
