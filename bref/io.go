// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package bref implements the binary reference file codec (§4.D): a
// streaming, gzip-wrapped, chromosome-block-framed encoding of a
// compressed reference panel, with at-most-one-writer, streaming-decoder
// semantics.
package bref

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the BREF file magic number (§4.D).
const Magic int32 = 223579146

// EOFMarker terminates the block sequence: an int32 0 where an
// int32 n_records (> 0) would otherwise appear.
const EOFMarker int32 = 0

// Version is the short program identifier written after the magic
// number.
const Version = "beagle-core.v1"

func writeInt32(w io.Writer, v int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	_, err := w.Write(b[:])
	return err
}

func readInt32(r io.Reader) (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

func writeInt8(w io.Writer, v int8) error {
	_, err := w.Write([]byte{byte(v)})
	return err
}

func readInt8(r io.Reader) (int8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func writeUTF(w io.Writer, s string) error {
	if err := writeInt32(w, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readUTF(r io.Reader) (string, error) {
	n, err := readInt32(r)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("bref: negative utf8 length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// offsetByte encodes v (in [0,255]) as v-128, which always fits in an
// int8 without wraparound (§4.D: "n_seq:int8 = nSeq - 128 ... interpret
// by adding 128"; the same convention covers n_ids).
func offsetByte(v int) (int8, error) {
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("bref: value %d out of offset-byte range [0,255]", v)
	}
	return int8(v - 128), nil
}

func unoffsetByte(b int8) int {
	return int(b) + 128
}
