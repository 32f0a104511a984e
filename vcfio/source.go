// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfio

import (
	"io"

	"github.com/beaglephase/beagle/marker"
	"github.com/beaglephase/beagle/refpanel"
)

// MarkerEmission pairs a marker with its reference-panel emission, the
// unit both VcfWindow and RestrictedVcfWindow stream.
type MarkerEmission struct {
	Marker   marker.Marker
	Emission refpanel.Emission
}

// Source is a strictly-ordered iterator of MarkerEmission records.
// Next returns io.EOF once exhausted.
type Source interface {
	Next() (MarkerEmission, error)
}

// peeker adds a one-record lookahead buffer over a Source, the single-
// slot bounded queue the window coordinators need to decide whether to
// consume or defer the next record (§4.E, §5).
type peeker struct {
	src    Source
	peeked *MarkerEmission
	atEOF  bool
}

func newPeeker(src Source) *peeker { return &peeker{src: src} }

func (p *peeker) fill() error {
	if p.peeked != nil || p.atEOF {
		return nil
	}
	rec, err := p.src.Next()
	if err == io.EOF {
		p.atEOF = true
		return nil
	}
	if err != nil {
		return err
	}
	p.peeked = &rec
	return nil
}

// peek returns the next record without consuming it.
func (p *peeker) peek() (MarkerEmission, bool, error) {
	if err := p.fill(); err != nil {
		return MarkerEmission{}, false, err
	}
	if p.peeked == nil {
		return MarkerEmission{}, false, nil
	}
	return *p.peeked, true, nil
}

// take consumes and returns the next record.
func (p *peeker) take() (MarkerEmission, bool, error) {
	rec, ok, err := p.peek()
	if err != nil || !ok {
		return rec, ok, err
	}
	p.peeked = nil
	return rec, true, nil
}
