// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfio

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// WindowError reports a precondition or input-ordering violation raised
// by VcfWindow or RestrictedVcfWindow (§7).
type WindowError struct {
	Msg string
}

func (e *WindowError) Error() string { return "vcfio: " + e.Msg }

func windowErrorf(format string, args ...interface{}) error {
	return &WindowError{Msg: fmt.Sprintf(format, args...)}
}

// VcfWindow is the free-running sliding marker window (§4.E): it pulls
// MarkerEmission records from a Source, keeping a trailing overlap
// between successive windows and never splitting a shared marker
// position across a window boundary.
type VcfWindow struct {
	p      *peeker
	window []MarkerEmission
}

// NewVcfWindow returns an empty window over src.
func NewVcfWindow(src Source) *VcfWindow {
	return &VcfWindow{p: newPeeker(src)}
}

// Size returns the current window length.
func (w *VcfWindow) Size() int { return len(w.window) }

// At returns the i'th emission in the current window.
func (w *VcfWindow) At(i int) MarkerEmission { return w.window[i] }

// Records returns the current window's records (read-only).
func (w *VcfWindow) Records() []MarkerEmission { return w.window }

// LastWindowOnChrom reports whether the peeked-ahead source record is
// absent or on a different chromosome than the current window's first
// marker (§4.E).
func (w *VcfWindow) LastWindowOnChrom() (bool, error) {
	if len(w.window) == 0 {
		return true, nil
	}
	next, ok, err := w.p.peek()
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return next.Marker.Chrom() != w.window[0].Marker.Chrom(), nil
}

// Advance keeps the final overlap emissions of the current window, then
// pulls further emissions until target_size is reached or the
// chromosome changes, then drains any emissions sharing the last
// accepted marker's position so no marker position straddles the
// boundary (§4.E).
//
// Preconditions: 0 <= overlap < target_size; overlap <= Size() at call
// time; overlap must be 0 whenever the current window is the last on
// its chromosome. Violations return a *WindowError and leave the window
// unchanged.
func (w *VcfWindow) Advance(overlap, targetSize int) error {
	if overlap < 0 || overlap >= targetSize {
		return windowErrorf("Advance: overlap=%d must satisfy 0<=overlap<target_size=%d", overlap, targetSize)
	}
	if overlap > len(w.window) {
		return windowErrorf("Advance: overlap=%d exceeds current window size %d", overlap, len(w.window))
	}
	if len(w.window) > 0 {
		last, err := w.LastWindowOnChrom()
		if err != nil {
			return err
		}
		if last && overlap != 0 {
			return windowErrorf("Advance: overlap must be 0 when the current window is the last on its chromosome")
		}
	}

	next := append([]MarkerEmission(nil), w.window[len(w.window)-overlap:]...)
	haveFirst := len(next) > 0
	var firstChrom int
	if haveFirst {
		firstChrom = next[0].Marker.Chrom()
	}

	for len(next) < targetSize {
		rec, ok, err := w.p.peek()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if !haveFirst {
			firstChrom = rec.Marker.Chrom()
			haveFirst = true
		} else if rec.Marker.Chrom() != firstChrom {
			break
		}
		if _, _, err := w.p.take(); err != nil {
			return err
		}
		next = append(next, rec)
	}

	if len(next) > 0 {
		lastPos := next[len(next)-1].Marker.Pos()
		for {
			rec, ok, err := w.p.peek()
			if err != nil {
				return err
			}
			if !ok || rec.Marker.Chrom() != firstChrom || rec.Marker.Pos() != lastPos {
				break
			}
			if _, _, err := w.p.take(); err != nil {
				return err
			}
			next = append(next, rec)
		}
	}

	log.Debugf("vcfio: window advanced to %d markers (overlap %d, target %d)", len(next), overlap, targetSize)
	w.window = next
	return nil
}
