// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package vcfio

import "github.com/beaglephase/beagle/marker"

// RestrictedVcfWindow aligns a Source to an externally-driven sequence
// of reference marker lists: each Advance call produces a target-side
// emission array the same length as the reference list, with nil at
// markers that have no exact target-side counterpart (§4.E).
type RestrictedVcfWindow struct {
	p          *peeker
	prevRef    *marker.Markers
	prevWindow []*MarkerEmission
}

// NewRestrictedVcfWindow returns a window over src with no prior
// reference list (the first Advance call starts from scratch).
func NewRestrictedVcfWindow(src Source) *RestrictedVcfWindow {
	return &RestrictedVcfWindow{p: newPeeker(src)}
}

// Advance aligns src to nextRef, reusing the suffix of the previous
// result that matches nextRef's prefix (by Marker.Equal), then
// resolving the remaining reference markers against src: skip source
// records positioned strictly before the reference marker, then
// records at the same position but a different site, then consume a
// record that is the same site, else leave the slot nil.
//
// It is a fatal input error if the result contains zero non-nil
// entries.
func (w *RestrictedVcfWindow) Advance(nextRef *marker.Markers) ([]*MarkerEmission, error) {
	matchCount := 0
	if w.prevRef != nil {
		maxCheck := w.prevRef.Len()
		if nextRef.Len() < maxCheck {
			maxCheck = nextRef.Len()
		}
		for k := maxCheck; k > 0 && matchCount == 0; k-- {
			j := 0
			for j < k && w.prevRef.Marker(w.prevRef.Len()-k+j).Equal(nextRef.Marker(j)) {
				j++
			}
			if j == k {
				matchCount = k
			}
		}
	}

	result := make([]*MarkerEmission, nextRef.Len())
	if matchCount > 0 {
		copy(result, w.prevWindow[w.prevRef.Len()-matchCount:])
	}

	for i := matchCount; i < nextRef.Len(); i++ {
		refM := nextRef.Marker(i)
		for {
			rec, ok, err := w.p.peek()
			if err != nil {
				return nil, err
			}
			if !ok {
				result[i] = nil
				break
			}
			if rec.Marker.Pos() < refM.Pos() {
				if _, _, err := w.p.take(); err != nil {
					return nil, err
				}
				continue
			}
			if rec.Marker.Pos() == refM.Pos() && !rec.Marker.SameSite(refM) {
				if _, _, err := w.p.take(); err != nil {
					return nil, err
				}
				continue
			}
			if rec.Marker.SameSite(refM) {
				if _, _, err := w.p.take(); err != nil {
					return nil, err
				}
				result[i] = &rec
			} else {
				result[i] = nil
			}
			break
		}
	}

	nonNil := 0
	for _, e := range result {
		if e != nil {
			nonNil++
		}
	}
	if nonNil == 0 && len(result) > 0 {
		return nil, windowErrorf("RestrictedVcfWindow: advanced window has zero common markers")
	}

	w.prevRef = nextRef
	w.prevWindow = result
	return result, nil
}
