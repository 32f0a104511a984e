// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package hmm

import (
	"fmt"

	"github.com/beaglephase/beagle/gl"
	"github.com/beaglephase/beagle/marker"
)

// SingleSampleJob names one singleton sample for RunSingleBaumBatch: its
// DAG, genotype likelihoods, sample index, marker set and the PRNG seed
// its driver is constructed with.
type SingleSampleJob struct {
	DAG     DAG
	G       gl.GL
	Sample  int
	Markers *marker.Markers
	Seed    uint64
}

// RunSingleBaumBatch is the sample-dispatch loop assumed by §5's
// scheduling model: a pool of workers, each owning its own
// thread-confined SingleBaum driver, bounded to maxWorkers concurrently
// running, all writing into gv's independent per-sample rows. Results
// are returned in job order regardless of completion order; the first
// worker error is returned once every job has finished or been
// skipped.
func RunSingleBaumBatch(jobs []SingleSampleJob, nCopies int, gv *GenotypeValues, maxWorkers int) ([][]HapPair, error) {
	t := &throttle{Max: maxWorkers}
	out := make([][]HapPair, len(jobs))
	for i := range jobs {
		job := jobs[i]
		idx := i
		t.Acquire()
		go func() {
			defer t.Release()
			if t.Err() != nil {
				return
			}
			sb := NewSingleBaum(job.DAG, job.G, job.Sample, job.Markers, job.Seed)
			pairs, err := sb.Run(nCopies, gv, job.Sample)
			if err != nil {
				t.Report(fmt.Errorf("hmm: sample %d: %w", job.Sample, err))
				return
			}
			out[idx] = pairs
		}()
	}
	if err := t.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
