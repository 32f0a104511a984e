// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package chromtable implements the process-wide chromosome-name
// interning table assumed by the core (see Design Notes: "process-wide
// chromosome interning"). The source this package is adapted from relies
// on a global singleton; here the table is an explicit type so tests can
// own a private instance while production code may still reach for the
// package-level Default.
package chromtable

import (
	"fmt"
	"strings"
	"sync"
)

// Table maps chromosome names to dense, 0-based indices. It is
// append-only: once a name is assigned an index, that index never
// changes. Writes take the write lock; reads take the read lock, so they
// run concurrently with each other but are not lock-free.
type Table struct {
	mtx   sync.RWMutex
	index map[string]int
	names []string
}

// New returns an empty interning table.
func New() *Table {
	return &Table{index: map[string]int{}}
}

// Default is the process-wide table used by constructors that do not
// take an explicit *Table.
var Default = New()

// Intern returns the dense index for name, assigning a new one if name
// has not been seen before. name must be non-empty, free of whitespace,
// and free of ':'.
func (t *Table) Intern(name string) (int, error) {
	if err := validate(name); err != nil {
		return 0, err
	}
	t.mtx.RLock()
	if idx, ok := t.index[name]; ok {
		t.mtx.RUnlock()
		return idx, nil
	}
	t.mtx.RUnlock()

	t.mtx.Lock()
	defer t.mtx.Unlock()
	if idx, ok := t.index[name]; ok {
		return idx, nil
	}
	idx := len(t.names)
	t.names = append(t.names, name)
	t.index[name] = idx
	return idx, nil
}

// Name returns the chromosome name for idx, or "" if idx was never
// assigned by this table.
func (t *Table) Name(idx int) string {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	if idx < 0 || idx >= len(t.names) {
		return ""
	}
	return t.names[idx]
}

// Len returns the number of distinct chromosome names interned so far.
func (t *Table) Len() int {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return len(t.names)
}

func validate(name string) error {
	if name == "" {
		return fmt.Errorf("chromtable: empty chromosome name")
	}
	if strings.ContainsAny(name, " \t\r\n:") {
		return fmt.Errorf("chromtable: invalid chromosome name %q", name)
	}
	return nil
}
