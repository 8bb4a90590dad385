// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package table defines the logical tables that flow between query
// stages: a schema, the worker-local rows, and how those rows relate
// to the rows held by the other workers of the group.
package table

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/bigbench/frame"
	"github.com/grailbio/bigbench/schema"
)

// Distribution describes how a table's rows are spread across the
// workers of a group.
type Distribution int

const (
	// Sharded tables hold disjoint sets of rows on each worker. The
	// logical table is the union of all worker-local rows.
	Sharded Distribution = iota
	// Replicated tables hold an identical, complete copy of the
	// logical table on every worker.
	Replicated
)

func (d Distribution) String() string {
	switch d {
	case Sharded:
		return "sharded"
	case Replicated:
		return "replicated"
	}
	return fmt.Sprintf("distribution(%d)", int(d))
}

// A SortKey names a column by which rows are ordered.
type SortKey struct {
	Column string
	Desc   bool
}

func (k SortKey) String() string {
	if k.Desc {
		return k.Column + " desc"
	}
	return k.Column
}

// Asc returns ascending sort keys for the provided columns.
func Asc(cols ...string) []SortKey {
	keys := make([]SortKey, len(cols))
	for i, col := range cols {
		keys[i] = SortKey{Column: col}
	}
	return keys
}

// Desc returns descending sort keys for the provided columns.
func Desc(cols ...string) []SortKey {
	keys := Asc(cols...)
	for i := range keys {
		keys[i].Desc = true
	}
	return keys
}

// A Table is a worker's view of a logical table.
type Table struct {
	// Schema describes the columns of Frame.
	Schema schema.Schema
	// Frame holds the worker-local rows.
	Frame frame.Frame
	// Dist tells how the logical table is spread across workers.
	Dist Distribution
	// Order lists the keys by which the rows of Frame are known to
	// be sorted, if any. Order is a property of the logical table for
	// replicated tables, and of the worker-local rows of sharded ones.
	Order []SortKey
}

// New returns a table with the provided schema, rows and
// distribution. New panics if the frame does not match the schema.
func New(s schema.Schema, f frame.Frame, dist Distribution) *Table {
	if len(s) != len(f) {
		panic(fmt.Sprintf("table.New: schema %s has %d columns, frame has %d", s, len(s), len(f)))
	}
	for i := range s {
		if got, want := f[i].ElemType(), s.Out(i); got != want {
			panic(fmt.Sprintf("table.New: column %s: frame has type %s", s[i], got))
		}
	}
	return &Table{Schema: s, Frame: f, Dist: dist}
}

// Empty returns a table with no rows.
func Empty(s schema.Schema, dist Distribution) *Table {
	return New(s, frame.Make(s, 0), dist)
}

// Len returns the number of worker-local rows.
func (t *Table) Len() int { return t.Frame.Len() }

// Column returns the named column, and fails with
// bigbench.ErrUnknownColumn if the table has no such column.
func (t *Table) Column(name string) (frame.Column, error) {
	i, err := t.Schema.Lookup(name)
	if err != nil {
		return frame.Column{}, err
	}
	return t.Frame[i], nil
}

// OrderedBy tells whether the table's order begins with keys.
func (t *Table) OrderedBy(keys []SortKey) bool {
	if len(keys) > len(t.Order) {
		return false
	}
	for i := range keys {
		if keys[i] != t.Order[i] {
			return false
		}
	}
	return true
}

func (t *Table) String() string {
	var order string
	if len(t.Order) > 0 {
		keys := make([]string, len(t.Order))
		for i, key := range t.Order {
			keys[i] = key.String()
		}
		order = " order by " + strings.Join(keys, ", ")
	}
	return fmt.Sprintf("%s table[%d]%s%s", t.Dist, t.Len(), t.Schema, order)
}

// WriteTab writes the table's rows in tabular format, headed by the
// column names.
func (t *Table) WriteTab(w io.Writer) {
	fmt.Fprintln(w, strings.Join(t.Schema.Names(), "\t"))
	t.Frame.WriteTab(w)
}

// TabString returns the table's rows in tabular format.
func (t *Table) TabString() string {
	var b bytes.Buffer
	t.WriteTab(&b)
	return b.String()
}
