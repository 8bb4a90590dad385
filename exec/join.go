// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/engine"
	"github.com/grailbio/bigbench/frame"
	"github.com/grailbio/bigbench/schema"
	"github.com/grailbio/bigbench/table"
)

// Join implements engine.Engine. The join strategy depends on the
// distribution of its inputs:
//
//	left        right       strategy          result
//	replicated  replicated  local             replicated
//	sharded     replicated  broadcast         sharded
//	replicated  sharded     broadcast (inner) sharded
//	any         any         hash shuffle      sharded
//
// Broadcast joins preserve the order of the left table.
func (w *worker) Join(ctx context.Context, left, right *table.Table, spec engine.JoinSpec) (*table.Table, error) {
	if len(spec.LeftOn) == 0 || len(spec.LeftOn) != len(spec.RightOn) {
		return nil, errorf("%s: mismatched join keys", spec)
	}
	lcols, err := lookup(left.Schema, spec.LeftOn)
	if err != nil {
		return nil, err
	}
	rcols, err := lookup(right.Schema, spec.RightOn)
	if err != nil {
		return nil, err
	}
	for i := range lcols {
		if l, r := left.Schema[lcols[i]], right.Schema[rcols[i]]; l.Type != r.Type {
			return nil, errors.E(errors.Invalid, bigbench.ErrTypeMismatch,
				fmt.Sprintf("%s: key %s does not match %s", spec, l, r))
		}
	}
	s, err := joinSchema(left.Schema, right.Schema, spec)
	if err != nil {
		return nil, err
	}

	var (
		lf, rf = left.Frame, right.Frame
		dist   = table.Sharded
		order  []table.SortKey
	)
	switch {
	case left.Dist == table.Replicated && right.Dist == table.Replicated:
		dist = table.Replicated
		order = left.Order
	case left.Dist == table.Sharded && right.Dist == table.Replicated:
		order = left.Order
	case left.Dist == table.Replicated && right.Dist == table.Sharded && spec.Kind == engine.Inner:
		// Every worker joins the whole left table with its own right
		// rows, so each pair is produced exactly once.
	default:
		if lf, err = w.shuffle(ctx, left, lcols); err != nil {
			return nil, err
		}
		if rf, err = w.shuffle(ctx, right, rcols); err != nil {
			return nil, err
		}
	}

	start := w.clock.Now()
	lindex, rindex := hashJoin(lf, lcols, rf, rcols, spec.Kind)
	f := append(lf.Gather(lindex), gatherOrNull(rf, rindex)...)
	w.stats.Int(engine.StatJoinNanos).AddDuration(w.clock.Since(start))
	out := table.New(s, f, dist)
	out.Order = renameOrder(order, left.Schema, s)
	return out, nil
}

// hashJoin returns the pairs of matching row indices of the frames
// l and r. Rows are paired in the order of l, and then in the order
// of r. For left joins, rows of l without a match are paired with
// the index -1.
func hashJoin(l frame.Frame, lcols []int, r frame.Frame, rcols []int, kind engine.JoinKind) (lindex, rindex []int) {
	var (
		rkey  = keyEncoder(r, rcols)
		build = make(map[string][]int)
		buf   []byte
	)
	for i := 0; i < r.Len(); i++ {
		if r.AnyNull(rcols, i) {
			continue
		}
		buf = rkey(buf[:0], i)
		build[string(buf)] = append(build[string(buf)], i)
	}
	lkey := keyEncoder(l, lcols)
	for i := 0; i < l.Len(); i++ {
		var matches []int
		if !l.AnyNull(lcols, i) {
			buf = lkey(buf[:0], i)
			matches = build[string(buf)]
		}
		for _, j := range matches {
			lindex = append(lindex, i)
			rindex = append(rindex, j)
		}
		if len(matches) == 0 && kind == engine.Left {
			lindex = append(lindex, i)
			rindex = append(rindex, -1)
		}
	}
	return
}

// keyEncoder returns a function that appends an encoding of the key
// columns of row i to a buffer. Two rows have the same encoding
// exactly when their keys are equal.
func keyEncoder(f frame.Frame, cols []int) func(buf []byte, i int) []byte {
	encs := make([]func(buf []byte, i int) []byte, len(cols))
	for k, col := range cols {
		switch vals := f[col].Interface().(type) {
		case []int64:
			encs[k] = func(buf []byte, i int) []byte {
				return binary.LittleEndian.AppendUint64(buf, uint64(vals[i]))
			}
		case []float64:
			encs[k] = func(buf []byte, i int) []byte {
				v := vals[i]
				if v == 0 {
					// Fold negative zero.
					v = 0
				}
				return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
			}
		case []string:
			encs[k] = func(buf []byte, i int) []byte {
				buf = binary.AppendUvarint(buf, uint64(len(vals[i])))
				return append(buf, vals[i]...)
			}
		default:
			panic("exec: unsupported key type " + f[col].ElemType().String())
		}
	}
	return func(buf []byte, i int) []byte {
		for _, enc := range encs {
			buf = enc(buf, i)
		}
		return buf
	}
}

// gatherOrNull is like frame.Gather, but fills rows with index -1
// with NULL values.
func gatherOrNull(f frame.Frame, index []int) frame.Frame {
	g := frame.Make(f, len(index))
	for i := range f {
		src, dst := f[i].Value(), g[i].Value()
		null := frame.Null(f[i].ElemType())
		for j, k := range index {
			if k < 0 {
				dst.Index(j).Set(null)
			} else {
				dst.Index(j).Set(src.Index(k))
			}
		}
	}
	return g
}

// joinSchema returns the schema of the join of tables with schemas
// l and r: the columns of l followed by the columns of r. Names that
// appear in both are prefixed.
func joinSchema(l, r schema.Schema, spec engine.JoinSpec) (schema.Schema, error) {
	lprefix, rprefix := spec.Prefixes()
	s := make(schema.Schema, 0, len(l)+len(r))
	for _, col := range l {
		if r.Index(col.Name) >= 0 {
			col.Name = lprefix + col.Name
		}
		s = append(s, col)
	}
	for _, col := range r {
		if l.Index(col.Name) >= 0 {
			col.Name = rprefix + col.Name
		}
		s = append(s, col)
	}
	seen := make(map[string]bool, len(s))
	for _, col := range s {
		if seen[col.Name] {
			return nil, errorf("%s: duplicate column %q in result", spec, col.Name)
		}
		seen[col.Name] = true
	}
	return s, nil
}

// renameOrder maps the sort keys of the left input of a join to the
// names of the corresponding columns of the join schema s.
func renameOrder(order []table.SortKey, l, s schema.Schema) []table.SortKey {
	return retainOrder(order, func(col string) (string, bool) {
		i := l.Index(col)
		if i < 0 {
			return "", false
		}
		return s[i].Name, true
	})
}

func lookup(s schema.Schema, names []string) ([]int, error) {
	cols := make([]int, len(names))
	for i, name := range names {
		var err error
		if cols[i], err = s.Lookup(name); err != nil {
			return nil, err
		}
	}
	return cols, nil
}
