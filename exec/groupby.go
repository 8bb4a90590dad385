// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/engine"
	"github.com/grailbio/bigbench/frame"
	"github.com/grailbio/bigbench/schema"
	"github.com/grailbio/bigbench/table"
)

// GroupBy implements engine.Engine. Sharded tables are shuffled by
// key so that each group resides on a single worker; grouping
// without keys gathers the table first. Rows whose keys contain NULL
// values are dropped.
func (w *worker) GroupBy(ctx context.Context, t *table.Table, keys []string, aggs []engine.Aggregation) (*table.Table, error) {
	kcols, err := lookup(t.Schema, keys)
	if err != nil {
		return nil, err
	}
	acols := make([]int, len(aggs))
	s := t.Schema.Select(kcols)
	for i, agg := range aggs {
		acols[i] = -1
		typ := schema.Int
		if agg.Op != engine.CountAll {
			if acols[i], err = t.Schema.Lookup(agg.Column); err != nil {
				return nil, err
			}
			if typ, err = aggType(agg, t.Schema[acols[i]].Type); err != nil {
				return nil, err
			}
		}
		if s.Index(agg.Name()) >= 0 {
			return nil, errorf("group by %v: duplicate column %q in result", keys, agg.Name())
		}
		s = append(s, schema.Column{Name: agg.Name(), Type: typ})
	}

	var (
		f    = t.Frame
		dist = t.Dist
	)
	switch {
	case len(keys) == 0:
		g, err := w.Gather(ctx, t)
		if err != nil {
			return nil, err
		}
		f, dist = g.Frame, table.Replicated
	case t.Dist == table.Sharded:
		if f, err = w.shuffle(ctx, t, kcols); err != nil {
			return nil, err
		}
	}
	out := table.New(s, aggregate(s, f, kcols, acols, aggs), dist)
	if len(keys) > 0 {
		out.Order = table.Asc(keys...)
	}
	return out, nil
}

// aggType returns the result type of aggregation agg of a column of
// type typ.
func aggType(agg engine.Aggregation, typ schema.Type) (schema.Type, error) {
	switch agg.Op {
	case engine.Count, engine.CountAll:
		return schema.Int, nil
	case engine.Min, engine.Max:
		return typ, nil
	}
	if !typ.Numeric() {
		return 0, errors.E(errors.Invalid, bigbench.ErrTypeMismatch,
			fmt.Sprintf("%s: column has type %s", agg, typ))
	}
	switch agg.Op {
	case engine.Sum:
		return typ, nil
	case engine.Mean, engine.Std:
		return schema.Float, nil
	}
	return 0, errorf("%s: unsupported aggregation", agg)
}

// aggregate computes the groups of frame f by the key columns kcols.
// Groups are ordered by key. Within a group, rows are visited in the
// order of all of their columns, so that floating point results do
// not depend on the order in which rows arrived.
func aggregate(s schema.Schema, f frame.Frame, kcols, acols []int, aggs []engine.Aggregation) frame.Frame {
	var index []int
	for i := 0; i < f.Len(); i++ {
		if !f.AnyNull(kcols, i) {
			index = append(index, i)
		}
	}
	all := append([]int(nil), kcols...)
	for i := range f {
		all = append(all, i)
	}
	var (
		cmp    = f.Comparator(all)
		keycmp = f.Comparator(kcols)
	)
	sort.Slice(index, func(i, j int) bool { return cmp(index[i], index[j]) < 0 })

	// Groups are the runs [bounds[g], bounds[g+1]) of index.
	var bounds []int
	for i := range index {
		if i == 0 || keycmp(index[i-1], index[i]) != 0 {
			bounds = append(bounds, i)
		}
	}
	if len(kcols) == 0 {
		// A global aggregation has exactly one group, even when the
		// table is empty.
		bounds = []int{0}
	}
	ngroup := len(bounds)
	bounds = append(bounds, len(index))

	first := make([]int, ngroup)
	for g := range first {
		if bounds[g] < len(index) {
			first[g] = index[bounds[g]]
		}
	}
	out := make(frame.Frame, 0, len(s))
	out = append(out, f.Select(kcols).Gather(first)...)
	for i, agg := range aggs {
		col := frame.Make(s.Select([]int{len(kcols) + i}), ngroup)[0]
		for g := 0; g < ngroup; g++ {
			rows := index[bounds[g]:bounds[g+1]]
			var in frame.Column
			if acols[i] >= 0 {
				in = f[acols[i]]
			}
			col.Index(g).Set(reduce(agg.Op, in, rows))
		}
		out = append(out, col)
	}
	return out
}

// reduce computes the aggregation op of the values of column c at
// the provided rows, skipping NULLs.
func reduce(op engine.AggOp, c frame.Column, rows []int) reflect.Value {
	if op == engine.CountAll {
		return reflect.ValueOf(int64(len(rows)))
	}
	var valid []int
	for _, i := range rows {
		if !c.IsNull(i) {
			valid = append(valid, i)
		}
	}
	switch op {
	case engine.Count:
		return reflect.ValueOf(int64(len(valid)))
	case engine.Min, engine.Max:
		if len(valid) == 0 {
			return frame.Null(c.ElemType())
		}
		less := c.LessFunc()
		best := valid[0]
		for _, i := range valid[1:] {
			if (op == engine.Min && less(i, best)) || (op == engine.Max && less(best, i)) {
				best = i
			}
		}
		return c.Index(best)
	case engine.Sum:
		if len(valid) == 0 {
			return frame.Null(c.ElemType())
		}
		if vals, ok := c.Interface().([]int64); ok {
			var sum int64
			for _, i := range valid {
				sum += vals[i]
			}
			return reflect.ValueOf(sum)
		}
		return reflect.ValueOf(sumFloats(c, valid))
	case engine.Mean:
		if len(valid) == 0 {
			return reflect.ValueOf(math.NaN())
		}
		return reflect.ValueOf(sumFloats(c, valid) / float64(len(valid)))
	case engine.Std:
		if len(valid) < 2 {
			return reflect.ValueOf(math.NaN())
		}
		n := float64(len(valid))
		mean := sumFloats(c, valid) / n
		var ss float64
		for _, i := range valid {
			d := floatAt(c, i) - mean
			ss += d * d
		}
		return reflect.ValueOf(math.Sqrt(ss / (n - 1)))
	}
	panic(fmt.Sprintf("exec: unsupported aggregation %s", op))
}

func sumFloats(c frame.Column, rows []int) float64 {
	var sum float64
	for _, i := range rows {
		sum += floatAt(c, i)
	}
	return sum
}

func floatAt(c frame.Column, i int) float64 {
	switch vals := c.Interface().(type) {
	case []int64:
		return float64(vals[i])
	case []float64:
		return vals[i]
	}
	panic("exec: non-numeric column " + c.ElemType().String())
}
