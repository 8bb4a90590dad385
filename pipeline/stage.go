// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/bigbench/engine"
	"github.com/grailbio/bigbench/expr"
	"github.com/grailbio/bigbench/table"
)

// A Stage is one step of a query. Stages are created by the
// functions of this package; each names the relations it reads and
// the relation it defines. A stage may redefine a relation it reads.
type Stage struct {
	desc string
	run  func(ctx context.Context, r *runner) error
}

func (s Stage) String() string { return s.desc }

// unary returns a stage that defines dst by applying fn to src.
func unary(desc, dst, src string, fn func(ctx context.Context, eng engine.Engine, t *table.Table) (*table.Table, error)) Stage {
	return Stage{
		desc: fmt.Sprintf("%s = %s", dst, desc),
		run: func(ctx context.Context, r *runner) error {
			t, err := r.get(src)
			if err != nil {
				return err
			}
			if t, err = fn(ctx, r.eng, t); err != nil {
				return err
			}
			r.rels[dst] = t
			return nil
		},
	}
}

// Filter defines dst as the rows of src for which pred holds.
func Filter(dst, src string, pred expr.Expr) Stage {
	return unary(fmt.Sprintf("filter %s where %s", src, pred), dst, src,
		func(ctx context.Context, eng engine.Engine, t *table.Table) (*table.Table, error) {
			return eng.Filter(ctx, t, pred)
		})
}

// Project defines dst as the provided columns of src, in the order
// given.
func Project(dst, src string, columns ...string) Stage {
	return unary(fmt.Sprintf("project %s (%s)", src, strings.Join(columns, ", ")), dst, src,
		func(ctx context.Context, eng engine.Engine, t *table.Table) (*table.Table, error) {
			return eng.Project(ctx, t, columns)
		})
}

// Drop defines dst as src without the provided columns.
func Drop(dst, src string, columns ...string) Stage {
	return unary(fmt.Sprintf("drop (%s) from %s", strings.Join(columns, ", "), src), dst, src,
		func(ctx context.Context, eng engine.Engine, t *table.Table) (*table.Table, error) {
			drop := make(map[string]bool, len(columns))
			for _, col := range columns {
				if _, err := t.Schema.Lookup(col); err != nil {
					return nil, err
				}
				drop[col] = true
			}
			var keep []string
			for _, col := range t.Schema.Names() {
				if !drop[col] {
					keep = append(keep, col)
				}
			}
			return eng.Project(ctx, t, keep)
		})
}

// Join defines dst as the join of left and right.
func Join(dst, left, right string, spec engine.JoinSpec) Stage {
	return Stage{
		desc: fmt.Sprintf("%s = %s %s %s", dst, left, spec, right),
		run: func(ctx context.Context, r *runner) error {
			l, err := r.get(left)
			if err != nil {
				return err
			}
			rt, err := r.get(right)
			if err != nil {
				return err
			}
			t, err := r.eng.Join(ctx, l, rt, spec)
			if err != nil {
				return err
			}
			r.rels[dst] = t
			return nil
		},
	}
}

// GroupBy defines dst as the aggregations of src grouped by keys.
func GroupBy(dst, src string, keys []string, aggs ...engine.Aggregation) Stage {
	descs := make([]string, len(aggs))
	for i, agg := range aggs {
		descs[i] = agg.String()
	}
	desc := fmt.Sprintf("group %s by (%s) computing %s", src, strings.Join(keys, ", "), strings.Join(descs, ", "))
	return unary(desc, dst, src,
		func(ctx context.Context, eng engine.Engine, t *table.Table) (*table.Table, error) {
			return eng.GroupBy(ctx, t, keys, aggs)
		})
}

// Rename defines dst as src with columns renamed by mapping.
func Rename(dst, src string, mapping map[string]string) Stage {
	pairs := make([]string, 0, len(mapping))
	for from, to := range mapping {
		pairs = append(pairs, from+" as "+to)
	}
	sort.Strings(pairs)
	return unary(fmt.Sprintf("rename %s (%s)", src, strings.Join(pairs, ", ")), dst, src,
		func(ctx context.Context, eng engine.Engine, t *table.Table) (*table.Table, error) {
			return eng.Rename(ctx, t, mapping)
		})
}

// Sort defines dst as src sorted by keys.
func Sort(dst, src string, keys ...table.SortKey) Stage {
	descs := make([]string, len(keys))
	for i, key := range keys {
		descs[i] = key.String()
	}
	return unary(fmt.Sprintf("sort %s by %s", src, strings.Join(descs, ", ")), dst, src,
		func(ctx context.Context, eng engine.Engine, t *table.Table) (*table.Table, error) {
			return eng.Sort(ctx, t, keys)
		})
}

// Limit defines dst as the first n rows of src.
func Limit(dst, src string, n int) Stage {
	return unary(fmt.Sprintf("limit %s to %d", src, n), dst, src,
		func(ctx context.Context, eng engine.Engine, t *table.Table) (*table.Table, error) {
			return eng.Limit(ctx, t, n)
		})
}

// Derive defines dst as src with the column name computed by e.
func Derive(dst, src, name string, e expr.Expr) Stage {
	return unary(fmt.Sprintf("derive %s.%s = %s", src, name, e), dst, src,
		func(ctx context.Context, eng engine.Engine, t *table.Table) (*table.Table, error) {
			return eng.Derive(ctx, t, name, e)
		})
}

// Concat defines dst as the union of the rows of srcs.
func Concat(dst string, srcs ...string) Stage {
	return Stage{
		desc: fmt.Sprintf("%s = concat %s", dst, strings.Join(srcs, ", ")),
		run: func(ctx context.Context, r *runner) error {
			tables := make([]*table.Table, len(srcs))
			for i, src := range srcs {
				var err error
				if tables[i], err = r.get(src); err != nil {
					return err
				}
			}
			t, err := r.eng.Concat(ctx, tables...)
			if err != nil {
				return err
			}
			r.rels[dst] = t
			return nil
		},
	}
}

// Copy defines dst as the relation src.
func Copy(dst, src string) Stage {
	return unary(src, dst, src,
		func(ctx context.Context, eng engine.Engine, t *table.Table) (*table.Table, error) {
			return t, nil
		})
}

// Mark restarts the compute timer, so that the query's compute time
// excludes the stages that precede the mark.
func Mark() Stage {
	return Stage{
		desc: "mark",
		run: func(ctx context.Context, r *runner) error {
			r.mark = r.clock.Now()
			return nil
		},
	}
}
