// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"context"

	"github.com/grailbio/bigbench/expr"
	"github.com/grailbio/bigbench/frame"
	"github.com/grailbio/bigbench/schema"
	"github.com/grailbio/bigbench/table"
)

// The operations in this file are local: each worker transforms its
// own rows, and the distribution of the table is unchanged.

func (w *worker) Filter(ctx context.Context, t *table.Table, pred expr.Expr) (*table.Table, error) {
	prog, err := expr.BindPredicate(pred, t.Schema)
	if err != nil {
		return nil, err
	}
	index := prog.Select(t.Frame)
	out := t
	if len(index) != t.Len() {
		out = table.New(t.Schema, t.Frame.Gather(index), t.Dist)
		out.Order = t.Order
	}
	return out, nil
}

func (w *worker) Project(ctx context.Context, t *table.Table, columns []string) (*table.Table, error) {
	index := make([]int, len(columns))
	seen := make(map[string]bool, len(columns))
	for i, name := range columns {
		if seen[name] {
			return nil, errorf("project %v: duplicate column %q", columns, name)
		}
		seen[name] = true
		j, err := t.Schema.Lookup(name)
		if err != nil {
			return nil, err
		}
		index[i] = j
	}
	out := table.New(t.Schema.Select(index), t.Frame.Select(index), t.Dist)
	out.Order = retainOrder(t.Order, func(col string) (string, bool) {
		return col, seen[col]
	})
	return out, nil
}

func (w *worker) Rename(ctx context.Context, t *table.Table, mapping map[string]string) (*table.Table, error) {
	for from := range mapping {
		if _, err := t.Schema.Lookup(from); err != nil {
			return nil, err
		}
	}
	s := make(schema.Schema, len(t.Schema))
	seen := make(map[string]bool, len(s))
	for i, col := range t.Schema {
		if to, ok := mapping[col.Name]; ok {
			col.Name = to
		}
		if seen[col.Name] {
			return nil, errorf("rename: duplicate column %q in result", col.Name)
		}
		seen[col.Name] = true
		s[i] = col
	}
	out := table.New(s, t.Frame, t.Dist)
	out.Order = retainOrder(t.Order, func(col string) (string, bool) {
		if to, ok := mapping[col]; ok {
			return to, true
		}
		return col, true
	})
	return out, nil
}

func (w *worker) Derive(ctx context.Context, t *table.Table, name string, e expr.Expr) (*table.Table, error) {
	prog, err := expr.Bind(e, t.Schema)
	if err != nil {
		return nil, err
	}
	col := prog.Eval(t.Frame)
	s := append(schema.Schema(nil), t.Schema...)
	f := append(frame.Frame(nil), t.Frame...)
	if i := s.Index(name); i >= 0 {
		s[i].Type = prog.Type
		f[i] = col
	} else {
		s = append(s, schema.Column{Name: name, Type: prog.Type})
		f = append(f, col)
	}
	out := table.New(s, f, t.Dist)
	out.Order = retainOrder(t.Order, func(col string) (string, bool) {
		return col, col != name
	})
	return out, nil
}

// retainOrder returns the longest prefix of order whose columns
// survive the mapping, renamed by it.
func retainOrder(order []table.SortKey, mapping func(col string) (string, bool)) []table.SortKey {
	var keys []table.SortKey
	for _, key := range order {
		col, ok := mapping(key.Column)
		if !ok {
			break
		}
		keys = append(keys, table.SortKey{Column: col, Desc: key.Desc})
	}
	return keys
}
