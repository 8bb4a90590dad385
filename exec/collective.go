// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"context"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/bigbench/engine"
	"github.com/grailbio/bigbench/frame"
	"github.com/grailbio/bigbench/schema"
	"github.com/grailbio/bigbench/table"
)

// shuffle returns the rows of the logical table t whose key columns
// hash to the worker. Equal keys hash to the same worker, regardless
// of which table they come from, as long as their types are equal.
// Shuffling a sharded table is collective; shuffling a replicated
// table is local.
func (w *worker) shuffle(ctx context.Context, t *table.Table, cols []int) (frame.Frame, error) {
	hash := t.Frame.Hasher(cols, shuffleSeed)
	if t.Dist == table.Replicated {
		var index []int
		for i := 0; i < t.Len(); i++ {
			if int(hash(i)%uint32(w.n)) == w.rank {
				index = append(index, i)
			}
		}
		return t.Frame.Gather(index), nil
	}
	start := w.clock.Now()
	index := make([][]int, w.n)
	for i := 0; i < t.Len(); i++ {
		dst := int(hash(i) % uint32(w.n))
		index[dst] = append(index[dst], i)
	}
	out := make([]frame.Frame, w.n)
	var sent int
	for dst := range out {
		out[dst] = t.Frame.Gather(index[dst])
		if dst != w.rank {
			sent += len(index[dst])
		}
	}
	in, err := w.x.AllToAll(ctx, w.rank, out)
	if err != nil {
		return nil, err
	}
	f := concat(t.Schema, in)
	w.stats.Int(engine.StatRowsShuffled).Add(int64(sent))
	w.stats.Int(engine.StatShuffleNanos).AddDuration(w.clock.Since(start))
	log.Debug.Printf("exec: worker %d/%d: shuffled %d rows, sent %d, received %d",
		w.rank, w.n, t.Len(), sent, f.Len())
	return f, nil
}

func (w *worker) Gather(ctx context.Context, t *table.Table) (*table.Table, error) {
	if t.Dist == table.Replicated {
		return t, nil
	}
	out := make([]frame.Frame, w.n)
	for dst := range out {
		out[dst] = t.Frame
	}
	in, err := w.x.AllToAll(ctx, w.rank, out)
	if err != nil {
		return nil, err
	}
	f := concat(t.Schema, in)
	// Order the rows canonically, so that the gathered table does not
	// depend on how rows were spread across workers.
	keys := append([]table.SortKey(nil), t.Order...)
	for _, col := range t.Schema {
		keys = append(keys, table.SortKey{Column: col.Name})
	}
	index, err := sortIndex(t.Schema, f, keys)
	if err != nil {
		return nil, err
	}
	g := table.New(t.Schema, f.Gather(index), table.Replicated)
	g.Order = t.Order
	return g, nil
}

func (w *worker) Sort(ctx context.Context, t *table.Table, keys []table.SortKey) (*table.Table, error) {
	if len(keys) == 0 {
		return nil, errorf("sort: no sort keys")
	}
	for _, key := range keys {
		if _, err := t.Schema.Lookup(key.Column); err != nil {
			return nil, err
		}
	}
	t, err := w.Gather(ctx, t)
	if err != nil {
		return nil, err
	}
	if t.OrderedBy(keys) {
		return t, nil
	}
	index, err := sortIndex(t.Schema, t.Frame, keys)
	if err != nil {
		return nil, err
	}
	out := table.New(t.Schema, t.Frame.Gather(index), table.Replicated)
	out.Order = keys
	return out, nil
}

func (w *worker) Limit(ctx context.Context, t *table.Table, n int) (*table.Table, error) {
	if n < 0 {
		return nil, errorf("limit: negative row count %d", n)
	}
	t, err := w.Gather(ctx, t)
	if err != nil {
		return nil, err
	}
	if t.Len() <= n {
		return t, nil
	}
	out := table.New(t.Schema, t.Frame.Slice(0, n), table.Replicated)
	out.Order = t.Order
	return out, nil
}

func (w *worker) Concat(ctx context.Context, tables ...*table.Table) (*table.Table, error) {
	if len(tables) == 0 {
		return nil, errorf("concat: no tables")
	}
	s := tables[0].Schema
	dist := tables[0].Dist
	for _, t := range tables[1:] {
		if !t.Schema.Equal(s) {
			return nil, errorf("concat: schema %s does not match %s", t.Schema, s)
		}
		if t.Dist != dist {
			dist = table.Sharded
		}
	}
	var frames []frame.Frame
	for _, t := range tables {
		// Replicated rows mixed into a sharded result must be
		// contributed exactly once.
		if dist == table.Sharded && t.Dist == table.Replicated && w.rank != 0 {
			continue
		}
		frames = append(frames, t.Frame)
	}
	return table.New(s, concat(s, frames), dist), nil
}

// concat returns the rows of frames, in order, in a new frame.
func concat(s schema.Schema, frames []frame.Frame) frame.Frame {
	var n int
	for _, f := range frames {
		n += f.Len()
	}
	f := frame.Make(s, 0, n)
	for _, g := range frames {
		if g.Len() > 0 {
			f = frame.Append(f, g)
		}
	}
	return f
}

// sortIndex returns the permutation of the rows of f, which has
// schema s, that orders them stably by keys.
func sortIndex(s schema.Schema, f frame.Frame, keys []table.SortKey) ([]int, error) {
	cmps := make([]func(i, j int) int, len(keys))
	for k, key := range keys {
		col, err := s.Lookup(key.Column)
		if err != nil {
			return nil, err
		}
		cmp := f.Comparator([]int{col})
		if key.Desc {
			cmps[k] = func(i, j int) int { return -cmp(i, j) }
		} else {
			cmps[k] = cmp
		}
	}
	index := make([]int, f.Len())
	for i := range index {
		index[i] = i
	}
	sort.SliceStable(index, func(i, j int) bool {
		for _, cmp := range cmps {
			if c := cmp(index[i], index[j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return index, nil
}
