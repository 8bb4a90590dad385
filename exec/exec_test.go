// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"context"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/engine"
	"github.com/grailbio/bigbench/expr"
	"github.com/grailbio/bigbench/frame"
	"github.com/grailbio/bigbench/schema"
	"github.com/grailbio/bigbench/table"
	"github.com/jonboulle/clockwork"
)

var (
	people = schema.Schema{
		{Name: "id", Type: schema.Int},
		{Name: "name", Type: schema.String},
	}
	peopleRows = frame.Columns(
		[]int64{1, 2, 3, 4, 5, 6},
		[]string{"a", "b", "c", "d", "e", "f"},
	)
	amounts = schema.Schema{
		{Name: "id", Type: schema.Int},
		{Name: "amount", Type: schema.Float},
	}
	amountRows = frame.Columns(
		[]int64{2, 4, 2, 7, frame.NullInt},
		[]float64{0.5, 3, 1.5, 9, 1},
	)
)

var nworkers = []int{1, 2, 3, 4}

// shard returns the table holding worker rank's share of the rows of
// f, or all of them if dist is table.Replicated.
func shard(s schema.Schema, f frame.Frame, dist table.Distribution, rank, n int) *table.Table {
	if dist == table.Replicated {
		return table.New(s, f, dist)
	}
	var index []int
	for i := 0; i < f.Len(); i++ {
		if i%n == rank {
			index = append(index, i)
		}
	}
	return table.New(s, f.Gather(index), dist)
}

// collect runs fn on every worker of a group of n workers and returns
// the gathered result, after checking that all workers agree on it.
func collect(t *testing.T, n int, fn func(ctx context.Context, eng engine.Engine) (*table.Table, error)) *table.Table {
	t.Helper()
	results := make([]*table.Table, n)
	err := NewGroup(n, Clock(clockwork.NewFakeClock())).Run(context.Background(), func(ctx context.Context, eng engine.Engine) error {
		tab, err := fn(ctx, eng)
		if err != nil {
			return err
		}
		if tab, err = eng.Gather(ctx, tab); err != nil {
			return err
		}
		results[eng.Rank()] = tab
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for rank := 1; rank < n; rank++ {
		if !frame.Equal(results[0].Frame, results[rank].Frame) {
			t.Errorf("worker %d: got %v, worker 0 got %v", rank, results[rank].TabString(), results[0].TabString())
		}
	}
	return results[0]
}

func checkFrame(t *testing.T, tab *table.Table, want frame.Frame) {
	t.Helper()
	if !frame.Equal(tab.Frame, want) {
		t.Errorf("got %v, want %v", tab.Frame.TabString(), want.TabString())
	}
}

func TestExchange(t *testing.T) {
	const n = 4
	err := NewGroup(n).Run(context.Background(), func(ctx context.Context, eng engine.Engine) error {
		w := eng.(*worker)
		for round := 0; round < 3; round++ {
			out := make([]frame.Frame, n)
			for dst := range out {
				out[dst] = frame.Columns([]int64{int64(100*round + 10*w.rank + dst)})
			}
			in, err := w.x.AllToAll(ctx, w.rank, out)
			if err != nil {
				return err
			}
			for src := range in {
				if got, want := in[src].Len(), 1; got != want {
					t.Errorf("got %v, want %v", got, want)
					continue
				}
				if got, want := in[src][0].Ints()[0], int64(100*round+10*src+w.rank); got != want {
					t.Errorf("round %d: worker %d: got %v, want %v", round, w.rank, got, want)
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestGroupFailure(t *testing.T) {
	err := NewGroup(3).Run(context.Background(), func(ctx context.Context, eng engine.Engine) error {
		if eng.Rank() == 1 {
			return errors.E(errors.Invalid, bigbench.ErrEngine, "worker failed")
		}
		_, err := eng.Gather(ctx, shard(people, peopleRows, table.Sharded, eng.Rank(), eng.NumWorkers()))
		if err == nil {
			t.Error("expected gather to fail")
		}
		return err
	})
	if err == nil || !bigbench.Is(err, bigbench.ErrEngine) {
		t.Fatalf("got %v, want engine error", err)
	}
	if !strings.Contains(err.Error(), "worker failed") {
		t.Errorf("got %v", err)
	}
}

func TestJoin(t *testing.T) {
	want := frame.Columns(
		[]int64{2, 2, 4},
		[]string{"b", "b", "d"},
		[]int64{2, 2, 4},
		[]float64{0.5, 1.5, 3},
	)
	dists := []table.Distribution{table.Sharded, table.Replicated}
	for _, n := range nworkers {
		for _, ldist := range dists {
			for _, rdist := range dists {
				got := collect(t, n, func(ctx context.Context, eng engine.Engine) (*table.Table, error) {
					l := shard(people, peopleRows, ldist, eng.Rank(), n)
					r := shard(amounts, amountRows, rdist, eng.Rank(), n)
					return eng.Join(ctx, l, r, engine.On([]string{"id"}, []string{"id"}))
				})
				checkFrame(t, got, want)
				if got, want := got.Schema.Names(), []string{"lt-id", "name", "rt-id", "amount"}; !reflect.DeepEqual(got, want) {
					t.Errorf("got %v, want %v", got, want)
				}
			}
		}
	}
}

func TestLeftJoin(t *testing.T) {
	want := frame.Columns(
		[]int64{1, 2, 2, 3, 4, 5, 6},
		[]string{"a", "b", "b", "c", "d", "e", "f"},
		[]int64{frame.NullInt, 2, 2, frame.NullInt, 4, frame.NullInt, frame.NullInt},
		[]float64{math.NaN(), 0.5, 1.5, math.NaN(), 3, math.NaN(), math.NaN()},
	)
	for _, n := range nworkers {
		for _, ldist := range []table.Distribution{table.Sharded, table.Replicated} {
			got := collect(t, n, func(ctx context.Context, eng engine.Engine) (*table.Table, error) {
				l := shard(people, peopleRows, ldist, eng.Rank(), n)
				r := shard(amounts, amountRows, table.Sharded, eng.Rank(), n)
				spec := engine.On([]string{"id"}, []string{"id"})
				spec.Kind = engine.Left
				spec.LeftPrefix, spec.RightPrefix = "l_", "r_"
				return eng.Join(ctx, l, r, spec)
			})
			checkFrame(t, got, want)
			if got, want := got.Schema.Names(), []string{"l_id", "name", "r_id", "amount"}; !reflect.DeepEqual(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
		}
	}
}

func TestBroadcastJoinOrder(t *testing.T) {
	err := NewGroup(2).Run(context.Background(), func(ctx context.Context, eng engine.Engine) error {
		l := shard(people, peopleRows, table.Sharded, eng.Rank(), eng.NumWorkers())
		l.Order = table.Asc("id")
		r := table.New(amounts, amountRows, table.Replicated)
		out, err := eng.Join(ctx, l, r, engine.On([]string{"id"}, []string{"id"}))
		if err != nil {
			return err
		}
		if got, want := out.Dist, table.Sharded; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		if got, want := out.Order, table.Asc("lt-id"); !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestJoinErrors(t *testing.T) {
	names := schema.Schema{{Name: "name", Type: schema.String}}
	err := NewGroup(1).Run(context.Background(), func(ctx context.Context, eng engine.Engine) error {
		l := table.New(people, peopleRows, table.Replicated)
		r := table.Empty(names, table.Replicated)
		_, err := eng.Join(ctx, l, r, engine.On([]string{"id"}, []string{"name"}))
		if !bigbench.Is(err, bigbench.ErrTypeMismatch) {
			t.Errorf("got %v, want type mismatch", err)
		}
		_, err = eng.Join(ctx, l, r, engine.On([]string{"id"}, []string{"bogus"}))
		if !bigbench.Is(err, bigbench.ErrUnknownColumn) {
			t.Errorf("got %v, want unknown column", err)
		}
		_, err = eng.Join(ctx, l, r, engine.On([]string{"id", "name"}, []string{"name"}))
		if !bigbench.Is(err, bigbench.ErrEngine) {
			t.Errorf("got %v, want engine error", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

var (
	values = schema.Schema{
		{Name: "k", Type: schema.String},
		{Name: "v", Type: schema.Int},
		{Name: "x", Type: schema.Float},
	}
	valueRows = frame.Columns(
		[]string{"a", "b", "a", "", "b", "a"},
		[]int64{1, 2, 3, 4, frame.NullInt, 5},
		[]float64{1, math.NaN(), 2, 5, 4, 3},
	)
)

func TestGroupBy(t *testing.T) {
	aggs := []engine.Aggregation{
		engine.Agg(engine.Sum, "v"),
		engine.Agg(engine.Count, "v"),
		{Op: engine.CountAll},
		engine.Agg(engine.Mean, "x"),
		engine.Agg(engine.Std, "x"),
		engine.Agg(engine.Min, "v"),
		engine.Agg(engine.Max, "v"),
	}
	want := frame.Columns(
		[]string{"a", "b"},
		[]int64{9, 2},
		[]int64{3, 1},
		[]int64{3, 2},
		[]float64{2, 4},
		[]float64{1, math.NaN()},
		[]int64{1, 2},
		[]int64{5, 2},
	)
	for _, n := range nworkers {
		for _, dist := range []table.Distribution{table.Sharded, table.Replicated} {
			got := collect(t, n, func(ctx context.Context, eng engine.Engine) (*table.Table, error) {
				return eng.GroupBy(ctx, shard(values, valueRows, dist, eng.Rank(), n), []string{"k"}, aggs)
			})
			checkFrame(t, got, want)
			if got, want := got.Schema.Names(), []string{"k", "sum_v", "count_v", "count", "mean_x", "std_x", "min_v", "max_v"}; !reflect.DeepEqual(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
			if got, want := got.Order, table.Asc("k"); !reflect.DeepEqual(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
		}
	}
}

func TestGlobalAggregation(t *testing.T) {
	aggs := []engine.Aggregation{
		{Column: "v", Op: engine.Sum, As: "total"},
		{Op: engine.CountAll},
		engine.Agg(engine.Max, "k"),
	}
	for _, n := range nworkers {
		got := collect(t, n, func(ctx context.Context, eng engine.Engine) (*table.Table, error) {
			return eng.GroupBy(ctx, shard(values, valueRows, table.Sharded, eng.Rank(), n), nil, aggs)
		})
		checkFrame(t, got, frame.Columns([]int64{15}, []int64{6}, []string{"b"}))
		if got, want := got.Dist, table.Replicated; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		got = collect(t, n, func(ctx context.Context, eng engine.Engine) (*table.Table, error) {
			return eng.GroupBy(ctx, table.Empty(values, table.Sharded), nil, aggs)
		})
		checkFrame(t, got, frame.Columns([]int64{frame.NullInt}, []int64{0}, []string{""}))
	}
}

func TestGroupByErrors(t *testing.T) {
	err := NewGroup(1).Run(context.Background(), func(ctx context.Context, eng engine.Engine) error {
		tab := table.New(values, valueRows, table.Replicated)
		_, err := eng.GroupBy(ctx, tab, []string{"v"}, []engine.Aggregation{engine.Agg(engine.Sum, "k")})
		if !bigbench.Is(err, bigbench.ErrTypeMismatch) {
			t.Errorf("got %v, want type mismatch", err)
		}
		_, err = eng.GroupBy(ctx, tab, []string{"k"}, []engine.Aggregation{{Column: "v", Op: engine.Sum, As: "k"}})
		if !bigbench.Is(err, bigbench.ErrEngine) {
			t.Errorf("got %v, want engine error", err)
		}
		_, err = eng.GroupBy(ctx, tab, []string{"bogus"}, nil)
		if !bigbench.Is(err, bigbench.ErrUnknownColumn) {
			t.Errorf("got %v, want unknown column", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSortLimit(t *testing.T) {
	for _, n := range nworkers {
		got := collect(t, n, func(ctx context.Context, eng engine.Engine) (*table.Table, error) {
			tab, err := eng.Sort(ctx, shard(values, valueRows, table.Sharded, eng.Rank(), n),
				[]table.SortKey{{Column: "k"}, {Column: "x", Desc: true}})
			if err != nil {
				return nil, err
			}
			return eng.Limit(ctx, tab, 4)
		})
		checkFrame(t, got, frame.Columns(
			[]string{"", "a", "a", "a"},
			[]int64{4, 5, 3, 1},
			[]float64{5, 3, 2, 1},
		))
		got = collect(t, n, func(ctx context.Context, eng engine.Engine) (*table.Table, error) {
			return eng.Limit(ctx, shard(values, valueRows, table.Sharded, eng.Rank(), n), 100)
		})
		if got, want := got.Len(), valueRows.Len(); got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestConcat(t *testing.T) {
	extra := frame.Columns([]int64{10, 20}, []string{"x", "y"})
	for _, n := range nworkers {
		got := collect(t, n, func(ctx context.Context, eng engine.Engine) (*table.Table, error) {
			return eng.Concat(ctx,
				shard(people, peopleRows, table.Sharded, eng.Rank(), n),
				table.New(people, extra, table.Replicated))
		})
		if got, want := got.Len(), 8; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		checkFrame(t, got, frame.Append(frame.Append(nil, peopleRows), extra))
	}
	err := NewGroup(1).Run(context.Background(), func(ctx context.Context, eng engine.Engine) error {
		_, err := eng.Concat(ctx, table.Empty(people, table.Sharded), table.Empty(amounts, table.Sharded))
		if !bigbench.Is(err, bigbench.ErrEngine) {
			t.Errorf("got %v, want engine error", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocal(t *testing.T) {
	err := NewGroup(1).Run(context.Background(), func(ctx context.Context, eng engine.Engine) error {
		tab := table.New(people, peopleRows, table.Replicated)
		tab.Order = table.Asc("id", "name")

		out, err := eng.Filter(ctx, tab, expr.Gt(expr.Col("id"), expr.Int(4)))
		if err != nil {
			return err
		}
		checkFrame(t, out, frame.Columns([]int64{5, 6}, []string{"e", "f"}))

		out, err = eng.Project(ctx, tab, []string{"name", "id"})
		if err != nil {
			return err
		}
		if got, want := out.Schema.Names(), []string{"name", "id"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
		if got, want := out.Order, table.Asc("id", "name"); !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}

		out, err = eng.Rename(ctx, tab, map[string]string{"id": "person"})
		if err != nil {
			return err
		}
		if got, want := out.Schema.Names(), []string{"person", "name"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
		if got, want := out.Order, table.Asc("person", "name"); !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
		if _, err = eng.Rename(ctx, tab, map[string]string{"id": "name"}); !bigbench.Is(err, bigbench.ErrEngine) {
			t.Errorf("got %v, want engine error", err)
		}
		if _, err = eng.Rename(ctx, tab, map[string]string{"bogus": "x"}); !bigbench.Is(err, bigbench.ErrUnknownColumn) {
			t.Errorf("got %v, want unknown column", err)
		}

		out, err = eng.Derive(ctx, tab, "name", expr.Mul(expr.Col("id"), expr.Float(0.5)))
		if err != nil {
			return err
		}
		if got, want := out.Schema.String(), "(id int, name float)"; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		if got, want := out.Order, table.Asc("id"); !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
		out, err = eng.Derive(ctx, tab, "twice", expr.Add(expr.Col("id"), expr.Col("id")))
		if err != nil {
			return err
		}
		if got, want := out.Frame[2].Ints(), []int64{2, 4, 6, 8, 10, 12}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStats(t *testing.T) {
	err := NewGroup(2).Run(context.Background(), func(ctx context.Context, eng engine.Engine) error {
		l := shard(people, peopleRows, table.Sharded, eng.Rank(), eng.NumWorkers())
		r := shard(amounts, amountRows, table.Sharded, eng.Rank(), eng.NumWorkers())
		if _, err := eng.Join(ctx, l, r, engine.On([]string{"id"}, []string{"id"})); err != nil {
			return err
		}
		stats := eng.Stats()
		for _, name := range []string{engine.StatShuffleNanos, engine.StatJoinNanos, engine.StatRowsShuffled} {
			if _, ok := stats[name]; !ok {
				t.Errorf("worker %d: missing counter %s", eng.Rank(), name)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
