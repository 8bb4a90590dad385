// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package pipeline runs benchmark queries. A query loads its input
// tables and then runs an ordered sequence of stages, each of which
// reads named relations and binds its result to a name. Every worker
// of a group runs the same query, so that the engine's collective
// operations line up; the query's output relation is gathered to
// every worker.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/status"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/engine"
	"github.com/grailbio/bigbench/partition"
	"github.com/grailbio/bigbench/stats"
	"github.com/grailbio/bigbench/table"
	"github.com/grailbio/bigbench/tableio"
	"github.com/jonboulle/clockwork"
)

// Names of the measures a query may report.
const (
	// MeasureLoad is the time spent loading inputs, in seconds.
	MeasureLoad = "load"
	// MeasureCompute is the time from the compute mark (or the end
	// of loading) to the end of the query, in seconds.
	MeasureCompute = "compute"
	// MeasureTotal is the run time of the whole query, in seconds.
	MeasureTotal = "total"
	// MeasureShuffle is the time the engine spent shuffling rows, in
	// seconds.
	MeasureShuffle = "shuffle"
	// MeasureJoin is the time the engine spent joining rows, in
	// seconds.
	MeasureJoin = "join"
)

// An Input binds a table, projected to a set of columns, to a
// relation name.
type Input struct {
	// Name is the name of the relation.
	Name string
	// Table is the table to load.
	Table bigbench.Table
	// Columns are the columns to load. All columns are loaded if
	// Columns is empty.
	Columns []string
}

// A Query is a benchmark query.
type Query struct {
	// Name is the query's name, as used in result files.
	Name string
	// Inputs are the tables the query loads.
	Inputs []Input
	// Stages are run in order after the inputs are loaded.
	Stages []Stage
	// Output names the relation that is the query's result. Queries
	// that only measure the engine may leave it empty.
	Output string
	// Measures lists the values the query reports. The default is
	// the compute time alone.
	Measures []string
}

// Tables returns the distinct tables read by the query.
func (q Query) Tables() []bigbench.Table {
	var (
		tables []bigbench.Table
		seen   = make(map[bigbench.Table]bool)
	)
	for _, in := range q.Inputs {
		if !seen[in.Table] {
			seen[in.Table] = true
			tables = append(tables, in.Table)
		}
	}
	return tables
}

// MeasureNames returns the names of the values reported by the
// query.
func (q Query) MeasureNames() []string {
	if len(q.Measures) == 0 {
		return []string{MeasureCompute}
	}
	return q.Measures
}

// Options control the execution of a query.
type Options struct {
	// Clock is used to time the query. The real clock is used if
	// Clock is nil.
	Clock clockwork.Clock
	// Unranked reads whole tables instead of the worker's
	// partitions. It requires a group of one worker.
	Unranked bool
	// Status, if not nil, is updated with the progress of the query.
	Status *status.Group
}

// Timings are the durations of the phases of a query run.
type Timings struct {
	Load, Compute, Total time.Duration
}

// A Result is the outcome of a query run on one worker.
type Result struct {
	// Table is the query's output relation, replicated, or nil if
	// the query has no output.
	Table *table.Table
	// Timings holds the worker's timings.
	Timings Timings
	// Values holds the query's measures, in the order of
	// Query.MeasureNames.
	Values []float64
	// Stats holds a snapshot of the engine's counters at the end of
	// the run.
	Stats stats.Values
}

// Run runs query q on behalf of the worker represented by eng,
// loading its inputs with reader. Errors returned by the engine and
// the reader are returned unchanged.
func Run(ctx context.Context, eng engine.Engine, reader tableio.Reader, q Query, opts Options) (*Result, error) {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	rank := eng.Rank()
	if opts.Unranked {
		if n := eng.NumWorkers(); n != 1 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("query %s: unranked reads need a single worker, not %d", q.Name, n))
		}
		rank = partition.Unranked
	}
	task := startf(opts.Status, "%s: load %d inputs", q.Name, len(q.Inputs))
	start := clock.Now()
	r := &runner{
		eng:   eng,
		clock: clock,
		rels:  make(map[string]*table.Table),
	}
	inputs := make([]*table.Table, len(q.Inputs))
	err := traverse.Each(len(q.Inputs), func(i int) error {
		in := q.Inputs[i]
		var err error
		inputs[i], err = reader.Read(ctx, in.Table, rank, eng.NumWorkers(), in.Columns...)
		return err
	})
	done(task)
	if err != nil {
		return nil, err
	}
	for i, in := range q.Inputs {
		r.rels[in.Name] = inputs[i]
	}
	r.mark = clock.Now()
	loaded := r.mark

	for _, stage := range q.Stages {
		task := startf(opts.Status, "%s: %s", q.Name, stage)
		stageStart := clock.Now()
		err := stage.run(ctx, r)
		done(task)
		if err != nil {
			log.Debug.Printf("query %s: worker %d: stage %s: %v", q.Name, eng.Rank(), stage, err)
			return nil, err
		}
		log.Debug.Printf("query %s: worker %d: %s: %s", q.Name, eng.Rank(), stage, clock.Since(stageStart))
	}
	var out *table.Table
	if q.Output != "" {
		if out, err = r.get(q.Output); err != nil {
			return nil, err
		}
		if out, err = eng.Gather(ctx, out); err != nil {
			return nil, err
		}
	}
	end := clock.Now()
	res := &Result{
		Table: out,
		Timings: Timings{
			Load:    loaded.Sub(start),
			Compute: end.Sub(r.mark),
			Total:   end.Sub(start),
		},
		Stats: eng.Stats(),
	}
	for _, name := range q.MeasureNames() {
		v, err := res.measure(name)
		if err != nil {
			return nil, errors.E(fmt.Sprintf("query %s", q.Name), err)
		}
		res.Values = append(res.Values, v)
	}
	return res, nil
}

func (r *Result) measure(name string) (float64, error) {
	switch name {
	case MeasureLoad:
		return r.Timings.Load.Seconds(), nil
	case MeasureCompute:
		return r.Timings.Compute.Seconds(), nil
	case MeasureTotal:
		return r.Timings.Total.Seconds(), nil
	case MeasureShuffle:
		return r.Stats.Seconds(engine.StatShuffleNanos), nil
	case MeasureJoin:
		return r.Stats.Seconds(engine.StatJoinNanos), nil
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown measure %q", name))
}

// A runner holds the state of a query run: the relations bound so
// far and the compute mark.
type runner struct {
	eng   engine.Engine
	clock clockwork.Clock
	rels  map[string]*table.Table
	mark  time.Time
}

func (r *runner) get(name string) (*table.Table, error) {
	t, ok := r.rels[name]
	if !ok {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("unknown relation %q", name))
	}
	return t, nil
}

func startf(group *status.Group, format string, args ...interface{}) *status.Task {
	if group == nil {
		return nil
	}
	return group.Startf(format, args...)
}

func done(task *status.Task) {
	if task != nil {
		task.Done()
	}
}
