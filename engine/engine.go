// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package engine defines the boundary between the benchmark's query
// pipelines and the relational engine that executes them.
//
// An Engine is a worker's handle to a group of cooperating workers.
// Every worker of the group runs the same pipeline against its own
// partitions, and calls the same engine operations in the same
// order. Operations that need rows held by other workers (shuffle
// joins, grouping of sharded tables, sorts, limits of sharded tables
// and gathers) are collective: they return only after every worker
// of the group has reached the same operation.
//
// Errors that originate in an engine are reported with
// bigbench.ErrEngine; expression errors with bigbench.ErrTypeMismatch
// or bigbench.ErrUnknownColumn. Callers pass them through unchanged.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/grailbio/bigbench/expr"
	"github.com/grailbio/bigbench/stats"
	"github.com/grailbio/bigbench/table"
)

// Names of the counters reported by Engine.Stats. Durations are
// counted in nanoseconds.
const (
	StatShuffleNanos = "shuffle_ns"
	StatJoinNanos    = "join_ns"
	StatRowsShuffled = "rows_shuffled"
)

// An Engine executes relational operations on behalf of one worker
// of a group.
type Engine interface {
	// Rank returns the zero-based rank of the worker.
	Rank() int
	// NumWorkers returns the size of the worker group.
	NumWorkers() int

	// Filter returns the rows of t for which pred is true.
	Filter(ctx context.Context, t *table.Table, pred expr.Expr) (*table.Table, error)
	// Project returns the named columns of t, in the order given.
	Project(ctx context.Context, t *table.Table, columns []string) (*table.Table, error)
	// Rename renames columns of t. Columns not in mapping keep their
	// names.
	Rename(ctx context.Context, t *table.Table, mapping map[string]string) (*table.Table, error)
	// Derive appends a column computed by e to t. If t already has a
	// column with the name, it is replaced in place.
	Derive(ctx context.Context, t *table.Table, name string, e expr.Expr) (*table.Table, error)
	// Join joins left and right.
	Join(ctx context.Context, left, right *table.Table, spec JoinSpec) (*table.Table, error)
	// GroupBy groups t by the key columns and computes the provided
	// aggregations for each group. With no keys, GroupBy computes a
	// single, global group.
	GroupBy(ctx context.Context, t *table.Table, keys []string, aggs []Aggregation) (*table.Table, error)
	// Sort sorts the logical table t by the provided keys. The
	// result is replicated.
	Sort(ctx context.Context, t *table.Table, keys []table.SortKey) (*table.Table, error)
	// Limit returns the first n rows of the logical table t.
	Limit(ctx context.Context, t *table.Table, n int) (*table.Table, error)
	// Concat returns the union of the rows of tables, which must
	// have identical schemas.
	Concat(ctx context.Context, tables ...*table.Table) (*table.Table, error)
	// Gather returns the logical table t as a replicated table.
	Gather(ctx context.Context, t *table.Table) (*table.Table, error)

	// Stats returns the engine's counters.
	Stats() stats.Values
}

// JoinKind is the kind of a join.
type JoinKind int

const (
	// Inner joins return the pairs of matching rows.
	Inner JoinKind = iota
	// Left joins also return the rows of the left table that match
	// no row of the right table, with NULL right columns.
	Left
)

func (k JoinKind) String() string {
	switch k {
	case Inner:
		return "inner"
	case Left:
		return "left"
	}
	return fmt.Sprintf("joinkind(%d)", int(k))
}

// Default prefixes of join output columns whose names appear in both
// join inputs.
const (
	DefaultLeftPrefix  = "lt-"
	DefaultRightPrefix = "rt-"
)

// A JoinSpec describes a join. Rows match when all of their key
// columns are equal and not NULL.
type JoinSpec struct {
	// Kind is the join kind.
	Kind JoinKind
	// LeftOn and RightOn are the key columns of the left and right
	// tables. They must have equal lengths and comparable types.
	LeftOn, RightOn []string
	// LeftPrefix and RightPrefix are prepended to the names of output
	// columns whose names appear in both inputs. DefaultLeftPrefix
	// and DefaultRightPrefix are used if they are empty.
	LeftPrefix, RightPrefix string
}

// On returns an inner join spec with the provided key columns.
func On(left, right []string) JoinSpec {
	return JoinSpec{LeftOn: left, RightOn: right}
}

func (j JoinSpec) String() string {
	return fmt.Sprintf("%s join on (%s) = (%s)", j.Kind,
		strings.Join(j.LeftOn, ", "), strings.Join(j.RightOn, ", "))
}

// Prefixes returns the prefixes to use for clashing column names.
func (j JoinSpec) Prefixes() (left, right string) {
	left, right = j.LeftPrefix, j.RightPrefix
	if left == "" {
		left = DefaultLeftPrefix
	}
	if right == "" {
		right = DefaultRightPrefix
	}
	return
}

// AggOp is an aggregation operator. Aggregations skip NULL values.
type AggOp int

const (
	// Sum is the sum of the values; NULL if there are none.
	Sum AggOp = iota
	// Count is the number of values that are not NULL.
	Count
	// CountAll is the number of rows.
	CountAll
	// Mean is the arithmetic mean of the values.
	Mean
	// Std is the sample standard deviation of the values; NULL if
	// there are fewer than two.
	Std
	// Min is the smallest value.
	Min
	// Max is the largest value.
	Max
)

var aggNames = [...]string{"sum", "count", "count_all", "mean", "std", "min", "max"}

func (op AggOp) String() string {
	if int(op) < len(aggNames) {
		return aggNames[op]
	}
	return fmt.Sprintf("aggop(%d)", int(op))
}

// An Aggregation computes one output column of a grouping.
type Aggregation struct {
	// Column is the input column. It is ignored for CountAll.
	Column string
	// Op is the aggregation operator.
	Op AggOp
	// As names the output column. If empty, the output column is
	// named "<op>_<column>", or "count" for CountAll.
	As string
}

// Agg returns an aggregation of column by op with the default
// output name.
func Agg(op AggOp, column string) Aggregation {
	return Aggregation{Column: column, Op: op}
}

// Name returns the name of the aggregation's output column.
func (a Aggregation) Name() string {
	switch {
	case a.As != "":
		return a.As
	case a.Op == CountAll:
		return "count"
	}
	return a.Op.String() + "_" + a.Column
}

func (a Aggregation) String() string {
	return fmt.Sprintf("%s(%s) as %s", a.Op, a.Column, a.Name())
}
