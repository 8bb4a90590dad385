// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package exec implements an in-process relational engine. A Group
// runs a fixed number of workers as goroutines; each worker executes
// the same program against its own partitions and cooperates with
// its peers through an all-to-all exchange for the collective
// operations of engine.Engine.
package exec

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/engine"
	"github.com/grailbio/bigbench/stats"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// shuffleSeed seeds the hash that assigns rows to workers.
const shuffleSeed = 0x9e3779b9

// An Option configures a Group.
type Option func(*Group)

// Clock sets the clock that workers use to time collective
// operations.
func Clock(clock clockwork.Clock) Option {
	return func(g *Group) {
		g.clock = clock
	}
}

// A Group is a fixed-size group of workers.
type Group struct {
	n     int
	clock clockwork.Clock
}

// NewGroup returns a group of n workers. NewGroup panics if n is not
// positive.
func NewGroup(n int, opts ...Option) *Group {
	if n < 1 {
		panic(fmt.Sprintf("exec.NewGroup: invalid worker count %d", n))
	}
	g := &Group{n: n, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NumWorkers returns the number of workers in the group.
func (g *Group) NumWorkers() int { return g.n }

// Run calls fn once for each worker of the group, concurrently, with
// an engine bound to the worker. Run returns when every call has
// returned. If a call fails, the context passed to the others is
// canceled, so that workers blocked in collective operations return,
// and Run returns the first error. Run must not be called
// concurrently on the same group.
func (g *Group) Run(ctx context.Context, fn func(ctx context.Context, eng engine.Engine) error) error {
	x := newExchange(g.n)
	grp, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < g.n; rank++ {
		w := &worker{
			rank:  rank,
			n:     g.n,
			x:     x,
			clock: g.clock,
			stats: stats.NewMap(),
		}
		grp.Go(func() error { return fn(ctx, w) })
	}
	return grp.Wait()
}

// A worker is the engine of one member of a group.
type worker struct {
	rank, n int
	x       *exchange
	clock   clockwork.Clock
	stats   *stats.Map
}

var _ engine.Engine = (*worker)(nil)

func (w *worker) Rank() int { return w.rank }
func (w *worker) NumWorkers() int { return w.n }
func (w *worker) Stats() stats.Values { return w.stats.Values() }

func errorf(format string, args ...interface{}) error {
	return errors.E(errors.Invalid, bigbench.ErrEngine, fmt.Sprintf(format, args...))
}
