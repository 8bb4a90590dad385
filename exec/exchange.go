// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"context"
	"sync"

	"github.com/grailbio/base/sync/ctxsync"
	"github.com/grailbio/bigbench/frame"
)

// An exchange implements the all-to-all collective of a worker
// group. In each round, every worker contributes one frame for each
// worker of the group, and receives the frames the other workers
// addressed to it. A round completes only when every worker has
// contributed; exchange rounds are therefore barriers.
type exchange struct {
	n int

	mu      sync.Mutex
	cond    *ctxsync.Cond
	gen     int
	arrived int
	pending [][]frame.Frame
	// complete holds the frames of the last completed round, indexed
	// by source and then by destination. They remain valid until every
	// worker has entered the next round.
	complete [][]frame.Frame
}

func newExchange(n int) *exchange {
	x := &exchange{n: n, pending: make([][]frame.Frame, n)}
	x.cond = ctxsync.NewCond(&x.mu)
	return x
}

// AllToAll contributes the frames out, indexed by destination rank,
// on behalf of the worker with the provided rank. It returns the
// frames addressed to the worker, indexed by source rank. AllToAll
// returns the context's error if the context completes before all
// workers have contributed.
func (x *exchange) AllToAll(ctx context.Context, rank int, out []frame.Frame) ([]frame.Frame, error) {
	if len(out) != x.n {
		panic("exec: wrong number of exchange frames")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	gen := x.gen
	x.pending[rank] = out
	x.arrived++
	if x.arrived == x.n {
		x.complete = x.pending
		x.pending = make([][]frame.Frame, x.n)
		x.arrived = 0
		x.gen++
		x.cond.Broadcast()
	}
	for x.gen == gen {
		if err := x.cond.Wait(ctx); err != nil {
			return nil, err
		}
	}
	in := make([]frame.Frame, x.n)
	for src := range in {
		in[src] = x.complete[src][rank]
	}
	return in, nil
}

// Barrier blocks until every worker has reached the barrier.
func (x *exchange) Barrier(ctx context.Context, rank int) error {
	_, err := x.AllToAll(ctx, rank, make([]frame.Frame, x.n))
	return err
}
