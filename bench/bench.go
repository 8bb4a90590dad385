// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bench orchestrates benchmark runs. A Runner runs every
// configured query, for every configured worker count, the
// configured number of times. Each run executes the query in a
// group of workers, collects the per-worker measurements, and
// appends their mean to the query's ledger. A failed run stops the
// benchmark and leaves the ledger untouched.
package bench

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/eventlog"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/status"
	"github.com/grailbio/bigbench/collect"
	"github.com/grailbio/bigbench/engine"
	"github.com/grailbio/bigbench/exec"
	"github.com/grailbio/bigbench/partition"
	"github.com/grailbio/bigbench/pipeline"
	"github.com/grailbio/bigbench/query"
	"github.com/grailbio/bigbench/schema"
	"github.com/grailbio/bigbench/sliceio"
	"github.com/grailbio/bigbench/table"
	"github.com/grailbio/bigbench/tableio"
	"github.com/jonboulle/clockwork"
)

// A Runner runs the benchmark described by its Config.
type Runner struct {
	// Config is the benchmark configuration.
	Config *Config
	// Status, if not nil, reports the progress of runs.
	Status *status.Status
	// Eventer receives run events. Events are discarded if it is
	// nil.
	Eventer eventlog.Eventer
	// Clock times the runs. The real clock is used if it is nil.
	Clock clockwork.Clock
}

// ResultsPath returns the path of the result rows of the named query
// in dir.
func ResultsPath(dir, query string) string {
	return file.Join(dir, query+"_results.csv")
}

// LedgerPath returns the path of the ledger of the named query in
// dir.
func LedgerPath(dir, query string) string {
	return file.Join(dir, query+"_ledger.csv")
}

// Run runs the benchmark. Run stops at the first failed run.
func (r *Runner) Run(ctx context.Context) error {
	cfg := r.Config
	if err := cfg.Validate(); err != nil {
		return err
	}
	if r.Eventer == nil {
		r.Eventer = eventlog.Nop{}
	}
	if r.Clock == nil {
		r.Clock = clockwork.NewRealClock()
	}
	id := uuid.New().String()
	r.Eventer.Event("bigbench:start",
		"id", id,
		"workers", fmt.Sprint(cfg.Workers),
		"queries", fmt.Sprint(cfg.Queries),
		"runs", cfg.Runs)
	catalog := schema.NewCatalog(cfg.SchemaDir)
	var refreshCatalog *schema.Catalog
	if cfg.RefreshSchemaDir != "" {
		refreshCatalog = schema.NewCatalog(cfg.RefreshSchemaDir)
	}
	for _, n := range cfg.Workers {
		reader, err := tableio.New(tableio.Options{
			Format:         cfg.Format,
			Catalog:        catalog,
			RefreshCatalog: refreshCatalog,
			Resolver: &partition.Resolver{
				Root:           cfg.DataDirFor(n),
				BaseSegment:    cfg.BaseSegment,
				RefreshSegment: cfg.RefreshSegment,
			},
			Ext: cfg.Ext,
		})
		if err != nil {
			return err
		}
		for _, name := range cfg.Queries {
			q, err := query.Lookup(name)
			if err != nil {
				return err
			}
			for run := 0; run < cfg.Runs; run++ {
				agg, err := r.run(ctx, reader, q, n, run)
				if err != nil {
					r.Eventer.Event("bigbench:runFailed",
						"id", id, "query", q.Name, "workers", n, "run", run, "error", err.Error())
					return errors.E(fmt.Sprintf("%s: %d workers: run %d", q.Name, n, run), err)
				}
				r.Eventer.Event("bigbench:run",
					"id", id, "query", q.Name, "workers", n, "run", run, "measures", agg.String())
				log.Printf("%s: %d workers: run %d: %s", q.Name, n, run, agg)
			}
		}
	}
	r.Eventer.Event("bigbench:done", "id", id)
	return nil
}

// run performs a single run of query q in a group of n workers.
func (r *Runner) run(ctx context.Context, reader tableio.Reader, q pipeline.Query, n, run int) (collect.Aggregate, error) {
	out := r.Config.OutputDirFor(n)
	pattern := collect.ArtifactPattern(out, q.Name)
	if err := removeAll(ctx, pattern); err != nil {
		return collect.Aggregate{}, err
	}
	var group *status.Group
	if r.Status != nil {
		group = r.Status.Groupf("%s: %d workers: run %d", q.Name, n, run)
		defer group.Printf("done")
	}
	opts := pipeline.Options{
		Clock:    r.Clock,
		Unranked: n == 1,
		Status:   group,
	}
	err := exec.NewGroup(n, exec.Clock(r.Clock)).Run(ctx, func(ctx context.Context, eng engine.Engine) error {
		res, err := pipeline.Run(ctx, eng, reader, q, opts)
		if err != nil {
			return err
		}
		rank := eng.Rank()
		if rank == 0 {
			log.Debug.Printf("%s: worker 0 stats: %s", q.Name, res.Stats)
			if res.Table != nil {
				if err := writeResults(ctx, ResultsPath(out, q.Name), res.Table); err != nil {
					return err
				}
			}
		}
		return collect.WriteRecord(ctx, collect.ArtifactPath(out, q.Name, rank), collect.Record{Rank: rank, Values: res.Values})
	})
	if err != nil {
		return collect.Aggregate{}, err
	}
	agg, err := collect.Collector{Ledger: LedgerPath(out, q.Name)}.Collect(ctx, pattern, n)
	if err != nil {
		return collect.Aggregate{}, err
	}
	return agg, removeAll(ctx, pattern)
}

// writeResults writes the rows of t, preceded by a header of column
// names, to the comma-separated file at path.
func writeResults(ctx context.Context, path string, t *table.Table) (err error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(ctx); err == nil && cerr != nil {
			err = cerr
		}
	}()
	w := sliceio.NewDelimitedWriter(f.Writer(ctx), ',')
	if err := w.WriteHeader(t.Schema.Names()); err != nil {
		return err
	}
	if err := w.Write(ctx, t.Frame); err != nil {
		return err
	}
	return w.Flush()
}

// removeAll removes the files matching pattern.
func removeAll(ctx context.Context, pattern string) error {
	paths, err := collect.Glob(ctx, pattern)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := file.Remove(ctx, path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Summary is the mean of a query's ledger rows for one worker count.
type Summary struct {
	Query   string
	Workers int
	Runs    int
	Means   []float64
}

// Summarize summarizes the ledgers of the configured queries and
// worker counts. Ledgers that do not exist are skipped.
func Summarize(ctx context.Context, cfg *Config) ([]Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var summaries []Summary
	for _, n := range cfg.Workers {
		for _, name := range cfg.Queries {
			rows, err := collect.ReadLedger(ctx, LedgerPath(cfg.OutputDirFor(n), name))
			if errors.Is(errors.NotExist, err) || os.IsNotExist(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			means, err := collect.Summarize(rows)
			if err != nil {
				return nil, err
			}
			summaries = append(summaries, Summary{name, n, len(rows), means})
		}
	}
	return summaries, nil
}
