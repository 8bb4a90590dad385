// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Command bigbench runs the TPCx-BB query benchmark and inspects its
// data sets.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/config"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
	"github.com/grailbio/base/status"
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/bench"
	"github.com/grailbio/bigbench/partition"
	"github.com/grailbio/bigbench/schema"
)

// Path is the location of the default configuration profile.
var Path = os.ExpandEnv("$HOME/.bigbench/config")

func init() {
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `usage: bigbench [flags] command args...

Command bigbench runs the benchmark's queries against a partitioned
TPCx-BB data set. The benchmark is configured by the "bigbench"
profile instance, which may be set with the -set flag, for example:

	bigbench -set bigbench.data-dir=/data/{workers}/data \
		-set bigbench.schema-dir=/data/schemas \
		-set bigbench.output-dir=/results \
		-set bigbench.workers=1,2,4 run

Available commands are:

	run
		Run the configured queries and append their results to the
		ledgers in the output directory.
	summarize
		Print the mean of each ledger in the output directory.
	tables
		List the data set's tables and their partitioning.
	schema table
		Print the schema of a table.
	resolve table rank nworkers
		Print the partition files read by a worker.

The flags are:
`)
		flag.PrintDefaults()
		os.Exit(2)
	}
	consoleStatus := flag.Bool("status", false, "print run status to stdout")
	config.RegisterFlags("", Path)
	log.AddFlags()
	flag.Parse()
	must.Nil(config.ProcessFlags())
	if flag.NArg() == 0 {
		flag.Usage()
	}

	ctx := context.Background()
	cmd, args := flag.Arg(0), flag.Args()[1:]
	var err error
	switch cmd {
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", cmd)
		flag.Usage()
	case "run":
		var cfg *bench.Config
		config.Must("bigbench", &cfg)
		r := &bench.Runner{Config: cfg, Status: new(status.Status)}
		if *consoleStatus {
			var console status.Reporter
			go console.Go(os.Stdout, r.Status)
		}
		err = r.Run(ctx)
	case "summarize":
		var cfg *bench.Config
		config.Must("bigbench", &cfg)
		err = summarize(ctx, cfg)
	case "tables":
		tables()
	case "schema":
		var cfg *bench.Config
		config.Must("bigbench", &cfg)
		err = printSchema(ctx, cfg, args)
	case "resolve":
		var cfg *bench.Config
		config.Must("bigbench", &cfg)
		err = resolve(cfg, args)
	}
	must.Nil(err, cmd)
}

func summarize(ctx context.Context, cfg *bench.Config) error {
	summaries, err := bench.Summarize(ctx, cfg)
	if err != nil {
		return err
	}
	var tw tabwriter.Writer
	tw.Init(os.Stdout, 4, 4, 1, ' ', 0)
	fmt.Fprintln(&tw, "query\tworkers\truns\tmeans")
	for _, s := range summaries {
		means := make([]string, len(s.Means))
		for i, m := range s.Means {
			means[i] = fmt.Sprintf("%.2f", m)
		}
		fmt.Fprintf(&tw, "%s\t%d\t%d\t%s\n", s.Query, s.Workers, s.Runs, strings.Join(means, ","))
	}
	return tw.Flush()
}

func tables() {
	var tw tabwriter.Writer
	tw.Init(os.Stdout, 4, 4, 1, ' ', 0)
	fmt.Fprintln(&tw, "table\tbroadcast\trefresh\tsmall")
	for _, tab := range bigbench.Tables {
		fmt.Fprintf(&tw, "%s\t%t\t%t\t%t\n", tab,
			partition.IsBroadcast(tab), partition.IsRefresh(tab), partition.IsSmall(tab))
	}
	tw.Flush()
}

func printSchema(ctx context.Context, cfg *bench.Config, args []string) error {
	if len(args) != 1 {
		flag.Usage()
	}
	tab, err := bigbench.ParseTable(args[0])
	if err != nil {
		return err
	}
	s, err := schema.NewCatalog(cfg.SchemaDir).Schema(ctx, tab)
	if err != nil {
		return err
	}
	for _, col := range s {
		fmt.Println(col)
	}
	return nil
}

func resolve(cfg *bench.Config, args []string) error {
	if len(args) != 3 {
		flag.Usage()
	}
	tab, err := bigbench.ParseTable(args[0])
	if err != nil {
		return err
	}
	nworkers, err := strconv.Atoi(args[2])
	if err != nil {
		return err
	}
	rank := partition.Unranked
	if args[1] != "*" {
		if rank, err = strconv.Atoi(args[1]); err != nil {
			return err
		}
	}
	r := &partition.Resolver{
		Root:           cfg.DataDirFor(nworkers),
		BaseSegment:    cfg.BaseSegment,
		RefreshSegment: cfg.RefreshSegment,
	}
	paths, err := r.Resolve(partition.Spec{Table: tab, Rank: rank, NumWorkers: nworkers, Ext: cfg.Ext})
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Println(path)
	}
	return nil
}
