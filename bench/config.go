// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bench

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/config"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigbench/partition"
	"github.com/grailbio/bigbench/query"
	"github.com/grailbio/bigbench/tableio"
)

// WorkersVar is substituted with the worker count in the data and
// output directories of a Config.
const WorkersVar = "{workers}"

// Config describes a series of benchmark runs.
type Config struct {
	// DataDir is the root of the base data tree. Occurrences of
	// WorkersVar are replaced with the worker count, so that each
	// worker count can read a data set partitioned for it.
	DataDir string
	// BaseSegment and RefreshSegment are the path segments that
	// distinguish base data from refresh data. The partition
	// package defaults are used if they are empty.
	BaseSegment, RefreshSegment string
	// SchemaDir is the directory of table schema files.
	SchemaDir string
	// RefreshSchemaDir, if set, is the directory of the schema
	// files of refresh partitions. Refresh partitions use the
	// schemas in SchemaDir otherwise.
	RefreshSchemaDir string
	// OutputDir is the directory of result files, artifacts and
	// ledgers. WorkersVar is substituted as in DataDir.
	OutputDir string
	// Format is the format of the partition files.
	Format tableio.Format
	// Ext is the partition file extension.
	Ext string
	// Workers lists the worker counts to run.
	Workers []int
	// Runs is the number of times each query runs per worker count.
	Runs int
	// Queries lists the queries to run. All queries run if it is
	// empty.
	Queries []string
}

func init() {
	config.Register("bigbench", func(inst *config.Constructor) {
		var (
			cfg     = Config{Runs: 1}
			format  string
			workers string
			queries string
		)
		inst.StringVar(&cfg.DataDir, "data-dir", "", "root of the data tree; "+WorkersVar+" is replaced with the worker count")
		inst.StringVar(&cfg.BaseSegment, "base-segment", partition.DefaultBaseSegment, "path segment of base data")
		inst.StringVar(&cfg.RefreshSegment, "refresh-segment", partition.DefaultRefreshSegment, "path segment of refresh data")
		inst.StringVar(&cfg.SchemaDir, "schema-dir", "", "directory of table schemas")
		inst.StringVar(&cfg.RefreshSchemaDir, "refresh-schema-dir", "", "directory of refresh partition schemas; schema-dir if empty")
		inst.StringVar(&cfg.OutputDir, "output-dir", "", "directory of benchmark results")
		inst.StringVar(&format, "format", "csv", "partition file format")
		inst.StringVar(&cfg.Ext, "ext", partition.DefaultExt, "partition file extension")
		inst.StringVar(&workers, "workers", "1", "comma-separated list of worker counts")
		inst.IntVar(&cfg.Runs, "runs", 1, "number of runs of each query")
		inst.StringVar(&queries, "queries", "", "comma-separated list of queries; all queries if empty")
		inst.Doc = "bigbench configures benchmark runs"
		inst.New = func() (interface{}, error) {
			var err error
			if cfg.Format, err = tableio.ParseFormat(format); err != nil {
				return nil, err
			}
			if cfg.Workers, err = parseInts(workers); err != nil {
				return nil, err
			}
			cfg.Queries = splitList(queries)
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return &cfg, nil
		}
	})
}

// Validate checks that the configuration is complete and names
// only known queries. Validate fills in the default query list.
func (c *Config) Validate() error {
	switch {
	case c.DataDir == "":
		return errors.E(errors.Invalid, "bigbench: no data directory")
	case c.SchemaDir == "":
		return errors.E(errors.Invalid, "bigbench: no schema directory")
	case c.OutputDir == "":
		return errors.E(errors.Invalid, "bigbench: no output directory")
	case len(c.Workers) == 0:
		return errors.E(errors.Invalid, "bigbench: no worker counts")
	case c.Runs < 1:
		return errors.E(errors.Invalid, fmt.Sprintf("bigbench: invalid number of runs %d", c.Runs))
	}
	for _, n := range c.Workers {
		if n < 1 {
			return errors.E(errors.Invalid, fmt.Sprintf("bigbench: invalid worker count %d", n))
		}
	}
	if len(c.Queries) == 0 {
		c.Queries = query.Names()
	}
	for _, name := range c.Queries {
		if _, err := query.Lookup(name); err != nil {
			return err
		}
	}
	return nil
}

// DataDirFor returns the data directory for runs of n workers.
func (c *Config) DataDirFor(n int) string {
	return strings.Replace(c.DataDir, WorkersVar, strconv.Itoa(n), -1)
}

// OutputDirFor returns the output directory for runs of n workers.
func (c *Config) OutputDirFor(n int) string {
	return strings.Replace(c.OutputDir, WorkersVar, strconv.Itoa(n), -1)
}

func splitList(s string) []string {
	var list []string
	for _, elem := range strings.Split(s, ",") {
		if elem = strings.TrimSpace(elem); elem != "" {
			list = append(list, elem)
		}
	}
	return list
}

func parseInts(s string) ([]int, error) {
	var ints []int
	for _, elem := range splitList(s) {
		n, err := strconv.Atoi(elem)
		if err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("bigbench: bad worker count %q", elem), err)
		}
		ints = append(ints, n)
	}
	return ints, nil
}
