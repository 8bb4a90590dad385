// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package collect

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/bigbench"
)

// An Aggregate is the result of a complete run: the mean of each
// measurement across the records of all of its workers.
type Aggregate struct {
	// Workers is the number of records that were averaged.
	Workers int
	// Means holds the mean of each measurement.
	Means []float64
}

// String returns the ledger encoding of the aggregate.
func (a Aggregate) String() string {
	return formatRow(a.Means)
}

// A Collector collects the records of completed runs into a ledger.
type Collector struct {
	// Ledger is the path of the cumulative ledger. Each successful
	// collection appends one row to it.
	Ledger string
}

// Collect reads every artifact matching pattern and aggregates their
// records. Collect fails with ErrWorkerCountMismatch if the number of
// records is not want, or if two records carry the same rank. The
// ledger is appended to only when collection succeeds.
func (c Collector) Collect(ctx context.Context, pattern string, want int) (Aggregate, error) {
	paths, err := Glob(ctx, pattern)
	if err != nil {
		return Aggregate{}, err
	}
	records := make([]Record, len(paths))
	err = traverse.Each(len(paths), func(i int) error {
		var err error
		records[i], err = ReadRecord(ctx, paths[i])
		return err
	})
	if err != nil {
		return Aggregate{}, err
	}
	agg, err := aggregate(records, want)
	if err != nil {
		return Aggregate{}, errors.E(fmt.Sprintf("collect %s", pattern), err)
	}
	if c.Ledger != "" {
		if err := appendLedger(ctx, c.Ledger, agg); err != nil {
			return Aggregate{}, err
		}
		log.Debug.Printf("collect %s: appended %s to %s", pattern, agg, c.Ledger)
	}
	return agg, nil
}

func aggregate(records []Record, want int) (Aggregate, error) {
	ranks := make(map[int]bool, len(records))
	for _, rec := range records {
		if ranks[rec.Rank] {
			return Aggregate{}, errors.E(errors.Precondition, bigbench.ErrWorkerCountMismatch,
				fmt.Sprintf("duplicate records for rank %d", rec.Rank))
		}
		ranks[rec.Rank] = true
	}
	if len(records) != want {
		return Aggregate{}, errors.E(errors.Precondition, bigbench.ErrWorkerCountMismatch,
			fmt.Sprintf("got %d records, want %d", len(records), want))
	}
	if want == 0 {
		return Aggregate{}, nil
	}
	n := len(records[0].Values)
	sums := make([]float64, n)
	for _, rec := range records {
		if len(rec.Values) != n {
			return Aggregate{}, malformed("rank %d has %d measurements, rank %d has %d",
				rec.Rank, len(rec.Values), records[0].Rank, n)
		}
		for i, v := range rec.Values {
			sums[i] += v
		}
	}
	for i := range sums {
		sums[i] /= float64(len(records))
	}
	return Aggregate{Workers: len(records), Means: sums}, nil
}

// Glob returns the paths of the files that match pattern, in
// lexical order. Only the last element of pattern may contain
// wildcards, using the syntax of path.Match. A missing directory
// matches nothing.
func Glob(ctx context.Context, pattern string) ([]string, error) {
	dir, base := ".", pattern
	if i := strings.LastIndexByte(pattern, '/'); i >= 0 {
		dir, base = pattern[:i], pattern[i+1:]
	}
	if _, err := path.Match(base, ""); err != nil {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bad pattern %q", pattern), err)
	}
	var (
		paths  []string
		lister = file.List(ctx, dir, false)
	)
	for lister.Scan() {
		if lister.IsDir() {
			continue
		}
		if ok, _ := path.Match(base, path.Base(lister.Path())); ok {
			paths = append(paths, lister.Path())
		}
	}
	if err := lister.Err(); err != nil && !errors.Is(errors.NotExist, err) && !os.IsNotExist(err) {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func formatRow(vals []float64) string {
	fields := make([]string, len(vals))
	for i, v := range vals {
		fields[i] = fmt.Sprintf("%.2f", v)
	}
	return strings.Join(fields, ",")
}

// appendLedger appends the aggregate agg to the ledger at path,
// creating the ledger if it does not exist.
func appendLedger(ctx context.Context, path string, agg Aggregate) error {
	data, err := readFile(ctx, path)
	if err != nil && !errors.Is(errors.NotExist, err) && !os.IsNotExist(err) {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	data = append(data, agg.String()+"\n"...)
	return writeFile(ctx, path, data)
}

// ReadLedger returns the rows of the ledger at path.
func ReadLedger(ctx context.Context, path string) ([][]float64, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	var rows [][]float64
	for lineno, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		fields := strings.Split(string(line), ",")
		row := make([]float64, len(fields))
		for i, field := range fields {
			row[i], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.E(errors.Invalid, bigbench.ErrMalformedRecord,
					fmt.Sprintf("%s:%d: bad value %q", path, lineno+1, field))
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Summarize returns the mean of each column of the provided ledger
// rows, which must all have the same width.
func Summarize(rows [][]float64) ([]float64, error) {
	if len(rows) == 0 {
		return nil, errors.E(errors.Invalid, "no ledger rows to summarize")
	}
	means := make([]float64, len(rows[0]))
	for i, row := range rows {
		if len(row) != len(means) {
			return nil, errors.E(errors.Invalid, bigbench.ErrMalformedRecord,
				fmt.Sprintf("row %d has %d values, row 1 has %d", i+1, len(row), len(means)))
		}
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(rows))
	}
	return means, nil
}
