// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package collect implements the collection of benchmark results.
// Every worker of a run persists one Record to its own artifact; once
// the run has finished, a Collector reads the artifacts back, checks
// that exactly one record exists per worker, and appends the mean of
// each measurement to a cumulative ledger.
package collect

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/bigbench"
)

// A Record holds the measurements of a single worker for a single
// run of a query.
type Record struct {
	// Rank is the rank of the worker that produced the record.
	Rank int
	// Values are the worker's measurements, in seconds.
	Values []float64
}

// String returns the record's artifact encoding: the worker rank
// followed by its measurements, separated by commas.
func (r Record) String() string {
	fields := make([]string, len(r.Values)+1)
	fields[0] = strconv.Itoa(r.Rank)
	for i, v := range r.Values {
		fields[i+1] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(fields, ",")
}

// ParseRecord parses a record from its artifact encoding. The
// artifact must contain a single line with a rank and at least one
// measurement.
func ParseRecord(data []byte) (Record, error) {
	line := string(bytes.TrimSpace(data))
	if line == "" || strings.ContainsAny(line, "\n\r") {
		return Record{}, malformed("expected a single line, got %q", line)
	}
	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return Record{}, malformed("record %q has no measurements", line)
	}
	rank, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || rank < 0 {
		return Record{}, malformed("record %q: bad rank %q", line, fields[0])
	}
	rec := Record{Rank: rank, Values: make([]float64, len(fields)-1)}
	for i, field := range fields[1:] {
		rec.Values[i], err = strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return Record{}, malformed("record %q: bad measurement %q", line, field)
		}
	}
	return rec, nil
}

func malformed(format string, args ...interface{}) error {
	return errors.E(errors.Invalid, bigbench.ErrMalformedRecord, fmt.Sprintf(format, args...))
}

// ArtifactPath returns the path of the artifact written by the worker
// of the given rank for the named query.
func ArtifactPath(dir, query string, rank int) string {
	return file.Join(dir, fmt.Sprintf("%s-rank-%d.csv", query, rank))
}

// ArtifactPattern returns the pattern matching every artifact of the
// named query in dir.
func ArtifactPattern(dir, query string) string {
	return file.Join(dir, query+"-rank-*.csv")
}

// WriteRecord writes the record rec to the artifact at path,
// replacing any previous contents.
func WriteRecord(ctx context.Context, path string, rec Record) error {
	return writeFile(ctx, path, []byte(rec.String()+"\n"))
}

// ReadRecord reads the record stored in the artifact at path.
func ReadRecord(ctx context.Context, path string) (Record, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return Record{}, err
	}
	rec, err := ParseRecord(data)
	if err != nil {
		return Record{}, errors.E(path, err)
	}
	return rec, nil
}

func readFile(ctx context.Context, path string) (data []byte, err error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(ctx); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return ioutil.ReadAll(f.Reader(ctx))
}

func writeFile(ctx context.Context, path string, data []byte) (err error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(ctx); err == nil && cerr != nil {
			err = cerr
		}
	}()
	_, err = f.Writer(ctx).Write(data)
	return err
}
