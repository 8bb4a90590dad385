// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package tableio loads the partitions of benchmark tables into
// typed tables. A Reader combines a schema catalog, which supplies
// column names and types, and a partition resolver, which supplies
// the files a worker reads.
//
// Refresh tables are loaded as the union of their base and refresh
// partitions, base rows first. Broadcast tables, and all tables in
// single-process mode, load as replicated tables; all others load
// as sharded tables.
package tableio

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grailbio/base/compress/zstd"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/frame"
	"github.com/grailbio/bigbench/partition"
	"github.com/grailbio/bigbench/schema"
	"github.com/grailbio/bigbench/sliceio"
	"github.com/grailbio/bigbench/stats"
	"github.com/grailbio/bigbench/table"
	"github.com/klauspost/compress/gzip"
)

// openFile opens partition files.
var openFile = func(ctx context.Context, path string) (file.File, error) {
	return file.Open(ctx, path)
}

// A Reader loads benchmark tables.
type Reader interface {
	// Read loads the partition of table that the worker with the
	// provided rank reads in a group of nworkers. Rank may be
	// partition.Unranked to load the whole table in a single
	// process. If columns are given, only those columns are loaded,
	// in schema order.
	Read(ctx context.Context, tab bigbench.Table, rank, nworkers int, columns ...string) (*table.Table, error)
	// Tables returns the tables the reader can load.
	Tables() []bigbench.Table
}

// Options configures a Reader.
type Options struct {
	// Format is the format of the partition files.
	Format Format
	// Catalog supplies table schemas.
	Catalog *schema.Catalog
	// RefreshCatalog, if not nil, supplies the schemas of refresh
	// partitions, which must match those of Catalog. Refresh
	// partitions are decoded with the schemas of Catalog otherwise.
	RefreshCatalog *schema.Catalog
	// Resolver supplies partition paths.
	Resolver *partition.Resolver
	// Ext is the file extension of partition files. The default
	// extension of the format is used if it is empty.
	Ext string
	// Stats, if not nil, counts the rows and partitions read.
	Stats *stats.Map
}

// New returns a Reader for the format in opts. Parquet and ORC
// partitions are not supported: New fails for them with
// bigbench.ErrNotImplemented.
func New(opts Options) (Reader, error) {
	switch opts.Format {
	case CSV:
	case Parquet, ORC:
		return nil, errors.E(errors.NotSupported, bigbench.ErrNotImplemented,
			fmt.Sprintf("%s reader", opts.Format))
	default:
		return nil, errors.E(errors.Invalid, fmt.Sprintf("invalid format %s", opts.Format))
	}
	if opts.Catalog == nil || opts.Resolver == nil {
		return nil, errors.E(errors.Invalid, "tableio.New: catalog and resolver are required")
	}
	if opts.Ext == "" {
		opts.Ext = partition.DefaultExt
	}
	if opts.Stats == nil {
		opts.Stats = stats.NewMap()
	}
	return &csvReader{
		Options:    opts,
		rows:       opts.Stats.Int("rows"),
		partitions: opts.Stats.Int("partitions"),
	}, nil
}

type csvReader struct {
	Options
	rows, partitions *stats.Int
}

func (r *csvReader) Tables() []bigbench.Table {
	return append([]bigbench.Table(nil), bigbench.Tables...)
}

func (r *csvReader) Read(ctx context.Context, tab bigbench.Table, rank, nworkers int, columns ...string) (*table.Table, error) {
	base, err := r.Catalog.Schema(ctx, tab)
	if err != nil {
		return nil, err
	}
	paths, err := r.Resolver.Resolve(partition.Spec{Table: tab, Rank: rank, NumWorkers: nworkers, Ext: r.Ext})
	if err != nil {
		return nil, err
	}
	parts := make([]part, len(paths))
	for i, path := range paths {
		full := base
		if i > 0 && r.RefreshCatalog != nil {
			if full, err = r.RefreshCatalog.Schema(ctx, tab); err != nil {
				return nil, err
			}
		}
		index, err := project(full, columns)
		switch {
		case err != nil && i == 0:
			return nil, errors.E(fmt.Sprintf("table %s", tab), err)
		case err != nil:
			return nil, errors.E(errors.Invalid, bigbench.ErrSchemaMismatch,
				fmt.Sprintf("table %s: refresh partition %s: %v", tab, path, err))
		}
		parts[i].schema = full.Select(index)
		parts[i].frame, err = r.readPartition(ctx, path, full, index)
		if err != nil {
			return nil, err
		}
		log.Debug.Printf("tableio: %s: read %d rows from %s", tab, parts[i].frame.Len(), path)
	}
	f, err := union(ctx, tab, parts)
	if err != nil {
		return nil, err
	}
	dist := table.Sharded
	if rank == partition.Unranked || partition.IsBroadcast(tab) {
		dist = table.Replicated
	}
	return table.New(parts[0].schema, f, dist), nil
}

// project returns the positions in full of the named columns, or of
// every column if names is empty.
func project(full schema.Schema, names []string) ([]int, error) {
	if len(names) > 0 {
		return full.Project(names)
	}
	index := make([]int, len(full))
	for i := range index {
		index[i] = i
	}
	return index, nil
}

// readPartition decodes the projected columns of the partition at
// path.
func (r *csvReader) readPartition(ctx context.Context, path string, full schema.Schema, index []int) (out frame.Frame, err error) {
	f, err := openFile(ctx, path)
	if err != nil {
		if errors.Is(errors.NotExist, err) || os.IsNotExist(err) {
			return nil, errors.E(errors.NotExist, bigbench.ErrPartitionNotFound, fmt.Sprintf("partition %s", path))
		}
		return nil, err
	}
	defer func() {
		if cerr := f.Close(ctx); err == nil && cerr != nil {
			err = cerr
		}
	}()
	in, closeIn, err := decompress(path, f.Reader(ctx))
	if err != nil {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("partition %s", path), err)
	}
	defer closeIn()
	decoder := sliceio.NewDelimitedReader(in, full, sliceio.DelimitedOptions{Name: path, Columns: index})
	out, err = sliceio.ReadAll(ctx, decoder, full.Select(index))
	if err != nil {
		return nil, err
	}
	r.rows.Add(int64(out.Len()))
	r.partitions.Add(1)
	return out, nil
}

// A part is a decoded partition and the schema it was decoded with.
type part struct {
	schema schema.Schema
	frame  frame.Frame
}

// union concatenates the rows of parts, in order. Every part must
// have the schema of the first.
func union(ctx context.Context, tab bigbench.Table, parts []part) (frame.Frame, error) {
	if len(parts) == 1 {
		return parts[0].frame, nil
	}
	sch := parts[0].schema
	readers := make([]sliceio.Reader, len(parts))
	for i, p := range parts {
		if !p.schema.Equal(sch) {
			return nil, errors.E(errors.Invalid, bigbench.ErrSchemaMismatch,
				fmt.Sprintf("table %s: partition %d has schema %s, want %s", tab, i, p.schema, sch))
		}
		readers[i] = sliceio.FromFrame(p.frame)
	}
	return sliceio.ReadAll(ctx, sliceio.Concat(readers...), sch)
}

// decompress returns a reader of the decompressed contents of the
// file at path, as indicated by its extension.
func decompress(path string, r io.Reader) (io.Reader, func() error, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gz, gz.Close, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	}
	return r, func() error { return nil }, nil
}
