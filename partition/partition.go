// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package partition maps tables and worker identities to the
// partition files the worker must read.
//
// The data tree holds one directory per table; each directory holds
// one file per worker shard:
//
//	<root>/<table>/<table>_<shard>.<ext>
//
// Shards are numbered from 1. When the worker group has 10 or more
// workers, shard numbers are zero-padded to two digits, except for
// ranks above 8, whose shard numbers already have two digits. A
// parallel refresh tree, obtained by replacing the "data" path
// segment with "data_refresh", holds the refresh phase partitions of
// the refresh tables.
package partition

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/bigbench"
)

const (
	// Unranked is the rank used in single-process mode, when a
	// single process reads every table whole.
	Unranked = -1

	// DefaultExt is the file extension of generated partitions.
	DefaultExt = "dat"

	// DefaultBaseSegment and DefaultRefreshSegment are the path
	// segments that distinguish base data from refresh data.
	DefaultBaseSegment    = "data"
	DefaultRefreshSegment = "data_refresh"
)

// A Spec identifies the partition a worker reads for a table.
type Spec struct {
	// Table is the table to read.
	Table bigbench.Table
	// Rank is the zero-based rank of the worker, or Unranked.
	Rank int
	// NumWorkers is the size of the worker group.
	NumWorkers int
	// Ext is the partition file extension. DefaultExt is used if it
	// is empty.
	Ext string
}

func (s Spec) String() string {
	if s.Rank == Unranked {
		return fmt.Sprintf("%s[*]", s.Table)
	}
	return fmt.Sprintf("%s[%d/%d]", s.Table, s.Rank, s.NumWorkers)
}

// A Resolver computes partition paths beneath a data root. The
// zero Resolver is not usable; construct one with New or by
// providing at least Root.
type Resolver struct {
	// Root is the root of the base data tree.
	Root string
	// BaseSegment is the path segment of Root that is substituted
	// to find the refresh tree. DefaultBaseSegment is used if it is
	// empty.
	BaseSegment string
	// RefreshSegment replaces BaseSegment in refresh paths.
	// DefaultRefreshSegment is used if it is empty.
	RefreshSegment string
}

// New returns a resolver for the data tree rooted at root with the
// default path segments.
func New(root string) *Resolver {
	return &Resolver{Root: root}
}

// Resolve returns the paths of the partition files identified by
// spec. The first path is the table's base partition. Refresh tables
// have a second path, the refresh partition with the same shard.
//
// Resolve applies these rules in order:
//
//	1. Unranked specs read the unsuffixed file <table>.<ext>.
//	2. Broadcast tables read shard 1 in every worker: "_01" if the
//	   group has 10 or more workers, "_1" otherwise.
//	3. Other tables read the worker's own shard rank+1.
//	4. Refresh tables additionally read the refresh partition.
//
// Resolve fails with bigbench.ErrUnknownTable if spec names an
// unknown table, and with bigbench.ErrBadPartition if the rank is out
// of range for the group.
func (r *Resolver) Resolve(spec Spec) ([]string, error) {
	if !spec.Table.Valid() {
		return nil, errors.E(errors.NotExist, bigbench.ErrUnknownTable, fmt.Sprintf("table %q", spec.Table))
	}
	if spec.Rank != Unranked && (spec.NumWorkers < 1 || spec.Rank < 0 || spec.Rank >= spec.NumWorkers) {
		return nil, errors.E(errors.Invalid, bigbench.ErrBadPartition,
			fmt.Sprintf("%s: rank %d out of range for %d workers", spec, spec.Rank, spec.NumWorkers))
	}
	ext := strings.TrimPrefix(spec.Ext, ".")
	if ext == "" {
		ext = DefaultExt
	}
	name := string(spec.Table)
	if spec.Rank != Unranked {
		name += Suffix(spec.Table, spec.Rank, spec.NumWorkers)
	}
	paths := []string{file.Join(r.Root, string(spec.Table), name+"."+ext)}
	if IsRefresh(spec.Table) {
		path, err := r.refreshPath(paths[0])
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Suffix returns the shard suffix of the partition of table read by
// the worker with the provided rank in a group of nworkers.
func Suffix(table bigbench.Table, rank, nworkers int) string {
	switch {
	case IsBroadcast(table) && nworkers < 10:
		return "_1"
	case IsBroadcast(table):
		return "_01"
	// Ranks above 8 have two-digit shard numbers. Groups of 100 or
	// more workers are not padded further.
	case nworkers < 10 || rank > 8:
		return fmt.Sprintf("_%d", rank+1)
	default:
		return fmt.Sprintf("_0%d", rank+1)
	}
}

// refreshPath substitutes the last base segment of path with the
// refresh segment.
func (r *Resolver) refreshPath(path string) (string, error) {
	base, refresh := r.BaseSegment, r.RefreshSegment
	if base == "" {
		base = DefaultBaseSegment
	}
	if refresh == "" {
		refresh = DefaultRefreshSegment
	}
	seg := "/" + base + "/"
	i := strings.LastIndex(path, seg)
	if i < 0 {
		return "", errors.E(errors.Invalid, bigbench.ErrBadPartition,
			fmt.Sprintf("partition %s: no %q path segment to substitute for refresh data", path, base))
	}
	return path[:i] + "/" + refresh + "/" + path[i+len(seg):], nil
}
