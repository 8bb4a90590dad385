// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigbench

import "github.com/grailbio/base/errors"

// Sentinel errors identify the failure classes of a benchmark run.
// They are carried as the underlying error of a *errors.Error, whose
// kind and message supply the details (table, path, counts). Use Is
// to test for them.
var (
	// Schema catalog.
	ErrSchemaNotFound = errors.New("schema not found")
	ErrSchemaParse    = errors.New("schema parse error")
	ErrUnknownColumn  = errors.New("unknown column")

	// Partition resolution.
	ErrUnknownTable = errors.New("unknown table")
	ErrBadPartition = errors.New("bad partition spec")

	// Table loading.
	ErrPartitionNotFound = errors.New("partition not found")
	ErrMalformedRow      = errors.New("malformed row")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrNotImplemented    = errors.New("not implemented")

	// Query pipeline. These originate in the relational engine and
	// are passed through unchanged.
	ErrEngine       = errors.New("engine error")
	ErrTypeMismatch = errors.New("type mismatch")

	// Result collection.
	ErrWorkerCountMismatch = errors.New("worker count mismatch")
	ErrMalformedRecord     = errors.New("malformed result record")
)

// Is tells whether err is, or was caused by, the error target. Is
// follows the chain of underlying errors of *errors.Error values.
func Is(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		e, ok := err.(*errors.Error)
		if !ok {
			return false
		}
		err = e.Err
	}
	return false
}
