// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package schema

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/bigbench"
)

// Ext is the file extension of schema description resources.
const Ext = ".schema"

// A Catalog loads table schemas from a directory of schema
// description resources, one per table, named "<table>.schema".
// The directory may be any path supported by
// github.com/grailbio/base/file, including S3 URLs. Schemas are
// parsed once and cached. Catalogs are safe for concurrent use.
type Catalog struct {
	dir string

	mu      sync.Mutex
	schemas map[bigbench.Table]Schema
}

// NewCatalog returns a catalog that reads schema descriptions from
// the provided directory.
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir, schemas: make(map[bigbench.Table]Schema)}
}

// Path returns the path of the schema description of table.
func (c *Catalog) Path(table bigbench.Table) string {
	return file.Join(c.dir, string(table)+Ext)
}

// Schema returns the schema of the provided table. It fails with
// bigbench.ErrUnknownTable if table is not a benchmark table, with
// bigbench.ErrSchemaNotFound if the table has no schema resource and
// with bigbench.ErrSchemaParse if the resource is malformed.
func (c *Catalog) Schema(ctx context.Context, table bigbench.Table) (Schema, error) {
	if !table.Valid() {
		return nil, errors.E(errors.NotExist, bigbench.ErrUnknownTable, fmt.Sprintf("table %q", table))
	}
	c.mu.Lock()
	schema, ok := c.schemas[table]
	c.mu.Unlock()
	if ok {
		return schema, nil
	}
	schema, err := c.load(ctx, table)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.schemas[table] = schema
	c.mu.Unlock()
	return schema, nil
}

// Preload loads the schemas of the provided tables in parallel so
// that later lookups do not touch storage.
func (c *Catalog) Preload(ctx context.Context, tables ...bigbench.Table) error {
	return traverse.Each(len(tables), func(i int) error {
		_, err := c.Schema(ctx, tables[i])
		return err
	})
}

func (c *Catalog) load(ctx context.Context, table bigbench.Table) (schema Schema, err error) {
	path := c.Path(table)
	f, err := file.Open(ctx, path)
	if err != nil {
		if errors.Is(errors.NotExist, err) || os.IsNotExist(err) {
			return nil, errors.E(errors.NotExist, bigbench.ErrSchemaNotFound,
				fmt.Sprintf("schema %s: %s", table, path))
		}
		return nil, err
	}
	defer func() {
		if cerr := f.Close(ctx); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return Parse(table, f.Reader(ctx))
}
