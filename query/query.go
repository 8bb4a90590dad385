// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package query defines the benchmark's battery of TPCx-BB queries
// as pipelines.
package query

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigbench/engine"
	"github.com/grailbio/bigbench/pipeline"
)

var queries = map[string]func() pipeline.Query{
	"q06":  Q06,
	"q07":  Q07,
	"q09":  Q09,
	"q14":  Q14,
	"q22":  Q22,
	"q23":  Q23,
	"join": Join,
}

// Lookup returns the query with the provided name.
func Lookup(name string) (pipeline.Query, error) {
	q, ok := queries[name]
	if !ok {
		return pipeline.Query{}, errors.E(errors.NotExist, fmt.Sprintf("query %q does not exist", name))
	}
	return q(), nil
}

// Names returns the names of the queries, in order.
func Names() []string {
	names := make([]string, 0, len(queries))
	for name := range queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func on(left, right string) engine.JoinSpec {
	return engine.On([]string{left}, []string{right})
}

func sum(col, as string) engine.Aggregation {
	return engine.Aggregation{Column: col, Op: engine.Sum, As: as}
}
