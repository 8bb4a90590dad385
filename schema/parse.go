// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package schema

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigbench"
)

// Parse parses a schema description for the provided table. Each
// non-blank line of the description holds a column definition of the
// form
//
//	name type[(precision[,scale])][,]
//
// Commas are removed before the line is split on whitespace, and the
// line must then contain exactly two tokens. Type names are
// normalized: bigint becomes int, string becomes str, and any
// decimal(p,s) becomes float.
func Parse(table bigbench.Table, r io.Reader) (Schema, error) {
	var (
		scan   = bufio.NewScanner(r)
		schema Schema
		lineno int
		seen   = make(map[string]bool)
	)
	for scan.Scan() {
		lineno++
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(strings.Replace(line, ",", "", -1))
		if len(fields) != 2 {
			return nil, parseError(table, lineno, "expected 2 fields, got %d: %q", len(fields), line)
		}
		typ, err := ParseType(fields[1])
		if err != nil {
			return nil, parseError(table, lineno, "%v", err)
		}
		name := fields[0]
		if seen[name] {
			return nil, parseError(table, lineno, "duplicate column %q", name)
		}
		seen[name] = true
		schema = append(schema, Column{Name: name, Type: typ})
	}
	if err := scan.Err(); err != nil {
		return nil, errors.E(err, fmt.Sprintf("schema %s", table))
	}
	if len(schema) == 0 {
		return nil, parseError(table, lineno, "no columns")
	}
	return schema, nil
}

// ParseType returns the semantic type of a column type name as it
// appears in a schema description.
func ParseType(name string) (Type, error) {
	base := strings.ToLower(name)
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = base[:i]
	}
	switch base {
	case "bigint", "int", "integer", "smallint", "tinyint":
		return Int, nil
	case "string", "str", "char", "varchar", "date", "timestamp":
		return String, nil
	case "decimal", "double", "float":
		return Float, nil
	}
	return 0, fmt.Errorf("unknown column type %q", name)
}

func parseError(table bigbench.Table, lineno int, format string, args ...interface{}) error {
	return errors.E(errors.Invalid, bigbench.ErrSchemaParse,
		fmt.Sprintf("schema %s:%d: %s", table, lineno, fmt.Sprintf(format, args...)))
}
