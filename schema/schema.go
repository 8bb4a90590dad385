// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package schema describes the columns of the benchmark's tables and
// implements a catalog that loads them from schema description
// resources.
package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigbench"
)

// A Type is the semantic type of a column.
type Type int

const (
	// Int columns hold 64-bit integers.
	Int Type = iota
	// String columns hold strings.
	String
	// Float columns hold 64-bit floating point values.
	Float
)

var (
	typeOfInt    = reflect.TypeOf(int64(0))
	typeOfString = reflect.TypeOf("")
	typeOfFloat  = reflect.TypeOf(float64(0))
)

// Reflect returns the Go type used to store values of type t.
func (t Type) Reflect() reflect.Type {
	switch t {
	case Int:
		return typeOfInt
	case String:
		return typeOfString
	case Float:
		return typeOfFloat
	}
	panic(fmt.Sprintf("schema: invalid type %d", t))
}

// Numeric tells whether t is a numeric type.
func (t Type) Numeric() bool { return t == Int || t == Float }

// String returns the name of the type as it appears in normalized
// schema descriptions.
func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case String:
		return "str"
	case Float:
		return "float"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// A Column is a named, typed column.
type Column struct {
	Name string
	Type Type
}

func (c Column) String() string { return c.Name + " " + c.Type.String() }

// A Schema is an ordered list of columns. The position of a column
// defines its position in the table's partition files.
type Schema []Column

// Len returns the number of columns in the schema.
func (s Schema) Len() int { return len(s) }

// NumOut returns the number of columns. Together with Out, it lets
// a schema describe the shape of a frame.
func (s Schema) NumOut() int { return len(s) }

// Out returns the Go type of column i.
func (s Schema) Out(i int) reflect.Type { return s[i].Type.Reflect() }

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i := range s {
		names[i] = s[i].Name
	}
	return names
}

// Types returns the column types in order.
func (s Schema) Types() []Type {
	types := make([]Type, len(s))
	for i := range s {
		types[i] = s[i].Type
	}
	return types
}

// Index returns the position of the named column, or -1 if the
// schema has no such column.
func (s Schema) Index(name string) int {
	for i := range s {
		if s[i].Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the position of the named column. Lookup fails
// with bigbench.ErrUnknownColumn if there is no such column.
func (s Schema) Lookup(name string) (int, error) {
	i := s.Index(name)
	if i < 0 {
		return -1, errors.E(errors.Invalid, bigbench.ErrUnknownColumn,
			fmt.Sprintf("column %q not in %s", name, s))
	}
	return i, nil
}

// Project returns the positions of the provided columns in schema
// order, so that projections never reorder a table. Project fails
// with bigbench.ErrUnknownColumn if a name does not exist.
func (s Schema) Project(names []string) ([]int, error) {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if s.Index(name) < 0 {
			return nil, errors.E(errors.Invalid, bigbench.ErrUnknownColumn,
				fmt.Sprintf("column %q not in %s", name, s))
		}
		want[name] = true
	}
	index := make([]int, 0, len(want))
	for i := range s {
		if want[s[i].Name] {
			index = append(index, i)
		}
	}
	return index, nil
}

// Select returns the sub-schema of the columns at the provided
// positions.
func (s Schema) Select(index []int) Schema {
	sub := make(Schema, len(index))
	for i, j := range index {
		sub[i] = s[j]
	}
	return sub
}

// Equal tells whether schemas s and u have the same columns in the
// same order.
func (s Schema) Equal(u Schema) bool {
	if len(s) != len(u) {
		return false
	}
	for i := range s {
		if s[i] != u[i] {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	cols := make([]string, len(s))
	for i := range s {
		cols[i] = s[i].String()
	}
	return "(" + strings.Join(cols, ", ") + ")"
}
