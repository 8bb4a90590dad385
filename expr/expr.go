// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package expr implements the scalar expressions used by query
// predicates and derived columns. Expressions are built from column
// references, literals, comparisons, boolean connectives and
// arithmetic. They are bound to a schema before evaluation, which
// checks column references and operand types, and are then
// evaluated a frame at a time.
//
// Expressions follow SQL NULL semantics: comparisons with NULL are
// false, NULL is false in boolean contexts and arithmetic with NULL
// yields NULL. Booleans are integers, 1 for true and 0 for false.
package expr

import (
	"fmt"
	"math"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/frame"
	"github.com/grailbio/bigbench/schema"
)

// An Expr is a scalar expression over the columns of a table.
type Expr interface {
	fmt.Stringer
	bind(s schema.Schema) (bound, error)
}

// A bound expression has a result type and evaluates to a column
// with one value per row of the frame.
type bound struct {
	typ  schema.Type
	eval func(f frame.Frame) frame.Column
}

// A Program is an expression bound to a schema.
type Program struct {
	// Type is the expression's result type.
	Type schema.Type

	expr Expr
	eval func(f frame.Frame) frame.Column
}

// Bind binds expression e to the schema s. Bind fails with
// bigbench.ErrUnknownColumn if e references a column that s does not
// have, and with bigbench.ErrTypeMismatch if operand types are
// incompatible, for example when a string column is compared with a
// numeric literal.
func Bind(e Expr, s schema.Schema) (*Program, error) {
	b, err := e.bind(s)
	if err != nil {
		return nil, errors.E(fmt.Sprintf("expression %s", e), err)
	}
	return &Program{Type: b.typ, expr: e, eval: b.eval}, nil
}

// BindPredicate binds e as a predicate. Predicates must be numeric;
// nonzero values that are not NULL select rows.
func BindPredicate(e Expr, s schema.Schema) (*Program, error) {
	p, err := Bind(e, s)
	if err != nil {
		return nil, err
	}
	if !p.Type.Numeric() {
		return nil, typeError("predicate %s has type %s", e, p.Type)
	}
	return p, nil
}

func (p *Program) String() string { return p.expr.String() }

// Eval evaluates the program over the rows of f, which must have the
// schema the program was bound to.
func (p *Program) Eval(f frame.Frame) frame.Column {
	return p.eval(f)
}

// Select returns the indices of the rows of f for which the
// program, which must be numeric, is true.
func (p *Program) Select(f frame.Frame) []int {
	truth := truthOf(p.eval(f))
	var index []int
	for i, ok := range truth {
		if ok {
			index = append(index, i)
		}
	}
	return index
}

func typeError(format string, args ...interface{}) error {
	return errors.E(errors.Invalid, bigbench.ErrTypeMismatch, fmt.Sprintf(format, args...))
}

type column string

// Col returns a reference to the named column.
func Col(name string) Expr { return column(name) }

func (c column) String() string { return string(c) }

func (c column) bind(s schema.Schema) (bound, error) {
	i, err := s.Lookup(string(c))
	if err != nil {
		return bound{}, err
	}
	return bound{s[i].Type, func(f frame.Frame) frame.Column { return f[i] }}, nil
}

type literal struct {
	typ schema.Type
	i   int64
	f   float64
	s   string
}

// Int returns an integer literal.
func Int(v int64) Expr { return literal{typ: schema.Int, i: v} }

// Float returns a floating point literal.
func Float(v float64) Expr { return literal{typ: schema.Float, f: v} }

// Str returns a string literal.
func Str(v string) Expr { return literal{typ: schema.String, s: v} }

// Bool returns the integer literal 1 if v is true, 0 otherwise.
func Bool(v bool) Expr {
	if v {
		return Int(1)
	}
	return Int(0)
}

// Null returns a NULL literal of type typ.
func Null(typ schema.Type) Expr {
	switch typ {
	case schema.Int:
		return Int(frame.NullInt)
	case schema.Float:
		return Float(math.NaN())
	}
	return Str("")
}

func (l literal) String() string {
	switch l.typ {
	case schema.Int:
		if l.i == frame.NullInt {
			return "NULL"
		}
		return fmt.Sprint(l.i)
	case schema.Float:
		if math.IsNaN(l.f) {
			return "NULL"
		}
		return fmt.Sprint(l.f)
	}
	return fmt.Sprintf("%q", l.s)
}

func (l literal) bind(s schema.Schema) (bound, error) {
	return bound{l.typ, func(f frame.Frame) frame.Column {
		n := f.Len()
		switch l.typ {
		case schema.Int:
			vals := make([]int64, n)
			for i := range vals {
				vals[i] = l.i
			}
			return frame.ColumnOf(vals)
		case schema.Float:
			vals := make([]float64, n)
			for i := range vals {
				vals[i] = l.f
			}
			return frame.ColumnOf(vals)
		}
		vals := make([]string, n)
		for i := range vals {
			vals[i] = l.s
		}
		return frame.ColumnOf(vals)
	}}, nil
}

func join(exprs []Expr, sep string) string {
	strs := make([]string, len(exprs))
	for i, e := range exprs {
		strs[i] = e.String()
	}
	return strings.Join(strs, sep)
}

// truthOf returns the truth values of a numeric column. NULL values
// are false.
func truthOf(c frame.Column) []bool {
	truth := make([]bool, c.Len())
	switch vals := c.Interface().(type) {
	case []int64:
		for i, v := range vals {
			truth[i] = v != 0 && v != frame.NullInt
		}
	case []float64:
		for i, v := range vals {
			truth[i] = v != 0 && !math.IsNaN(v)
		}
	default:
		panic(fmt.Sprintf("expr: truth of non-numeric column %s", c.Type()))
	}
	return truth
}

func boolColumn(truth []bool) frame.Column {
	vals := make([]int64, len(truth))
	for i, ok := range truth {
		if ok {
			vals[i] = 1
		}
	}
	return frame.ColumnOf(vals)
}

// floatsOf returns the values of a numeric column as floats. NULL
// integers become NaN.
func floatsOf(c frame.Column) []float64 {
	switch vals := c.Interface().(type) {
	case []float64:
		return vals
	case []int64:
		fs := make([]float64, len(vals))
		for i, v := range vals {
			if v == frame.NullInt {
				fs[i] = math.NaN()
			} else {
				fs[i] = float64(v)
			}
		}
		return fs
	}
	panic(fmt.Sprintf("expr: non-numeric column %s", c.Type()))
}
