// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/grailbio/bigbench/frame"
	"github.com/grailbio/bigbench/schema"
)

type cmpOp int

const (
	eq cmpOp = iota
	ne
	lt
	le
	gt
	ge
)

var cmpNames = [...]string{"=", "!=", "<", "<=", ">", ">="}

func (op cmpOp) holds(c int) bool {
	switch op {
	case eq:
		return c == 0
	case ne:
		return c != 0
	case lt:
		return c < 0
	case le:
		return c <= 0
	case gt:
		return c > 0
	}
	return c >= 0
}

type compare struct {
	op   cmpOp
	l, r Expr
}

// Eq returns the expression l = r.
func Eq(l, r Expr) Expr { return compare{eq, l, r} }

// Ne returns the expression l != r.
func Ne(l, r Expr) Expr { return compare{ne, l, r} }

// Lt returns the expression l < r.
func Lt(l, r Expr) Expr { return compare{lt, l, r} }

// Le returns the expression l <= r.
func Le(l, r Expr) Expr { return compare{le, l, r} }

// Gt returns the expression l > r.
func Gt(l, r Expr) Expr { return compare{gt, l, r} }

// Ge returns the expression l >= r.
func Ge(l, r Expr) Expr { return compare{ge, l, r} }

// Between returns the expression lo <= e AND e <= hi.
func Between(e, lo, hi Expr) Expr { return And(Ge(e, lo), Le(e, hi)) }

func (c compare) String() string {
	return fmt.Sprintf("(%s %s %s)", c.l, cmpNames[c.op], c.r)
}

func (c compare) bind(s schema.Schema) (bound, error) {
	l, err := c.l.bind(s)
	if err != nil {
		return bound{}, err
	}
	r, err := c.r.bind(s)
	if err != nil {
		return bound{}, err
	}
	switch {
	case l.typ == schema.Int && r.typ == schema.Int:
		return bound{schema.Int, func(f frame.Frame) frame.Column {
			a, b := l.eval(f).Ints(), r.eval(f).Ints()
			truth := make([]bool, len(a))
			for i := range a {
				if a[i] == frame.NullInt || b[i] == frame.NullInt {
					continue
				}
				truth[i] = c.op.holds(compareInts(a[i], b[i]))
			}
			return boolColumn(truth)
		}}, nil
	case l.typ.Numeric() && r.typ.Numeric():
		return bound{schema.Int, func(f frame.Frame) frame.Column {
			a, b := floatsOf(l.eval(f)), floatsOf(r.eval(f))
			truth := make([]bool, len(a))
			for i := range a {
				if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
					continue
				}
				truth[i] = c.op.holds(compareFloats(a[i], b[i]))
			}
			return boolColumn(truth)
		}}, nil
	case l.typ == schema.String && r.typ == schema.String:
		return bound{schema.Int, func(f frame.Frame) frame.Column {
			a, b := l.eval(f).Strings(), r.eval(f).Strings()
			truth := make([]bool, len(a))
			for i := range a {
				if a[i] == "" || b[i] == "" {
					continue
				}
				truth[i] = c.op.holds(compareStrings(a[i], b[i]))
			}
			return boolColumn(truth)
		}}, nil
	}
	return bound{}, typeError("cannot compare %s (%s) with %s (%s)", c.l, l.typ, c.r, r.typ)
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

type logical struct {
	and   bool
	exprs []Expr
}

// And returns the conjunction of the provided expressions.
func And(exprs ...Expr) Expr { return logical{true, exprs} }

// Or returns the disjunction of the provided expressions.
func Or(exprs ...Expr) Expr { return logical{false, exprs} }

func (l logical) String() string {
	if l.and {
		return "(" + join(l.exprs, " AND ") + ")"
	}
	return "(" + join(l.exprs, " OR ") + ")"
}

func (l logical) bind(s schema.Schema) (bound, error) {
	if len(l.exprs) == 0 {
		return Bool(l.and).bind(s)
	}
	operands := make([]bound, len(l.exprs))
	for i, e := range l.exprs {
		var err error
		if operands[i], err = e.bind(s); err != nil {
			return bound{}, err
		}
		if !operands[i].typ.Numeric() {
			return bound{}, typeError("operand %s of %s has type %s", e, l, operands[i].typ)
		}
	}
	return bound{schema.Int, func(f frame.Frame) frame.Column {
		truth := truthOf(operands[0].eval(f))
		for _, op := range operands[1:] {
			next := truthOf(op.eval(f))
			for i := range truth {
				if l.and {
					truth[i] = truth[i] && next[i]
				} else {
					truth[i] = truth[i] || next[i]
				}
			}
		}
		return boolColumn(truth)
	}}, nil
}

type not struct{ e Expr }

// Not returns the negation of e. NOT NULL is true.
func Not(e Expr) Expr { return not{e} }

func (n not) String() string { return fmt.Sprintf("NOT %s", n.e) }

func (n not) bind(s schema.Schema) (bound, error) {
	b, err := n.e.bind(s)
	if err != nil {
		return bound{}, err
	}
	if !b.typ.Numeric() {
		return bound{}, typeError("operand %s of NOT has type %s", n.e, b.typ)
	}
	return bound{schema.Int, func(f frame.Frame) frame.Column {
		truth := truthOf(b.eval(f))
		for i := range truth {
			truth[i] = !truth[i]
		}
		return boolColumn(truth)
	}}, nil
}

type in struct {
	e    Expr
	list []Expr
}

// In returns the expression e IN (list...).
func In(e Expr, list ...Expr) Expr { return in{e, list} }

func (x in) String() string { return fmt.Sprintf("(%s IN (%s))", x.e, join(x.list, ", ")) }

func (x in) bind(s schema.Schema) (bound, error) {
	exprs := make([]Expr, len(x.list))
	for i, v := range x.list {
		exprs[i] = Eq(x.e, v)
	}
	return Or(exprs...).bind(s)
}

type isNull struct {
	e   Expr
	not bool
}

// IsNull returns the expression e IS NULL.
func IsNull(e Expr) Expr { return isNull{e, false} }

// NotNull returns the expression e IS NOT NULL.
func NotNull(e Expr) Expr { return isNull{e, true} }

func (n isNull) String() string {
	if n.not {
		return fmt.Sprintf("(%s IS NOT NULL)", n.e)
	}
	return fmt.Sprintf("(%s IS NULL)", n.e)
}

func (n isNull) bind(s schema.Schema) (bound, error) {
	b, err := n.e.bind(s)
	if err != nil {
		return bound{}, err
	}
	return bound{schema.Int, func(f frame.Frame) frame.Column {
		c := b.eval(f)
		truth := make([]bool, c.Len())
		for i := range truth {
			truth[i] = c.IsNull(i) != n.not
		}
		return boolColumn(truth)
	}}, nil
}

type arithOp int

const (
	add arithOp = iota
	sub
	mul
	div
)

var arithNames = [...]string{"+", "-", "*", "/"}

type arith struct {
	op   arithOp
	l, r Expr
}

// Add returns the expression l + r.
func Add(l, r Expr) Expr { return arith{add, l, r} }

// Sub returns the expression l - r.
func Sub(l, r Expr) Expr { return arith{sub, l, r} }

// Mul returns the expression l * r.
func Mul(l, r Expr) Expr { return arith{mul, l, r} }

// Div returns the expression l / r. Division always yields a float;
// division by zero yields NULL.
func Div(l, r Expr) Expr { return arith{div, l, r} }

func (a arith) String() string {
	return fmt.Sprintf("(%s %s %s)", a.l, arithNames[a.op], a.r)
}

func (a arith) bind(s schema.Schema) (bound, error) {
	l, err := a.l.bind(s)
	if err != nil {
		return bound{}, err
	}
	r, err := a.r.bind(s)
	if err != nil {
		return bound{}, err
	}
	if !l.typ.Numeric() || !r.typ.Numeric() {
		return bound{}, typeError("arithmetic on %s (%s) and %s (%s)", a.l, l.typ, a.r, r.typ)
	}
	if l.typ == schema.Int && r.typ == schema.Int && a.op != div {
		return bound{schema.Int, func(f frame.Frame) frame.Column {
			x, y := l.eval(f).Ints(), r.eval(f).Ints()
			vals := make([]int64, len(x))
			for i := range x {
				if x[i] == frame.NullInt || y[i] == frame.NullInt {
					vals[i] = frame.NullInt
					continue
				}
				switch a.op {
				case add:
					vals[i] = x[i] + y[i]
				case sub:
					vals[i] = x[i] - y[i]
				case mul:
					vals[i] = x[i] * y[i]
				}
			}
			return frame.ColumnOf(vals)
		}}, nil
	}
	return bound{schema.Float, func(f frame.Frame) frame.Column {
		x, y := floatsOf(l.eval(f)), floatsOf(r.eval(f))
		vals := make([]float64, len(x))
		for i := range x {
			switch a.op {
			case add:
				vals[i] = x[i] + y[i]
			case sub:
				vals[i] = x[i] - y[i]
			case mul:
				vals[i] = x[i] * y[i]
			case div:
				if y[i] == 0 {
					vals[i] = math.NaN()
				} else {
					vals[i] = x[i] / y[i]
				}
			}
		}
		return frame.ColumnOf(vals)
	}}, nil
}

type cond struct {
	cond, then, els Expr
}

// If returns the expression CASE WHEN c THEN then ELSE els END. The
// branches must both be strings or both be numeric; a numeric result
// is a float unless both branches are integers.
func If(c, then, els Expr) Expr { return cond{c, then, els} }

func (c cond) String() string {
	return fmt.Sprintf("IF(%s, %s, %s)", c.cond, c.then, c.els)
}

func (c cond) bind(s schema.Schema) (bound, error) {
	p, err := c.cond.bind(s)
	if err != nil {
		return bound{}, err
	}
	if !p.typ.Numeric() {
		return bound{}, typeError("condition %s has type %s", c.cond, p.typ)
	}
	t, err := c.then.bind(s)
	if err != nil {
		return bound{}, err
	}
	e, err := c.els.bind(s)
	if err != nil {
		return bound{}, err
	}
	switch {
	case t.typ == e.typ:
		return bound{t.typ, func(f frame.Frame) frame.Column {
			truth := truthOf(p.eval(f))
			x, y := t.eval(f).Value(), e.eval(f).Value()
			out := reflect.MakeSlice(x.Type(), len(truth), len(truth))
			for i, ok := range truth {
				if ok {
					out.Index(i).Set(x.Index(i))
				} else {
					out.Index(i).Set(y.Index(i))
				}
			}
			return frame.Column(out)
		}}, nil
	case t.typ.Numeric() && e.typ.Numeric():
		return bound{schema.Float, func(f frame.Frame) frame.Column {
			truth := truthOf(p.eval(f))
			x, y := floatsOf(t.eval(f)), floatsOf(e.eval(f))
			vals := make([]float64, len(truth))
			for i, ok := range truth {
				if ok {
					vals[i] = x[i]
				} else {
					vals[i] = y[i]
				}
			}
			return frame.ColumnOf(vals)
		}}, nil
	}
	return bound{}, typeError("branches of %s have types %s and %s", c, t.typ, e.typ)
}

type days struct{ e Expr }

// DateLayout is the layout of date strings.
const DateLayout = "2006-01-02"

// Days converts a date string column of the form YYYY-MM-DD to the
// number of days since 1970-01-01. Malformed dates yield NULL.
func Days(e Expr) Expr { return days{e} }

// Date returns an integer literal holding the day number of the date
// s, as computed by Days. Date panics if s is not a valid date.
func Date(s string) Expr {
	d, ok := dayNumber(s)
	if !ok {
		panic(fmt.Sprintf("expr.Date: invalid date %q", s))
	}
	return Int(d)
}

func (d days) String() string { return fmt.Sprintf("DAYS(%s)", d.e) }

func (d days) bind(s schema.Schema) (bound, error) {
	b, err := d.e.bind(s)
	if err != nil {
		return bound{}, err
	}
	if b.typ != schema.String {
		return bound{}, typeError("operand %s of DAYS has type %s", d.e, b.typ)
	}
	return bound{schema.Int, func(f frame.Frame) frame.Column {
		strs := b.eval(f).Strings()
		vals := make([]int64, len(strs))
		for i, str := range strs {
			var ok bool
			if vals[i], ok = dayNumber(str); !ok {
				vals[i] = frame.NullInt
			}
		}
		return frame.ColumnOf(vals)
	}}, nil
}

func dayNumber(s string) (int64, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return 0, false
	}
	return t.Unix() / 86400, true
}
