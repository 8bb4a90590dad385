// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package frame contains columnar buffers of table rows. Frames are
// lists of column vectors that hold the rows of a table as they are
// loaded and processed by the benchmark's queries.
//
// Columns hold int64, float64 or string values. NULL values are
// represented in-band: NullInt for integers, NaN for floats and the
// empty string for strings.
package frame

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"
	"text/tabwriter"
)

// NullInt is the representation of NULL in integer columns.
const NullInt int64 = math.MinInt64

// A Type describes the column types of a frame. Schemas and
// frames are both Types.
type Type interface {
	// NumOut returns the number of columns.
	NumOut() int
	// Out returns the element type of column i.
	Out(i int) reflect.Type
}

// Column represents a single column of values in a frame. Columns
// are always Go slices, but are represented here as a reflect.Value
// to support type polymorphism.
type Column reflect.Value

// ColumnOf returns a new column created from the given interface,
// which must be a slice.
func ColumnOf(x interface{}) Column {
	return Column(reflect.ValueOf(x))
}

// Index returns the value at index i of the column c.
func (c Column) Index(i int) reflect.Value { return reflect.Value(c).Index(i) }

// Type returns the type of the column. The returned type is always a
// slice.
func (c Column) Type() reflect.Type { return reflect.Value(c).Type() }

// ElemType returns the element type of the column.
func (c Column) ElemType() reflect.Type { return c.Type().Elem() }

// Value returns the reflect.Value that represents this column.
func (c Column) Value() reflect.Value { return reflect.Value(c) }

// Slice slices the column.
func (c Column) Slice(i, j int) Column { return Column(reflect.Value(c).Slice(i, j)) }

// Len returns the column's length.
func (c Column) Len() int { return reflect.Value(c).Len() }

// Interface returns the column value as an empty interface.
func (c Column) Interface() interface{} { return reflect.Value(c).Interface() }

// Ints returns the values of an integer column. It panics if c is not
// an integer column.
func (c Column) Ints() []int64 { return c.Interface().([]int64) }

// Floats returns the values of a float column. It panics if c is not
// a float column.
func (c Column) Floats() []float64 { return c.Interface().([]float64) }

// Strings returns the values of a string column. It panics if c is
// not a string column.
func (c Column) Strings() []string { return c.Interface().([]string) }

// IsNull tells whether the value at index i is NULL.
func (c Column) IsNull(i int) bool {
	switch vals := c.Interface().(type) {
	case []int64:
		return vals[i] == NullInt
	case []float64:
		return math.IsNaN(vals[i])
	case []string:
		return vals[i] == ""
	}
	return false
}

// Null returns the NULL value of the element type typ.
func Null(typ reflect.Type) reflect.Value {
	switch typ.Kind() {
	case reflect.Int64:
		return reflect.ValueOf(NullInt)
	case reflect.Float64:
		return reflect.ValueOf(math.NaN())
	}
	return reflect.Zero(typ)
}

// A Frame is a list of column vectors of equal lengths (i.e., it's
// rectangular). Frames provide a set of methods that operate over
// the underlying column vectors in a uniform fashion.
type Frame []Column

// Make creates a new Frame of the given type, length, and capacity.
// If the capacity argument is omitted, a frame with capacity equal
// to the provided length is returned.
func Make(types Type, frameLen int, frameCap ...int) Frame {
	var cap int
	switch len(frameCap) {
	case 0:
		cap = frameLen
	case 1:
		cap = frameCap[0]
	default:
		panic("invalid lencap")
	}
	f := make(Frame, types.NumOut())
	for i := range f {
		f[i] = Column(reflect.MakeSlice(reflect.SliceOf(types.Out(i)), frameLen, cap))
	}
	return f
}

// Append appends the rows in the frame g to the rows in frame f,
// returning the appended frame. Its semantics matches that of Go's
// builtin append: the returned frame may share underlying storage
// with frame f.
func Append(f, g Frame) Frame {
	if f == nil {
		f = make(Frame, len(g))
		for i := range f {
			f[i] = Column(reflect.Zero(g[i].Type()))
		}
	}
	for i := range f {
		f[i] = Column(reflect.AppendSlice(f[i].Value(), g[i].Value()))
	}
	return f
}

// Copy copies the frame src to dst. The number of copied rows are
// returned. Copy panics if src is not assignable to dst.
func Copy(dst, src Frame) int {
	var n int
	for i := range dst {
		n = reflect.Copy(dst[i].Value(), src[i].Value())
	}
	return n
}

// Columns constructs a frame from a list of slices. Each slice is a
// column of the frame. Columns panics if any argument is not a slice
// or if the column lengths do not match.
func Columns(cols ...interface{}) Frame {
	f := make(Frame, len(cols))
	n := -1
	for i, col := range cols {
		val := reflect.ValueOf(col)
		if val.Kind() != reflect.Slice {
			panic(fmt.Sprintf("frame.Columns: expected slice, got %v", val.Type()))
		}
		if n < 0 {
			n = val.Len()
		} else if val.Len() != n {
			panic(fmt.Sprintf("frame.Columns: inconsistent column lengths: "+
				"column %d has length %d, previous columns have length %d",
				i, val.Len(), n))
		}
		f[i] = Column(val)
	}
	return f
}

// Slice returns a frame with rows i to j, analagous to Go's native
// slice operation.
func (f Frame) Slice(i, j int) Frame {
	if f == nil {
		return nil
	}
	if i == 0 && j == f.Len() {
		return f
	}
	g := make(Frame, len(f))
	for k := range g {
		g[k] = f[k].Slice(i, j)
	}
	return g
}

// Select returns a frame with the columns at the provided positions.
// The returned frame shares storage with f.
func (f Frame) Select(index []int) Frame {
	g := make(Frame, len(index))
	for i, j := range index {
		g[i] = f[j]
	}
	return g
}

// Gather returns a new frame with the rows of f at the provided
// indices, in the order of the indices.
func (f Frame) Gather(index []int) Frame {
	g := Make(f, len(index))
	for i := range f {
		src, dst := f[i].Value(), g[i].Value()
		for j, k := range index {
			dst.Index(j).Set(src.Index(k))
		}
	}
	return g
}

// Len returns the frame's length.
func (f Frame) Len() int {
	if len(f) == 0 {
		return 0
	}
	return f[0].Len()
}

// NumOut implements Type.
func (f Frame) NumOut() int {
	return len(f)
}

// Out implements Type.
func (f Frame) Out(i int) reflect.Type {
	return f[i].ElemType()
}

// String returns a descriptive string of the frame.
func (f Frame) String() string {
	types := make([]string, len(f))
	for i := range f {
		types[i] = f[i].ElemType().String()
	}
	return fmt.Sprintf("frame[%d]%s", f.Len(), strings.Join(types, ","))
}

// WriteTab writes the frame in tabular format to the provided
// io.Writer. NULL values are written as "NULL".
func (f Frame) WriteTab(w io.Writer) {
	var tw tabwriter.Writer
	tw.Init(w, 4, 4, 1, ' ', 0)
	types := make([]string, len(f))
	for i := range f {
		types[i] = f[i].ElemType().String()
	}
	fmt.Fprintln(&tw, strings.Join(types, "\t"))
	values := make([]string, len(f))
	for i := 0; i < f.Len(); i++ {
		for j := range f {
			if f[j].IsNull(i) {
				values[j] = "NULL"
			} else {
				values[j] = fmt.Sprint(f[j].Index(i))
			}
		}
		fmt.Fprintln(&tw, strings.Join(values, "\t"))
	}
	tw.Flush()
}

// TabString returns a string representing the frame in tabular format.
func (f Frame) TabString() string {
	var b bytes.Buffer
	f.WriteTab(&b)
	return b.String()
}

// Equal tells whether f1 and f2 hold the same rows. NULL values
// are equal to each other.
func Equal(f1, f2 Frame) bool {
	if len(f1) != len(f2) || f1.Len() != f2.Len() {
		return false
	}
	for i := range f1 {
		if f1[i].ElemType() != f2[i].ElemType() {
			return false
		}
		if f1.Len() == 0 {
			continue
		}
		if a, ok := f1[i].Interface().([]float64); ok {
			b := f2[i].Floats()
			for j := range a {
				if a[j] != b[j] && !(math.IsNaN(a[j]) && math.IsNaN(b[j])) {
					return false
				}
			}
			continue
		}
		if !reflect.DeepEqual(f1[i].Interface(), f2[i].Interface()) {
			return false
		}
	}
	return true
}
