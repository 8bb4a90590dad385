// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package frame

import (
	"math"
	"reflect"
	"sort"
	"testing"
)

type types []reflect.Type

func (t types) NumOut() int            { return len(t) }
func (t types) Out(i int) reflect.Type { return t[i] }

var (
	typeOfString = reflect.TypeOf("")
	typeOfInt    = reflect.TypeOf(int64(0))
)

func TestFrame(t *testing.T) {
	f := Make(types{typeOfString, typeOfInt}, 100)
	if got, want := len(f), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := f.Len(), 100; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAppend(t *testing.T) {
	f := Columns([]int64{1, 2}, []string{"one", "two"})
	g := Append(nil, f)
	g = Append(g, Columns([]int64{3}, []string{""}))
	if got, want := g, Columns([]int64{1, 2, 3}, []string{"one", "two", ""}); !Equal(got, want) {
		t.Errorf("got %v, want %v", got.TabString(), want.TabString())
	}
	h := Make(f, 1)
	if got, want := Copy(h, g.Slice(1, 3)), 1; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := h, Columns([]int64{2}, []string{"two"}); !Equal(got, want) {
		t.Errorf("got %v, want %v", got.TabString(), want.TabString())
	}
}

func TestGather(t *testing.T) {
	f := Columns([]int64{1, 2, 3, 4}, []float64{1.5, 2.5, 3.5, 4.5})
	g := f.Gather([]int{3, 1})
	if got, want := g, Columns([]int64{4, 2}, []float64{4.5, 2.5}); !Equal(got, want) {
		t.Errorf("got %v, want %v", got.TabString(), want.TabString())
	}
	if got, want := f.Select([]int{1}), Columns([]float64{1.5, 2.5, 3.5, 4.5}); !Equal(got, want) {
		t.Errorf("got %v, want %v", got.TabString(), want.TabString())
	}
}

func TestNull(t *testing.T) {
	f := Columns(
		[]int64{NullInt, 1},
		[]float64{math.NaN(), 0},
		[]string{"", "x"},
	)
	for col := range f {
		if !f[col].IsNull(0) {
			t.Errorf("column %d: expected NULL", col)
		}
		if f[col].IsNull(1) {
			t.Errorf("column %d: unexpected NULL", col)
		}
		if got, want := Null(f[col].ElemType()).Interface(), f[col].Index(0).Interface(); got != want && col != 1 {
			t.Errorf("column %d: got %v, want %v", col, got, want)
		}
	}
	if !math.IsNaN(Null(reflect.TypeOf(0.0)).Float()) {
		t.Error("expected NaN")
	}
	if !f.AnyNull([]int{2}, 0) || f.AnyNull([]int{0, 1, 2}, 1) {
		t.Error("AnyNull")
	}
	// NULL floats compare equal to each other.
	if !Equal(f, Columns([]int64{NullInt, 1}, []float64{math.NaN(), 0}, []string{"", "x"})) {
		t.Error("frames with NULLs should be equal")
	}
}

func TestComparator(t *testing.T) {
	f := Columns(
		[]string{"b", "a", "b", "a"},
		[]float64{1, 2, math.NaN(), 1},
	)
	cmp := f.Comparator([]int{0, 1})
	index := []int{0, 1, 2, 3}
	sort.Slice(index, func(i, j int) bool { return cmp(index[i], index[j]) < 0 })
	if got, want := index, []int{3, 1, 2, 0}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := cmp(0, 0), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
