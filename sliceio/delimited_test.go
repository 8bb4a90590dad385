// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sliceio

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/frame"
)

func TestDelimitedReader(t *testing.T) {
	const data = `1|one|1.5|
2||2.5|

3|three||
`
	r := NewDelimitedReader(strings.NewReader(data), types{typeOfInt, typeOfString, typeOfFloat}, DelimitedOptions{Name: "test"})
	got, err := ReadAll(context.Background(), r, types{typeOfInt, typeOfString, typeOfFloat})
	if err != nil {
		t.Fatal(err)
	}
	want := frame.Columns(
		[]int64{1, 2, 3},
		[]string{"one", "", "three"},
		[]float64{1.5, 2.5, math.NaN()},
	)
	if !frame.Equal(got, want) {
		t.Errorf("got %v, want %v", got.TabString(), want.TabString())
	}
}

func TestDelimitedReaderColumns(t *testing.T) {
	const data = "1|one|1.5\n|two|2.5\n"
	r := NewDelimitedReader(strings.NewReader(data), types{typeOfInt, typeOfString, typeOfFloat},
		DelimitedOptions{Columns: []int{2, 0}})
	got, err := ReadAll(context.Background(), r, types{typeOfFloat, typeOfInt})
	if err != nil {
		t.Fatal(err)
	}
	want := frame.Columns([]float64{1.5, 2.5}, []int64{1, frame.NullInt})
	if !frame.Equal(got, want) {
		t.Errorf("got %v, want %v", got.TabString(), want.TabString())
	}
}

func TestDelimitedReaderMalformed(t *testing.T) {
	for _, data := range []string{
		"1|one\n",
		"1|one|1.5|x\n",
		"x|one|1.5\n",
		"1|one|NaNx\n",
	} {
		r := NewDelimitedReader(strings.NewReader(data), types{typeOfInt, typeOfString, typeOfFloat}, DelimitedOptions{Name: "p"})
		_, err := ReadAll(context.Background(), r, types{typeOfInt, typeOfString, typeOfFloat})
		if !bigbench.Is(err, bigbench.ErrMalformedRow) {
			t.Errorf("%q: got %v, want %v", data, err, bigbench.ErrMalformedRow)
		}
		if err != nil && !strings.Contains(err.Error(), "p:1") {
			t.Errorf("%q: error %v does not name the line", data, err)
		}
	}
}

func TestDelimitedWriter(t *testing.T) {
	var b bytes.Buffer
	w := NewDelimitedWriter(&b, ',')
	if err := w.WriteHeader([]string{"id", "name", "amount"}); err != nil {
		t.Fatal(err)
	}
	f := frame.Columns(
		[]int64{1, frame.NullInt},
		[]string{"one", "two"},
		[]float64{1.5, math.NaN()},
	)
	if err := w.Write(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), "id,name,amount\n1,one,1.5\n,two,\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
