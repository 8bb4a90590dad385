// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sliceio

import (
	"context"
	"errors"
	"reflect"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/bigbench/frame"
)

var (
	typeOfString = reflect.TypeOf("")
	typeOfInt    = reflect.TypeOf(int64(0))
	typeOfFloat  = reflect.TypeOf(float64(0))
)

type types []reflect.Type

func (t types) NumOut() int            { return len(t) }
func (t types) Out(i int) reflect.Type { return t[i] }

func TestFromFrame(t *testing.T) {
	var (
		fz  = fuzz.NewWithSeed(12345)
		f   = fuzzFrame(fz, 2500, typeOfString, typeOfInt)
		ctx = context.Background()
	)
	got, err := ReadAll(ctx, FromFrame(f), f)
	if err != nil {
		t.Fatal(err)
	}
	if !frame.Equal(got, f) {
		t.Error("frames do not match")
	}
	n, err := FromFrame(f.Slice(0, 0)).Read(ctx, frame.Make(f, 1))
	if got, want := err, EOF; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := n, 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestConcat(t *testing.T) {
	var (
		fz  = fuzz.NewWithSeed(31415)
		f1  = fuzzFrame(fz, 1500, typeOfInt, typeOfFloat)
		f2  = fuzzFrame(fz, 10, typeOfInt, typeOfFloat)
		ctx = context.Background()
	)
	r := Concat(FromFrame(f1), FromFrame(f1.Slice(0, 0)), FromFrame(f2))
	got, err := ReadAll(ctx, r, f1)
	if err != nil {
		t.Fatal(err)
	}
	if want := frame.Append(frame.Append(nil, f1), f2); !frame.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

type failingReader struct{ err error }

func (f failingReader) Read(ctx context.Context, out frame.Frame) (int, error) { return 0, f.err }

func TestReadAllError(t *testing.T) {
	failed := errors.New("read failed")
	r := Concat(FromFrame(frame.Columns([]int64{1})), failingReader{failed})
	if _, err := ReadAll(context.Background(), r, types{typeOfInt}); err != failed {
		t.Errorf("got %v, want %v", err, failed)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReadAll(ctx, FromFrame(frame.Columns([]int64{1})), types{typeOfInt}); err != context.Canceled {
		t.Errorf("got %v, want %v", err, context.Canceled)
	}
}

// FuzzFrame creates a fuzzed frame of length n, where columns
// have the provided types.
func fuzzFrame(fz *fuzz.Fuzzer, n int, types ...reflect.Type) frame.Frame {
	f := make(frame.Frame, len(types))
	for i := range f {
		f[i] = frame.Column(reflect.MakeSlice(reflect.SliceOf(types[i]), n, n))
		vp := reflect.New(types[i])
		for j := 0; j < n; j++ {
			fz.Fuzz(vp.Interface())
			f[i].Index(j).Set(vp.Elem())
		}
	}
	return f
}
