// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package stats

import (
	"testing"
	"time"
)

func TestMap(t *testing.T) {
	coll := NewMap()
	var (
		x = coll.Int("x")
		_ = coll.Int("y")
	)
	if got, want := x.Get(), int64(0); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	x.Add(123)
	x.Add(123)
	if got, want := x.Get(), int64(123*2); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	all := make(Values)
	all.Merge(coll.Values())
	all.Merge(coll.Values())
	if got, want := len(all), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := all["x"], int64(123*4); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := all["y"], int64(0); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDurations(t *testing.T) {
	coll := NewMap()
	coll.Int("shuffle_ns").AddDuration(1500 * time.Millisecond)
	coll.Int("shuffle_ns").AddDuration(500 * time.Millisecond)
	coll.Int("rows").Add(3)
	vals := coll.Values()
	if got, want := vals.Seconds("shuffle_ns"), 2.0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := vals.String(), "rows:3 shuffle_ns:2000000000"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	var nilInt *Int
	nilInt.AddDuration(time.Second)
	if got, want := nilInt.Get(), int64(0); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
