// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package stats provides named counters. Loaders count the rows and
// partitions they read; engines accumulate the time spent in
// collective operations in counters whose names end in "_ns".
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Values is a snapshot of a Map.
type Values map[string]int64

// Merge adds the values of w to v.
func (v Values) Merge(w Values) {
	for name, val := range w {
		v[name] += val
	}
}

// Seconds returns the duration counted by the nanosecond counter
// with the provided name, in seconds.
func (v Values) Seconds(name string) float64 {
	return time.Duration(v[name]).Seconds()
}

// String returns the values sorted by name.
func (v Values) String() string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s:%d", name, v[name])
	}
	return b.String()
}

// A Map is a set of counters keyed by name. The zero Map is ready
// to use.
type Map struct {
	counters sync.Map // map[string]*Int
}

// NewMap returns an empty Map.
func NewMap() *Map { return new(Map) }

// Int returns the counter with the provided name, creating it if
// needed.
func (m *Map) Int(name string) *Int {
	if v, ok := m.counters.Load(name); ok {
		return v.(*Int)
	}
	v, _ := m.counters.LoadOrStore(name, new(Int))
	return v.(*Int)
}

// Values returns a snapshot of the counters in the map.
func (m *Map) Values() Values {
	vals := make(Values)
	m.counters.Range(func(name, v interface{}) bool {
		vals[name.(string)] = v.(*Int).Get()
		return true
	})
	return vals
}

// An Int is an integer counter. Operations on a nil *Int are no-ops.
type Int struct {
	val atomic.Int64
}

// Add increments v by delta.
func (v *Int) Add(delta int64) {
	if v != nil {
		v.val.Add(delta)
	}
}

// AddDuration increments v by the duration d, in nanoseconds.
func (v *Int) AddDuration(d time.Duration) { v.Add(int64(d)) }

// Get returns the current value of v.
func (v *Int) Get() int64 {
	if v == nil {
		return 0
	}
	return v.val.Load()
}
