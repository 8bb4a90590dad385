// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package frame

import (
	"encoding/binary"
	"math"

	"github.com/spaolacci/murmur3"
)

// ops holds the comparison and hash functions of a column. NULL
// values order before every other value and hash alike, but callers
// that implement SQL semantics must treat them as unequal to
// everything, themselves included.
type ops struct {
	less func(i, j int) bool
	hash func(i int, seed uint32) uint32
}

func (c Column) ops() ops {
	switch vals := c.Interface().(type) {
	case []int64:
		return ops{
			less: func(i, j int) bool { return vals[i] < vals[j] },
			hash: func(i int, seed uint32) uint32 { return hash64(uint64(vals[i]), seed) },
		}
	case []float64:
		return ops{
			less: func(i, j int) bool {
				if math.IsNaN(vals[i]) {
					return !math.IsNaN(vals[j])
				}
				return vals[i] < vals[j]
			},
			hash: func(i int, seed uint32) uint32 {
				v := vals[i]
				switch {
				case v == 0:
					// Both zeros hash alike.
					v = 0
				case math.IsNaN(v):
					v = math.NaN()
				}
				return hash64(math.Float64bits(v), seed)
			},
		}
	case []string:
		return ops{
			less: func(i, j int) bool { return vals[i] < vals[j] },
			hash: func(i int, seed uint32) uint32 { return murmur3.Sum32WithSeed([]byte(vals[i]), seed) },
		}
	}
	panic("frame: unsupported column type " + c.ElemType().String())
}

// LessFunc returns a function that tells whether row i of column c
// orders before row j.
func (c Column) LessFunc() func(i, j int) bool { return c.ops().less }

// Comparator returns a function that compares rows i and j of f by
// the columns at the provided positions, in order. The function
// returns -1, 0 or 1.
func (f Frame) Comparator(cols []int) func(i, j int) int {
	less := make([]func(i, j int) bool, len(cols))
	for k, col := range cols {
		less[k] = f[col].ops().less
	}
	return func(i, j int) int {
		for _, less := range less {
			switch {
			case less(i, j):
				return -1
			case less(j, i):
				return 1
			}
		}
		return 0
	}
}

// Hasher returns a function that hashes row i of f by the columns at
// the provided positions.
func (f Frame) Hasher(cols []int, seed uint32) func(i int) uint32 {
	hash := make([]func(i int, seed uint32) uint32, len(cols))
	for k, col := range cols {
		hash[k] = f[col].ops().hash
	}
	return func(i int) uint32 {
		h := seed
		for _, hash := range hash {
			h = hash(i, h)
		}
		return h
	}
}

// AnyNull tells whether any of the columns at the provided
// positions is NULL in row i.
func (f Frame) AnyNull(cols []int, i int) bool {
	for _, col := range cols {
		if f[col].IsNull(i) {
			return true
		}
	}
	return false
}

func hash64(v uint64, seed uint32) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return murmur3.Sum32WithSeed(buf[:], seed)
}
