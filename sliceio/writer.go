// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sliceio

import (
	"bufio"
	"context"
	"io"
	"strconv"

	"github.com/grailbio/bigbench/frame"
)

// Writer can write a frame to an underlying data stream.
type Writer interface {
	// Write writes f to an underlying data stream. It returns a non-nil error
	// if there is a problem writing, and f may have been partially written.
	Write(ctx context.Context, f frame.Frame) error
}

// A DelimitedWriter writes frames as separated text, one record per
// line. NULL values are written as empty fields. Flush must be called
// after the last write.
type DelimitedWriter struct {
	w   *bufio.Writer
	sep byte
	buf []byte
}

// NewDelimitedWriter returns a writer of sep-separated records to w.
func NewDelimitedWriter(w io.Writer, sep byte) *DelimitedWriter {
	return &DelimitedWriter{w: bufio.NewWriter(w), sep: sep}
}

// WriteHeader writes a line of column names.
func (d *DelimitedWriter) WriteHeader(names []string) error {
	d.buf = d.buf[:0]
	for i, name := range names {
		if i > 0 {
			d.buf = append(d.buf, d.sep)
		}
		d.buf = append(d.buf, name...)
	}
	d.buf = append(d.buf, '\n')
	_, err := d.w.Write(d.buf)
	return err
}

// Write implements Writer.
func (d *DelimitedWriter) Write(ctx context.Context, f frame.Frame) error {
	for i := 0; i < f.Len(); i++ {
		d.buf = d.buf[:0]
		for j := range f {
			if j > 0 {
				d.buf = append(d.buf, d.sep)
			}
			if f[j].IsNull(i) {
				continue
			}
			switch vals := f[j].Interface().(type) {
			case []int64:
				d.buf = strconv.AppendInt(d.buf, vals[i], 10)
			case []float64:
				d.buf = strconv.AppendFloat(d.buf, vals[i], 'g', -1, 64)
			case []string:
				d.buf = append(d.buf, vals[i]...)
			}
		}
		d.buf = append(d.buf, '\n')
		if _, err := d.w.Write(d.buf); err != nil {
			return err
		}
		if i%defaultChunksize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush writes buffered output to the underlying writer.
func (d *DelimitedWriter) Flush() error { return d.w.Flush() }
