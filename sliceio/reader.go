// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package sliceio provides streams of table rows, and decoders that
// produce them from partition files.
package sliceio

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigbench/frame"
)

// defaultChunksize is the number of rows moved per read by the
// helpers in this package.
const defaultChunksize = 1024

// EOF is returned by Reader.Read once a stream is exhausted.
var EOF = errors.New("EOF")

// A Reader is a stream of rows.
type Reader interface {
	// Read fills out with the next rows of the stream and returns
	// the number of rows read. The columns of out must have the
	// stream's column types. Read returns EOF, possibly together
	// with n > 0, once the stream has no more rows.
	Read(ctx context.Context, out frame.Frame) (n int, err error)
}

// Concat returns a reader of the rows of readers, in order.
func Concat(readers ...Reader) Reader {
	return &concatReader{readers: readers}
}

type concatReader struct {
	readers []Reader
	err     error
}

func (c *concatReader) Read(ctx context.Context, out frame.Frame) (int, error) {
	for c.err == nil {
		if len(c.readers) == 0 {
			c.err = EOF
			break
		}
		n, err := c.readers[0].Read(ctx, out)
		if err == EOF {
			c.readers = c.readers[1:]
			err = nil
		}
		if err != nil {
			c.err = err
		}
		if n > 0 || err != nil {
			return n, err
		}
	}
	return 0, c.err
}

// FromFrame returns a reader of the rows of f.
func FromFrame(f frame.Frame) Reader {
	return &frameReader{f}
}

type frameReader struct{ f frame.Frame }

func (r *frameReader) Read(ctx context.Context, out frame.Frame) (int, error) {
	n := frame.Copy(out, r.f)
	r.f = r.f.Slice(n, r.f.Len())
	if r.f.Len() == 0 {
		return n, EOF
	}
	return n, nil
}

// ReadAll reads the remaining rows of r into a new frame with the
// column types typ.
func ReadAll(ctx context.Context, r Reader, typ frame.Type) (frame.Frame, error) {
	all := frame.Make(typ, 0)
	buf := frame.Make(typ, defaultChunksize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(ctx, buf)
		all = frame.Append(all, buf.Slice(0, n))
		switch err {
		case nil:
		case EOF:
			return all, nil
		default:
			return nil, err
		}
	}
}
