// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sliceio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"reflect"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/frame"
)

// DefaultSep is the field separator of the benchmark's partition files.
const DefaultSep = '|'

// maxLine is the longest line a delimited reader accepts. Review
// texts make some lines long.
const maxLine = 64 << 20

// DelimitedOptions configures a delimited reader.
type DelimitedOptions struct {
	// Name names the stream in errors, usually its path.
	Name string
	// Sep is the field separator. DefaultSep is used if it is zero.
	Sep byte
	// Columns are the positions of the columns to decode, in output
	// order. All columns are decoded if Columns is nil.
	Columns []int
}

type delimitedReader struct {
	scan   *bufio.Scanner
	types  frame.Type
	opts   DelimitedOptions
	line   int
	fields [][]byte
	err    error
}

// NewDelimitedReader returns a Reader that decodes records of the
// provided column types from separated text without a header, one
// record per line. Every line must contain a field for each column; a
// single separator terminating the line is permitted. Empty fields
// are decoded as NULL.
//
// Lines with the wrong number of fields and fields that cannot be
// parsed as their column's type fail with bigbench.ErrMalformedRow.
func NewDelimitedReader(r io.Reader, types frame.Type, opts DelimitedOptions) Reader {
	if opts.Sep == 0 {
		opts.Sep = DefaultSep
	}
	if opts.Columns == nil {
		opts.Columns = make([]int, types.NumOut())
		for i := range opts.Columns {
			opts.Columns[i] = i
		}
	}
	scan := bufio.NewScanner(r)
	scan.Buffer(nil, maxLine)
	return &delimitedReader{
		scan:   scan,
		types:  types,
		opts:   opts,
		fields: make([][]byte, 0, types.NumOut()+1),
	}
}

func (d *delimitedReader) Read(ctx context.Context, out frame.Frame) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	for n < out.Len() {
		if !d.scan.Scan() {
			d.err = d.scan.Err()
			if d.err == nil {
				d.err = EOF
			} else {
				d.line++
				d.err = d.errorf("%v", d.err)
			}
			return n, d.err
		}
		d.line++
		line := bytes.TrimSuffix(d.scan.Bytes(), []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		if err := d.decode(line, out, n); err != nil {
			d.err = err
			return n, err
		}
		n++
	}
	return n, nil
}

func (d *delimitedReader) decode(line []byte, out frame.Frame, row int) error {
	d.fields = d.fields[:0]
	for {
		i := bytes.IndexByte(line, d.opts.Sep)
		if i < 0 {
			d.fields = append(d.fields, line)
			break
		}
		d.fields = append(d.fields, line[:i])
		line = line[i+1:]
	}
	ncol := d.types.NumOut()
	if len(d.fields) == ncol+1 && len(d.fields[ncol]) == 0 {
		d.fields = d.fields[:ncol]
	}
	if len(d.fields) != ncol {
		return d.errorf("expected %d fields, got %d", ncol, len(d.fields))
	}
	for i, col := range d.opts.Columns {
		field := d.fields[col]
		switch vals := out[i].Interface().(type) {
		case []int64:
			if len(field) == 0 {
				vals[row] = frame.NullInt
				break
			}
			v, err := strconv.ParseInt(string(field), 10, 64)
			if err != nil {
				return d.errorf("column %d: %v", col, err)
			}
			vals[row] = v
		case []float64:
			if len(field) == 0 {
				vals[row] = frame.Null(d.types.Out(col)).Float()
				break
			}
			v, err := strconv.ParseFloat(string(field), 64)
			if err != nil {
				return d.errorf("column %d: %v", col, err)
			}
			vals[row] = v
		case []string:
			vals[row] = string(field)
		default:
			panic(fmt.Sprintf("sliceio: unsupported column type %s", reflect.TypeOf(vals)))
		}
	}
	return nil
}

func (d *delimitedReader) errorf(format string, args ...interface{}) error {
	return errors.E(errors.Invalid, bigbench.ErrMalformedRow,
		fmt.Sprintf("%s:%d: %s", d.opts.Name, d.line, fmt.Sprintf(format, args...)))
}
