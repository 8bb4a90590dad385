// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tableio

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// Format is the storage format of partition files.
type Format int

const (
	// CSV partitions are "|"-separated text without a header.
	CSV Format = iota
	// Parquet partitions are Apache Parquet files.
	Parquet
	// ORC partitions are Apache ORC files.
	ORC
)

var formatNames = map[Format]string{
	CSV:     "csv",
	Parquet: "parquet",
	ORC:     "orc",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ParseFormat returns the format named by s, case insensitively.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if strings.EqualFold(s, name) {
			return f, nil
		}
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("unknown file format %q", s))
}
