// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package table

import (
	"testing"

	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/frame"
	"github.com/grailbio/bigbench/schema"
)

var testSchema = schema.Schema{{Name: "id", Type: schema.Int}, {Name: "amount", Type: schema.Float}}

func TestTable(t *testing.T) {
	tab := New(testSchema, frame.Columns([]int64{1, 2}, []float64{0.5, 1.5}), Sharded)
	tab.Order = Asc("id")
	if got, want := tab.String(), "sharded table[2](id int, amount float) order by id"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	col, err := tab.Column("amount")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := col.Floats()[1], 1.5; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := tab.Column("missing"); !bigbench.Is(err, bigbench.ErrUnknownColumn) {
		t.Errorf("got %v, want %v", err, bigbench.ErrUnknownColumn)
	}
	if !tab.OrderedBy(Asc("id")) || tab.OrderedBy(Desc("id")) || tab.OrderedBy(Asc("id", "amount")) {
		t.Error("OrderedBy")
	}
}

func TestNewMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New(testSchema, frame.Columns([]int64{1}, []string{"x"}), Replicated)
}

func TestEmpty(t *testing.T) {
	tab := Empty(testSchema, Replicated)
	if got, want := tab.Len(), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := len(tab.Frame), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
