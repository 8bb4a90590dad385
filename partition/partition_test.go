// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partition

import (
	"reflect"
	"testing"

	"github.com/grailbio/bigbench"
)

const root = "/bench/4/sf1/data"

func TestResolveShard(t *testing.T) {
	r := New(root)
	for _, c := range []struct {
		rank, n int
		want    string
	}{
		{0, 1, "/bench/4/sf1/data/store/store_1.dat"},
		{3, 4, "/bench/4/sf1/data/store/store_4.dat"},
		{8, 9, "/bench/4/sf1/data/store/store_9.dat"},
		{0, 10, "/bench/4/sf1/data/store/store_01.dat"},
		{8, 16, "/bench/4/sf1/data/store/store_09.dat"},
		{9, 16, "/bench/4/sf1/data/store/store_10.dat"},
		{15, 16, "/bench/4/sf1/data/store/store_16.dat"},
	} {
		got, err := r.Resolve(Spec{Table: bigbench.Store, Rank: c.rank, NumWorkers: c.n})
		if err != nil {
			t.Fatal(err)
		}
		if want := []string{c.want}; !reflect.DeepEqual(got, want) {
			t.Errorf("rank %d/%d: got %v, want %v", c.rank, c.n, got, want)
		}
	}
}

func TestResolveBroadcast(t *testing.T) {
	r := New(root)
	for _, n := range []int{1, 8, 9, 10, 16} {
		want := "/bench/4/sf1/data/date_dim/date_dim_1.dat"
		if n >= 10 {
			want = "/bench/4/sf1/data/date_dim/date_dim_01.dat"
		}
		for rank := 0; rank < n; rank++ {
			got, err := r.Resolve(Spec{Table: bigbench.DateDim, Rank: rank, NumWorkers: n})
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 || got[0] != want {
				t.Errorf("rank %d/%d: got %v, want %v", rank, n, got, want)
			}
		}
	}
}

func TestResolveRefresh(t *testing.T) {
	r := New(root)
	got, err := r.Resolve(Spec{Table: bigbench.StoreSales, Rank: 1, NumWorkers: 4, Ext: ".dat"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"/bench/4/sf1/data/store_sales/store_sales_2.dat",
		"/bench/4/sf1/data_refresh/store_sales/store_sales_2.dat",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	r = &Resolver{Root: "s3://bucket/gen/base", BaseSegment: "base", RefreshSegment: "delta"}
	got, err = r.Resolve(Spec{Table: bigbench.Item, Rank: Unranked, Ext: "csv"})
	if err != nil {
		t.Fatal(err)
	}
	want = []string{
		"s3://bucket/gen/base/item/item.csv",
		"s3://bucket/gen/delta/item/item.csv",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveUnranked(t *testing.T) {
	got, err := New(root).Resolve(Spec{Table: bigbench.DateDim, Rank: Unranked})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"/bench/4/sf1/data/date_dim/date_dim.dat"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveError(t *testing.T) {
	r := New(root)
	for _, c := range []struct {
		spec Spec
		want error
	}{
		{Spec{Table: "parquet", Rank: 0, NumWorkers: 1}, bigbench.ErrUnknownTable},
		{Spec{Table: bigbench.Store, Rank: 0, NumWorkers: 0}, bigbench.ErrBadPartition},
		{Spec{Table: bigbench.Store, Rank: 4, NumWorkers: 4}, bigbench.ErrBadPartition},
		{Spec{Table: bigbench.Store, Rank: -2, NumWorkers: 4}, bigbench.ErrBadPartition},
	} {
		_, err := r.Resolve(c.spec)
		if !bigbench.Is(err, c.want) {
			t.Errorf("%v: got %v, want %v", c.spec, err, c.want)
		}
	}
	r = New("/bench/4/sf1/base")
	_, err := r.Resolve(Spec{Table: bigbench.Item, Rank: 0, NumWorkers: 1})
	if !bigbench.Is(err, bigbench.ErrBadPartition) {
		t.Errorf("got %v, want %v", err, bigbench.ErrBadPartition)
	}
}

func TestSets(t *testing.T) {
	for _, table := range bigbench.Tables {
		if IsBroadcast(table) && IsRefresh(table) {
			t.Errorf("%s: broadcast table receives refresh data", table)
		}
	}
	if !IsSmall(bigbench.Item) || !IsSmall(bigbench.DateDim) || IsSmall(bigbench.StoreSales) {
		t.Error("unexpected small tables")
	}
}
