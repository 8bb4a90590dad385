// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package collect

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigbench"
	"github.com/grailbio/testutil"
)

func writeRecords(t *testing.T, dir, query string, recs ...Record) {
	t.Helper()
	ctx := context.Background()
	for _, rec := range recs {
		if err := WriteRecord(ctx, ArtifactPath(dir, query, rec.Rank), rec); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRecord(t *testing.T) {
	rec := Record{Rank: 3, Values: []float64{1.5, 0.25}}
	if got, want := rec.String(), "3,1.5,0.25"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	got, err := ParseRecord([]byte("3,1.5,0.25\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("got %v, want %v", got, rec)
	}
	for _, bad := range []string{"", "3", "x,1", "-1,2", "1,y", "1,2\n2,3"} {
		_, err := ParseRecord([]byte(bad))
		if !bigbench.Is(err, bigbench.ErrMalformedRecord) {
			t.Errorf("%q: got %v, want ErrMalformedRecord", bad, err)
		}
	}
}

func TestArtifactPath(t *testing.T) {
	if got, want := ArtifactPath("/out", "q09", 2), "/out/q09-rank-2.csv"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := ArtifactPattern("/out", "q09"), "/out/q09-rank-*.csv"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCollect(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	writeRecords(t, dir, "q09",
		Record{0, []float64{1, 10}},
		Record{1, []float64{2, 20}},
		Record{2, []float64{3, 30}},
		Record{3, []float64{4, 40}},
	)
	// Artifacts of other queries are not collected.
	writeRecords(t, dir, "q14", Record{0, []float64{100, 100}})

	ledger := filepath.Join(dir, "q09_ledger.csv")
	c := Collector{Ledger: ledger}
	for i := 0; i < 2; i++ {
		agg, err := c.Collect(ctx, ArtifactPattern(dir, "q09"), 4)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := agg, (Aggregate{Workers: 4, Means: []float64{2.5, 25}}); !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	}
	data, err := ioutil.ReadFile(ledger)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), "2.50,25.00\n2.50,25.00\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCollectMismatch(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	writeRecords(t, dir, "q09",
		Record{0, []float64{1}},
		Record{1, []float64{2}},
		Record{2, []float64{3}},
		Record{3, []float64{4}},
	)
	ledger := filepath.Join(dir, "ledger.csv")
	c := Collector{Ledger: ledger}
	_, err := c.Collect(ctx, ArtifactPattern(dir, "q09"), 5)
	if !bigbench.Is(err, bigbench.ErrWorkerCountMismatch) {
		t.Errorf("got %v, want ErrWorkerCountMismatch", err)
	}
	if !errors.Is(errors.Precondition, err) {
		t.Errorf("got %v, want Precondition", err)
	}
	if _, err := os.Stat(ledger); !os.IsNotExist(err) {
		t.Errorf("ledger was written: %v", err)
	}
	if _, err := c.Collect(ctx, ArtifactPattern(filepath.Join(dir, "missing"), "q09"), 1); !bigbench.Is(err, bigbench.ErrWorkerCountMismatch) {
		t.Errorf("got %v, want ErrWorkerCountMismatch", err)
	}
}

func TestCollectDuplicate(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	writeRecords(t, dir, "q09", Record{0, []float64{1}})
	if err := WriteRecord(ctx, filepath.Join(dir, "q09-rank-x.csv"), Record{0, []float64{2}}); err != nil {
		t.Fatal(err)
	}
	_, err := Collector{}.Collect(ctx, ArtifactPattern(dir, "q09"), 2)
	if !bigbench.Is(err, bigbench.ErrWorkerCountMismatch) {
		t.Errorf("got %v, want ErrWorkerCountMismatch", err)
	}
}

func TestCollectMalformed(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	writeRecords(t, dir, "q09", Record{0, []float64{1}}, Record{1, []float64{1, 2}})
	_, err := Collector{}.Collect(ctx, ArtifactPattern(dir, "q09"), 2)
	if !bigbench.Is(err, bigbench.ErrMalformedRecord) {
		t.Errorf("got %v, want ErrMalformedRecord", err)
	}
	if err := ioutil.WriteFile(ArtifactPath(dir, "q09", 1), []byte("garbage\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = Collector{}.Collect(ctx, ArtifactPattern(dir, "q09"), 2)
	if !bigbench.Is(err, bigbench.ErrMalformedRecord) {
		t.Errorf("got %v, want ErrMalformedRecord", err)
	}
}

func TestLedger(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	path := filepath.Join(dir, "ledger.csv")
	if err := ioutil.WriteFile(path, []byte("1.00,4.00\n3.00,8.00\n\n"), 0644); err != nil {
		t.Fatal(err)
	}
	rows, err := ReadLedger(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := rows, [][]float64{{1, 4}, {3, 8}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	means, err := Summarize(rows)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := means, []float64{2, 6}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := Summarize(nil); err == nil {
		t.Error("expected error")
	}
	if _, err := Summarize([][]float64{{1}, {1, 2}}); !bigbench.Is(err, bigbench.ErrMalformedRecord) {
		t.Errorf("got %v, want ErrMalformedRecord", err)
	}
}
