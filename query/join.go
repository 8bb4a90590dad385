// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package query

import (
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/pipeline"
)

// Join is the join micro benchmark: it joins web sales and store
// sales on their customer, and reports the time spent joining, of
// which shuffling and local joins.
func Join() pipeline.Query {
	cols := []string{"ext_list_price", "ext_wholesale_cost", "ext_discount_amt", "ext_sales_price"}
	ws := []string{"ws_bill_customer_sk", "ws_sold_date_sk"}
	ss := []string{"ss_customer_sk", "ss_sold_date_sk"}
	for _, col := range cols {
		ws = append(ws, "ws_"+col)
		ss = append(ss, "ss_"+col)
	}
	return pipeline.Query{
		Name: "join",
		Inputs: []pipeline.Input{
			{Name: "ws", Table: bigbench.WebSales, Columns: ws},
			{Name: "ss", Table: bigbench.StoreSales, Columns: ss},
		},
		Stages: []pipeline.Stage{
			pipeline.Rename("ws", "ws", map[string]string{"ws_bill_customer_sk": "customer_sk"}),
			pipeline.Rename("ss", "ss", map[string]string{"ss_customer_sk": "customer_sk"}),
			pipeline.Mark(),
			pipeline.Join("merged", "ws", "ss", on("customer_sk", "customer_sk")),
		},
		Measures: []string{pipeline.MeasureCompute, pipeline.MeasureShuffle, pipeline.MeasureJoin},
	}
}
