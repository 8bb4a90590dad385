// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package query

import (
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/engine"
	"github.com/grailbio/bigbench/expr"
	"github.com/grailbio/bigbench/pipeline"
	"github.com/grailbio/bigbench/table"
)

const (
	q07HigherPriceRatio = 1.2
	q07Year             = 2004
	q07Month            = 7
	q07HavingCountGE    = 10
	q07Limit            = 10
)

// Q07 lists the states with the most customers who bought items
// priced well above their category's average in a given month.
func Q07() pipeline.Query {
	return pipeline.Query{
		Name: "q07",
		Inputs: []pipeline.Input{
			{Name: "item", Table: bigbench.Item, Columns: []string{"i_item_sk", "i_current_price", "i_category"}},
			{Name: "ss", Table: bigbench.StoreSales, Columns: []string{"ss_item_sk", "ss_customer_sk", "ss_sold_date_sk"}},
			{Name: "date", Table: bigbench.DateDim, Columns: []string{"d_date_sk", "d_year", "d_moy"}},
			{Name: "customer", Table: bigbench.Customer, Columns: []string{"c_customer_sk", "c_current_addr_sk"}},
			{Name: "address", Table: bigbench.CustomerAddress, Columns: []string{"ca_address_sk", "ca_state"}},
		},
		Stages: []pipeline.Stage{
			pipeline.Mark(),
			pipeline.GroupBy("avg", "item", []string{"i_category"},
				engine.Aggregation{Column: "i_current_price", Op: engine.Mean, As: "avg_price"}),
			pipeline.Join("item", "item", "avg", on("i_category", "i_category")),
			pipeline.Drop("item", "item", "rt-i_category"),
			pipeline.Rename("item", "item", map[string]string{"lt-i_category": "i_category"}),
			pipeline.Filter("item", "item", expr.Gt(
				expr.Col("i_current_price"),
				expr.Mul(expr.Col("avg_price"), expr.Float(q07HigherPriceRatio)))),

			pipeline.Filter("date", "date", expr.And(
				expr.Eq(expr.Col("d_year"), expr.Int(q07Year)),
				expr.Eq(expr.Col("d_moy"), expr.Int(q07Month)))),
			pipeline.Join("ss", "ss", "date", on("ss_sold_date_sk", "d_date_sk")),
			pipeline.Project("ss", "ss", "ss_item_sk", "ss_customer_sk", "ss_sold_date_sk"),
			pipeline.Join("ss", "ss", "item", on("ss_item_sk", "i_item_sk")),
			pipeline.Join("ss", "ss", "customer", on("ss_customer_sk", "c_customer_sk")),
			pipeline.Filter("address", "address", expr.NotNull(expr.Col("ca_state"))),
			pipeline.Join("ss", "ss", "address", on("c_current_addr_sk", "ca_address_sk")),

			pipeline.GroupBy("counts", "ss", []string{"ca_state"},
				engine.Aggregation{Column: "ca_address_sk", Op: engine.Count, As: "cnt"}),
			pipeline.Filter("counts", "counts", expr.Ge(expr.Col("cnt"), expr.Int(q07HavingCountGE))),
			pipeline.Sort("counts", "counts", table.Desc("cnt")...),
			pipeline.Limit("result", "counts", q07Limit),
		},
		Output: "result",
	}
}
