// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package query

import (
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/expr"
	"github.com/grailbio/bigbench/pipeline"
	"github.com/grailbio/bigbench/table"
)

const (
	q22Date           = "2001-05-08"
	q22PriceMin       = 0.98
	q22PriceMax       = 1.5
	q22DateWindowDays = 30
	q22RatioMin       = 2.0 / 3.0
	q22RatioMax       = 3.0 / 2.0
	q22Limit          = 100
)

// Q22 compares, for each warehouse and item, the inventory of the 30
// days before a date with that of the 30 days after it, and lists
// the pairs whose inventory changed by less than half.
func Q22() pipeline.Query {
	var (
		day  = expr.Col("d_day")
		date = expr.Date(q22Date)
		qty  = expr.Col("inv_quantity_on_hand")
	)
	return pipeline.Query{
		Name: "q22",
		Inputs: []pipeline.Input{
			{Name: "inv", Table: bigbench.Inventory, Columns: []string{"inv_item_sk", "inv_warehouse_sk", "inv_date_sk", "inv_quantity_on_hand"}},
			{Name: "item", Table: bigbench.Item, Columns: []string{"i_item_id", "i_current_price", "i_item_sk"}},
			{Name: "warehouse", Table: bigbench.Warehouse, Columns: []string{"w_warehouse_sk", "w_warehouse_name"}},
			{Name: "date", Table: bigbench.DateDim, Columns: []string{"d_date_sk", "d_date"}},
		},
		Stages: []pipeline.Stage{
			pipeline.Mark(),
			pipeline.Filter("item", "item", expr.Between(expr.Col("i_current_price"), expr.Float(q22PriceMin), expr.Float(q22PriceMax))),
			pipeline.Project("item", "item", "i_item_id", "i_item_sk"),
			pipeline.Join("inv", "inv", "item", on("inv_item_sk", "i_item_sk")),
			pipeline.Project("inv", "inv", "inv_warehouse_sk", "inv_date_sk", "inv_quantity_on_hand", "i_item_id"),
			pipeline.Derive("date", "date", "d_day", expr.Days(expr.Col("d_date"))),
			pipeline.Filter("date", "date", expr.Between(day,
				expr.Sub(date, expr.Int(q22DateWindowDays)),
				expr.Add(date, expr.Int(q22DateWindowDays)))),
			pipeline.Join("inv", "inv", "date", on("inv_date_sk", "d_date_sk")),
			pipeline.Project("inv", "inv", "i_item_id", "inv_quantity_on_hand", "inv_warehouse_sk", "d_day"),
			pipeline.Join("inv", "inv", "warehouse", on("inv_warehouse_sk", "w_warehouse_sk")),
			pipeline.Project("inv", "inv", "i_item_id", "inv_quantity_on_hand", "d_day", "w_warehouse_name"),
			pipeline.Derive("inv", "inv", "inv_before", expr.If(expr.Lt(day, date), qty, expr.Int(0))),
			pipeline.Derive("inv", "inv", "inv_after", expr.If(expr.Ge(day, date), qty, expr.Int(0))),
			pipeline.GroupBy("inv", "inv", []string{"w_warehouse_name", "i_item_id"},
				sum("inv_before", "sum_inv_before"),
				sum("inv_after", "sum_inv_after")),
			pipeline.Derive("inv", "inv", "inv_ratio", expr.Div(expr.Col("sum_inv_after"), expr.Col("sum_inv_before"))),
			pipeline.Filter("inv", "inv", expr.Between(expr.Col("inv_ratio"), expr.Float(q22RatioMin), expr.Float(q22RatioMax))),
			pipeline.Project("inv", "inv", "w_warehouse_name", "i_item_id", "sum_inv_before", "sum_inv_after"),
			pipeline.Sort("inv", "inv", table.Asc("w_warehouse_name", "i_item_id")...),
			pipeline.Limit("result", "inv", q22Limit),
		},
		Output: "result",
	}
}
