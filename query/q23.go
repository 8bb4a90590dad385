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
	q23Year        = 2001
	q23Month       = 1
	q23Coefficient = 1.3
)

// Q23 finds the items whose inventory varied strongly in each of two
// consecutive months, in the same warehouse.
func Q23() pipeline.Query {
	keys := []string{"inv_warehouse_sk", "inv_item_sk"}
	moy := expr.Col("d_moy")
	return pipeline.Query{
		Name: "q23",
		Inputs: []pipeline.Input{
			{Name: "date", Table: bigbench.DateDim, Columns: []string{"d_date_sk", "d_year", "d_moy"}},
			{Name: "inv", Table: bigbench.Inventory, Columns: []string{"inv_warehouse_sk", "inv_item_sk", "inv_date_sk", "inv_quantity_on_hand"}},
		},
		Stages: []pipeline.Stage{
			pipeline.Mark(),
			pipeline.Join("inv", "inv", "date", on("inv_date_sk", "d_date_sk")),
			pipeline.Filter("inv", "inv", expr.And(
				expr.Eq(expr.Col("d_year"), expr.Int(q23Year)),
				expr.Between(moy, expr.Int(q23Month), expr.Int(q23Month+1)))),
			pipeline.GroupBy("inv", "inv", append(keys, "d_moy"),
				engine.Aggregation{Column: "inv_quantity_on_hand", Op: engine.Mean, As: "qty_mean"},
				engine.Aggregation{Column: "inv_quantity_on_hand", Op: engine.Std, As: "qty_std"}),
			pipeline.Derive("inv", "inv", "qty_cov", expr.Div(expr.Col("qty_std"), expr.Col("qty_mean"))),
			pipeline.Filter("inv", "inv", expr.Gt(expr.Col("qty_cov"), expr.Float(q23Coefficient))),
			pipeline.Project("inv", "inv", "inv_warehouse_sk", "inv_item_sk", "d_moy", "qty_cov"),
			pipeline.Filter("inv1", "inv", expr.Eq(moy, expr.Int(q23Month))),
			pipeline.Copy("inv2", "inv"),
			pipeline.Filter("inv2", "inv2", expr.Eq(moy, expr.Int(q23Month+1))),
			pipeline.Join("result", "inv1", "inv2", engine.JoinSpec{
				LeftOn:      keys,
				RightOn:     keys,
				LeftPrefix:  "l_",
				RightPrefix: "r_",
			}),
			pipeline.Rename("result", "result", map[string]string{
				"l_d_moy":   "d_moy",
				"r_d_moy":   "inv2_d_moy",
				"l_qty_cov": "cov",
				"r_qty_cov": "inv2_cov",
			}),
			pipeline.Sort("result", "result", table.Asc("l_inv_warehouse_sk", "l_inv_item_sk")...),
		},
		Output: "result",
	}
}
