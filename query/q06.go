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
	q06Year  = 2001
	q06Limit = 100
)

// Q06 finds the customers whose web spending grew faster than their
// store spending from one year to the next.
func Q06() pipeline.Query {
	stages := []pipeline.Stage{
		pipeline.Mark(),
		pipeline.Filter("date", "date", expr.Between(expr.Col("d_year"), expr.Int(q06Year), expr.Int(q06Year+1))),
	}
	stages = append(stages, q06YearTotals("ws", "ws_bill_customer_sk", "web")...)
	stages = append(stages, q06YearTotals("ss", "ss_customer_sk", "store")...)
	stages = append(stages,
		pipeline.Join("sales", "ws", "ss", on("ws_bill_customer_sk", "ss_customer_sk")),
		pipeline.Derive("sales", "sales", "web_sales_increase_ratio",
			expr.Div(expr.Col("second_year_total_web"), expr.Col("first_year_total_web"))),
		pipeline.Join("sales", "sales", "customer", on("ws_bill_customer_sk", "c_customer_sk")),
		pipeline.Project("sales", "sales",
			"ws_bill_customer_sk",
			"web_sales_increase_ratio",
			"c_email_address",
			"c_first_name",
			"c_last_name",
			"c_preferred_cust_flag",
			"c_birth_country",
			"c_login",
		),
		pipeline.Rename("sales", "sales", map[string]string{"ws_bill_customer_sk": "c_customer_sk"}),
		pipeline.Sort("sales", "sales", table.Desc(
			"web_sales_increase_ratio",
			"c_customer_sk",
			"c_first_name",
			"c_last_name",
			"c_preferred_cust_flag",
			"c_birth_country",
			"c_login",
		)...),
		pipeline.Limit("result", "sales", q06Limit),
	)
	return pipeline.Query{
		Name: "q06",
		Inputs: []pipeline.Input{
			{Name: "ws", Table: bigbench.WebSales, Columns: []string{
				"ws_bill_customer_sk",
				"ws_sold_date_sk",
				"ws_ext_list_price",
				"ws_ext_wholesale_cost",
				"ws_ext_discount_amt",
				"ws_ext_sales_price",
			}},
			{Name: "ss", Table: bigbench.StoreSales, Columns: []string{
				"ss_customer_sk",
				"ss_sold_date_sk",
				"ss_ext_list_price",
				"ss_ext_wholesale_cost",
				"ss_ext_discount_amt",
				"ss_ext_sales_price",
			}},
			{Name: "date", Table: bigbench.DateDim, Columns: []string{"d_date_sk", "d_year", "d_moy"}},
			{Name: "customer", Table: bigbench.Customer, Columns: []string{
				"c_customer_sk",
				"c_customer_id",
				"c_email_address",
				"c_first_name",
				"c_last_name",
				"c_preferred_cust_flag",
				"c_birth_country",
				"c_login",
			}},
		},
		Stages: stages,
		Output: "result",
	}
}

// q06YearTotals computes, for each customer of the sales relation
// rel, the sales totals of the first and second year, for customers
// with first year sales. Column names are prefixed by rel; the
// totals are suffixed by channel.
func q06YearTotals(rel, customer, channel string) []pipeline.Stage {
	col := func(name string) expr.Expr { return expr.Col(rel + "_" + name) }
	sales := expr.Div(
		expr.Add(expr.Sub(expr.Sub(col("ext_list_price"), col("ext_wholesale_cost")), col("ext_discount_amt")), col("ext_sales_price")),
		expr.Int(2))
	first, second := rel+"_first", rel+"_second"
	return []pipeline.Stage{
		pipeline.Join(rel, rel, "date", on(rel+"_sold_date_sk", "d_date_sk")),
		pipeline.GroupBy(rel, rel, []string{customer, "d_year"},
			sum(rel+"_ext_list_price", rel+"_ext_list_price"),
			sum(rel+"_ext_wholesale_cost", rel+"_ext_wholesale_cost"),
			sum(rel+"_ext_discount_amt", rel+"_ext_discount_amt"),
			sum(rel+"_ext_sales_price", rel+"_ext_sales_price"),
		),
		pipeline.Filter(first, rel, expr.Eq(expr.Col("d_year"), expr.Int(q06Year))),
		pipeline.Derive(first, first, "first_year_sales", sales),
		pipeline.Derive(first, first, "second_year_sales", expr.Float(0)),
		pipeline.Filter(second, rel, expr.Eq(expr.Col("d_year"), expr.Int(q06Year+1))),
		pipeline.Derive(second, second, "first_year_sales", expr.Float(0)),
		pipeline.Derive(second, second, "second_year_sales", sales),
		pipeline.Concat(rel, first, second),
		pipeline.GroupBy(rel, rel, []string{customer},
			sum("first_year_sales", "first_year_total_"+channel),
			sum("second_year_sales", "second_year_total_"+channel),
		),
		pipeline.Filter(rel, rel, expr.Gt(expr.Col("first_year_total_"+channel), expr.Float(0))),
	}
}
