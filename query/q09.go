// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package query

import (
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/engine"
	"github.com/grailbio/bigbench/expr"
	"github.com/grailbio/bigbench/pipeline"
)

const q09Year = 2001

// q09Part is one of the disjuncts of the q09 predicate.
type q09Part struct {
	country                    string
	states                     []string
	netProfitMin, netProfitMax float64
	education, marital         string
	priceMin, priceMax         float64
}

var q09Parts = []q09Part{
	{"United States", []string{"KY", "GA", "NM"}, 0, 2000, "4 yr Degree", "M", 100, 150},
	{"United States", []string{"MT", "OR", "IN"}, 150, 3000, "4 yr Degree", "M", 50, 200},
	{"United States", []string{"WI", "MO", "WV"}, 50, 25000, "4 yr Degree", "M", 150, 200},
}

// demographics is the part's predicate on customer demographics
// and sales price.
func (p q09Part) demographics() expr.Expr {
	return expr.And(
		expr.Eq(expr.Col("cd_marital_status"), expr.Str(p.marital)),
		expr.Eq(expr.Col("cd_education_status"), expr.Str(p.education)),
		expr.Between(expr.Col("ss_sales_price"), expr.Float(p.priceMin), expr.Float(p.priceMax)),
	)
}

// address is the part's predicate on customer address and net
// profit.
func (p q09Part) address() expr.Expr {
	states := make([]expr.Expr, len(p.states))
	for i, state := range p.states {
		states[i] = expr.Str(state)
	}
	return expr.And(
		expr.Eq(expr.Col("ca_country"), expr.Str(p.country)),
		expr.In(expr.Col("ca_state"), states...),
		expr.Between(expr.Col("ss_net_profit"), expr.Float(p.netProfitMin), expr.Float(p.netProfitMax)),
	)
}

// Q09 computes the total quantity of store sales to customers of
// given demographics and locations.
func Q09() pipeline.Query {
	var demographics, address []expr.Expr
	for _, part := range q09Parts {
		demographics = append(demographics, part.demographics())
		address = append(address, part.address())
	}
	return pipeline.Query{
		Name: "q09",
		Inputs: []pipeline.Input{
			{Name: "ss", Table: bigbench.StoreSales, Columns: []string{
				"ss_quantity",
				"ss_sold_date_sk",
				"ss_addr_sk",
				"ss_store_sk",
				"ss_cdemo_sk",
				"ss_sales_price",
				"ss_net_profit",
			}},
			{Name: "address", Table: bigbench.CustomerAddress, Columns: []string{"ca_address_sk", "ca_country", "ca_state"}},
			{Name: "demographics", Table: bigbench.CustomerDemographics, Columns: []string{"cd_demo_sk", "cd_marital_status", "cd_education_status"}},
			{Name: "date", Table: bigbench.DateDim, Columns: []string{"d_year", "d_date_sk"}},
			{Name: "store", Table: bigbench.Store, Columns: []string{"s_store_sk"}},
		},
		Stages: []pipeline.Stage{
			pipeline.Mark(),
			pipeline.Filter("date", "date", expr.Eq(expr.Col("d_year"), expr.Int(q09Year))),
			pipeline.Join("ss", "ss", "date", on("ss_sold_date_sk", "d_date_sk")),
			pipeline.Drop("ss", "ss", "d_year", "d_date_sk", "ss_sold_date_sk"),
			pipeline.Join("ss", "ss", "store", on("ss_store_sk", "s_store_sk")),
			pipeline.Drop("ss", "ss", "ss_store_sk", "s_store_sk"),
			pipeline.Join("ss", "ss", "demographics", on("ss_cdemo_sk", "cd_demo_sk")),
			pipeline.Filter("ss", "ss", expr.Or(demographics...)),
			pipeline.Drop("ss", "ss", "ss_cdemo_sk", "cd_demo_sk", "cd_marital_status", "cd_education_status", "ss_sales_price"),
			pipeline.Join("ss", "ss", "address", on("ss_addr_sk", "ca_address_sk")),
			pipeline.Filter("ss", "ss", expr.Or(address...)),
			pipeline.Drop("ss", "ss", "ss_addr_sk", "ca_address_sk", "ca_country", "ca_state", "ss_net_profit"),
			pipeline.GroupBy("result", "ss", nil, engine.Aggregation{Column: "ss_quantity", Op: engine.Sum, As: "sum(ss_quantity)"}),
		},
		Output: "result",
	}
}
