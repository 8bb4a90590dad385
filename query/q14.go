// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package query

import (
	"github.com/grailbio/bigbench"
	"github.com/grailbio/bigbench/engine"
	"github.com/grailbio/bigbench/expr"
	"github.com/grailbio/bigbench/pipeline"
	"github.com/grailbio/bigbench/schema"
)

const (
	q14Dependents       = 5
	q14MorningStartHour = 7
	q14MorningEndHour   = 8
	q14EveningStartHour = 19
	q14EveningEndHour   = 20
	q14ContentLenMin    = 5000
	q14ContentLenMax    = 6000
)

// Q14 computes the ratio of morning to evening web sales to
// households of a given size on pages of a given length. The ratio
// is -1 when there are no evening sales.
func Q14() pipeline.Query {
	hour := expr.Col("t_hour")
	flag := func(start, end int64) expr.Expr {
		return expr.If(expr.Between(hour, expr.Int(start), expr.Int(end)), expr.Int(1), expr.Null(schema.Int))
	}
	return pipeline.Query{
		Name: "q14",
		Inputs: []pipeline.Input{
			{Name: "ws", Table: bigbench.WebSales, Columns: []string{"ws_ship_hdemo_sk", "ws_web_page_sk", "ws_sold_time_sk"}},
			{Name: "hd", Table: bigbench.HouseholdDemographics, Columns: []string{"hd_demo_sk", "hd_dep_count"}},
			{Name: "wp", Table: bigbench.WebPage, Columns: []string{"wp_web_page_sk", "wp_char_count"}},
			{Name: "time", Table: bigbench.TimeDim, Columns: []string{"t_time_sk", "t_hour"}},
		},
		Stages: []pipeline.Stage{
			pipeline.Mark(),
			pipeline.Filter("hd", "hd", expr.Eq(expr.Col("hd_dep_count"), expr.Int(q14Dependents))),
			pipeline.Join("ws", "ws", "hd", on("ws_ship_hdemo_sk", "hd_demo_sk")),
			pipeline.Drop("ws", "ws", "ws_ship_hdemo_sk", "hd_demo_sk", "hd_dep_count"),
			pipeline.Filter("wp", "wp", expr.Between(expr.Col("wp_char_count"), expr.Int(q14ContentLenMin), expr.Int(q14ContentLenMax))),
			pipeline.Join("ws", "ws", "wp", on("ws_web_page_sk", "wp_web_page_sk")),
			pipeline.Drop("ws", "ws", "ws_web_page_sk", "wp_web_page_sk", "wp_char_count"),
			pipeline.Filter("time", "time", expr.In(hour,
				expr.Int(q14MorningStartHour), expr.Int(q14MorningEndHour),
				expr.Int(q14EveningStartHour), expr.Int(q14EveningEndHour))),
			pipeline.Join("ws", "ws", "time", on("ws_sold_time_sk", "t_time_sk")),
			pipeline.Drop("ws", "ws", "ws_sold_time_sk", "t_time_sk"),
			pipeline.Derive("ws", "ws", "am", flag(q14MorningStartHour, q14MorningEndHour)),
			pipeline.Derive("ws", "ws", "pm", flag(q14EveningStartHour, q14EveningEndHour)),
			pipeline.GroupBy("counts", "ws", nil,
				engine.Aggregation{Column: "am", Op: engine.Count, As: "am_count"},
				engine.Aggregation{Column: "pm", Op: engine.Count, As: "pm_count"}),
			pipeline.Derive("counts", "counts", "am_pm_ratio", expr.If(
				expr.Eq(expr.Col("pm_count"), expr.Int(0)),
				expr.Float(-1),
				expr.Div(expr.Col("am_count"), expr.Col("pm_count")))),
			pipeline.Project("result", "counts", "am_pm_ratio"),
		},
		Output: "result",
	}
}
