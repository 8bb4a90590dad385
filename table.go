// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigbench

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// A Table names one of the logical tables of the TPCx-BB data set.
type Table string

// The tables of the TPCx-BB data set.
const (
	Customer              Table = "customer"
	CustomerAddress       Table = "customer_address"
	CustomerDemographics  Table = "customer_demographics"
	DateDim               Table = "date_dim"
	HouseholdDemographics Table = "household_demographics"
	IncomeBand            Table = "income_band"
	Inventory             Table = "inventory"
	Item                  Table = "item"
	ItemMarketprices      Table = "item_marketprices"
	ProductReviews        Table = "product_reviews"
	Promotion             Table = "promotion"
	Reason                Table = "reason"
	ShipMode              Table = "ship_mode"
	Store                 Table = "store"
	StoreReturns          Table = "store_returns"
	StoreSales            Table = "store_sales"
	TimeDim               Table = "time_dim"
	Warehouse             Table = "warehouse"
	WebClickstreams       Table = "web_clickstreams"
	WebPage               Table = "web_page"
	WebReturns            Table = "web_returns"
	WebSales              Table = "web_sales"
	WebSite               Table = "web_site"
)

// Tables lists every table, in alphabetical order.
var Tables = []Table{
	Customer,
	CustomerAddress,
	CustomerDemographics,
	DateDim,
	HouseholdDemographics,
	IncomeBand,
	Inventory,
	Item,
	ItemMarketprices,
	ProductReviews,
	Promotion,
	Reason,
	ShipMode,
	Store,
	StoreReturns,
	StoreSales,
	TimeDim,
	Warehouse,
	WebClickstreams,
	WebPage,
	WebReturns,
	WebSales,
	WebSite,
}

var known = make(map[Table]bool)

func init() {
	for _, t := range Tables {
		known[t] = true
	}
}

// Valid tells whether t is one of the data set's tables.
func (t Table) Valid() bool { return known[t] }

func (t Table) String() string { return string(t) }

// ParseTable returns the table with the given name. ParseTable
// fails with ErrUnknownTable if there is no such table.
func ParseTable(name string) (Table, error) {
	t := Table(name)
	if !t.Valid() {
		return "", errors.E(errors.NotExist, ErrUnknownTable, fmt.Sprintf("table %q", name))
	}
	return t, nil
}
