// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partition

import "github.com/grailbio/bigbench"

// Broadcast tables have a single partition. Every worker loads the
// same copy, so joins against them never redistribute data.
var broadcast = tableSet(
	bigbench.CustomerDemographics,
	bigbench.DateDim,
	bigbench.HouseholdDemographics,
	bigbench.TimeDim,
)

// Refresh tables receive data in the refresh phase. Their refresh
// partitions have the same parallelism as their base partitions.
var refresh = tableSet(
	bigbench.Customer,
	bigbench.CustomerAddress,
	bigbench.Inventory,
	bigbench.Item,
	bigbench.ItemMarketprices,
	bigbench.ProductReviews,
	bigbench.StoreReturns,
	bigbench.StoreSales,
	bigbench.WebClickstreams,
	bigbench.WebReturns,
	bigbench.WebSales,
)

// Small tables stay small enough to fit within a single worker even
// at large scale factors, if string columns are not read. Super
// small ones do not grow with the scale factor at all.
var (
	small = tableSet(
		bigbench.Customer,
		bigbench.CustomerAddress,
		bigbench.Item,
		bigbench.ItemMarketprices,
	)
	superSmall = tableSet(
		bigbench.DateDim,
		bigbench.TimeDim,
		bigbench.WebSite,
		bigbench.IncomeBand,
		bigbench.ShipMode,
		bigbench.HouseholdDemographics,
		bigbench.Promotion,
		bigbench.WebPage,
		bigbench.Warehouse,
		bigbench.Reason,
		bigbench.Store,
	)
)

func tableSet(tables ...bigbench.Table) map[bigbench.Table]bool {
	set := make(map[bigbench.Table]bool, len(tables))
	for _, t := range tables {
		set[t] = true
	}
	return set
}

// IsBroadcast tells whether table has a single partition shared by
// all workers.
func IsBroadcast(table bigbench.Table) bool { return broadcast[table] }

// IsRefresh tells whether table has refresh phase data that must
// be unioned onto its base data.
func IsRefresh(table bigbench.Table) bool { return refresh[table] }

// IsSmall tells whether table is expected to fit within a single
// worker regardless of scale factor.
func IsSmall(table bigbench.Table) bool { return small[table] || superSmall[table] }
