// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
	Package bigbench implements a harness for running the TPCx-BB
	decision support queries over a partitioned data set with a group
	of cooperating workers.

	Each worker in a group of size N reads its own partition ("shard")
	of the large tables and an identical copy of the small, broadcast
	tables. Tables that take part in the refresh phase are read twice,
	once from the base data tree and once from the refresh tree, and
	the two are concatenated. Workers then run the same query pipeline
	(filter, join, aggregate, sort, limit), cooperating only through
	the collective operations of a relational engine, and finally
	write one measurement record each. The records of a run are
	collected, checked for completeness and averaged into a ledger.

	The subpackages are layered as follows:

		schema     column definitions of each table
		partition  table and worker to partition file mapping
		tableio    typed ingestion of partitions
		engine     the relational engine boundary; exec implements it
		           in-process for a group of goroutine workers
		pipeline   sequencing of query stages; query holds the battery
		collect    per-worker records, completeness checks and ledgers
		bench      configuration and orchestration of benchmark runs

	This package defines the closed set of tables and the error
	taxonomy shared by the subpackages.
*/
package bigbench
