// Package nebula is a partitioned data profiler. It runs analyzers over the
// rows of a data set, optionally split into disjoint partitions processed in
// parallel, and merges the partial results into one report whose content does
// not depend on the number of partitions or the order of merging.
//
// # Architecture
//
// Results are built on a multi-dimensional crosstab (pkg/crosstab): each
// dimension is an ordered set of categories, each cell holds one value and
// may carry a drill-down result that is resolved lazily, usually the sampled
// rows behind the cell (pkg/annotation).
//
// Partial results are merged by reducers (pkg/reduce). A reducer must be
// associative and commutative. The crosstab reducer builds a master table
// from the partials, sums counts, keeps extremes and lets analyzers derive
// averages and variances again from the merged totals. The category reducer
// merges row-sample buckets through the row-sample store.
//
// The partition runner (internal/partition) keys each partial result by its
// component key, folds partials with the same key pairwise and merges
// different keys concurrently. A job with a component that has no reducer is
// rejected before any row is read when more than one partition is requested.
//
// # Quick Start
//
//	j, _ := job.Load("job.yaml")
//	ds, _ := csv.ReadFile(ctx, "customers.csv", csv.DefaultOptions())
//
//	store := annotation.NewMemoryStore(annotation.DefaultMaxSampleRows)
//	runner := partition.NewRunner(registry.Default(), store, partition.DefaultConfig(), logger.Get())
//
//	out, err := runner.Run(ctx, j, csv.Split(ds.Rows, 4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rep, _ := report.Build(ctx, j, out, -1)
//	_ = report.WriteJSON(os.Stdout, rep)
//
// The same run is available from the command line:
//
//	nebula profile --job job.yaml --data customers.csv --partitions 4
//
// # Components
//
//   - number: counts, extremes, sum, mean, variance and standard deviation
//   - string: blank and case counts, character and word statistics
//   - boolean: true and false counts plus ranked value combinations
//   - completeness: VALID and INVALID rows depending on null or blank values
//   - pattern: one row bucket per character-class pattern of a column
package nebula
