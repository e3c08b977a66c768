// Package strata is a small column store for one fixed-schema table of resale
// transactions, built to answer a single query shape quickly:
//
//	(month == A OR month == next(A)) AND town == T AND floor_area_sqm >= 80
//
// followed by the minimum, average and sample standard deviation of the
// price and the minimum price per square meter over the matching rows.
//
// # Architecture
//
// A store is a directory holding one or more files per column and a
// metadata.txt naming the columns, the record count and the zone size.
//
// 1. Dictionary coding: a column with fewer distinct values than a tenth of
// its rows is written as a .dict file (value → code) and a .cmp file of
// fixed-width, MSB-first bit-packed codes. Other columns are written as
// newline-delimited .col text.
//
// 2. Zone maps: every column is cut into zones of the same number of rows.
// Each zone records the minimum and maximum decoded value and the byte span
// of the zone in the column file, so a zone that cannot hold a match is
// skipped without being read.
//
// 3. Query paths: a query first intersects the surviving zones of the month,
// town and area columns and decodes only those. When zone maps are missing it
// scans the dictionary codes of the month and town columns without decoding
// them, and as a last resort it decodes every column in full. Each fallback is
// logged and counted.
//
// # Quick Start
//
//	strata load resale.csv --data-dir data
//	strata query --data-dir data --month 2016-04 --town "CHOA CHU KANG"
//	strata bench --data-dir data --month 2016-04 --town "CHOA CHU KANG" --runs 10
//	strata analyze --data-dir data
//
// From Go:
//
//	store, err := columnar.Open("data/compressed")
//	engine, err := query.NewEngine(store)
//	res, err := engine.RunQuery(ctx, "2016-04", "CHOA CHU KANG", query.DefaultAreaThreshold)
//
// # Key Packages
//
//	pkg/bitstream     - MSB-first fixed-width bit packing
//	pkg/dictionary    - Per-column value dictionaries and the .dict format
//	pkg/columnar      - Column files, metadata.txt and store readers
//	pkg/zonemap       - Zone map construction, persistence and pruning
//	pkg/query         - Predicate evaluation, query paths and aggregates
//	pkg/table         - CSV loading into column-major tables
//	pkg/analysis      - Storage size comparison, benchmarks and memory probes
//	pkg/config        - YAML configuration
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus metrics
//	pkg/observability - OpenTelemetry tracing
//
// # Configuration
//
// The CLI reads an optional YAML file, then STRATA_* environment variables
// (STRATA_STORE_DATA_DIR, STRATA_QUERY_STRATEGY, ...), then flags. Values in
// the file may reference the environment with ${VAR_NAME} or
// ${VAR_NAME:-fallback}.
package strata
