// Package config defines the strata configuration file.
//
// The configuration is organized into sections:
//   - Store: where stores live and how they are built
//   - Query: execution strategy and the predicate's area threshold
//   - Columns: the table columns the query reads
//   - Observability: logging, metrics and tracing
//
// Example usage:
//
//	cfg, err := config.Load("strata.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Store.ChunkSize = 1600
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Configuration File
//
//	store:
//	  data_dir: ${STRATA_DATA_DIR:-data}
//	  layout: compressed
//	  chunk_size: 800
//	  build_zone_maps: true
//	query:
//	  strategy: auto
//	  area_threshold: 80
//	columns:
//	  month: month
//	  town: town
//	  area: floor_area_sqm
//	  price: resale_price
//	observability:
//	  log_level: info
//	  enable_metrics: true
//	  metrics_addr: ":9090"
//
// Fields missing from the file keep their Default value. ${VAR} and
// ${VAR:-fallback} are substituted from the environment before parsing. The
// strata command binds STRATA_* environment variables and flags on top.
package config
