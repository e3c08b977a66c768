package config

import (
	"path/filepath"
	"runtime"

	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/query"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

// Config is the root configuration.
type Config struct {
	Store         StoreConfig         `yaml:"store" json:"store"`
	Query         QueryConfig         `yaml:"query" json:"query"`
	Columns       query.Columns       `yaml:"columns" json:"columns"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// StoreConfig controls where stores are written and how.
type StoreConfig struct {
	// DataDir holds one subdirectory per layout
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// Layout is the layout queried by default (compressed, plain)
	Layout string `yaml:"layout" json:"layout"`
	// ChunkSize is the number of rows per zone, a multiple of 8
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// BuildZoneMaps writes a zone map per column
	BuildZoneMaps bool `yaml:"build_zone_maps" json:"build_zone_maps"`
	// KeepPlain also writes .col files for dictionary-coded columns
	KeepPlain bool `yaml:"keep_plain" json:"keep_plain"`
	// Workers bounds parallel column encoding (0 = number of CPUs)
	Workers int `yaml:"workers" json:"workers"`
}

// QueryConfig controls query execution.
type QueryConfig struct {
	// Strategy is the first path tried (auto, zone_pruned, compressed_scan, full_scan)
	Strategy string `yaml:"strategy" json:"strategy"`
	// AreaThreshold is the inclusive minimum floor area
	AreaThreshold float64 `yaml:"area_threshold" json:"area_threshold"`
	// CacheArtifacts keeps parsed dictionaries and zone maps between queries
	CacheArtifacts bool `yaml:"cache_artifacts" json:"cache_artifacts"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogEncoding is json or console
	LogEncoding string `yaml:"log_encoding" json:"log_encoding"`
	// Development enables development logging
	Development bool `yaml:"development" json:"development"`
	// EnableMetrics serves Prometheus metrics on MetricsAddr
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// MetricsAddr is the listen address of the metrics endpoint
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	// EnableTracing exports spans to stdout
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// Default returns a configuration with every field set.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			DataDir:       "data",
			Layout:        string(columnar.LayoutCompressed),
			ChunkSize:     zonemap.DefaultChunkSize,
			BuildZoneMaps: true,
			Workers:       runtime.NumCPU(),
		},
		Query: QueryConfig{
			Strategy:      string(query.StrategyAuto),
			AreaThreshold: query.DefaultAreaThreshold,
		},
		Columns: query.DefaultColumns(),
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogEncoding:       "console",
			MetricsAddr:       ":9090",
			TracingSampleRate: 1.0,
		},
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Store.DataDir == "" {
		return invalid("store.data_dir is required")
	}
	if _, err := columnar.ParseLayout(c.Store.Layout); err != nil {
		return invalid("store.layout: " + err.Error())
	}
	if err := zonemap.CheckChunkSize(c.Store.ChunkSize); err != nil {
		return invalid("store.chunk_size: " + err.Error())
	}
	if c.Store.Workers < 0 {
		return invalid("store.workers cannot be negative")
	}
	if _, err := query.ParseStrategy(c.Query.Strategy); err != nil {
		return invalid("query.strategy: " + err.Error())
	}
	if c.Query.AreaThreshold < 0 {
		return invalid("query.area_threshold cannot be negative")
	}
	for key, name := range map[string]string{
		"columns.month": c.Columns.Month,
		"columns.town":  c.Columns.Town,
		"columns.area":  c.Columns.Area,
		"columns.price": c.Columns.Price,
	} {
		if name == "" {
			return invalid(key + " is required")
		}
	}
	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		return invalid("observability.tracing_sample_rate must be within [0,1]")
	}
	return nil
}

// StoreDir returns the directory of the store with the given layout.
func (c *Config) StoreDir(layout columnar.Layout) string {
	return filepath.Join(c.Store.DataDir, string(layout))
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (s *StoreConfig) GetWorkers() int {
	if s.Workers <= 0 {
		return runtime.NumCPU()
	}
	return s.Workers
}

func invalid(msg string) error {
	return errors.New(errors.ErrorTypeConfig, msg)
}
