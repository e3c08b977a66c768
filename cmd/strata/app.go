package main

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/config"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/json"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/metrics"
	"github.com/ajitpratap0/strata/pkg/observability"
	"github.com/ajitpratap0/strata/pkg/query"
)

// app carries state shared by every subcommand. Settings are resolved in
// order: defaults, YAML file, STRATA_* environment, flags.
type app struct {
	v          *viper.Viper
	configFile string
	jsonOut    bool

	cfg      *config.Config
	log      *zap.Logger
	loader   *columnar.CachedLoader
	shutdown []func(context.Context) error
}

func newApp() *app {
	v := viper.New()
	v.SetEnvPrefix("strata")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &app{v: v}
}

func (a *app) root() *cobra.Command {
	root := &cobra.Command{
		Use:   "strata",
		Short: "Strata - compressed, zone-mapped column store for resale price queries",
		Long: `Strata loads a resale transaction table into column stores, one per layout,
and answers (month, town, floor area) price queries against them using zone-map
pruning, scans over dictionary codes, or a full column scan.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error { return a.teardown() },
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configFile, "config", "c", "", "Path to YAML configuration file")
	f.BoolVar(&a.jsonOut, "json", false, "Write reports as JSON")
	f.String("data-dir", "", "Directory holding one store per layout")
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.Bool("metrics", false, "Serve Prometheus metrics while the command runs")
	f.String("metrics-addr", "", "Listen address of the metrics endpoint")
	f.Bool("trace", false, "Export trace spans to stderr")

	root.AddCommand(
		a.loadCmd(),
		a.queryCmd(),
		a.benchCmd(),
		a.analyzeCmd(),
		versionCmd(),
	)
	return root
}

// flagKeys maps configuration keys to the flags that override them. A flag
// wins over the file and the environment only when set on the command line.
var flagKeys = map[string]string{
	"store.data_dir":               "data-dir",
	"store.layout":                 "layout",
	"store.chunk_size":             "chunk-size",
	"store.workers":                "workers",
	"store.build_zone_maps":        "zone-maps",
	"store.keep_plain":             "keep-plain",
	"query.strategy":               "strategy",
	"query.area_threshold":         "threshold",
	"query.cache_artifacts":        "cache",
	"observability.log_level":      "log-level",
	"observability.enable_metrics": "metrics",
	"observability.metrics_addr":   "metrics-addr",
	"observability.enable_tracing": "trace",
}

// bind attaches the running command's flags to their configuration keys.
func (a *app) bind(flags *pflag.FlagSet) error {
	for key, name := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flag").WithDetail("flag", name)
			}
		}
	}
	return nil
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.configFile != "" {
		loaded, err := config.Load(a.configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := a.bind(cmd.Flags()); err != nil {
		return err
	}
	a.override(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	obs := cfg.Observability
	if err := logger.Init(logger.Config{
		Level:       obs.LogLevel,
		Development: obs.Development,
		Encoding:    obs.LogEncoding,
		OutputPaths: []string{"stderr"},
	}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
	}
	a.log = logger.Get().With(
		zap.String("component", "strata-cli"),
		zap.String("command", cmd.Name()))

	if cfg.Query.CacheArtifacts {
		a.loader = columnar.NewCachedLoader(nil)
	}

	if obs.EnableTracing {
		tc := observability.DefaultTracingConfig()
		tc.ServiceVersion = version
		tc.SamplingRate = obs.TracingSampleRate
		tc.Writer = cmd.ErrOrStderr()
		shutdown, err := observability.InitTracing(tc)
		if err != nil {
			return err
		}
		a.shutdown = append(a.shutdown, shutdown)
	}
	if obs.EnableMetrics {
		a.serveMetrics(obs.MetricsAddr)
	}
	return nil
}

// override applies environment variables and flags on top of cfg.
func (a *app) override(cfg *config.Config) {
	str := func(key string, dst *string) {
		if a.v.IsSet(key) {
			*dst = a.v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if a.v.IsSet(key) {
			*dst = a.v.GetInt(key)
		}
	}
	flag := func(key string, dst *bool) {
		if a.v.IsSet(key) {
			*dst = a.v.GetBool(key)
		}
	}

	str("store.data_dir", &cfg.Store.DataDir)
	str("store.layout", &cfg.Store.Layout)
	num("store.chunk_size", &cfg.Store.ChunkSize)
	num("store.workers", &cfg.Store.Workers)
	flag("store.build_zone_maps", &cfg.Store.BuildZoneMaps)
	flag("store.keep_plain", &cfg.Store.KeepPlain)

	str("query.strategy", &cfg.Query.Strategy)
	if a.v.IsSet("query.area_threshold") {
		cfg.Query.AreaThreshold = a.v.GetFloat64("query.area_threshold")
	}
	flag("query.cache_artifacts", &cfg.Query.CacheArtifacts)

	str("observability.log_level", &cfg.Observability.LogLevel)
	str("observability.log_encoding", &cfg.Observability.LogEncoding)
	flag("observability.enable_metrics", &cfg.Observability.EnableMetrics)
	str("observability.metrics_addr", &cfg.Observability.MetricsAddr)
	flag("observability.enable_tracing", &cfg.Observability.EnableTracing)
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	a.log.Info("serving metrics", zap.String("addr", addr))
	a.shutdown = append(a.shutdown, srv.Shutdown)
}

func (a *app) teardown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var first error
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	a.shutdown = nil
	_ = logger.Sync()
	return first
}

// openEngine opens the store of layout and returns an engine over it.
func (a *app) openEngine(layout columnar.Layout, strategy query.Strategy) (*query.Engine, error) {
	opts := []columnar.Option{columnar.WithLogger(a.log)}
	if a.loader != nil {
		opts = append(opts, columnar.WithLoader(a.loader))
	}
	store, err := columnar.Open(a.cfg.StoreDir(layout), opts...)
	if err != nil {
		return nil, err
	}
	return query.NewEngine(store,
		query.WithLogger(a.log),
		query.WithStrategy(strategy),
		query.WithColumns(a.cfg.Columns))
}

// report writes v as JSON under --json and through text otherwise.
func (a *app) report(cmd *cobra.Command, v interface{}, text func(io.Writer) error) error {
	if a.jsonOut {
		return json.Write(cmd.OutOrStdout(), v, true)
	}
	return text(cmd.OutOrStdout())
}
