package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-profiler/internal/partition"
	"github.com/ajitpratap0/nebula-profiler/pkg/compression"
	"github.com/ajitpratap0/nebula-profiler/pkg/config"
	"github.com/ajitpratap0/nebula-profiler/pkg/job"
	"github.com/ajitpratap0/nebula-profiler/pkg/logger"
	"github.com/ajitpratap0/nebula-profiler/pkg/metrics"
	"github.com/ajitpratap0/nebula-profiler/pkg/observability"
	"github.com/ajitpratap0/nebula-profiler/pkg/registry"
	"github.com/ajitpratap0/nebula-profiler/pkg/report"
	"github.com/ajitpratap0/nebula-profiler/pkg/source/csv"
)

// Flag names. Every flag can also be set through NEBULA_<NAME> with dashes
// replaced by underscores.
const (
	flagJob                = "job"
	flagData               = "data"
	flagConfig             = "config"
	flagPartitions         = "partitions"
	flagWorkers            = "workers"
	flagLayoutPolicy       = "layout-policy"
	flagSampleBackend      = "sample-backend"
	flagBadgerPath         = "badger-path"
	flagMaxSampleRows      = "max-sample-rows"
	flagRenderLimit        = "render-limit"
	flagReport             = "report"
	flagArchive            = "archive"
	flagArchiveCompression = "archive-compression"
	flagLogLevel           = "log-level"
	flagTracing            = "tracing"
	flagMetricsAddr        = "metrics-addr"
	flagDelimiter          = "delimiter"
	flagTimeout            = "timeout"
)

func newProfileCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile a data set",
		Long: `Profile a CSV data set with the components of a YAML job definition.

Example:
  nebula profile --job job.yaml --data customers.csv --partitions 4
  NEBULA_PARTITIONS=8 nebula profile --job job.yaml --data customers.csv --report out/report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.String(flagJob, "", "Path to the YAML job definition (required)")
	flags.String(flagData, "", "Path to the CSV data set (required)")
	flags.String(flagConfig, "", "Path to a YAML run configuration (optional)")
	flags.Int(flagPartitions, 1, "Number of partitions the rows are split into")
	flags.Int(flagWorkers, 0, "Partitions processed concurrently (0 uses all CPUs)")
	flags.String(flagLayoutPolicy, config.LayoutUnion, "Crosstab layout policy when partials disagree (union, strict)")
	flags.String(flagSampleBackend, config.BackendMemory, "Row-sample store (memory, badger)")
	flags.String(flagBadgerPath, "", "Directory of a persistent badger row-sample store")
	flags.Int(flagMaxSampleRows, 20, "Sample rows kept per annotation")
	flags.Int(flagRenderLimit, -1, "Cells rendered per table (-1 renders all)")
	flags.String(flagReport, "", "Write the JSON report to this file instead of stdout")
	flags.String(flagArchive, "", "Also write a compressed report archive to this file")
	flags.String(flagArchiveCompression, string(compression.Zstd), "Archive compression (gzip, snappy, lz4, zstd, s2)")
	flags.String(flagLogLevel, "warn", "Log level (debug, info, warn, error)")
	flags.Bool(flagTracing, false, "Export trace spans to stderr")
	flags.String(flagMetricsAddr, "", "Serve Prometheus metrics on this address while profiling")
	flags.String(flagDelimiter, ",", "CSV field delimiter")
	flags.Duration(flagTimeout, 30*time.Minute, "Profiling timeout")

	v.SetEnvPrefix("NEBULA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	return cmd
}

// loadRunConfig builds the run configuration from defaults, the optional
// configuration file and then flags or environment variables that are set
func loadRunConfig(v *viper.Viper, name string) (*config.BaseConfig, error) {
	cfg := config.NewBaseConfig(name)
	if path := v.GetString(flagConfig); path != "" {
		if err := config.Load(path, cfg); err != nil {
			return nil, err
		}
	}

	if v.IsSet(flagPartitions) {
		cfg.Performance.Partitions = v.GetInt(flagPartitions)
	}
	if v.IsSet(flagWorkers) {
		cfg.Performance.Workers = v.GetInt(flagWorkers)
	}
	if v.IsSet(flagLayoutPolicy) {
		cfg.Reduction.LayoutPolicy = v.GetString(flagLayoutPolicy)
	}
	if v.IsSet(flagRenderLimit) {
		cfg.Reduction.RenderLimit = v.GetInt(flagRenderLimit)
	}
	if v.IsSet(flagSampleBackend) {
		cfg.Sampling.Backend = v.GetString(flagSampleBackend)
	}
	if v.IsSet(flagBadgerPath) {
		cfg.Sampling.BadgerPath = v.GetString(flagBadgerPath)
	}
	if v.IsSet(flagMaxSampleRows) {
		cfg.Sampling.MaxSampleRows = v.GetInt(flagMaxSampleRows)
	}
	if v.IsSet(flagReport) {
		cfg.Output.ReportPath = v.GetString(flagReport)
	}
	if v.IsSet(flagArchive) {
		cfg.Output.ArchivePath = v.GetString(flagArchive)
	}
	if v.IsSet(flagArchiveCompression) {
		cfg.Output.ArchiveCompression = v.GetString(flagArchiveCompression)
	}
	if v.IsSet(flagLogLevel) || v.GetString(flagConfig) == "" {
		cfg.Observability.LogLevel = v.GetString(flagLogLevel)
	}
	if v.IsSet(flagTracing) {
		cfg.Observability.EnableTracing = v.GetBool(flagTracing)
	}
	if v.IsSet(flagMetricsAddr) {
		cfg.Observability.MetricsAddr = v.GetString(flagMetricsAddr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	return cfg, nil
}

func runProfile(cmd *cobra.Command, v *viper.Viper) error {
	jobPath, dataPath := v.GetString(flagJob), v.GetString(flagData)
	if jobPath == "" || dataPath == "" {
		return fmt.Errorf("both --%s and --%s are required", flagJob, flagData)
	}

	j, err := job.Load(jobPath)
	if err != nil {
		return err
	}
	cfg, err := loadRunConfig(v, j.Name)
	if err != nil {
		return err
	}

	zl, err := logger.New(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogEncoding,
	})
	if err != nil {
		return err
	}
	logger.Set(zl)
	defer func() { _ = zl.Sync() }()
	log := zl.With(zap.String("component", "nebula-cli"), zap.String("job", j.Name))

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, v.GetDuration(flagTimeout))
	defer cancelTimeout()

	var collector *metrics.Collector
	if cfg.Observability.EnableMetrics {
		collector = metrics.NewCollector(j.Name)
		if addr := cfg.Observability.MetricsAddr; addr != "" {
			stop := serveMetrics(addr, log)
			defer stop()
		}
	}

	var tracer *observability.Tracer
	if cfg.Observability.EnableTracing {
		tc := observability.DefaultTracingConfig()
		tc.Enabled = true
		tc.ServiceVersion = version
		tc.SamplingRate = cfg.Observability.TracingSampleRate
		if tracer, err = observability.NewTracer(tc); err != nil {
			return err
		}
		defer func() {
			if err := tracer.Shutdown(context.Background()); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}

	opts := csv.DefaultOptions()
	if d := []rune(v.GetString(flagDelimiter)); len(d) == 1 {
		opts.Delimiter = d[0]
	}
	ds, err := csv.ReadFile(ctx, dataPath, opts)
	if err != nil {
		return err
	}
	if len(j.Columns) == 0 {
		j.Columns = ds.Schema.FieldNames()
	}

	store, err := partition.OpenStore(cfg.Sampling, collector, zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close row-sample store", zap.Error(err))
		}
	}()

	runnerCfg, err := partition.ConfigFrom(cfg)
	if err != nil {
		return err
	}
	runner := partition.NewRunner(registry.Default(), store, runnerCfg, zl,
		partition.WithMetrics(collector),
		partition.WithTracer(tracer))

	log.Info("profiling data set",
		zap.String("data", dataPath),
		zap.Int("rows", len(ds.Rows)),
		zap.Int("partitions", cfg.Performance.Partitions))

	out, err := runner.Run(ctx, j, csv.Split(ds.Rows, cfg.Performance.Partitions))
	if err != nil {
		return err
	}

	rep, err := report.Build(ctx, j, out, cfg.Reduction.RenderLimit)
	if err != nil {
		return err
	}

	if cfg.Output.ReportPath != "" {
		if err := report.WriteFile(cfg.Output.ReportPath, rep); err != nil {
			return err
		}
	} else if err := report.WriteJSON(cmd.OutOrStdout(), rep); err != nil {
		return err
	}

	if cfg.Output.ArchivePath != "" {
		algorithm, err := compression.ParseAlgorithm(cfg.Output.ArchiveCompression)
		if err != nil {
			return err
		}
		if err := report.WriteArchive(cfg.Output.ArchivePath, rep, algorithm); err != nil {
			return err
		}
	}

	log.Info("profiling completed",
		zap.String("run_id", out.RunID),
		zap.Duration("duration", out.Duration),
		zap.Float64("rows_per_second", float64(out.Rows)/out.Duration.Seconds()))
	return nil
}

// serveMetrics exposes the Prometheus registry until the returned function
// is called
func serveMetrics(addr string, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
