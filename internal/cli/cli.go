// Package cli holds the setup shared by the keysmith commands: flags bound
// to config keys, the logger, tracing and metrics.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pilab-dev/keysmith/config"
	"github.com/pilab-dev/keysmith/internal/metrics"
	"github.com/pilab-dev/keysmith/log"
	"github.com/pilab-dev/keysmith/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Flag names shared by all commands.
const (
	FlagConfig          = "config"
	FlagLogLevel        = "log-level"
	FlagLogPretty       = "log-pretty"
	FlagFormat          = "format"
	FlagMetricsTextfile = "metrics-textfile"
	FlagTrace           = "trace"
)

// CommonFlagKeys maps the shared flags onto config keys.
var CommonFlagKeys = map[string]string{
	FlagLogLevel:        "log_level",
	FlagLogPretty:       "log_pretty",
	FlagFormat:          "output.format",
	FlagMetricsTextfile: "metrics.textfile",
	FlagTrace:           "tracing.enabled",
}

// AddCommonFlags registers the shared flags on cmd. None is required.
func AddCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String(FlagConfig, "",
		fmt.Sprintf("config file (default is ./%s.yaml, /etc/%s/, $HOME/.%s/)", config.ConfigFileName, config.AppName, config.AppName))
	f.String(FlagLogLevel, "info", "log level (debug, info, warn, error)")
	f.Bool(FlagLogPretty, false, "human readable logs instead of JSON")
	f.String(FlagFormat, "text", "output format (text, hex, yaml)")
	f.String(FlagMetricsTextfile, "", "write Prometheus metrics to this file on exit")
	f.Bool(FlagTrace, false, "export OpenTelemetry spans to stderr")
}

// Runtime is the per-run state built from the loaded configuration.
type Runtime struct {
	Config   *config.Config
	Logger   log.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	tp         *sdktrace.TracerProvider
	prevTracer trace.TracerProvider
}

// Setup loads configuration for cmd, binding the common flags plus
// extraKeys, and builds the logger, metrics and optional tracer provider.
// Logs and spans go to cmd's stderr.
func Setup(cmd *cobra.Command, extraKeys map[string]string) (*Runtime, error) {
	cfgFile, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return nil, err
	}

	v := config.NewViper(cfgFile)
	if err := config.BindFlags(v, cmd.Flags(), CommonFlagKeys); err != nil {
		return nil, err
	}
	if err := config.BindFlags(v, cmd.Flags(), extraKeys); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	stderr := cmd.ErrOrStderr()
	logger := log.NewZerologAdapterWriter(stderr, level, cfg.LogPretty).With(log.Fields{
		"cmd":    cmd.Name(),
		"run_id": uuid.NewString(),
	})

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  collector,
	}

	if cfg.Tracing.Enabled {
		rt.prevTracer = otel.GetTracerProvider()
		tp, err := tracing.InitTracerProvider(cmd.Name(), stderr)
		if err != nil {
			return nil, fmt.Errorf("init tracer provider: %w", err)
		}
		rt.tp = tp
	}

	logger.Debug(cmd.Context(), "configuration loaded", log.Fields{"config_file": v.ConfigFileUsed()})
	return rt, nil
}

// Close flushes spans and writes the metrics textfile when configured.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.tp != nil {
		if err := r.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
		otel.SetTracerProvider(r.prevTracer)
	}
	if path := r.Config.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path, r.Registry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fail logs err and marks it as reported so Execute does not print it again.
func (r *Runtime) Fail(ctx context.Context, msg string, err error) error {
	r.Logger.Error(ctx, msg, err)
	return &reportedError{err: fmt.Errorf("%s: %w", msg, err)}
}

type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// Execute runs cmd and exits with status 1 on failure.
func Execute(cmd *cobra.Command) {
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		}
		os.Exit(1)
	}
}

// Silence configures cmd so cobra prints neither usage nor the error on a
// failed run; Execute and Runtime.Fail report errors instead.
func Silence(cmd *cobra.Command) {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
}
