// Package main provides the isamples binary entry point.
// It transforms registry records into iSamples Core records and search
// documents.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/isamples/config"
	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/localcontexts"
	"github.com/c360studio/isamples/pipeline"
	"github.com/c360studio/isamples/schema"
	"github.com/c360studio/isamples/transform"
	"github.com/c360studio/isamples/vocabulary"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "isamples"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "iSamples metadata transformation",
		Long: `isamples converts sample records from SESAR, GEOME, OpenContext and the
Smithsonian into iSamples Core records and flat search documents.

Categories are resolved against the iSamples vocabularies; records that rules
cannot place are sent to the classification model server.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		transformCmd(&flags),
		indexCmd(&flags),
		vocabCmd(&flags),
		noticesCmd(&flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// setup configures logging and loads configuration.
func (f *globalFlags) setup() (*config.Config, *slog.Logger, error) {
	logger := newLogger(f.logLevel)
	slog.SetDefault(logger)

	cfg, err := loadConfig(f.configPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger, nil
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads an explicit config file, or falls back to the layered
// user and project configuration.
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	if path == "" {
		return config.NewLoader(logger).Load()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func transformCmd(flags *globalFlags) *cobra.Command {
	var authority string

	cmd := &cobra.Command{
		Use:   "transform --authority <authority> <file|glob>...",
		Short: "Print iSamples Core records for source files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			a, err := core.ParseAuthority(authority)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			deps, closeDeps, err := buildDependencies(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer closeDeps()

			inputs, err := readInputs(a, args)
			if err != nil {
				return err
			}
			return printRecords(ctx, cmd.OutOrStdout(), inputs, deps, cfg.Pipeline.IncludeH3, logger)
		},
	}
	cmd.Flags().StringVarP(&authority, "authority", "a", "", "Source authority (SESAR, GEOME, OPENCONTEXT, SMITHSONIAN, CORE)")
	_ = cmd.MarkFlagRequired("authority")
	return cmd
}

// printRecords writes each canonical record as indented JSON. Excluded and
// broken records are logged and skipped.
func printRecords(ctx context.Context, w io.Writer, inputs []pipeline.Input, deps transform.Dependencies, includeH3 bool, logger *slog.Logger) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, in := range inputs {
		tr, err := transform.New(in.Authority, in.Raw, deps)
		if err != nil {
			logger.Error("Record could not be parsed", slog.String("origin", in.Origin), slog.String("error", err.Error()))
			continue
		}
		for _, t := range transform.Expand(tr) {
			rec, err := transform.Transform(ctx, t, includeH3)
			if core.IsExclusion(err) {
				logger.Info("Record excluded", slog.String("identifier", t.SampleIdentifier()), slog.String("reason", err.Error()))
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("Record transform failed", slog.String("identifier", t.SampleIdentifier()), slog.String("error", err.Error()))
				continue
			}
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
	}
	return nil
}

func indexCmd(flags *globalFlags) *cobra.Command {
	var (
		authority   string
		output      string
		workers     int
		validate    bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "index --authority <authority> <file|glob>...",
		Short: "Transform, assemble and write search documents",
		Long: `index runs source files through transformation and assembly and writes
the search documents as JSON lines, or publishes them to NATS when nats.url
is configured.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			a, err := core.ParseAuthority(authority)
			if err != nil {
				return err
			}
			if workers > 0 {
				cfg.Pipeline.Workers = workers
			}
			ctx, cancel := signalContext()
			defer cancel()

			reg := prometheus.NewRegistry()
			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr, reg, logger)
				defer stop()
			}

			deps, closeDeps, err := buildDependencies(cfg, logger, reg)
			if err != nil {
				return err
			}
			defer closeDeps()

			inputs, err := readInputs(a, args)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return pipeline.ErrNoInputs
			}

			run := indexRun{
				logger:    logger,
				reg:       reg,
				workers:   cfg.Pipeline.Workers,
				includeH3: cfg.Pipeline.IncludeH3,
				validate:  validate,
				openSink:  func() (pipeline.Sink, error) { return openSink(cfg, output, cmd.OutOrStdout()) },
			}
			stats, runErr := run.run(ctx, deps, inputs)
			if stats.RunID != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "run %s: %d indexed, %d excluded, %d invalid, %d failed in %s\n",
					stats.RunID, stats.Indexed, stats.Excluded, stats.Invalid, stats.Failed, stats.Duration.Round(time.Millisecond))
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&authority, "authority", "a", "", "Source authority (SESAR, GEOME, OPENCONTEXT, SMITHSONIAN, CORE)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "JSON lines output file (- for stdout); ignored when nats.url is set")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent records (overrides pipeline.workers)")
	cmd.Flags().BoolVar(&validate, "validate", true, "Validate canonical records against the iSamples Core schema")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	_ = cmd.MarkFlagRequired("authority")
	return cmd
}

// indexRun wires metrics, validation and the sink around one pipeline run.
type indexRun struct {
	logger    *slog.Logger
	reg       prometheus.Registerer
	workers   int
	includeH3 bool
	validate  bool
	openSink  func() (pipeline.Sink, error)
}

// run opens the sink only after everything else is ready and always closes
// it once opened.
func (r indexRun) run(ctx context.Context, deps transform.Dependencies, inputs []pipeline.Input) (pipeline.Stats, error) {
	metrics, err := pipeline.NewMetrics(r.reg)
	if err != nil {
		return pipeline.Stats{}, err
	}
	opts := []pipeline.Option{
		pipeline.WithWorkers(r.workers),
		pipeline.WithIncludeH3(r.includeH3),
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(r.logger),
	}
	if r.validate {
		v, err := schema.NewValidator()
		if err != nil {
			return pipeline.Stats{}, err
		}
		opts = append(opts, pipeline.WithValidator(v))
	}

	sink, err := r.openSink()
	if err != nil {
		return pipeline.Stats{}, err
	}
	stats, runErr := pipeline.New(deps, sink, opts...).Run(ctx, inputs)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close output: %w", err)
	}
	return stats, runErr
}

// fileSink closes the output file after the JSON lines sink flushes.
type fileSink struct {
	*pipeline.JSONLSink
	f *os.File
}

func (s fileSink) Close() error {
	return errors.Join(s.JSONLSink.Close(), s.f.Close())
}

func openSink(cfg *config.Config, output string, stdout io.Writer) (pipeline.Sink, error) {
	if cfg.NATS.URL != "" {
		sink, err := pipeline.ConnectNATSSink(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, err
		}
		return sink, nil
	}
	if output == "" || output == "-" {
		return pipeline.NewJSONLSink(stdout), nil
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return fileSink{JSONLSink: pipeline.NewJSONLSink(f), f: f}, nil
}

// serveMetrics exposes reg over HTTP until the returned stop is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", slog.String("addr", addr), slog.String("error", err.Error()))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func vocabCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "vocab <material|specimen|sampledfeature>",
		Short:     "List the terms of a vocabulary",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(vocabulary.KindMaterial), string(vocabulary.KindSpecimen), string(vocabulary.KindSampledFeature)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			v, err := newVocabularySet(cfg, logger).Get(ctx, vocabulary.Kind(strings.ToLower(args[0])))
			if err != nil {
				return err
			}
			return writeTerms(cmd.OutOrStdout(), v.Terms())
		},
	}
}

func writeTerms(w io.Writer, terms []vocabulary.Term) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLABEL\tURI")
	for _, t := range terms {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Key, t.Label, t.URI)
	}
	return tw.Flush()
}

func noticesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "notices <project-id|localcontexts:projects/id>",
		Short: "Show the Local Contexts notices for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			client, err := localcontexts.NewClient(cfg.LocalContexts.URL,
				localcontexts.WithCacheSize(cfg.LocalContexts.CacheSize),
				localcontexts.WithLogger(logger))
			if err != nil {
				return err
			}
			defer client.Close()

			id := args[0]
			if projectID, ok := localcontexts.ProjectID(id); ok {
				id = projectID
			}
			info, err := client.ProjectInfo(ctx, id)
			if err != nil {
				return err
			}
			if info == nil {
				return fmt.Errorf("no Local Contexts project %s", id)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}
