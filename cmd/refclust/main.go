// Command refclust clusters bacterial assemblies by Mash distance and
// selects the best reference genome from per-sample ReferenceSeeker
// results.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ahrav/refclust/infrastructure/middleware"
	"github.com/ahrav/refclust/internal/application"
	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/logger"
	"github.com/ahrav/refclust/internal/ports"
)

var version = "dev"

func main() {
	os.Exit(execute(&app{}, os.Args[1:], os.Stdout, os.Stderr))
}

// app holds the state shared by every subcommand. It is populated by the
// root command's persistent flags and setup.
type app struct {
	logMode     string
	metricsFile string
	trace       bool

	log      *logger.Logger
	reg      *prometheus.Registry
	metrics  ports.MetricsCollector
	registry *application.DefaultUnitRegistry
	loader   *application.WorkflowLoader
	shutdown func(context.Context) error
}

// execute runs the command line and returns the process exit code.
func execute(a *app, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if tErr := a.teardown(ctx); tErr != nil && err == nil {
		err = tErr
	}
	if err == nil {
		return 0
	}

	if a.log != nil {
		a.log.Error("command failed", "error", err)
		a.log.Sync()
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "refclust",
		Short:   "Precluster assemblies and pick a reference genome",
		Version: version,
		Long: `refclust groups assemblies into clusters of closely related samples using
a Mash distance table, and ranks the candidate references reported by
ReferenceSeeker to pick the one shared by the most samples.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.logMode, "log-mode", "dev", "log format: dev or prod")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics in textfile format to this path")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "export unit spans to stderr")

	root.AddCommand(
		newClusterCmd(a),
		newMockClusterCmd(a),
		newBestRefCmd(a),
		newRunCmd(a),
		newWorkflowsCmd(),
	)
	return root
}

// setup builds the logger, metrics, tracing and unit registry for a run.
func (a *app) setup(stderr io.Writer) error {
	if a.log == nil {
		switch strings.ToLower(a.logMode) {
		case "dev", "development", "prod", "production":
		default:
			return fmt.Errorf("%w: unknown log mode %q (want dev or prod)", domain.ErrInvalidConfiguration, a.logMode)
		}
		l, err := logger.New(a.logMode)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		a.log = l
	}

	var opts []application.RegistryOption
	if a.metricsFile != "" {
		a.reg = prometheus.NewRegistry()
		pm := middleware.NewPrometheusMetrics(a.reg)
		a.metrics = pm
		opts = append(opts, application.WithMetricsCollector(pm))
	}
	if a.trace {
		shutdown, err := middleware.SetupTracing(middleware.TracingConfig{Version: version, Writer: stderr})
		if err != nil {
			return err
		}
		a.shutdown = shutdown
	}
	if a.trace || a.metrics != nil {
		opts = append(opts, application.WithUnitDecorator(
			middleware.Decorator(middleware.NewOTelUnitObserver(a.metrics)),
		))
	}

	a.registry = application.NewDefaultUnitRegistry(opts...)
	loaderOpts := []application.LoaderOption{application.WithLoaderLogger(a.log)}
	if a.metrics != nil {
		loaderOpts = append(loaderOpts, application.WithLoaderMetrics(a.metrics))
	}
	loader, err := application.NewWorkflowLoader(a.registry, loaderOpts...)
	if err != nil {
		return err
	}
	a.loader = loader
	return nil
}

// teardown flushes spans and writes the metrics file. It runs whether or
// not the command succeeded.
func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.shutdown != nil {
		if err := a.shutdown(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("flush traces: %w", err))
		}
		a.shutdown = nil
	}
	if a.reg != nil && a.metricsFile != "" {
		if err := middleware.WriteTextfile(a.reg, a.metricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// run executes workflow through a Runner bound to the app logger.
func (a *app) run(ctx context.Context, workflow ports.Executable, inputs domain.State) (domain.State, error) {
	return application.NewRunner(a.log).Run(ctx, workflow, inputs)
}

// unitSpec names one unit of a pipeline built in code.
type unitSpec struct {
	unitType string
	id       string
	config   map[string]any
}

// pipeline builds a sequential pipeline from specs using the app registry.
func (a *app) pipeline(id string, specs ...unitSpec) (*application.Pipeline, error) {
	p := application.NewPipeline(id)
	for _, s := range specs {
		unit, err := a.registry.CreateUnit(s.unitType, s.id, s.config)
		if err != nil {
			return nil, err
		}
		if err := unit.Validate(); err != nil {
			return nil, fmt.Errorf("unit %s is invalid: %w", s.id, err)
		}
		adapter := application.NewUnitAdapter(unit, s.id,
			application.WithAdapterLogger(a.log),
			application.WithAdapterMetrics(a.metrics),
		)
		if err := p.Add(adapter); err != nil {
			return nil, err
		}
	}
	return p, nil
}
