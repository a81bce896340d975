package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"recipegraph/application/ingestion"
	"recipegraph/infrastructure/config"
	"recipegraph/infrastructure/di"
	recipedynamodb "recipegraph/infrastructure/sources/dynamodb"
	"recipegraph/infrastructure/sources/jsonfile"
)

// ingestOptions holds flags for the ingest command.
type ingestOptions struct {
	File        string
	Table       string
	Database    string
	Concurrency int
	PageSize    int
	BatchDelay  time.Duration
}

func main() {
	if err := newIngestCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newIngestCommand() *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load recipes into the recipe graph",
		Long: `Load recipe records into the graph as recipe, ingredient, tag and
cooking method nodes joined by edges. Re-running over the same records
creates nothing new.

Example:
  ingest --file recipes.json
  ingest --table recipes --concurrency 8`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "JSON or JSON-lines file of recipes")
	cmd.Flags().StringVar(&opts.Table, "table", "", "DynamoDB table to scan (defaults to RECIPE_TABLE)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (defaults to DATABASE_PATH)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "records processed in parallel per batch")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "records per batch")
	cmd.Flags().DurationVar(&opts.BatchDelay, "batch-delay", -1, "minimum spacing between batches")
	cmd.MarkFlagsMutuallyExclusive("file", "table")

	return cmd
}

func runIngest(parent context.Context, opts *ingestOptions, cmd *cobra.Command) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.Database != "" {
		cfg.DatabasePath = opts.Database
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer cleanup()
	logger := container.Logger

	dc := *container.DomainConfig
	if opts.Concurrency > 0 {
		dc.IngestConcurrency = opts.Concurrency
	}
	if opts.PageSize > 0 {
		dc.IngestPageSize = opts.PageSize
	}
	if opts.BatchDelay >= 0 {
		dc.IngestBatchDelay = opts.BatchDelay
	}
	pipeline := container.Pipeline
	if dc != *container.DomainConfig {
		pipeline = ingestion.NewPipeline(container.Nodes, container.Edges, container.Metrics, &dc, logger)
	}

	source, label, err := openSource(opts, cfg, container, dc.IngestPageSize)
	if err != nil {
		return err
	}

	var report ingestion.Report
	run := func(ctx context.Context) error {
		if container.Tracer != nil {
			container.Tracer.AddAnnotation(ctx, "source", label)
		}
		var runErr error
		report, runErr = pipeline.Run(ctx, source)
		if container.Tracer != nil {
			container.Tracer.AddAnnotation(ctx, "records", strconv.Itoa(report.Records))
		}
		return runErr
	}
	if container.Tracer != nil {
		err = container.Tracer.TraceFunction(ctx, "ingest", run)
	} else {
		err = run(ctx)
	}

	if container.CloudWatch != nil {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if ferr := container.CloudWatch.Flush(flushCtx); ferr != nil {
			logger.Warn("Failed to send metrics", zap.Error(ferr))
		}
		cancel()
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"source=%s batches=%d records=%d succeeded=%d failed=%d nodes_created=%d edges_created=%d ingredients_skipped=%d duration=%s\n",
		label, report.Batches, report.Records, report.Succeeded, report.Failed,
		report.NodesCreated, report.EdgesCreated, report.IngredientsSkipped, report.Duration.Round(time.Millisecond),
	)
	if err != nil && errors.Is(err, context.Canceled) {
		logger.Warn("Ingestion interrupted; in-flight batch was completed")
	}
	return err
}

func openSource(opts *ingestOptions, cfg *config.Config, container *di.Container, pageSize int) (ingestion.RecipeSource, string, error) {
	if opts.File != "" {
		src, err := jsonfile.Open(opts.File, pageSize)
		if err != nil {
			return nil, "", err
		}
		return src, "file:" + opts.File, nil
	}

	table := opts.Table
	if table == "" {
		table = cfg.RecipeTable
	}
	if table == "" {
		return nil, "", errors.New("either --file or --table (or RECIPE_TABLE) is required")
	}
	src, err := recipedynamodb.NewSource(container.DynamoDB, table, pageSize, container.Logger)
	if err != nil {
		return nil, "", err
	}
	return src, "dynamodb:" + table, nil
}
