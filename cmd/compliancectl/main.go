// Command compliancectl runs compliance maintenance tasks against the
// configured database without starting the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"marketingops/internal/domain/compliance"
	"marketingops/internal/platform/archive"
	"marketingops/internal/platform/config"
	"marketingops/internal/platform/db"
	"marketingops/internal/platform/jobs"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "compliancectl",
		Short:         "Maintenance commands for the compliance subsystem",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSweepCmd(),
		newPurgeCmd(),
		newPoliciesCmd(),
		newMigrateCmd(),
		newArchiveCmd(),
		newTokenCmd(),
	)
	return root
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// withPool connects to DATABASE_URL for the duration of fn.
func withPool(ctx context.Context, fn func(cfg config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("compliancectl needs STORE_DRIVER=%s", config.StoreDriverPostgres)
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()
	return fn(cfg, pool)
}

// withJobs builds the retention job runner on top of the database and the
// configured archive.
func withJobs(ctx context.Context, fn func(svc *jobs.Service) error) error {
	return withPool(ctx, func(cfg config.Config, pool *pgxpool.Pool) error {
		sink, closeSink, err := openSink(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeSink()

		retention := compliance.NewRetentionService(compliance.NewStore(pool), sink,
			compliance.WithDeletionGrace(cfg.ScheduledDeletionGrace))
		return fn(jobs.New(retention, jobs.Options{Runs: jobs.PgRunStore{DB: pool}}))
	})
}

func openSink(ctx context.Context, cfg config.Config) (compliance.ArchiveSink, func(), error) {
	if cfg.ArchiveDriver == config.ArchiveDriverS3 {
		sink, err := archive.NewS3Sink(ctx, archive.S3Config{
			Bucket:       cfg.ArchiveBucket,
			Prefix:       cfg.ArchivePrefix,
			Region:       cfg.ArchiveRegion,
			Endpoint:     cfg.ArchiveEndpoint,
			UsePathStyle: cfg.ArchivePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return sink, func() {}, nil
	}
	sink, err := archive.OpenSQLite(cfg.ArchiveSQLitePath, cfg.ArchivePrefix)
	if err != nil {
		return nil, nil, err
	}
	return sink, func() { _ = sink.Close() }, nil
}
