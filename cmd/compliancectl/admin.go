package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"marketingops/internal/domain/auth"
	"marketingops/internal/platform/archive"
	"marketingops/internal/platform/config"
	"marketingops/internal/platform/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(cfg config.Config, pool *pgxpool.Pool) error {
				applied, err := db.Migrate(cmd.Context(), pool, cfg.MigrationsDir)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date.")
					return nil
				}
				for _, version := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", version)
				}
				return nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which migrations have been applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(cfg config.Config, pool *pgxpool.Pool) error {
				migrations, err := db.Status(cmd.Context(), pool, os.DirFS(cfg.MigrationsDir))
				if err != nil {
					return err
				}
				for _, m := range migrations {
					state := "pending"
					if m.Applied {
						state = "applied"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", m.Version, state)
				}
				return nil
			})
		},
	})
	return cmd
}

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect the local SQLite archive",
	}

	var entityType string
	count := &cobra.Command{
		Use:   "count",
		Short: "Count archived records",
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, err := openLocalArchive()
			if err != nil {
				return err
			}
			defer sink.Close()
			n, err := sink.Count(cmd.Context(), entityType)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
			return nil
		},
	}
	count.Flags().StringVarP(&entityType, "entity-type", "e", "", "Only count this entity type")

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Remove archived records older than --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			sink, err := openLocalArchive()
			if err != nil {
				return err
			}
			defer sink.Close()
			n, err := sink.PurgeBefore(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d archived records\n", n)
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 0, "Age threshold, for example 8760h")

	cmd.AddCommand(count, prune)
	return cmd
}

func openLocalArchive() (*archive.SQLiteSink, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.ArchiveDriver != config.ArchiveDriverSQLite {
		return nil, fmt.Errorf("archive commands need ARCHIVE_DRIVER=%s", config.ArchiveDriverSQLite)
	}
	return archive.OpenSQLite(cfg.ArchiveSQLitePath, cfg.ArchivePrefix)
}

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for automation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !auth.ValidRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			if userID == "" {
				userID = uuid.NewString()
			}
			token, err := auth.GenerateToken(cfg.JWTSecret, auth.Claims{UserID: userID, RoleName: role}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "Subject user id (random when empty)")
	cmd.Flags().StringVar(&role, "role", auth.RoleComplianceOfficer, "Role embedded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
