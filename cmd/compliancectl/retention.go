package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"marketingops/internal/domain/compliance"
	"marketingops/internal/platform/config"
	"marketingops/internal/platform/jobs"
)

func newSweepCmd() *cobra.Command {
	var entityType string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Apply retention policies now",
		Long:  "Runs one retention sweep over every policy, or only the policy for --entity-type.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobs(cmd.Context(), func(svc *jobs.Service) error {
				report, err := svc.SweepNow(cmd.Context(), entityType)
				if err != nil {
					return fmt.Errorf("sweep: %w", err)
				}
				printReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&entityType, "entity-type", "e", "", "Only sweep this entity type")
	return cmd
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Hard-delete rows whose scheduled deletion date has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobs(cmd.Context(), func(svc *jobs.Service) error {
				purged, err := svc.PurgeNow(cmd.Context())
				if err != nil {
					return fmt.Errorf("purge: %w", err)
				}
				printPurge(cmd.OutOrStdout(), purged)
				return nil
			})
		},
	}
}

func newPoliciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Inspect retention policies",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List retention policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(cfg config.Config, pool *pgxpool.Pool) error {
				policies, err := compliance.NewStore(pool).ListPolicies(cmd.Context())
				if err != nil {
					return fmt.Errorf("listing policies: %w", err)
				}
				printPolicies(cmd.OutOrStdout(), policies)
				return nil
			})
		},
	})
	return cmd
}

func printReport(w io.Writer, report *compliance.RetentionReport) {
	if report == nil || len(report.Results) == 0 {
		fmt.Fprintln(w, "No retention policies matched.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tSTATUS\tPROCESSED\tARCHIVED\tDELETED\tERROR")
	for _, r := range report.Results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.EntityType, r.Status, r.RecordsProcessed, r.RecordsArchived, r.RecordsDeleted, r.Error)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nTotal: %d processed, %d archived, %d deleted in %.2fs\n",
		report.TotalProcessed, report.TotalArchived, report.TotalDeleted, report.ExecutionTimeSec)
}

func printPurge(w io.Writer, purged map[string]int64) {
	if len(purged) == 0 {
		fmt.Fprintln(w, "Nothing to purge.")
		return
	}
	types := make([]string, 0, len(purged))
	for entityType := range purged {
		types = append(types, entityType)
	}
	sort.Strings(types)
	for _, entityType := range types {
		fmt.Fprintf(w, "%s: %d purged\n", entityType, purged[entityType])
	}
}

func printPolicies(w io.Writer, policies []compliance.RetentionPolicy) {
	if len(policies) == 0 {
		fmt.Fprintln(w, "No retention policies.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tDAYS\tSTRATEGY\tDELETED ONLY\tLEGAL BASIS")
	for _, p := range policies {
		basis := ""
		if p.LegalBasis != nil {
			basis = *p.LegalBasis
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%t\t%s\n", p.EntityType, p.RetentionPeriodDays, p.ArchiveStrategy, p.AppliesToDeleted, basis)
	}
	tw.Flush()
}
