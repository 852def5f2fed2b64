package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stanza-ai/stanza/pkg/audit"
	"github.com/stanza-ai/stanza/pkg/models"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the degraded-mode audit log",
	}

	cmd.AddCommand(
		newAuditListCmd(),
		newAuditStatsCmd(),
		newAuditCleanupCmd(),
	)
	return cmd
}

func newAuditListCmd() *cobra.Command {
	var (
		configPath string
		kind       string
		since      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openAuditStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.AuditQueryOpts{Kind: kind, Limit: limit}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			events, err := s.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("No audit events found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tKIND\tREASON\tDETAIL")
			for _, ev := range events {
				detail := ev.Fingerprint
				if ev.Kind == models.AuditBreakerTransition {
					detail = fmt.Sprintf("%s -> %s", ev.FromState, ev.ToState)
				} else if ev.AgeMs > 0 {
					detail = fmt.Sprintf("%s (age %s)", ev.Fingerprint,
						(time.Duration(ev.AgeMs) * time.Millisecond).Round(time.Second))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Kind, ev.Reason, detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind (degraded_serve, breaker_transition)")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max events to return")
	return cmd
}

func newAuditStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show event counts by kind and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openAuditStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := s.Stats(context.Background())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No audit events recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tDAY\tCOUNT")
			for _, st := range stats {
				fmt.Fprintf(w, "%s\t%s\t%d\n", st.Kind, st.Day, st.Count)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	return cmd
}

func newAuditCleanupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete events older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openAuditStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := s.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d audit events.\n", deleted)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	return cmd
}

func openAuditStore(configPath string) (*audit.Store, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	s, err := audit.New(cfg.Audit.DBPath, cfg.Audit.RetentionDays)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}
	return s, func() { _ = s.Close() }, nil
}
