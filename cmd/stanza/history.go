package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stanza-ai/stanza/pkg/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past conversations",
	}

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryShowCmd(),
		newHistoryDeleteCmd(),
		newHistoryClearCmd(),
	)
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openHistoryStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			convs, err := s.Conversations(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(convs) == 0 {
				fmt.Println("No conversations recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tTURNS\tTOKENS\tLAST ACTIVITY")
			for _, c := range convs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					c.ID, c.Title, c.TurnCount, c.TotalTokens,
					c.LastActivity.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	cmd.Flags().IntVar(&limit, "limit", 20, "max conversations to list")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show the turns of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openHistoryStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			turns, err := s.Turns(context.Background(), args[0])
			if err != nil {
				return err
			}
			if len(turns) == 0 {
				fmt.Println("No turns found for that conversation.")
				return nil
			}

			for _, tn := range turns {
				tag := tn.Role
				if tn.Source == "stale" {
					tag += " (cached)"
				}
				fmt.Printf("[%s] %s:\n%s\n\n",
					tn.CreatedAt.Format("15:04:05"), tag, tn.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	return cmd
}

func newHistoryDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openHistoryStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("Conversation deleted.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear history without --yes")
			}

			s, cleanup, err := openHistoryStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.Clear(context.Background()); err != nil {
				return err
			}
			fmt.Println("History cleared.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func openHistoryStore(configPath string) (*history.SQLiteStore, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	s, err := history.New(cfg.History.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open history db: %w", err)
	}
	return s, func() { _ = s.Close() }, nil
}
