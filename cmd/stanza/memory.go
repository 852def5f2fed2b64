package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stanza-ai/stanza/pkg/memory"
	"github.com/stanza-ai/stanza/pkg/models"
)

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage persistent memory",
	}

	cmd.AddCommand(
		newMemoryRememberCmd(),
		newMemoryRecallCmd(),
		newMemoryForgetCmd(),
		newMemoryListCmd(),
		newMemorySearchCmd(),
	)
	return cmd
}

func newMemoryRememberCmd() *cobra.Command {
	var (
		configPath string
		category   string
	)

	cmd := &cobra.Command{
		Use:   "remember <key> <value>",
		Short: "Store a fact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openMemoryStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.Remember(context.Background(), args[0], args[1], category); err != nil {
				return err
			}
			fmt.Printf("Remembered %q.\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	cmd.Flags().StringVar(&category, "category", "", "category (default general)")
	return cmd
}

func newMemoryRecallCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "recall <key>",
		Short: "Look up a fact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openMemoryStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			e, err := s.Recall(context.Background(), args[0])
			if errors.Is(err, memory.ErrNotFound) {
				fmt.Printf("Nothing stored under %q.\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(e.Value)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	return cmd
}

func newMemoryForgetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "forget <key>",
		Short: "Remove a fact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openMemoryStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.Forget(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Forgot %q.\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	return cmd
}

func newMemoryListCmd() *cobra.Command {
	var (
		configPath string
		category   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored facts",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openMemoryStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := s.List(context.Background(), category)
			if err != nil {
				return err
			}
			printMemoryEntries(entries)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	return cmd
}

func newMemorySearchCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search keys and values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openMemoryStore(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := s.Search(context.Background(), args[0])
			if err != nil {
				return err
			}
			printMemoryEntries(entries)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	return cmd
}

func openMemoryStore(configPath string) (*memory.SQLiteStore, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	s, err := memory.New(cfg.Memory.DBPath, cfg.Memory.MaxEntries)
	if err != nil {
		return nil, nil, fmt.Errorf("open memory db: %w", err)
	}
	return s, func() { _ = s.Close() }, nil
}

func printMemoryEntries(entries []models.MemoryEntry) {
	if len(entries) == 0 {
		fmt.Println("No entries found.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE\tCATEGORY\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Key, e.Value, e.Category, e.UpdatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}
