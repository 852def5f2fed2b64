package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stanza-ai/stanza/pkg/api"
	"github.com/stanza-ai/stanza/pkg/resilience"
)

func newModelsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models advertised by the endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			client, _, cleanup, err := buildClient(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := client.Send(context.Background(), resilience.Request{Path: api.PathModels})
			if err != nil {
				return err
			}

			list, err := api.ParseModelList(res.Payload)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No models available.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tOWNED BY")
			for _, m := range list {
				fmt.Fprintf(w, "%s\t%s\n", m.ID, m.OwnedBy)
			}
			if res.Stale() {
				fmt.Fprintf(w, "\n(cached list, %s)\n", res.Reason)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	return cmd
}
