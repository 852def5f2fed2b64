package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stanza-ai/stanza/pkg/api"
	"github.com/stanza-ai/stanza/pkg/models"
	"github.com/stanza-ai/stanza/pkg/resilience"
)

func newDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check endpoint connectivity and resilience state",
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

			fmt.Printf("Endpoint: %s\n", cfg.Endpoint.BaseURL)

			ctx := context.Background()
			start := time.Now()
			res, err := client.Send(ctx, resilience.Request{Path: api.PathModels})
			latency := time.Since(start).Round(time.Millisecond)

			breaker := client.Breaker()
			if err != nil {
				fmt.Printf("Status:   unreachable (%v)\n", err)
				fmt.Printf("Breaker:  %s\n", breaker.State())
				return fmt.Errorf("endpoint check failed")
			}

			list, err := api.ParseModelList(res.Payload)
			if err != nil {
				return err
			}
			fmt.Printf("Status:   connected (%s)\n", latency)
			fmt.Printf("Models:   %d available\n", len(list))
			fmt.Printf("Breaker:  %s\n", breaker.State())

			if cfg.Endpoint.Model != "" && !hasModel(list, cfg.Endpoint.Model) {
				fmt.Printf("Warning:  configured model %q is not in the advertised list\n", cfg.Endpoint.Model)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	return cmd
}

func hasModel(list []models.ModelInfo, id string) bool {
	for _, m := range list {
		if m.ID == id {
			return true
		}
	}
	return false
}
