package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stanza-ai/stanza/pkg/config"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "stanza",
		Short:   "Stanza — resilient chat client for OpenAI-compatible endpoints",
		Version: version,
	}

	root.AddCommand(
		newChatCmd(),
		newModelsCmd(),
		newDoctorCmd(),
		newMemoryCmd(),
		newHistoryCmd(),
		newAuditCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the logging settings.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	return cfg, nil
}
