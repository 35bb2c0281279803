package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vearutop/spendcache/internal/config"
	"gopkg.in/yaml.v3"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "spendcache",
		Short:         "Personal finance API with cached insights",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to YAML config file, "+config.EnvPrefix+"* env vars override it")

	cmd.AddCommand(newServeCmd(&configPath), newConfigCmd(&configPath))

	return cmd
}

func newConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Validate and print resolved configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			if cfg.Advisor.APIKey != "" {
				cfg.Advisor.APIKey = "redacted"
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}

			cmd.Print(string(out))

			return nil
		},
	}
}
