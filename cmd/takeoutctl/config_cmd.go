package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/takeoutools/takeoutctl/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage takeoutctl configuration. Subcommands allow viewing the loaded
configuration and writing a starter config file.`,
		Example: `  takeoutctl config show
  takeoutctl config init --path takeoutctl.yaml`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration in YAML format, with any
command-line overrides applied.`,
		Example: `  takeoutctl config show
  takeoutctl config show --config /etc/takeoutctl/takeoutctl.yaml`,
		RunE: configShowRun,
	}
}

func configShowRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	data, err := yaml.Marshal(globalCfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Print(string(data))
	return nil
}

var configInitPath string

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Write a configuration file populated with defaults. Edit job.id to the
export job's UUID and auth.curl_path to your captured browser request
before running fetch.`,
		Example: `  takeoutctl config init
  takeoutctl config init --path ~/.config/takeoutctl/takeoutctl.yaml`,
		RunE: configInitRun,
	}

	cmd.Flags().StringVar(&configInitPath, "path", "takeoutctl.yaml", "where to write the config file")

	return cmd
}

func configInitRun(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configInitPath); err == nil {
		return fmt.Errorf("refusing to overwrite existing %s", configInitPath)
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	if err := os.WriteFile(configInitPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configInitPath, err)
	}

	fmt.Printf("Wrote %s — set job.id and auth.curl_path before fetching.\n", configInitPath)
	return nil
}
