package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igextract/pkg/config"
	"igextract/pkg/proxy"
	"igextract/pkg/ui"
)

// defaultConfigPath is where config init writes when --config is not given
const defaultConfigPath = ".igextract.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igextract configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IGEXTRACT_*, also read from .env)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file holding every option at its default value.

The file is created as '.igextract.yaml' in the current directory unless a
different path is given with --config. An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources.

Proxy credentials are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(os.Stderr, quiet)

	configPath := configFile
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); err == nil {
		printer.Error("Configuration file already exists", configPath)
		return fmt.Errorf("refusing to overwrite %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		printer.Error("Failed to create configuration file", err)
		return err
	}

	printer.Success("Configuration file created: " + configPath)
	printer.Note("Edit it, then run 'igextract config show' to check the result")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(redacted(cfg))
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// redacted returns a copy of cfg safe to print
func redacted(cfg *config.Config) *config.Config {
	display := *cfg
	display.Proxy.Endpoints = make([]string, 0, len(cfg.Proxy.Endpoints))

	endpoints, err := proxy.ParseEndpoints(cfg.Proxy.Endpoints)
	if err != nil {
		for range cfg.Proxy.Endpoints {
			display.Proxy.Endpoints = append(display.Proxy.Endpoints, "***")
		}
		return &display
	}
	for i := range endpoints {
		display.Proxy.Endpoints = append(display.Proxy.Endpoints, endpoints[i].String())
	}
	return &display
}
