package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dicescraper/pkg/config"
	"dicescraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage Dice Scraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (DICESCRAPER_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write the default configuration to .dicescraper.yaml in the current
directory, or to the path given with --config.`,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".dicescraper.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Edit the keyword and filters under 'site'")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Run 'dicescraper config validate'")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Start scraping with 'dicescraper scrape --pages 5'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var warnings []string
	if cfg.Scrape.DetailDelay == 0 && cfg.Scrape.DetailWorkers > 1 {
		warnings = append(warnings, "detail_delay is 0 with several workers, Dice may start blocking requests")
	}
	if cfg.Classifier.Enabled && cfg.Classifier.Provider != "ollama" {
		warnings = append(warnings, fmt.Sprintf("classifier uses %s, make sure a key is stored ('dicescraper auth status')", cfg.Classifier.Provider))
	}
	if cfg.Output.ProgressFile != "" {
		if _, err := os.Stat(cfg.Output.ProgressFile); err == nil {
			warnings = append(warnings, "progress file exists, the next scrape resumes from it")
		}
	}

	for _, w := range warnings {
		ui.PrintWarning("Warning", w)
	}

	ui.PrintSuccess("Configuration is valid")
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nConfiguration summary:")
	fmt.Fprintf(out, "  Keyword: %s\n", cfg.Site.Keyword)
	fmt.Fprintf(out, "  Pages per run: %d (%d jobs each)\n", cfg.Scrape.Pages, cfg.Scrape.JobsPerPage)
	fmt.Fprintf(out, "  Engine: %s\n", cfg.Browser.Engine)
	fmt.Fprintf(out, "  Output: %s/%s_*\n", cfg.Output.Directory, cfg.Output.Prefix)
	fmt.Fprintf(out, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
