package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/facts/am"
	"github.com/teranos/facts/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: glyphAM + " Show and validate configuration",
	Long: glyphAM + ` am - Show and validate configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/facts/facts.toml)
3. User config (~/.facts/facts.toml)
4. Project config (nearest facts.toml at or above the working directory)
5. Environment variables (FACTS_* prefix, e.g. FACTS_INGEST_WORKERS)

Examples:
  facts am show                    # Show current configuration
  facts am show --format json      # Show configuration in JSON format
  facts am get ingest.workers      # Get specific config value
  facts am validate                # Validate current configuration
  facts am where                   # Show where each setting came from`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAmShow(cmd.OutOrStdout(), configFormat)
	},
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, ingest.workers)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAmGet(cmd.OutOrStdout(), args[0])
	},
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAmValidate(cmd.OutOrStdout())
	},
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAmWhere(cmd.OutOrStdout())
	},
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(w io.Writer, format string) error {
	settings, err := am.Settings()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	data, err := am.Render(settings, format)
	if err != nil {
		return err
	}
	if format != "json" {
		fmt.Fprintln(w, "# facts configuration")
	}
	_, err = w.Write(data)
	return err
}

func runAmGet(w io.Writer, key string) error {
	if _, err := am.Load(); err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	key = strings.ToLower(key)
	if !am.GetViper().IsSet(key) {
		return errors.NewNotFoundError("configuration key %q", key)
	}
	if strings.HasSuffix(key, ".api_key") {
		fmt.Fprintln(w, "********")
		return nil
	}
	fmt.Fprintln(w, am.Get(key))
	return nil
}

func runAmValidate(w io.Writer) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	if _, err := os.Stat(cfg.Ingest.RulesPath); err != nil {
		fmt.Fprintf(w, "! rules file %s not found\n", cfg.Ingest.RulesPath)
	}
	fmt.Fprintln(w, "✓ Configuration is valid")
	return nil
}

func runAmWhere(w io.Writer) error {
	intro, err := am.Introspect()
	if err != nil {
		return errors.Wrap(err, "failed to get config introspection")
	}

	fmt.Fprintln(w, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(w, "  1. [DEFAULT]  Built-in defaults")
	for i, cp := range am.ConfigPaths() {
		state := "missing"
		if _, err := os.Stat(cp.Path); err == nil {
			state = "loaded"
		}
		fmt.Fprintf(w, "  %d. [%s] %s (%s)\n", i+2, strings.ToUpper(string(cp.Source)), cp.Path, state)
	}
	fmt.Fprintf(w, "  %d. [ENV]      %s_* environment variables\n", len(am.ConfigPaths())+2, am.EnvPrefix)
	fmt.Fprintln(w)

	for _, s := range intro.Settings {
		origin := string(s.Source)
		if s.SourcePath != "" && s.Source != am.SourceDefault {
			origin += " " + s.SourcePath
		}
		fmt.Fprintf(w, "  %-32s %-24v %s\n", s.Key, s.Value, origin)
	}
	return nil
}
