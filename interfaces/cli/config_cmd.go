package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	infraconfig "github.com/felixgeelhaar/plantkeep/infrastructure/config"
)

// newConfigCmd creates the config command group.
func (a *App) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}
	cmd.AddCommand(a.newConfigSchemaCmd(), a.newConfigShowCmd(), a.newConfigValidateCmd())
	return cmd
}

type schemaOptions struct {
	outputFile string
}

// newConfigSchemaCmd exports the JSON schema for configuration files.
func (a *App) newConfigSchemaCmd() *cobra.Command {
	opts := &schemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Export JSON Schema for configuration files",
		Long: `Export the JSON Schema for plantkeep configuration files.

The schema enables IDE autocompletion and validation for YAML and JSON configs.

Examples:
  # Print schema to stdout
  plantkeep config schema

  # Save schema to file
  plantkeep config schema --file plantkeep.schema.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigSchema(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputFile, "file", "f", "", "Output file (default: stdout)")
	return cmd
}

func (a *App) runConfigSchema(opts *schemaOptions) error {
	schema, err := infraconfig.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if opts.outputFile == "" {
		fmt.Fprintln(a.stdout, schema)
		return nil
	}

	if err := os.WriteFile(opts.outputFile, []byte(schema+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	fmt.Fprintf(a.stdout, "Schema written to %s\n", opts.outputFile)
	return nil
}

// newConfigShowCmd prints the effective configuration after overrides.
func (a *App) newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return a.print(cfg)
		},
	}
}

// newConfigValidateCmd checks a configuration file.
func (a *App) newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate the configuration file given with --config.

Environment references (${VAR}, ${VAR:-default}) are expanded before validation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.opts.configPath == "" {
				return fmt.Errorf("--config is required")
			}
			if _, err := a.loadConfig(); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "✓ %s is valid\n", a.opts.configPath)
			return nil
		},
	}
}
