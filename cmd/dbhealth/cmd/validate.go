package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dbhealth/internal/config"
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long:  "Load the configuration file, environment overrides and counter schemas, and check required fields, value ranges and threshold ordering.",
	Run:   runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	configPath := GetConfigFile()

	// Load calls Validate
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ configuration invalid: %v\n", err)
		os.Exit(1)
	}

	if _, err := config.LoadSchemas(cfg.Monitoring.SchemaFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ counter schemas invalid: %v\n", err)
		os.Exit(1)
	}

	if configPath == "" {
		configPath = "(defaults and environment)"
	}
	fmt.Printf("✅ configuration valid: %s\n", configPath)
}
