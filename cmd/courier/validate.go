package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"courier-hq/courier/pkg/config"
	"courier-hq/courier/pkg/credentials"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and credential file",
	Long: `Validate the configuration file and the credential file it references
without starting the server.

Examples:
  # Validate the default config
  courier validate

  # Validate a custom config
  courier validate --config /etc/courier/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)

	creds, err := credentials.LoadFile(cfg.Credentials.File)
	if err != nil {
		return fmt.Errorf("credential file invalid: %w", err)
	}
	fmt.Printf("✓ Credential file valid: %s (%d credentials)\n", cfg.Credentials.File, len(creds))

	for _, c := range creds {
		fmt.Printf("  - %s (%s)\n", c.Name, c.Fragment())
	}
	return nil
}
