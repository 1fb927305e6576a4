package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medrota/dispatch/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration file and exit",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cmd.Printf("config ok: match retries=%d, alert scan=%s\n", cfg.Match.MaxAttempts, cfg.Alerts.ScanInterval())
	return nil
}
