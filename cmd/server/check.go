package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configs, prompts and reference documents without starting the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := startupCheck(cfg, log); err != nil {
			log.Error("Startup check failed", zap.Error(err))
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "OK")
		return nil
	},
}
