package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the available model configs",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := newCatalog(cfg, log).ListModels()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List the available prompt templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := newCatalog(cfg, log).ListPrompts()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}
