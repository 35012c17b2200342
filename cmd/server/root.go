package main

import (
	"errors"
	"fmt"
	"io/fs"

	"story-server/internal/config"
	"story-server/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "story-server"

var (
	envFile string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "HTTP service that generates story scenes with chat models and stores user stories",
	Long: `story-server loads named model configs and prompt templates from disk,
sends request payloads to the configured chat model and returns the text.

It also stores user stories in a JSON file, Redis or PostgreSQL and serves
the reference documents used by the story editor.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}

		var err error
		if cfg, err = config.LoadConfig(); err != nil {
			return err
		}

		log, err = logger.New(logger.Config{
			Level:      cfg.LogLevel,
			Encoding:   cfg.LogEncoding,
			OutputPath: cfg.LogOutput,
			Service:    serviceName,
			Env:        cfg.Env,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		zap.ReplaceGlobals(log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(promptsCmd)
}
