package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"story-server/internal/service"

	"github.com/spf13/cobra"
)

var (
	payloadFile string
	stream      bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [config] [prompt]",
	Short: "Run one generation from the command line",
	Long: `Reads a JSON payload from --payload-file (or stdin when it is "-")
and prints the model output. Config and prompt default to the configured
default names.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(cmd, payloadFile)
		if err != nil {
			return err
		}

		generator := service.NewGenerationService(newCatalog(cfg, log), nil, nil, cfg.AITimeout, log)
		configName, promptName := generator.DefaultNames()
		if len(args) > 0 {
			configName = args[0]
		}
		if len(args) > 1 {
			promptName = args[1]
		}

		out := cmd.OutOrStdout()
		if stream {
			err = generator.GenerateStream(cmd.Context(), configName, promptName, payload, func(chunk string) error {
				_, err := io.WriteString(out, chunk)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			return nil
		}

		text, err := generator.Generate(cmd.Context(), configName, promptName, payload)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&payloadFile, "payload-file", "f", "-", `JSON payload file, "-" for stdin`)
	generateCmd.Flags().BoolVar(&stream, "stream", false, "print the output as it is generated")
}

func readPayload(cmd *cobra.Command, path string) (map[string]interface{}, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	return payload, nil
}
