package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"planreel/internal/fileutil"
	"planreel/internal/sanitize"
)

func newSanitizeCommand(ctx *commandContext) *cobra.Command {
	var mapPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sanitize <file|->",
		Short: "Rewrite station notation and identifiers in narration text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			text, err := readTextArg(cmd, args[0])
			if err != nil {
				return err
			}

			clean, substitutions := sanitize.New(cfg.Sanitizer.AllowWords...).Sanitize(text)

			if strings.TrimSpace(mapPath) != "" {
				data, err := json.MarshalIndent(substitutions, "", "  ")
				if err != nil {
					return fmt.Errorf("encode sanitization map: %w", err)
				}
				if err := fileutil.WriteFileAtomic(mapPath, append(data, '\n'), 0o644); err != nil {
					return fmt.Errorf("write sanitization map: %w", err)
				}
			}

			if asJSON {
				return writeJSON(cmd, struct {
					Text string        `json:"text"`
					Map  *sanitize.Map `json:"map"`
				}{Text: clean, Map: substitutions})
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, clean)
			if !strings.HasSuffix(clean, "\n") {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mapPath, "map", "", "Write the substitution map as JSON to this path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the sanitized text and map as JSON")
	return cmd
}

// readTextArg reads a file, or stdin when arg is "-".
func readTextArg(cmd *cobra.Command, arg string) (string, error) {
	if strings.TrimSpace(arg) == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", arg, err)
	}
	return string(data), nil
}
