package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"scalpcare-backend/internal/kb"
)

const (
	formatJSON   = "json"
	formatYAML   = "yaml"
	formatPrompt = "prompt"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kbctl",
		Short:         "Inspect the scalp assessment rule engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("catalog", "", "YAML catalog file overriding the bundled catalogs")
	root.AddCommand(newAnalyzeCmd(), newCatalogCmd())
	return root
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the engine on an assessment file",
		Long: `Run the rule engine on an assessment written as JSON or YAML.

Examples:
  kbctl analyze -f visit.yaml
  kbctl analyze -f visit.json --format prompt
  cat visit.json | kbctl analyze -f -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			format, _ := cmd.Flags().GetString("format")
			engine, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			input, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			return writeAnalysis(cmd.OutOrStdout(), engine, engine.RunAnalysis(input), format)
		},
	}
	cmd.Flags().StringP("file", "f", "", "assessment file, or - for stdin")
	cmd.Flags().StringP("format", "o", formatJSON, "output format (json, yaml, prompt)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the active product, course and lifestyle catalogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			engine, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), engine.Catalogs().Data(), format)
		},
	}
	cmd.Flags().StringP("format", "o", formatYAML, "output format (json, yaml)")
	return cmd
}

func loadEngine(cmd *cobra.Command) (*kb.Engine, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		return kb.NewEngine(nil), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	catalogs, err := kb.LoadCatalogs(f)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return kb.NewEngine(catalogs), nil
}

// readInput decodes an assessment. JSON documents are valid YAML, so one
// decoder serves both.
func readInput(stdin io.Reader, path string) (kb.AssessmentInput, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return kb.AssessmentInput{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	var in kb.AssessmentInput
	if err := yaml.NewDecoder(r).Decode(&in); err != nil {
		return kb.AssessmentInput{}, fmt.Errorf("decode input: %w", err)
	}
	if err := in.Observation.Normalize(); err != nil {
		return kb.AssessmentInput{}, err
	}
	return in, nil
}

func writeAnalysis(w io.Writer, engine *kb.Engine, result kb.Analysis, format string) error {
	if format == formatPrompt {
		_, err := fmt.Fprintln(w, engine.FormatForGeneration(result))
		return err
	}
	return encode(w, result, format)
}

func encode(w io.Writer, v any, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
