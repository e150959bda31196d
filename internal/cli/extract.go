package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/patrace/internal/pipeline"
)

var printRecord bool

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <case.json>",
	Short: "Extract evidence-grounded facts from one case and write its packet bundle",
	Long: `Extract reads one case file and:
- Refuses requests that ask for a clinical recommendation
- Extracts symptom duration, conservative care, treatments and red flags
- Keeps only facts backed by a verbatim span of the note
- Writes packet.json, checklist.json, provenance.json, extracted.json,
  packet.md and highlights.html under <out>/<case_id>/

Example:
  patrace extract cases/case_001.json
  patrace extract cases/case_001.json --out ./runs --print
  patrace extract cases/case_001.json --llm-provider ollama --llm-model medgemma`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	addRunFlags(extractCmd, 5*time.Minute)
	extractCmd.Flags().BoolVar(&printRecord, "print", false, "print the extracted record as JSON on stdout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	p, err := pipeline.NewPipeline(ctx, cfg, pipeline.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Case:     %s\n", path)
		fmt.Fprintf(os.Stderr, "Provider: %s\n", orBaseline(p.ProviderName()))
		fmt.Fprintf(os.Stderr, "Cache:    %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	result, err := p.ProcessFile(ctx, path)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	checklist := result.Bundle.Checklist
	fmt.Fprintf(os.Stderr, "✓ %s: %s (mode: %s)\n", result.CaseID, checklist.OverallStatus, result.Record.ExtractionMode)
	if checklist.Refusal {
		fmt.Fprintf(os.Stderr, "  %s\n", checklist.Message)
	}
	for _, field := range checklist.MissingEvidence {
		fmt.Fprintf(os.Stderr, "  missing evidence: %s\n", field)
	}
	for _, gap := range checklist.CoverageGaps {
		fmt.Fprintf(os.Stderr, "  uncovered %s mention: %q at %d-%d\n", gap.Label, gap.Keyword, gap.Start, gap.End)
	}
	if result.OutDir != "" {
		fmt.Fprintf(os.Stderr, "  bundle: %s\n", result.OutDir)
	}

	if printRecord {
		data, err := json.MarshalIndent(result.Record, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		fmt.Println(string(data))
	}

	return nil
}

func orBaseline(provider string) string {
	if provider == "" {
		return "none (baseline extraction)"
	}
	return provider
}
