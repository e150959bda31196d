package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/patrace/internal/packet"
	"github.com/ppiankov/patrace/internal/pipeline"
	"github.com/ppiankov/patrace/internal/worker"
)

var concurrency int

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Process every case_*.json in a directory in parallel",
	Long: `Batch processes a directory of case files concurrently:
- Read every case_*.json file in the directory
- Process cases in parallel with a configurable worker count
- Throttle model calls with the configured rate limit
- Write one packet bundle per case

Example:
  patrace batch ./cases
  patrace batch ./cases --concurrency 8 --out ./runs
  patrace batch ./cases --llm-provider openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addRunFlags(batchCmd, 30*time.Minute)
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "  PA-Trace Batch Processing\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Case dir:     %s\n", dir)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", timeout)

	// One limiter shared by every worker, keyed by provider name
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	p, err := pipeline.NewPipeline(ctx, cfg,
		pipeline.WithLogger(logger),
		pipeline.WithWaiter(limiter),
	)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	fmt.Fprintf(os.Stderr, "  Provider:     %s\n", orBaseline(p.ProviderName()))
	if p.ProviderName() != "" {
		fmt.Fprintf(os.Stderr, "  Rate limit:   %.1f req/s (burst %d)\n", cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	}
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)

	fmt.Fprintf(os.Stderr, "⚙️  Processing cases with %d workers...\n\n", cfg.Concurrency.Workers)
	results, err := processor.ProcessDir(ctx, dir)
	if err != nil {
		return err
	}

	counts := map[packet.Status]int{}
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		status := result.Result.Bundle.Checklist.OverallStatus
		counts[status]++
		fmt.Fprintf(os.Stderr, "✓ %s: %s (mode: %s)\n", result.Result.CaseID, status, result.Result.Record.ExtractionMode)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:           %d cases\n", len(results))
	fmt.Fprintf(os.Stderr, "  Complete:        %d\n", counts[packet.StatusComplete])
	fmt.Fprintf(os.Stderr, "  Needs evidence:  %d\n", counts[packet.StatusNeedsEvidence])
	fmt.Fprintf(os.Stderr, "  Refused:         %d\n", counts[packet.StatusRefused])
	fmt.Fprintf(os.Stderr, "  Failures:        %d\n", failureCount)
	if stats, ok := p.CacheStats(); ok {
		fmt.Fprintf(os.Stderr, "  Cache:           %d hits (%d from disk), %d misses\n", stats.Hits, stats.DiskHits, stats.Misses)
	}
	fmt.Fprintf(os.Stderr, "  Output:          %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d cases failed", failureCount, len(results))
	}
	return nil
}
