package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/patrace/internal/model"
)

var (
	outDir      string
	noCache     bool
	llmProvider string
	llmModel    string
	httpProxy   string
	httpsProxy  string
)

// addRunFlags registers the flags shared by extract and batch
func addRunFlags(cmd *cobra.Command, defaultTimeout time.Duration) {
	// Output flags
	cmd.Flags().StringVar(&outDir, "out", "runs", "output directory for case bundles")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable model response cache")
	cmd.Flags().Duration("timeout", defaultTimeout, "overall timeout")

	// Model flags
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "model provider (openai, anthropic, ollama, gemini); empty runs the baseline only")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "model name")
	cmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// applyRunFlags overrides cfg with the flags the user actually set
func applyRunFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.Output.Dir = outDir
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if flags.Changed("llm-provider") {
		cfg.LLM.Provider = llmProvider
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model = llmModel
	}
	if flags.Changed("http-proxy") {
		cfg.LLM.HTTPProxy = httpProxy
	}
	if flags.Changed("https-proxy") {
		cfg.LLM.HTTPSProxy = httpsProxy
	}
	if verbose {
		cfg.Output.Verbose = true
	}
}
