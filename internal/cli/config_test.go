package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/patrace/internal/model"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, model.DefaultConfig())
	v.SetEnvPrefix("PATRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	want := model.DefaultConfig()
	if cfg.Output.Dir != want.Output.Dir {
		t.Errorf("expected output dir %s, got %s", want.Output.Dir, cfg.Output.Dir)
	}
	if cfg.Cache.MemoryTTL != want.Cache.MemoryTTL {
		t.Errorf("expected memory TTL %v, got %v", want.Cache.MemoryTTL, cfg.Cache.MemoryTTL)
	}
	if cfg.LLM.Provider != "" {
		t.Errorf("expected no provider by default, got %s", cfg.LLM.Provider)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("PATRACE_LLM_PROVIDER", "ollama")
	t.Setenv("PATRACE_LLM_MODEL", "medgemma")
	t.Setenv("PATRACE_CONCURRENCY_WORKERS", "9")
	t.Setenv("PATRACE_CACHE_MEMORY_TTL", "15m")

	cfg, err := loadConfig(newTestViper())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.LLM.Provider != "ollama" || cfg.LLM.Model != "medgemma" {
		t.Errorf("expected ollama/medgemma, got %s/%s", cfg.LLM.Provider, cfg.LLM.Model)
	}
	if cfg.Concurrency.Workers != 9 {
		t.Errorf("expected 9 workers, got %d", cfg.Concurrency.Workers)
	}
	if cfg.Cache.MemoryTTL != 15*time.Minute {
		t.Errorf("expected 15m memory TTL, got %v", cfg.Cache.MemoryTTL)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `llm:
  provider: anthropic
  temperature: 0
retrieval:
  top_k: 5
logging:
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	v := newTestViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("expected anthropic, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Temperature != 0 {
		t.Errorf("expected temperature 0, got %v", cfg.LLM.Temperature)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected top_k 5, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json logging, got %s", cfg.Logging.Format)
	}
	if cfg.Output.Dir != "runs" {
		t.Errorf("expected default output dir kept, got %s", cfg.Output.Dir)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".patrace", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not YAML: %v", err)
	}
	if cfg.Retrieval.TopK != model.DefaultConfig().Retrieval.TopK {
		t.Errorf("expected default top_k, got %d", cfg.Retrieval.TopK)
	}
	if strings.Contains(string(data), "api_key") {
		t.Error("API key must not be written to the config file")
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestApplyRunFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addRunFlags(cmd, time.Minute)

	if err := cmd.Flags().Parse([]string{"--out", "/tmp/bundles", "--llm-provider", "gemini", "--no-cache"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cfg := model.DefaultConfig()
	cfg.LLM.Model = "from-config"
	applyRunFlags(cmd, cfg)

	if cfg.Output.Dir != "/tmp/bundles" {
		t.Errorf("expected output dir override, got %s", cfg.Output.Dir)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected gemini, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "from-config" {
		t.Errorf("expected unset flag to keep config value, got %s", cfg.LLM.Model)
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache disabled")
	}

	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil || timeout != time.Minute {
		t.Errorf("expected 1m timeout default, got %v (%v)", timeout, err)
	}
}
